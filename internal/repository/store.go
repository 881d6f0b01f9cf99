package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/repository/common"
)

// Store реализует UnitOfWork поверх postgres.
// Транзакции идут на READ COMMITTED: гонки закрываются блокировками строк
// (SELECT ... FOR UPDATE) и условными UPDATE по статусу.
type Store struct {
	db *sqlx.DB
	repos
}

// repos набор репозиториев поверх одного исполнителя запросов (пул или транзакция).
type repos struct {
	orders        *OrderRepository
	responses     *ResponseRepository
	ledger        *LedgerRepository
	subscriptions *SubscriptionRepository
	stats         *StatsRepository
}

func newRepos(ext sqlx.ExtContext) repos {
	return repos{
		orders:        &OrderRepository{db: ext},
		responses:     &ResponseRepository{db: ext},
		ledger:        &LedgerRepository{db: ext},
		subscriptions: &SubscriptionRepository{db: ext},
		stats:         &StatsRepository{db: ext},
	}
}

func (r repos) Orders() domain.OrderRepository               { return r.orders }
func (r repos) Responses() domain.ResponseRepository         { return r.responses }
func (r repos) Ledger() domain.LedgerRepository              { return r.ledger }
func (r repos) Subscriptions() domain.SubscriptionRepository { return r.subscriptions }
func (r repos) Stats() domain.StatsRepository                { return r.stats }

// NewStore создаёт новый экземпляр.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, repos: newRepos(db)}
}

// WithinTx выполняет fn в одной транзакции БД.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return common.WithTransaction(ctx, s.db, opts, func(tx *sqlx.Tx) error {
		return common.ClassifyTxError(fn(newRepos(tx)))
	})
}
