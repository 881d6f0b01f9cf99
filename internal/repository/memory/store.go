package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
)

// state снимок всех данных хранилища.
type state struct {
	orders        map[uuid.UUID]models.Order
	responses     []models.Response
	balances      map[uuid.UUID]models.Balance
	transactions  []models.Transaction
	subscriptions map[uuid.UUID]models.Subscription
	stats         map[uuid.UUID]models.ParticipantStats
}

func newState() *state {
	return &state{
		orders:        make(map[uuid.UUID]models.Order),
		balances:      make(map[uuid.UUID]models.Balance),
		subscriptions: make(map[uuid.UUID]models.Subscription),
		stats:         make(map[uuid.UUID]models.ParticipantStats),
	}
}

func (s *state) clone() *state {
	c := &state{
		orders:        make(map[uuid.UUID]models.Order, len(s.orders)),
		responses:     append([]models.Response(nil), s.responses...),
		balances:      make(map[uuid.UUID]models.Balance, len(s.balances)),
		transactions:  append([]models.Transaction(nil), s.transactions...),
		subscriptions: make(map[uuid.UUID]models.Subscription, len(s.subscriptions)),
		stats:         make(map[uuid.UUID]models.ParticipantStats, len(s.stats)),
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range s.stats {
		c.stats[k] = v
	}
	return c
}

type runner func(fn func(st *state) error) error

// Store реализует UnitOfWork в памяти процесса.
// Транзакции выполняются строго по одной над копией состояния;
// копия становится текущим состоянием только при успешном завершении fn.
// Репозитории верхнего уровня нельзя вызывать внутри WithinTx.
type Store struct {
	mu sync.Mutex
	st *state
	repos
}

type repos struct {
	orders        *orderRepo
	responses     *responseRepo
	ledger        *ledgerRepo
	subscriptions *subscriptionRepo
	stats         *statsRepo
}

func newRepos(run runner) repos {
	return repos{
		orders:        &orderRepo{run: run},
		responses:     &responseRepo{run: run},
		ledger:        &ledgerRepo{run: run},
		subscriptions: &subscriptionRepo{run: run},
		stats:         &statsRepo{run: run},
	}
}

func (r repos) Orders() domain.OrderRepository               { return r.orders }
func (r repos) Responses() domain.ResponseRepository         { return r.responses }
func (r repos) Ledger() domain.LedgerRepository              { return r.ledger }
func (r repos) Subscriptions() domain.SubscriptionRepository { return r.subscriptions }
func (r repos) Stats() domain.StatsRepository                { return r.stats }

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	s := &Store{st: newState()}
	s.repos = newRepos(s.autocommit)
	return s
}

func (s *Store) autocommit(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

// WithinTx выполняет fn атомарно.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	run := func(op func(st *state) error) error { return op(work) }
	if err := fn(newRepos(run)); err != nil {
		return err
	}
	s.st = work
	return nil
}
