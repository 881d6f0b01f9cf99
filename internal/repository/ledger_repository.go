package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/common"
)

const (
	transactionsExternalPaymentKey = "transactions_external_payment_id_key"

	balanceColumns     = `user_id, amount, bonus_amount, welcome_bonus_granted, updated_at`
	transactionColumns = `id, user_id, amount, cash_delta, bonus_delta, type, description, order_id, external_payment_id, created_at`
)

// LedgerRepository хранит балансы и журнал операций.
type LedgerRepository struct {
	db sqlx.ExtContext
}

// NewLedgerRepository создаёт новый экземпляр.
func NewLedgerRepository(db sqlx.ExtContext) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetBalance возвращает баланс пользователя, нулевой если записи ещё нет.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE user_id = $1`
	balance, err := common.GetOptional[models.Balance](ctx, r.db, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: get balance %w", err)
	}
	if balance == nil {
		return &models.Balance{UserID: userID}, nil
	}
	return balance, nil
}

// GetBalanceForUpdate создаёт баланс при отсутствии и блокирует строку.
func (r *LedgerRepository) GetBalanceForUpdate(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO balances (user_id, amount, bonus_amount)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: ensure balance %w", err)
	}

	var balance models.Balance
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE user_id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: lock balance %w", err)
	}
	return &balance, nil
}

// SaveBalance записывает обе части баланса.
func (r *LedgerRepository) SaveBalance(ctx context.Context, balance *models.Balance) error {
	query := `
		INSERT INTO balances (user_id, amount, bonus_amount, welcome_bonus_granted, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			bonus_amount = EXCLUDED.bonus_amount,
			welcome_bonus_granted = EXCLUDED.welcome_bonus_granted,
			updated_at = NOW()
		RETURNING updated_at
	`
	err := sqlx.GetContext(ctx, r.db, &balance.UpdatedAt, query,
		balance.UserID, balance.Amount, balance.BonusAmount, balance.WelcomeBonusGranted)
	if err != nil {
		return fmt.Errorf("ledger repository: save balance %w", err)
	}
	return nil
}

// AppendTransaction добавляет запись в журнал.
func (r *LedgerRepository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (:id, :user_id, :amount, :cash_delta, :bonus_delta, :type, :description, :order_id, :external_payment_id, :created_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, tx); err != nil {
		if common.IsUniqueViolation(err, transactionsExternalPaymentKey) {
			return domain.ErrDuplicatePayment
		}
		return fmt.Errorf("ledger repository: append transaction %w", err)
	}
	return nil
}

// GetTransactionByExternalID ищет операцию по идентификатору внешнего платежа.
func (r *LedgerRepository) GetTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_payment_id = $1`
	tx, err := common.GetOptional[models.Transaction](ctx, r.db, query, externalID)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: get by external id %w", err)
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

// ListTransactions возвращает страницу журнала, новые записи первыми.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.db, &txs, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ledger repository: list transactions %w", err)
	}
	return txs, nil
}

// AllTransactions возвращает весь журнал пользователя в порядке записи.
func (r *LedgerRepository) AllTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY seq`
	if err := sqlx.SelectContext(ctx, r.db, &txs, query, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: all transactions %w", err)
	}
	return txs, nil
}
