package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
)

// Posting описание движения средств по счёту исполнителя.
type Posting struct {
	AccountID         uuid.UUID
	Amount            decimal.Decimal
	Type              models.TransactionType
	Description       string
	OrderID           *uuid.UUID
	ExternalPaymentID *string
}

// Ledger изменяет баланс и пишет запись журнала в одной транзакции хранилища.
// Все методы нужно вызывать с репозиторием из domain.Tx.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Debit списывает сумму: сначала бонусы, остаток из денег.
func (l *Ledger) Debit(ctx context.Context, repo domain.LedgerRepository, p Posting) (*models.Transaction, *models.Balance, error) {
	if !p.Amount.IsPositive() {
		return nil, nil, apperror.Validation("сумма списания должна быть положительной")
	}

	balance, err := repo.GetBalanceForUpdate(ctx, p.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: debit %w", err)
	}

	total := balance.Total()
	if total.LessThan(p.Amount) {
		return nil, nil, apperror.InsufficientFunds(p.Amount, total)
	}

	fromBonus := decimal.Min(balance.BonusAmount, p.Amount)
	fromCash := p.Amount.Sub(fromBonus)
	balance.BonusAmount = balance.BonusAmount.Sub(fromBonus)
	balance.Amount = balance.Amount.Sub(fromCash)

	tx, err := l.apply(ctx, repo, balance, p, fromCash.Neg(), fromBonus.Neg())
	if err != nil {
		return nil, nil, err
	}

	logger.Account(p.AccountID).WithField("type", p.Type).
		Infof("списано %s (бонусы %s, деньги %s)", p.Amount.StringFixed(2), fromBonus.StringFixed(2), fromCash.StringFixed(2))
	return tx, balance, nil
}

// Credit зачисляет сумму на денежную часть баланса.
func (l *Ledger) Credit(ctx context.Context, repo domain.LedgerRepository, p Posting) (*models.Transaction, *models.Balance, error) {
	if !p.Amount.IsPositive() {
		return nil, nil, apperror.Validation("сумма зачисления должна быть положительной")
	}

	balance, err := repo.GetBalanceForUpdate(ctx, p.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: credit %w", err)
	}
	balance.Amount = balance.Amount.Add(p.Amount)

	tx, err := l.apply(ctx, repo, balance, p, p.Amount, decimal.Zero)
	if err != nil {
		return nil, nil, err
	}

	logger.Account(p.AccountID).WithField("type", p.Type).Infof("зачислено %s", p.Amount.StringFixed(2))
	return tx, balance, nil
}

// CreditBonus зачисляет сумму на бонусную часть баланса.
func (l *Ledger) CreditBonus(ctx context.Context, repo domain.LedgerRepository, p Posting) (*models.Transaction, *models.Balance, error) {
	if !p.Amount.IsPositive() {
		return nil, nil, apperror.Validation("сумма бонуса должна быть положительной")
	}

	balance, err := repo.GetBalanceForUpdate(ctx, p.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: credit bonus %w", err)
	}
	balance.BonusAmount = balance.BonusAmount.Add(p.Amount)

	tx, err := l.apply(ctx, repo, balance, p, decimal.Zero, p.Amount)
	if err != nil {
		return nil, nil, err
	}
	return tx, balance, nil
}

// Record пишет запись журнала без движения средств (оплата прошла мимо баланса).
func (l *Ledger) Record(ctx context.Context, repo domain.LedgerRepository, p Posting) (*models.Transaction, error) {
	tx := l.newTransaction(p, decimal.Zero, decimal.Zero)
	if err := repo.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (l *Ledger) apply(ctx context.Context, repo domain.LedgerRepository, balance *models.Balance, p Posting, cashDelta, bonusDelta decimal.Decimal) (*models.Transaction, error) {
	if balance.Amount.IsNegative() || balance.BonusAmount.IsNegative() {
		return nil, fmt.Errorf("ledger: отрицательный баланс счёта %s", p.AccountID)
	}
	if err := repo.SaveBalance(ctx, balance); err != nil {
		return nil, err
	}
	tx := l.newTransaction(p, cashDelta, bonusDelta)
	if err := repo.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (l *Ledger) newTransaction(p Posting, cashDelta, bonusDelta decimal.Decimal) *models.Transaction {
	return &models.Transaction{
		ID:                uuid.New(),
		UserID:            p.AccountID,
		Amount:            cashDelta.Add(bonusDelta),
		CashDelta:         cashDelta,
		BonusDelta:        bonusDelta,
		Type:              p.Type,
		Description:       p.Description,
		OrderID:           p.OrderID,
		ExternalPaymentID: p.ExternalPaymentID,
		CreatedAt:         l.now(),
	}
}

// Reconciliation результат сверки баланса с журналом.
type Reconciliation struct {
	AccountID     uuid.UUID       `json:"account_id"`
	StoredCash    decimal.Decimal `json:"stored_cash"`
	StoredBonus   decimal.Decimal `json:"stored_bonus"`
	ReplayedCash  decimal.Decimal `json:"replayed_cash"`
	ReplayedBonus decimal.Decimal `json:"replayed_bonus"`
	Transactions  int             `json:"transactions"`
	Consistent    bool            `json:"consistent"`
}

// Reconcile проигрывает журнал счёта и сравнивает результат с сохранённым балансом.
func (l *Ledger) Reconcile(ctx context.Context, repo domain.LedgerRepository, accountID uuid.UUID) (*Reconciliation, error) {
	balance, err := repo.GetBalanceForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ledger: reconcile balance %w", err)
	}
	txs, err := repo.AllTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ledger: reconcile journal %w", err)
	}

	cash, bonus := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		cash = cash.Add(tx.CashDelta)
		bonus = bonus.Add(tx.BonusDelta)
	}

	result := &Reconciliation{
		AccountID:     accountID,
		StoredCash:    balance.Amount,
		StoredBonus:   balance.BonusAmount,
		ReplayedCash:  cash,
		ReplayedBonus: bonus,
		Transactions:  len(txs),
		Consistent:    cash.Equal(balance.Amount) && bonus.Equal(balance.BonusAmount),
	}
	if !result.Consistent {
		logger.Account(accountID).Warnf("расхождение баланса с журналом: деньги %s/%s, бонусы %s/%s",
			balance.Amount, cash, balance.BonusAmount, bonus)
	}
	return result, nil
}
