package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
)

type orderRepo struct{ run runner }

func (r *orderRepo) Create(_ context.Context, order *models.Order) error {
	return r.run(func(st *state) error {
		st.orders[order.ID] = *order
		return nil
	})
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := r.run(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) Update(_ context.Context, order *models.Order, expected models.OrderStatus) error {
	return r.run(func(st *state) error {
		current, ok := st.orders[order.ID]
		if !ok || current.Status != expected {
			return domain.ErrStaleOrder
		}
		order.UpdatedAt = time.Now()
		st.orders[order.ID] = *order
		return nil
	})
}

func (r *orderRepo) ListExpiredWithoutResponses(_ context.Context, now time.Time, limit int) ([]models.Order, error) {
	var out []models.Order
	err := r.run(func(st *state) error {
		withResponses := make(map[uuid.UUID]bool)
		for _, resp := range st.responses {
			withResponses[resp.OrderID] = true
		}
		for _, o := range st.orders {
			if o.Status == models.OrderStatusPublished && o.StartDate.Before(now) && !withResponses[o.ID] {
				out = append(out, o)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *orderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	err := r.run(func(st *state) error {
		for _, o := range st.orders {
			if o.CustomerID == customerID {
				out = append(out, o)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), err
}

type responseRepo struct{ run runner }

func (r *responseRepo) Create(_ context.Context, response *models.Response) error {
	return r.run(func(st *state) error {
		for _, existing := range st.responses {
			if existing.OrderID == response.OrderID && existing.ExecutorID == response.ExecutorID {
				return domain.ErrResponseExists
			}
		}
		st.responses = append(st.responses, *response)
		return nil
	})
}

func (r *responseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Response, error) {
	return r.find(func(resp models.Response) bool { return resp.ID == id })
}

func (r *responseRepo) GetByOrderAndExecutor(_ context.Context, orderID, executorID uuid.UUID) (*models.Response, error) {
	return r.find(func(resp models.Response) bool {
		return resp.OrderID == orderID && resp.ExecutorID == executorID
	})
}

func (r *responseRepo) find(match func(models.Response) bool) (*models.Response, error) {
	var out *models.Response
	err := r.run(func(st *state) error {
		for _, resp := range st.responses {
			if match(resp) {
				found := resp
				out = &found
				return nil
			}
		}
		return domain.ErrResponseNotFound
	})
	return out, err
}

func (r *responseRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.Response, error) {
	var out []models.Response
	err := r.run(func(st *state) error {
		for _, resp := range st.responses {
			if resp.OrderID == orderID {
				out = append(out, resp)
			}
		}
		return nil
	})
	return out, err
}

func (r *responseRepo) ListByExecutor(_ context.Context, executorID uuid.UUID, limit, offset int) ([]models.Response, error) {
	var out []models.Response
	err := r.run(func(st *state) error {
		for i := len(st.responses) - 1; i >= 0; i-- {
			if st.responses[i].ExecutorID == executorID {
				out = append(out, st.responses[i])
			}
		}
		return nil
	})
	return page(out, limit, offset), err
}

func (r *responseRepo) CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	list, err := r.ListByOrder(ctx, orderID)
	return len(list), err
}

func (r *responseRepo) UpdateStatus(_ context.Context, response *models.Response) error {
	return r.run(func(st *state) error {
		for i := range st.responses {
			if st.responses[i].ID != response.ID {
				continue
			}
			stored := &st.responses[i]
			response.UpdatedAt = time.Now()
			stored.Status = response.Status
			stored.SelectionFeePaid = response.SelectionFeePaid
			stored.AcceptedAt = response.AcceptedAt
			stored.RejectedAt = response.RejectedAt
			stored.CancelledAt = response.CancelledAt
			stored.UpdatedAt = response.UpdatedAt
			return nil
		}
		return domain.ErrResponseNotFound
	})
}

type ledgerRepo struct{ run runner }

func (r *ledgerRepo) GetBalance(_ context.Context, userID uuid.UUID) (*models.Balance, error) {
	var out models.Balance
	err := r.run(func(st *state) error {
		b, ok := st.balances[userID]
		if !ok {
			b = models.Balance{UserID: userID}
		}
		out = b
		return nil
	})
	return &out, err
}

func (r *ledgerRepo) GetBalanceForUpdate(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	return r.GetBalance(ctx, userID)
}

func (r *ledgerRepo) SaveBalance(_ context.Context, balance *models.Balance) error {
	return r.run(func(st *state) error {
		balance.UpdatedAt = time.Now()
		st.balances[balance.UserID] = *balance
		return nil
	})
}

func (r *ledgerRepo) AppendTransaction(_ context.Context, tx *models.Transaction) error {
	return r.run(func(st *state) error {
		if tx.ExternalPaymentID != nil {
			for _, existing := range st.transactions {
				if existing.ExternalPaymentID != nil && *existing.ExternalPaymentID == *tx.ExternalPaymentID {
					return domain.ErrDuplicatePayment
				}
			}
		}
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r *ledgerRepo) GetTransactionByExternalID(_ context.Context, externalID string) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.run(func(st *state) error {
		for _, tx := range st.transactions {
			if tx.ExternalPaymentID != nil && *tx.ExternalPaymentID == externalID {
				found := tx
				out = &found
				return nil
			}
		}
		return domain.ErrTransactionNotFound
	})
	return out, err
}

func (r *ledgerRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	all, err := r.AllTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return page(all, limit, offset), nil
}

func (r *ledgerRepo) AllTransactions(_ context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.run(func(st *state) error {
		for _, tx := range st.transactions {
			if tx.UserID == userID {
				out = append(out, tx)
			}
		}
		return nil
	})
	return out, err
}

type subscriptionRepo struct{ run runner }

func (r *subscriptionRepo) Get(_ context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var out *models.Subscription
	err := r.run(func(st *state) error {
		if sub, ok := st.subscriptions[userID]; ok {
			out = &sub
		}
		return nil
	})
	return out, err
}

func (r *subscriptionRepo) Save(_ context.Context, sub *models.Subscription) error {
	return r.run(func(st *state) error {
		sub.UpdatedAt = time.Now()
		st.subscriptions[sub.UserID] = *sub
		return nil
	})
}

type statsRepo struct{ run runner }

func (r *statsRepo) IncrementCompleted(_ context.Context, customerID, executorID uuid.UUID) error {
	return r.run(func(st *state) error {
		now := time.Now()
		c := st.stats[customerID]
		c.UserID = customerID
		c.CompletedAsCustomer++
		c.UpdatedAt = now
		st.stats[customerID] = c

		e := st.stats[executorID]
		e.UserID = executorID
		e.CompletedAsExecutor++
		e.UpdatedAt = now
		st.stats[executorID] = e
		return nil
	})
}

func (r *statsRepo) Get(_ context.Context, userID uuid.UUID) (*models.ParticipantStats, error) {
	var out models.ParticipantStats
	err := r.run(func(st *state) error {
		out = st.stats[userID]
		out.UserID = userID
		return nil
	})
	return &out, err
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
