package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
)

// Profiles профили исполнителей в памяти.
type Profiles struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]models.ExecutorProfile
}

func NewProfiles() *Profiles {
	return &Profiles{profiles: make(map[uuid.UUID]models.ExecutorProfile)}
}

// Put добавляет или заменяет профиль.
func (p *Profiles) Put(profile models.ExecutorProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.UserID] = profile
}

func (p *Profiles) GetExecutorProfile(_ context.Context, userID uuid.UUID) (*models.ExecutorProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &profile, nil
}

// Reviews отзывы в памяти.
type Reviews struct {
	mu      sync.RWMutex
	reviews []models.Review
}

func NewReviews() *Reviews {
	return &Reviews{}
}

func (r *Reviews) Create(_ context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.OrderID == review.OrderID && existing.ReviewerID == review.ReviewerID {
			return domain.ErrReviewExists
		}
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	r.reviews = append(r.reviews, *review)
	return nil
}

func (r *Reviews) GetByOrderAndReviewer(_ context.Context, orderID, reviewerID uuid.UUID) (*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, existing := range r.reviews {
		if existing.OrderID == orderID && existing.ReviewerID == reviewerID {
			found := existing
			return &found, nil
		}
	}
	return nil, nil
}

func (r *Reviews) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Review
	for _, existing := range r.reviews {
		if existing.OrderID == orderID {
			out = append(out, existing)
		}
	}
	return out, nil
}

// Notifications уведомления в памяти.
type Notifications struct {
	mu    sync.RWMutex
	items []models.Notification
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (n *Notifications) Create(_ context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now()
	if notification.Payload == nil {
		notification.Payload = json.RawMessage("{}")
	}
	n.items = append(n.items, *notification)
	return nil
}

func (n *Notifications) List(_ context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []models.Notification
	for i := len(n.items) - 1; i >= 0; i-- {
		item := n.items[i]
		if item.UserID != userID || (unreadOnly && item.IsRead) {
			continue
		}
		out = append(out, item)
	}
	return page(out, limit, offset), nil
}

func (n *Notifications) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id && n.items[i].UserID == userID {
			n.items[i].IsRead = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (n *Notifications) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, item := range n.items {
		if item.UserID == userID && !item.IsRead {
			count++
		}
	}
	return count, nil
}
