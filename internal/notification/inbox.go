package notification

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Id deleting every notification
const deleteAll int64 = -1

type notificationsAPI interface {
	Notifications(ctx context.Context) ([]models.Notification, error)
	ReadNotification(ctx context.Context, n models.Notification) error
	ReadAllNotifications(ctx context.Context) error
	DeleteNotification(ctx context.Context, id int64) error
}

// Inbox keeps notifications shown to user
// Every mutation refetches the list and clears "new notifications" flag
type Inbox struct {
	api    notificationsAPI
	logger logger.Logger

	mu               sync.RWMutex
	notifications    []models.Notification
	newNotifications bool
}

func NewInbox(api notificationsAPI, l logger.Logger) *Inbox {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &Inbox{api: api, logger: l}
}

// Refresh fetches notifications and flags them new
func (b *Inbox) Refresh(ctx context.Context) error {
	list, err := b.api.Notifications(ctx)
	if err != nil {
		b.logger.Error("Error while fetching notifications", "error", err)
		return fmt.Errorf("error while fetching notifications. Err: %w", err)
	}

	b.mu.Lock()
	b.notifications = list
	b.newNotifications = true
	b.mu.Unlock()
	return nil
}

func (b *Inbox) Read(ctx context.Context, n models.Notification) error {
	if err := b.api.ReadNotification(ctx, n); err != nil {
		b.logger.Error("Error while marking notification read", "id", n.ID, "error", err)
		return fmt.Errorf("error while marking notification read. Err: %w", err)
	}
	return b.refetch(ctx)
}

func (b *Inbox) ReadAll(ctx context.Context) error {
	if err := b.api.ReadAllNotifications(ctx); err != nil {
		b.logger.Error("Error while marking notifications read", "error", err)
		return fmt.Errorf("error while marking notifications read. Err: %w", err)
	}
	return b.refetch(ctx)
}

// Delete deletes notification, nil deletes every one
func (b *Inbox) Delete(ctx context.Context, n *models.Notification) error {
	id := deleteAll
	if n != nil {
		id = n.ID
	}

	if err := b.api.DeleteNotification(ctx, id); err != nil {
		b.logger.Error("Error while deleting notification", "id", id, "error", err)
		return fmt.Errorf("error while deleting notification. Err: %w", err)
	}
	return b.refetch(ctx)
}

func (b *Inbox) refetch(ctx context.Context) error {
	if err := b.Refresh(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	b.newNotifications = false
	b.mu.Unlock()
	return nil
}

func (b *Inbox) Notifications() []models.Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.notifications)
}

// Find notification by id among fetched ones
func (b *Inbox) Find(id int64) (models.Notification, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := slices.IndexFunc(b.notifications, func(n models.Notification) bool { return n.ID == id })
	if i < 0 {
		return models.Notification{}, false
	}
	return b.notifications[i], true
}

func (b *Inbox) HasNew() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.newNotifications
}

func (b *Inbox) Unread() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, n := range b.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
