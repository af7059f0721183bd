package notification

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/doccollab/internal/models"
)

// In-memory notifications API
type fakeAPI struct {
	mu      sync.Mutex
	list    []models.Notification
	fetches int
	err     error
}

func (a *fakeAPI) Notifications(context.Context) ([]models.Notification, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fetches++
	if a.err != nil {
		return nil, a.err
	}
	return slices.Clone(a.list), nil
}

func (a *fakeAPI) ReadNotification(_ context.Context, n models.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.list {
		if a.list[i].ID == n.ID {
			a.list[i].Read = true
			return nil
		}
	}
	return errors.New("not found")
}

func (a *fakeAPI) ReadAllNotifications(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.list {
		a.list[i].Read = true
	}
	return nil
}

func (a *fakeAPI) DeleteNotification(_ context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id == -1 {
		a.list = nil
		return nil
	}
	a.list = slices.DeleteFunc(a.list, func(n models.Notification) bool { return n.ID == id })
	return nil
}

func (a *fakeAPI) add(n models.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.list = append(a.list, n)
}

func newAPI() *fakeAPI {
	now := time.Now()
	return &fakeAPI{list: []models.Notification{
		{ID: 1, Message: "shared Plan", Timestamp: now},
		{ID: 2, Message: "shared Notes", Timestamp: now.Add(-time.Hour)},
	}}
}

func TestInbox(t *testing.T) {
	t.Run("refresh flags new", func(t *testing.T) {
		inbox := NewInbox(newAPI(), nil)

		require.NoError(t, inbox.Refresh(t.Context()))

		require.Len(t, inbox.Notifications(), 2)
		require.True(t, inbox.HasNew())
		require.Equal(t, 2, inbox.Unread())
	})

	t.Run("read refetches and clears flag", func(t *testing.T) {
		api := newAPI()
		inbox := NewInbox(api, nil)
		require.NoError(t, inbox.Refresh(t.Context()))

		n, ok := inbox.Find(1)
		require.True(t, ok)
		require.NoError(t, inbox.Read(t.Context(), n))

		require.False(t, inbox.HasNew())
		require.Equal(t, 1, inbox.Unread())
		require.Equal(t, 2, api.fetches)
	})

	t.Run("read all", func(t *testing.T) {
		inbox := NewInbox(newAPI(), nil)

		require.NoError(t, inbox.ReadAll(t.Context()))

		require.Zero(t, inbox.Unread())
		require.False(t, inbox.HasNew())
	})

	t.Run("delete one and all", func(t *testing.T) {
		inbox := NewInbox(newAPI(), nil)
		require.NoError(t, inbox.Refresh(t.Context()))

		n, _ := inbox.Find(2)
		require.NoError(t, inbox.Delete(t.Context(), &n))
		require.Len(t, inbox.Notifications(), 1)
		_, ok := inbox.Find(2)
		require.False(t, ok)

		require.NoError(t, inbox.Delete(t.Context(), nil))
		require.Empty(t, inbox.Notifications())
	})

	t.Run("fetch failure keeps state", func(t *testing.T) {
		api := newAPI()
		inbox := NewInbox(api, nil)
		require.NoError(t, inbox.Refresh(t.Context()))

		api.err = errors.New("boom")
		require.Error(t, inbox.Refresh(t.Context()))
		require.Len(t, inbox.Notifications(), 2)
	})
}

func TestWatcher(t *testing.T) {
	api := newAPI()
	api.list[1].Read = true
	inbox := NewInbox(api, nil)

	got := make(chan models.Notification, 10)
	w := NewWatcher(WatcherConfig{Interval: 10 * time.Millisecond}, inbox, func(_ context.Context, n models.Notification) {
		got <- n
	})

	ctx, cancel := context.WithCancel(t.Context())
	stopped := w.Watch(ctx)

	first := <-got
	require.EqualValues(t, 1, first.ID, "read notifications are skipped")

	api.add(models.Notification{ID: 3, Message: "commented", Timestamp: time.Now()})
	second := <-got
	require.EqualValues(t, 3, second.ID)

	// Already handled notifications are not sent again
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.fetches > 4
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, got)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("watcher must stop when context is done")
	}
}
