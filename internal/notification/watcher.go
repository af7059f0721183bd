package notification

import (
	"context"
	"time"

	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
)

const defaultPollInterval = 30 * time.Second

type WatcherConfig struct {
	// Interval between polls
	// If not set than default is used
	Interval time.Duration

	// If not set than no-op logger is used
	Logger logger.Logger
}

// Watcher polls inbox and hands every new notification to handler
type Watcher struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func NewWatcher(cfg WatcherConfig, inbox *Inbox, handle Handler) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Watcher{
		consumer: &Consumer{
			handle: handle,
			logger: cfg.Logger,
		},
		producer: &Producer{
			interval: cfg.Interval,
			inbox:    inbox,
			logger:   cfg.Logger,
		},
		logger: cfg.Logger,
	}
}

// Watch runs until context is done. Returned channel is closed when everything stopped
func (w *Watcher) Watch(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	notifications := make(chan models.Notification)

	producerStopped := w.producer.Produce(ctx, notifications)
	consumerStopped := w.consumer.Consume(ctx, notifications)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(notifications)
		<-consumerStopped
		w.logger.Debug("Notification watcher stopped")
	}()

	return idleStopped
}
