package notification

import (
	"context"
	"time"

	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Producer polls inbox and sends unread notifications not sent before
type Producer struct {
	interval time.Duration
	logger   logger.Logger
	inbox    *Inbox

	seen map[int64]struct{}
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Notification) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval)

	if p.seen == nil {
		p.seen = make(map[int64]struct{})
	}

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		// First poll right away, then on every tick
		for {
			if !p.poll(ctx, out) {
				return
			}

			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return
			case <-ticker.C:
			}
		}
	}()

	return idleStopped
}

// Returns false when context is done
func (p *Producer) poll(ctx context.Context, out chan<- models.Notification) bool {
	p.logger.Debug("Producer tick: fetching notifications")

	if err := p.inbox.Refresh(ctx); err != nil {
		// Inbox logs the error, the next tick retries
		return ctx.Err() == nil
	}

	for _, n := range p.inbox.Notifications() {
		if _, ok := p.seen[n.ID]; ok || n.Read {
			continue
		}

		select {
		case <-ctx.Done():
			p.logger.Debug("Producer stopped by context while sending notifications")
			return false
		case out <- n:
			p.seen[n.ID] = struct{}{}
			p.logger.Debug("Notification sent to channel", "id", n.ID)
		}
	}
	return true
}
