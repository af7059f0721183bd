package notification

import (
	"context"

	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Handler gets notifications one by one in the order they were produced
type Handler func(ctx context.Context, n models.Notification)

type Consumer struct {
	handle Handler
	logger logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Notification) <-chan struct{} {
	idleStopped := make(chan struct{})

	go func() {
		defer close(idleStopped)

		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("Consumer stopped by context")
				return

			case n, ok := <-in:
				if !ok {
					c.logger.Debug("Consumer stopped, input channel closed")
					return
				}
				c.handle(ctx, n)
			}
		}
	}()

	return idleStopped
}
