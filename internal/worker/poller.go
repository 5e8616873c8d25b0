package worker

import (
	"context"
	"errors"
	"time"

	"github.com/spiralover/mailer-server/internal/queue"
	"go.uber.org/zap"
)

// Handler processes one raw item popped off a queue.
type Handler func(ctx context.Context, item string)

// popper is the slice of queue.Client the poller needs.
type popper interface {
	Pop(ctx context.Context, queue string) (string, error)
}

// Poller is one long-lived loop bound to a single named queue: pop, decode
// and dispatch via the handler, or wait one tick when the queue was empty
// or the pop itself errored. The tick is deliberate backoff against an
// idle or unreachable backing store.
type Poller struct {
	queue    popper
	name     string
	queueKey string
	interval time.Duration
	handle   Handler
	log      *zap.Logger
}

func NewPoller(q popper, queueKey, workerName string, interval time.Duration, log *zap.Logger, handle Handler) *Poller {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Poller{
		queue:    q,
		name:     workerName,
		queueKey: queueKey,
		interval: interval,
		handle:   handle,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. An item mid-handle is finished before
// the poller exits; items still on the queue stay there.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		item, err := p.queue.Pop(ctx, p.queueKey)
		if err != nil {
			if !errors.Is(err, queue.ErrEmpty) && queue.IsIOError(err) {
				p.log.Error("queue pop failed",
					zap.String("worker", p.name),
					zap.String("queue", p.queueKey),
					zap.Error(err),
				)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		p.handle(ctx, item)
	}
}
