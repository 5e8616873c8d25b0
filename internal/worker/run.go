package worker

import (
	"context"
	"sync"
	"time"

	"github.com/spiralover/mailer-server/internal/logger"
	"github.com/spiralover/mailer-server/internal/metrics"
	"github.com/spiralover/mailer-server/internal/queue"
	"go.uber.org/zap"
)

const depthSampleInterval = 5 * time.Second

// lener is the slice of queue.Client the depth sampler needs.
type lener interface {
	Len(ctx context.Context, queue string) (int64, error)
}

// sampleQueueDepths refreshes the queue depth gauge once. Unreachable
// queues keep their last observed value.
func sampleQueueDepths(ctx context.Context, q lener, names queue.Names) {
	for _, name := range []string{
		names.Awaiting, names.Processing, names.Retrying, names.Success, names.Failure,
	} {
		n, err := q.Len(ctx, name)
		if err != nil {
			continue
		}
		metrics.QueueDepth.WithLabelValues(name).Set(float64(n))
	}
}

type Options struct {
	Names    queue.Names
	Interval time.Duration
	// ProcessingPollers is the fan-out factor for the processing queue,
	// where SMTP latency dominates. The other queues get exactly one
	// poller each, keeping them strict single-consumer FIFO.
	ProcessingPollers int
}

// Run spawns the poller set and blocks until ctx is cancelled and every
// poller has stopped.
func Run(ctx context.Context, qc *queue.Client, h *Handlers, opts Options) {
	if opts.ProcessingPollers <= 0 {
		opts.ProcessingPollers = 1
	}

	namer := NewNamer("mailer")
	var wg sync.WaitGroup

	spawn := func(queueKey string, bind func(*zap.Logger) Handler) {
		name := namer.Next()
		log := logger.Named(name)
		p := NewPoller(qc, queueKey, name, opts.Interval, log, bind(log))

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("poller started", zap.String("queue", queueKey))
			p.Run(ctx)
			log.Info("poller stopped", zap.String("queue", queueKey))
		}()
	}

	spawn(opts.Names.Awaiting, h.Awaiting)
	spawn(opts.Names.Success, h.Success)
	spawn(opts.Names.Failure, h.Failure)
	for i := 0; i < opts.ProcessingPollers; i++ {
		spawn(opts.Names.Processing, h.Processing)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(depthSampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sampleQueueDepths(ctx, qc, opts.Names)
			}
		}
	}()

	wg.Wait()
}
