package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spiralover/mailer-server/internal/config"
	"github.com/spiralover/mailer-server/internal/db"
	"github.com/spiralover/mailer-server/internal/model"
	"github.com/spiralover/mailer-server/internal/queue"
	"github.com/spiralover/mailer-server/internal/service/mail"
)

// enqueueCmd pushes payloads from a JSON file onto the awaiting queue. It
// is the CLI face of the pipeline's sole public entry point, handy for
// smoke tests and backfills.
var enqueueCmd = &cobra.Command{
	Use:   "enqueue <payloads.json>",
	Short: "Push mail payloads from a JSON file onto the awaiting queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read payload file: %w", err)
		}

		var payloads []model.MailQueueablePayload
		if err := json.Unmarshal(raw, &payloads); err != nil {
			return fmt.Errorf("decode payload file: %w", err)
		}
		if len(payloads) == 0 {
			return fmt.Errorf("payload file %s holds no mails", args[0])
		}

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		// no DB here: enqueueing only touches the awaiting queue
		svc := mail.New(nil, nil, nil, nil, queue.NewClient(redisClient), queue.Names{
			Awaiting:   cfg.Queues.Awaiting,
			Processing: cfg.Queues.Processing,
			Retrying:   cfg.Queues.Retrying,
			Success:    cfg.Queues.Success,
			Failure:    cfg.Queues.Failure,
		})
		ctx := context.Background()

		for i, payload := range payloads {
			n, err := svc.PushToAwaitingQueue(ctx, payload)
			if err != nil {
				return fmt.Errorf("push payload %d: %w", i, err)
			}
			fmt.Printf(">> enqueued %q (queue length %d)\n", payload.Subject, n)
		}

		return nil
	},
}
