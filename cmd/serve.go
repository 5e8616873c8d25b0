package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spiralover/mailer-server/internal/config"
	"github.com/spiralover/mailer-server/internal/db"
	"github.com/spiralover/mailer-server/internal/events"
	httpSrv "github.com/spiralover/mailer-server/internal/http"
	"github.com/spiralover/mailer-server/internal/logger"
	"github.com/spiralover/mailer-server/internal/metrics"
	"github.com/spiralover/mailer-server/internal/model"
	"github.com/spiralover/mailer-server/internal/queue"
	"github.com/spiralover/mailer-server/internal/repository"
	"github.com/spiralover/mailer-server/internal/service/mail"
	"github.com/spiralover/mailer-server/internal/smtp"
	"github.com/spiralover/mailer-server/internal/worker"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the delivery pipeline (queue pollers + system HTTP)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer func() { _ = logger.Log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

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

		sender, err := smtp.NewSender(smtp.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			Encryption: cfg.SMTP.Encryption,
		})
		if err != nil {
			return fmt.Errorf("smtp sender: %w", err)
		}

		var publisher events.Publisher = events.NopPublisher{}
		if cfg.Events.Enabled() {
			kp := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
			defer func() { _ = kp.Close() }()
			publisher = kp
		}

		names := queue.Names{
			Awaiting:   cfg.Queues.Awaiting,
			Processing: cfg.Queues.Processing,
			Retrying:   cfg.Queues.Retrying,
			Success:    cfg.Queues.Success,
			Failure:    cfg.Queues.Failure,
		}
		qc := queue.NewClient(redisClient)

		svc := mail.New(
			mysqlDB,
			repository.NewMailsRepository(mysqlDB),
			repository.NewMailAddressesRepository(mysqlDB),
			repository.NewMailErrorsRepository(mysqlDB),
			qc,
			names,
		)

		handlers := &worker.Handlers{
			Store:       svc,
			Sender:      sender,
			Events:      publisher,
			From:        model.MailBox{Name: cfg.Mailer.FromName, Email: cfg.Mailer.FromEmail},
			MaxRetrials: cfg.Mailer.MaxRetrials,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := httpSrv.NewServer()
		errCh := make(chan error, 1)
		go func() {
			logger.Log.Info("starting system http", zap.String("addr", cfg.HTTP.Addr))
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		pollersDone := make(chan struct{})
		go func() {
			defer close(pollersDone)
			worker.Run(ctx, qc, handlers, worker.Options{
				Names:             names,
				Interval:          cfg.Mailer.PollInterval,
				ProcessingPollers: cfg.Mailer.ProcessingPollers,
			})
		}()

		select {
		case <-ctx.Done():
			logger.Log.Info("signal received, shutting down")
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("system http exited", zap.Error(err))
			}
			stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		select {
		case <-pollersDone:
		case <-shutdownCtx.Done():
			// in-flight items are abandoned past the grace period
		}

		return nil
	},
}
