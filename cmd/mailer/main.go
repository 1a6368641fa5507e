package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/crowdfund/internal/config"
	"github.com/nimasrn/crowdfund/internal/idempotency"
	"github.com/nimasrn/crowdfund/internal/mailer"
	"github.com/nimasrn/crowdfund/internal/processor"
	"github.com/nimasrn/crowdfund/internal/queue"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/prom"
	"github.com/nimasrn/crowdfund/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := config.Load(config.ParseEnvArg(os.Args)); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if err := logger.Reconfigure(cfg.AppEnv, "mailer"); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	defer logger.Sync()
	logger.Info("starting mailer", "version", version, "commit", commit)

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("mailer"))
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		logger.Error("failed to create smtp sender", "error", err)
		return
	}

	idem := idempotency.NewService(redisAdap, idempotency.DefaultConfig())

	consumerName := cfg.QueueConsumerName
	if consumerName == "" {
		consumerName, _ = os.Hostname()
	}

	service, err := processor.NewProcessorService(redisAdap, processor.NewEmailProcessor(sender, idem), processor.Options{
		Queue: queue.QueueConfig{
			Name:              cfg.QueueName,
			ConsumerGroup:     cfg.QueueConsumerGroup,
			ConsumerName:      consumerName,
			MaxRetries:        cfg.QueueMaxRetries,
			VisibilityTimeout: cfg.QueueVisibilityTimeout,
			PollInterval:      cfg.QueuePollInterval,
			BatchSize:         cfg.QueueBatchSize,
			MaxLen:            cfg.QueueMaxLen,
			EnableDLQ:         cfg.QueueEnableDLQ,
		},
		Consumers: 1,
		Workers:   cfg.MailerWorkers,
	})
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}
