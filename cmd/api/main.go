package main

import (
	"context"
	"os"

	"github.com/nimasrn/crowdfund/internal/auth"
	"github.com/nimasrn/crowdfund/internal/config"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/queue"
	"github.com/nimasrn/crowdfund/internal/server"
	"github.com/nimasrn/crowdfund/internal/services"
	"github.com/nimasrn/crowdfund/internal/storage"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"github.com/nimasrn/crowdfund/pkg/prom"
	"github.com/nimasrn/crowdfund/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := config.Load(config.ParseEnvArg(os.Args)); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if err := logger.Reconfigure(cfg.AppEnv, "api"); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	defer logger.Sync()
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("api"))
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	emails, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxRetries:    cfg.QueueMaxRetries,
		MaxLen:        cfg.QueueMaxLen,
		EnableDLQ:     cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating email queue", "error", err)
		return
	}

	store, uploadsDir, err := newStore(cfg)
	if err != nil {
		logger.Error("failed creating storage", "error", err, "driver", cfg.StorageDriver)
		return
	}

	gw, err := gateway.NewClient(&gateway.Config{
		BaseURL:    cfg.GatewayBaseURL,
		SecretKey:  cfg.GatewaySecretKey,
		Timeout:    cfg.GatewayTimeout,
		MaxRetries: cfg.GatewayMaxRetries,
		MaxConns:   256,
	})
	if err != nil {
		logger.Error("failed to create gateway client", "error", err)
		return
	}

	tokens, err := auth.NewTokenManager(cfg.AuthJWTSecret, cfg.AuthTokenTTL)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		return
	}
	if cfg.GatewayWebhookSecret == "" {
		logger.Warn("GATEWAY_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	s, _, err := server.New(server.Deps{
		Config:     cfg,
		DB:         db,
		Redis:      redisAdap,
		Store:      store,
		Gateway:    gw,
		Verifier:   auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleIssuerList(), cfg.GoogleJWKSURL),
		Tokens:     tokens,
		Publisher:  emails,
		UploadsDir: uploadsDir,
	})
	if err != nil {
		logger.Error("failed to build server", "error", err)
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

	stopped := s.CloseOnSignal()
	if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
		logger.Error("error in running http-server", "error", err)
		return
	}
	<-stopped
}

// newStore returns the upload store and, for the local driver, the directory
// the API serves under /uploads.
func newStore(cfg *config.Config) (services.Store, string, error) {
	if cfg.StorageDriver == "s3" {
		st, err := storage.NewS3Store(context.Background(), storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
		return st, "", err
	}
	st, err := storage.NewFileStore(cfg.StorageLocalPath, cfg.StoragePublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return st, st.BasePath(), nil
}
