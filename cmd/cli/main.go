package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/crowdfund/internal/auth"
	"github.com/nimasrn/crowdfund/internal/config"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/queue"
	"github.com/nimasrn/crowdfund/internal/server"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"github.com/nimasrn/crowdfund/pkg/redis"
)

const usage = `usage: cli <command> [--env=.env]

commands:
  migrate [--dir=./migrations]        apply pending migrations
  status  [--dir=./migrations]        print migration status
  token   --email=<address>           issue a session token for an existing user
  verify-pending [--age=15m] [--limit=100]
                                      ask the gateway about stale pending donations
  emails-dlq [--limit=20]             list emails that ran out of delivery attempts
  emails-replay [--id=<entry id>]     requeue one dead-lettered email, or all of them`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := config.Load(getEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Reconfigure(config.Get().AppEnv, "cli"); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	defer logger.Sync()

	var err error
	switch os.Args[1] {
	case "migrate":
		err = pg.Migrate(config.Get().PostgresWrite(), getMigrationPath())
	case "status":
		err = pg.MigrationStatus(config.Get().PostgresWrite(), getMigrationPath())
	case "token":
		err = issueToken(argValue("--email="))
	case "verify-pending":
		err = verifyPending(argDuration("--age=", 15*time.Minute), argInt("--limit=", 100))
	case "emails-dlq":
		err = listDeadLetters(int64(argInt("--limit=", 20)))
	case "emails-replay":
		err = replayDeadLetters(argValue("--id="))
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func issueToken(email string) error {
	if email == "" {
		return errors.New("--email is required")
	}
	svc, err := buildServices()
	if err != nil {
		return err
	}
	res, err := svc.Users.IssueFor(context.Background(), email)
	if err != nil {
		return err
	}
	fmt.Println(res.Token)
	logger.Info("token issued", "user_id", res.User.ID, "expires_at", res.ExpiresAt)
	return nil
}

func verifyPending(age time.Duration, limit int) error {
	svc, err := buildServices()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := svc.Payments.VerifyPending(ctx, age, limit)
	if err != nil {
		return err
	}
	logger.Info("pending donations verified", "settled", n, "age", age, "limit", limit)
	return nil
}

func listDeadLetters(limit int64) error {
	emails, _, err := emailQueue()
	if err != nil {
		return err
	}
	letters, err := emails.DeadLetters(limit)
	if err != nil {
		return err
	}
	for _, m := range letters {
		var job model.EmailJob
		if err := json.Unmarshal(m.Data, &job); err != nil {
			fmt.Printf("%s\t%s\t(unreadable job: %v)\n", m.ID, m.Timestamp.Format(time.RFC3339), err)
			continue
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", m.ID, m.Timestamp.Format(time.RFC3339), job.TemplateKey, job.To, job.Subject)
	}
	logger.Info("dead letters listed", "count", len(letters), "stream", emails.DeadLetterName())
	return nil
}

func replayDeadLetters(id string) error {
	emails, _, err := emailQueue()
	if err != nil {
		return err
	}
	var ids []string
	if id != "" {
		ids = append(ids, id)
	}
	n, err := emails.Replay(context.Background(), ids...)
	if err != nil {
		return err
	}
	fmt.Printf("requeued %d email(s)\n", n)
	return nil
}

func emailQueue() (*queue.Queue, redis.RedisAdapter, error) {
	cfg := config.Get()
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("cli"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	emails, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxLen:        cfg.QueueMaxLen,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("email queue: %w", err)
	}
	return emails, redisAdap, nil
}

func buildServices() (*server.Services, error) {
	cfg := config.Get()
	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), false)
	if err != nil {
		return nil, fmt.Errorf("connect pg: %w", err)
	}
	emails, redisAdap, err := emailQueue()
	if err != nil {
		return nil, err
	}
	gw, err := gateway.NewClient(&gateway.Config{
		BaseURL:    cfg.GatewayBaseURL,
		SecretKey:  cfg.GatewaySecretKey,
		Timeout:    cfg.GatewayTimeout,
		MaxRetries: cfg.GatewayMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	tokens, err := auth.NewTokenManager(cfg.AuthJWTSecret, cfg.AuthTokenTTL)
	if err != nil {
		return nil, err
	}
	return server.NewServices(server.Deps{
		Config:    cfg,
		DB:        db,
		Redis:     redisAdap,
		Gateway:   gw,
		Tokens:    tokens,
		Publisher: emails,
	})
}

func getEnvPath() string {
	if p := config.ParseEnvArg(os.Args); p != "" {
		if _, err := os.Stat(p); err != nil {
			logger.Error("failed to open the passed env file", "path", p, "error", err)
			return ""
		}
		return p
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	dir := argValue("--dir=")
	if dir == "" {
		dir = "./migrations"
	}
	return dir
}

func argValue(prefix string) string {
	for _, v := range os.Args[2:] {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

func argDuration(prefix string, def time.Duration) time.Duration {
	if v := argValue(prefix); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logger.Warn("ignoring invalid duration", "flag", prefix, "value", v)
	}
	return def
}

func argInt(prefix string, def int) int {
	if v := argValue(prefix); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logger.Warn("ignoring invalid number", "flag", prefix, "value", v)
	}
	return def
}
