package config

import (
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"github.com/nimasrn/crowdfund/pkg/redis"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting the binaries read. Nothing else in the module
// should read the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=crowdfund"`
	AppDebug            bool   `env:"APP_DEBUG,default=false"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	AppBaseUrl          string `env:"APP_BASE_URL,default=http://localhost:8080"`
	AppCurrency         string `env:"APP_CURRENCY,default=GHS"`

	HttpListenAddr            string `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpBaseRequestUrl        string `env:"HTTP_BASE_REQUEST_URI,default=/api/v1"`
	HttpServerReadTimeout     int    `env:"HTTP_SERVER_READ_TIMEOUT,default=10"`
	HttpServerWriteTimeout    int    `env:"HTTP_SERVER_WRITE_TIMEOUT,default=10"`
	HttpServerReadBufferSize  int    `env:"HTTP_SERVER_READ_BUFFER_SIZE,default=8192"`
	HttpServerWriteBufferSize int    `env:"HTTP_SERVER_WRITE_BUFFER_SIZE,default=8192"`
	HttpMaxRequestBodySize    int    `env:"HTTP_MAX_REQUEST_BODY_SIZE,default=10485760"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST,default=localhost"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST,default=localhost"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	PostgresSSLMode         string        `env:"POSTGRES_SSLMODE,default=disable"`
	PostgresMaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS,default=25"`
	PostgresMaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS,default=5"`
	PostgresConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME,default=30m"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE,default=0"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=crowdfund:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=crowdfund"`

	QueueName              string        `env:"QUEUE_NAME,default=emails"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=mailer"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=20"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`
	MailerWorkers          int           `env:"MAILER_WORKERS,default=4"`

	AuthJWTSecret  string        `env:"AUTH_JWT_SECRET"`
	AuthTokenTTL   time.Duration `env:"AUTH_TOKEN_TTL,default=168h"`
	GoogleClientID string        `env:"GOOGLE_CLIENT_ID"`
	GoogleIssuers  string        `env:"GOOGLE_ISSUERS,default=https://accounts.google.com accounts.google.com"`
	GoogleJWKSURL  string        `env:"GOOGLE_JWKS_URL,default=https://www.googleapis.com/oauth2/v3/certs"`
	AdminEmails    string        `env:"ADMIN_EMAILS"`

	StorageDriver        string `env:"STORAGE_DRIVER,default=local"`
	StorageLocalPath     string `env:"STORAGE_LOCAL_PATH,default=./uploads"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL,default=/uploads"`
	S3Endpoint           string `env:"S3_ENDPOINT"`
	S3AccessKey          string `env:"S3_ACCESS_KEY"`
	S3SecretKey          string `env:"S3_SECRET_KEY"`
	S3Bucket             string `env:"S3_BUCKET"`
	S3UseSSL             bool   `env:"S3_USE_SSL,default=true"`

	SMTPHost     string `env:"SMTP_HOST,default=localhost"`
	SMTPPort     int    `env:"SMTP_PORT,default=1025"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM,default=no-reply@crowdfund.local"`

	GatewayBaseURL       string        `env:"GATEWAY_BASE_URL,default=http://localhost:9090"`
	GatewaySecretKey     string        `env:"GATEWAY_SECRET_KEY"`
	GatewayWebhookSecret string        `env:"GATEWAY_WEBHOOK_SECRET"`
	GatewayTimeout       time.Duration `env:"GATEWAY_TIMEOUT,default=15s"`
	GatewayMaxRetries    int           `env:"GATEWAY_MAX_RETRIES,default=2"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=20"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to configuration")
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set replaces the loaded configuration. Used by tests and tooling.
func Set(c *Config) {
	config = c
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		User:     c.PostgresReadUser,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,

		SSLMode:         c.PostgresSSLMode,
		MaxOpenConns:    c.PostgresMaxOpenConns,
		MaxIdleConns:    c.PostgresMaxIdleConns,
		ConnMaxLifetime: c.PostgresConnMaxLifetime,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		User:     c.PostgresWriteUser,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,

		SSLMode:         c.PostgresSSLMode,
		MaxOpenConns:    c.PostgresMaxOpenConns,
		MaxIdleConns:    c.PostgresMaxIdleConns,
		ConnMaxLifetime: c.PostgresConnMaxLifetime,
	}
}

func (c *Config) RedisOptions(clientName string) *redis.Options {
	return &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: clientName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	}
}

func (c *Config) AdminEmailList() []string {
	return splitList(c.AdminEmails)
}

func (c *Config) GoogleIssuerList() []string {
	return splitList(c.GoogleIssuers)
}

// ParseEnvArg returns the value of a --env=<path> argument, if present.
func ParseEnvArg(args []string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, "--env=") {
			return strings.TrimPrefix(arg, "--env=")
		}
	}
	return ""
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(strings.TrimSpace(f)))
	}
	return out
}
