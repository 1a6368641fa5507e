package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

func init() {
	if _, err := NewLogger(configFor(os.Getenv("LOG_ENV"), "")); err != nil {
		panic(err)
	}
}

// configFor returns JSON logging for deployed environments and the console
// encoder for dev and test. Every entry carries the service name when set.
func configFor(env, service string) zap.Config {
	var cfg zap.Config
	switch strings.ToLower(env) {
	case "production", "prod", "staging":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if service != "" {
		cfg.InitialFields = map[string]interface{}{"service": service}
	}
	return cfg
}

// Reconfigure rebuilds the global logger once the application config is
// known. service names the binary, e.g. "api" or "mailer".
func Reconfigure(env, service string) error {
	_, err := NewLogger(configFor(env, service))
	return err
}

func Info(msg string, values ...any) {
	GetLogger().pkgLog.Infow(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().pkgLog.Warnw(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().pkgLog.Errorw(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().pkgLog.Debugw(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().pkgLog.Panicw(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().pkgLog.Fatalw(error.Error(), values...)
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	if zapLogger != nil {
		zapLogger.sync()
	}
}
