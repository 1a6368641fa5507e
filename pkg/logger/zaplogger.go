package logger

import "go.uber.org/zap"

// ZapLogger wraps a sugared zap logger. The package-level helpers go
// through one extra frame, so they log through pkgLog while methods called
// on the value itself use log.
type ZapLogger struct {
	log    *zap.SugaredLogger
	pkgLog *zap.SugaredLogger
}

var zapLogger *ZapLogger

func NewLogger(config zap.Config) (*ZapLogger, error) {
	base, err := config.Build()
	if err != nil {
		return nil, err
	}
	zapLogger = &ZapLogger{
		log:    base.WithOptions(zap.AddCallerSkip(1)).Sugar(),
		pkgLog: base.WithOptions(zap.AddCallerSkip(2)).Sugar(),
	}
	return zapLogger, nil
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

// With returns a child logger carrying the given key/value pairs on every entry.
func (l *ZapLogger) With(values ...any) *ZapLogger {
	return &ZapLogger{log: l.log.With(values...), pkgLog: l.pkgLog.With(values...)}
}

func (l *ZapLogger) Info(message string, values ...any)  { l.log.Infow(message, values...) }
func (l *ZapLogger) Warn(message string, values ...any)  { l.log.Warnw(message, values...) }
func (l *ZapLogger) Error(message string, values ...any) { l.log.Errorw(message, values...) }
func (l *ZapLogger) Debug(message string, values ...any) { l.log.Debugw(message, values...) }
func (l *ZapLogger) Panic(message string, values ...any) { l.log.Panicw(message, values...) }

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

// Printf lets fasthttp.Server report its own errors through zap.
func (l *ZapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

func (l *ZapLogger) sync() {
	_ = l.log.Sync()
}
