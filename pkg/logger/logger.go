// Package logger bootstraps the structured loggers used throughout ember.
// Every subsystem receives a *zap.SugaredLogger scoped to its service name so
// that log lines can be filtered by component without threading a logging
// framework's context object through every function signature.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured zap logger tagged with the given
// service name. It falls back to a bare, unbuffered logger if the encoder
// configuration cannot be constructed, since a database should never fail to
// start just because logging setup failed.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	log, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zapcore.InfoLevel,
		)
		log = zap.New(core)
	}

	return log.Named(service).Sugar()
}
