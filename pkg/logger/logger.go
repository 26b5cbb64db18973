package logger

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process logger. Production JSON by default; set APP_ENV=dev
// for the console encoder.
func New() *zap.Logger {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	log, err := cfg.Build()
	if err != nil {
		// zap only fails on invalid config; fall back to a no-op logger
		return zap.NewNop()
	}
	return log
}
