// Package logging builds the zap loggers used by the frontier binaries.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Development mode gets a colored console
// encoder for running the frontier locally; production mode emits JSON with
// stacktraces enabled so claim and complete failures carry their call sites.
func New(development bool) (*zap.Logger, error) {
	cfg := baseConfig(development)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s logger: %w", mode(development), err)
	}
	return logger, nil
}

func baseConfig(development bool) zap.Config {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg
}

func mode(development bool) string {
	if development {
		return "development"
	}
	return "production"
}
