// Package logger builds the zap logger shared by all components.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a JSON production logger, or a console logger when development is set
func New(level string, development bool) (*zap.Logger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atomic

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
