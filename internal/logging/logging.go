package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New builds the process logger. "debug" switches to the development encoder;
// anything else uses the JSON production config at the parsed level.
func New(level, service string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("service", service)), nil
}
