package logx

import (
	"go.uber.org/zap"
)

// L is the process logger. It discards everything until Init runs, so
// packages can log from tests without setup.
var L = zap.NewNop()

// Init builds L: JSON for env "prod", console development output otherwise.
func Init(env string) error {
	cfg := zap.NewProductionConfig()

	// Local dev readability
	if env != "prod" {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	L = logger
	return nil
}

// Named returns a child of L for one component.
func Named(name string, fields ...zap.Field) *zap.Logger {
	return L.Named(name).With(fields...)
}
