package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger. Development gets the console encoder,
// everything else JSON.
func NewLogger(env *Env) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
