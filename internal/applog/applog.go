// Package applog constructs the zap logger used by every other package in
// this module.
package applog

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a zap.Logger for the given environment name. "production"
// selects zap's JSON production config; anything else (including the
// empty string) falls back to the development console encoder, matching
// the direct zap.NewDevelopment() call previously inlined in cmd/shortener/main.go.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build production logger: %w", err)
		}
		return logger, nil
	default:
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("build development logger: %w", err)
		}
		return logger, nil
	}
}
