// Package config loads service configuration from the environment and
// provides shared CLI exit helpers.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "DUGOUT_"

// ParseEnv populates target from environment variables using the shared
// service prefix.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
