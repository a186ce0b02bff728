package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills a config struct from its env-tagged fields. The daemon
// reads environment values first and lets flags override them.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
