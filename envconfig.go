package demostf

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig is the environment-variable configuration consumed by
// [FromEnv]. Variables are prefixed with DEMOSTF_, e.g.
// DEMOSTF_ACCESS_KEY.
type EnvConfig struct {
	URL       string        `envconfig:"URL"`
	Timeout   time.Duration `envconfig:"TIMEOUT"`
	AccessKey string        `envconfig:"ACCESS_KEY"`
	UserAgent string        `envconfig:"USER_AGENT"`
}

// FromEnv builds a client from DEMOSTF_* environment variables. Unset
// variables fall back to the defaults of [New]; explicit options passed
// here are applied after the environment and win on conflict.
func FromEnv(optFns ...Option) (*Client, error) {
	var cfg EnvConfig
	if err := envconfig.Process("demostf", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	var opts []Option
	if cfg.URL != "" {
		opts = append(opts, WithBaseURL(cfg.URL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, WithAccessKey(cfg.AccessKey))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, WithUserAgent(cfg.UserAgent))
	}
	opts = append(opts, optFns...)

	return New(opts...)
}
