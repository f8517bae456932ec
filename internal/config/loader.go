package config

import (
	"time"

	"github.com/zeromicro/go-zero/core/conf"
)

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }

func millisToDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Load reads path (a goctl-style etc/*.yaml file) into a Config, applying
// every EXECUTOR_*/VAULT_*/AGENT_SAFETY_*/USE_MTLS/TLS_* environment
// override named in the struct tags above, and validates the result.
// Unlike conf.MustLoad, a malformed file or an out-of-bounds value is
// returned as an error rather than panicking, since a misconfigured
// service should fail its own startup cleanly instead of crashing the
// process that launched it.
func Load(path string) (*Config, error) {
	var c Config
	if err := conf.Load(path, &c, conf.UseEnv()); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
