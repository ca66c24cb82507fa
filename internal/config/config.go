package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	MaxPortAttempts int
	Passcode        string
	Identities      []string
}

// Load reads .env (if present) and environment variables, falling back to
// the defaults the deployment has always run with.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:            3001,
		MaxPortAttempts: 8,
		Passcode:        "1234",
		Identities:      []string{"RJ", "OJ"},
	}

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		}
	}
	if v := os.Getenv("MAX_PORT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPortAttempts = n
		}
	}
	if v := os.Getenv("PASSCODE"); v != "" {
		cfg.Passcode = v
	}
	if v := os.Getenv("IDENTITIES"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			cfg.Identities = ids
		}
	}
	return cfg
}
