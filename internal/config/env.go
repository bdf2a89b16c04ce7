package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Only non-empty
// variables override; malformed numbers are reported.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	var errs []error

	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	id := func(name string, dst *int64) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	integer("API_ID", &cfg.Telegram.APIID)
	str("API_HASH", &cfg.Telegram.APIHash)
	str("SESSION_STRING", &cfg.Telegram.SessionString)
	str("PHONE", &cfg.Telegram.Phone)
	id("OWNER_ID", &cfg.Bot.OwnerID)
	id("TRIGGER_BOT_ID", &cfg.Bot.TriggerBotID)
	str("TRIGGER_KEYWORD", &cfg.Bot.TriggerKeyword)
	integer("PORT", &cfg.Health.Port)
	str("LABELS_PATH", &cfg.Labels.Path)
	str("REDIS_URL", &cfg.Redis.URL)
	str("LOG_LEVEL", &cfg.Log.Level)

	return errors.Join(errs...)
}

// ErrInvalid marks a configuration that cannot run the bot.
var ErrInvalid = errors.New("invalid config")

// Validate reports every missing or out-of-range required field.
func (c Config) Validate() error {
	var problems []string
	if c.Telegram.APIID <= 0 {
		problems = append(problems, "telegram.apiId (API_ID) is required")
	}
	if c.Telegram.APIHash == "" {
		problems = append(problems, "telegram.apiHash (API_HASH) is required")
	}
	if c.Bot.OwnerID == 0 {
		problems = append(problems, "bot.ownerId (OWNER_ID) is required")
	}
	if c.Bot.TriggerBotID != 0 && strings.TrimSpace(c.Bot.TriggerKeyword) == "" {
		problems = append(problems, "bot.triggerKeyword (TRIGGER_KEYWORD) is required when bot.triggerBotId is set")
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		problems = append(problems, fmt.Sprintf("health.port %d out of range", c.Health.Port))
	}
	switch c.Supervisor.StartPolicy {
	case "", "reject", "replace":
	default:
		problems = append(problems, fmt.Sprintf("supervisor.startPolicy %q must be reject or replace", c.Supervisor.StartPolicy))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// HealthAddr returns host:port for the health server.
func (c Config) HealthAddr() string {
	return fmt.Sprintf("%s:%d", c.Health.Host, c.Health.Port)
}
