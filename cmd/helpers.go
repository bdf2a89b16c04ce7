package cmd

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dayuer/tgpilot/internal/channels"
	"github.com/dayuer/tgpilot/internal/config"
	"github.com/dayuer/tgpilot/internal/utils"
)

// loadConfig resolves settings: .env → config file → environment → flags.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}
	if debugMode {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return utils.ExpandHome(configPath)
	}
	return config.GetConfigPath()
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

func telegramConfig(cfg config.Config) channels.TelegramConfig {
	return channels.TelegramConfig{
		AppID:         cfg.Telegram.APIID,
		AppHash:       cfg.Telegram.APIHash,
		SessionString: cfg.Telegram.SessionString,
		SessionFile:   cfg.Telegram.SessionFile,
		Phone:         cfg.Telegram.Phone,
		Password:      cfg.Telegram.Password,
	}
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
