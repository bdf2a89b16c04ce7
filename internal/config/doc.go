// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level tgpilot configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram" yaml:"telegram"`
	Bot        BotConfig        `json:"bot" yaml:"bot"`
	Supervisor SupervisorConfig `json:"supervisor" yaml:"supervisor"`
	Labels     LabelsConfig     `json:"labels" yaml:"labels"`
	Redis      RedisConfig      `json:"redis" yaml:"redis"`
	Health     HealthConfig     `json:"health" yaml:"health"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// TelegramConfig holds MTProto credentials for the user account.
type TelegramConfig struct {
	APIID         int    `json:"apiId" yaml:"apiId"`
	APIHash       string `json:"apiHash" yaml:"apiHash"`
	SessionString string `json:"sessionString,omitempty" yaml:"sessionString,omitempty"`
	SessionFile   string `json:"sessionFile,omitempty" yaml:"sessionFile,omitempty"`
	Phone         string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Password      string `json:"password,omitempty" yaml:"password,omitempty"`
	// ReconnectDelay is the fixed pause between reconnect attempts, in seconds.
	ReconnectDelay int `json:"reconnectDelay,omitempty" yaml:"reconnectDelay,omitempty"`
}

// BotConfig holds who may command the bot and how photos are matched.
type BotConfig struct {
	OwnerID           int64   `json:"ownerId" yaml:"ownerId"`
	TriggerBotID      int64   `json:"triggerBotId,omitempty" yaml:"triggerBotId,omitempty"`
	TriggerKeyword    string  `json:"triggerKeyword,omitempty" yaml:"triggerKeyword,omitempty"`
	MatchTemplate     string  `json:"matchTemplate,omitempty" yaml:"matchTemplate,omitempty"`
	UnrecognizedReply string  `json:"unrecognizedReply,omitempty" yaml:"unrecognizedReply,omitempty"`
	AutoProcess       bool    `json:"autoProcess,omitempty" yaml:"autoProcess,omitempty"`
	AutoProcessChats  []int64 `json:"autoProcessChats,omitempty" yaml:"autoProcessChats,omitempty"`
}

// SupervisorConfig tunes the repeating-task supervisor.
type SupervisorConfig struct {
	StartPolicy string `json:"startPolicy,omitempty" yaml:"startPolicy,omitempty"` // "reject" or "replace"
	SendTimeout int    `json:"sendTimeout,omitempty" yaml:"sendTimeout,omitempty"` // seconds
}

// LabelsConfig locates the label table.
type LabelsConfig struct {
	Path string `json:"path" yaml:"path"`
}

// RedisConfig enables the optional label mirror.
type RedisConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// HealthConfig holds the liveness HTTP server settings.
type HealthConfig struct {
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// AuthCode exposes POST /auth/code for headless logins.
	AuthCode bool `json:"authCode,omitempty" yaml:"authCode,omitempty"`
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Level       string `json:"level,omitempty" yaml:"level,omitempty"`
	Development bool   `json:"development,omitempty" yaml:"development,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Telegram: TelegramConfig{
			ReconnectDelay: 10,
		},
		Bot: BotConfig{
			TriggerKeyword:    "guess",
			MatchTemplate:     "%s",
			UnrecognizedReply: "❓ Unknown image",
		},
		Supervisor: SupervisorConfig{
			StartPolicy: "reject",
			SendTimeout: 30,
		},
		Labels: LabelsConfig{
			Path: "~/.tgpilot/labels.json",
		},
		Redis: RedisConfig{
			Key: "labels:",
		},
		Health: HealthConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
