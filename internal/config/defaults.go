package config

import "strings"

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Source.URL) == "" {
		cfg.Source.URL = DefaultListURL
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "file"
	}
	if cfg.Storage.Driver == "file" && strings.TrimSpace(cfg.Storage.Path) == "" {
		cfg.Storage.Path = DefaultStatePath
	}
	if strings.TrimSpace(cfg.Storage.Key) == "" {
		cfg.Storage.Key = DefaultStateKey
	}

	if strings.TrimSpace(cfg.Publishers.Twitter.Endpoint) == "" {
		cfg.Publishers.Twitter.Endpoint = DefaultTwitterURL
	}
	if cfg.Publishers.Twitter.MaxLength <= 0 {
		cfg.Publishers.Twitter.MaxLength = DefaultTwitterLimit
	}
	if cfg.Publishers.Telegram.MaxLength <= 0 {
		cfg.Publishers.Telegram.MaxLength = DefaultTelegramMax
	}
	if cfg.Publishers.Telegram.AlertChatID == 0 {
		cfg.Publishers.Telegram.AlertChatID = cfg.Publishers.Telegram.ChatID
	}

	if strings.TrimSpace(cfg.Observability.Addr) == "" {
		cfg.Observability.Addr = DefaultObservAddr
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}
