package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	logx "sanctionsbot/pkg/logx"
)

// Validate checks everything that can be checked without touching the network.
// Schedule syntax is validated by the app (it owns the scheduler parser).
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	u, err := url.Parse(strings.TrimSpace(cfg.Source.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.url: invalid %q", cfg.Source.URL)
	}
	if _, err := ParseDurationField("source.timeout", cfg.Source.Timeout); err != nil {
		return err
	}

	switch cfg.Storage.Driver {
	case "file":
	case "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required when storage.driver=%s", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	case "redis", "postgres":
		if strings.TrimSpace(cfg.Storage.URL) == "" {
			return fmt.Errorf("storage.url is required when storage.driver=%s", cfg.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage.driver: %s", cfg.Storage.Driver)
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if cfg.Scheduler.Enabled && strings.TrimSpace(cfg.Scheduler.Schedule) == "" {
		return fmt.Errorf("scheduler.schedule is required when scheduler.enabled is true")
	}

	if _, err := ParseDurationField("run.timeout", cfg.Run.Timeout); err != nil {
		return err
	}

	tw := cfg.Publishers.Twitter
	if tw.Enabled {
		if tw.ConsumerKey == "" || tw.ConsumerSecret == "" || tw.AccessToken == "" || tw.AccessTokenSecret == "" {
			return fmt.Errorf("publishers.twitter: consumer_key, consumer_secret, access_token and access_token_secret are required")
		}
		if _, err := ParseDurationField("publishers.twitter.timeout", tw.Timeout); err != nil {
			return err
		}
	}
	tg := cfg.Publishers.Telegram
	if tg.Enabled {
		if strings.TrimSpace(tg.Token) == "" {
			return fmt.Errorf("publishers.telegram.token is required")
		}
		if tg.ChatID == 0 {
			return fmt.Errorf("publishers.telegram.chat_id is required")
		}
	}

	if !logx.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if cfg.Logging.Alerts.Enabled && !logx.ValidLevel(cfg.Logging.Alerts.MinLevel) {
		return fmt.Errorf("logging.alerts.min_level: unknown level %q", cfg.Logging.Alerts.MinLevel)
	}

	if ob := cfg.Observability; ob.Enabled {
		host, _, err := net.SplitHostPort(strings.TrimSpace(ob.Addr))
		if err != nil {
			return fmt.Errorf("observability.addr: %w", err)
		}
		if !isLoopbackHost(host) && strings.TrimSpace(ob.Token) == "" && !ob.AllowInsecure {
			return fmt.Errorf("observability.addr %q is not loopback: set observability.token or allow_insecure", ob.Addr)
		}
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
