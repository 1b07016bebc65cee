package config

import (
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// applyEnv overlays environment values on top of the file config so secrets
// never have to live on disk. The Twitter variable names match the ones the
// bot has always been deployed with.
func applyEnv(cfg *Config, lookup LookupFunc) {
	if cfg == nil || lookup == nil {
		return
	}
	str := func(key string, dst *string) bool {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return false
		}
		*dst = v
		return true
	}

	str("SANCTIONSBOT_LIST_URL", &cfg.Source.URL)
	str("SANCTIONSBOT_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("SANCTIONSBOT_STORAGE_PATH", &cfg.Storage.Path)
	str("SANCTIONSBOT_STORAGE_URL", &cfg.Storage.URL)
	str("SANCTIONSBOT_LOG_LEVEL", &cfg.Logging.Level)
	str("SANCTIONSBOT_TIMEZONE", &cfg.Scheduler.Timezone)
	if str("SANCTIONSBOT_SCHEDULE", &cfg.Scheduler.Schedule) {
		cfg.Scheduler.Enabled = true
	}

	tw := &cfg.Publishers.Twitter
	n := 0
	for _, kv := range []struct {
		key string
		dst *string
	}{
		{"CONSUMER_KEY", &tw.ConsumerKey},
		{"CONSUMER_SECRET", &tw.ConsumerSecret},
		{"ACCESS_TOKEN", &tw.AccessToken},
		{"ACCESS_TOKEN_SECRET", &tw.AccessTokenSecret},
	} {
		if str(kv.key, kv.dst) {
			n++
		}
	}
	if n == 4 {
		tw.Enabled = true
	}

	tg := &cfg.Publishers.Telegram
	if str("TELEGRAM_TOKEN", &tg.Token) {
		var chat string
		if str("TELEGRAM_CHAT_ID", &chat) {
			if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
				tg.ChatID = id
				tg.Enabled = true
			}
		}
	}
}
