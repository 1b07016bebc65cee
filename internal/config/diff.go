package config

import (
	"strings"

	logx "sanctionsbot/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and safe
// structured fields for logging. Credentials are never included; only whether
// they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Source != newCfg.Source {
		changed = append(changed, "source")
		attrs = append(attrs, logx.String("source.url", newCfg.Source.URL))
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.schedule", newCfg.Scheduler.Schedule),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}
	if oldCfg.Format != newCfg.Format {
		changed = append(changed, "format")
	}

	ot, nt := oldCfg.Publishers.Twitter, newCfg.Publishers.Twitter
	if ot.Enabled != nt.Enabled || ot.Endpoint != nt.Endpoint || ot.MaxLength != nt.MaxLength ||
		ot.Threaded() != nt.Threaded() || ot.Timeout != nt.Timeout ||
		ot.ConsumerKey != nt.ConsumerKey || ot.ConsumerSecret != nt.ConsumerSecret ||
		ot.AccessToken != nt.AccessToken || ot.AccessTokenSecret != nt.AccessTokenSecret {
		changed = append(changed, "publishers.twitter")
		attrs = append(attrs,
			logx.Bool("twitter.enabled", nt.Enabled),
			logx.Bool("twitter.credentials_set", nt.AccessToken != ""),
		)
	}
	og, ng := oldCfg.Publishers.Telegram, newCfg.Publishers.Telegram
	if og.Enabled != ng.Enabled || og.ChatID != ng.ChatID || og.ThreadID != ng.ThreadID ||
		og.MaxLength != ng.MaxLength || og.Threaded() != ng.Threaded() ||
		og.AlertChatID != ng.AlertChatID || strings.TrimSpace(og.Token) != strings.TrimSpace(ng.Token) {
		changed = append(changed, "publishers.telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", ng.Enabled),
			logx.Int64("telegram.chat_id", ng.ChatID),
			logx.Bool("telegram.token_set", strings.TrimSpace(ng.Token) != ""),
		)
	}

	if oldCfg.Run.PersistOnFailure() != newCfg.Run.PersistOnFailure() || oldCfg.Run.DryRun != newCfg.Run.DryRun ||
		oldCfg.Run.Timeout != newCfg.Run.Timeout {
		changed = append(changed, "run")
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.alerts", newCfg.Logging.Alerts.Enabled),
		)
	}
	oo, no := oldCfg.Observability, newCfg.Observability
	if oo.Enabled != no.Enabled || oo.Addr != no.Addr || oo.Pprof != no.Pprof ||
		oo.AllowInsecure != no.AllowInsecure || (oo.Token != "") != (no.Token != "") {
		changed = append(changed, "observability")
		attrs = append(attrs,
			logx.Bool("observability.enabled", no.Enabled),
			logx.String("observability.addr", no.Addr),
		)
	}

	return changed, attrs
}
