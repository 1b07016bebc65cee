package app

import (
	"time"

	"sanctionsbot/internal/config"
	"sanctionsbot/internal/fetcher"
	"sanctionsbot/internal/observability"
	"sanctionsbot/internal/publisher"
	"sanctionsbot/internal/publisher/telegram"
	"sanctionsbot/internal/publisher/twitter"
	"sanctionsbot/internal/storage"
	"sanctionsbot/internal/task/scheduler"
	logx "sanctionsbot/pkg/logx"
)

func mapFetcherConfig(cfg *config.Config) (fetcher.Config, error) {
	timeout, err := config.ParseDurationOrDefault("source.timeout", cfg.Source.Timeout, 60*time.Second)
	if err != nil {
		return fetcher.Config{}, err
	}
	return fetcher.Config{URL: cfg.Source.URL, Timeout: timeout, UserAgent: cfg.Source.UserAgent}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: sc.Driver, Path: sc.Path, URL: sc.URL, Key: sc.Key, BusyTimeout: busy}, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := config.ParseDurationField("run.timeout", cfg.Run.Timeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Schedule: cfg.Scheduler.Schedule,
		Timezone: cfg.Scheduler.Timezone,
		Timeout:  timeout,
	}, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
		Alerts: logx.AlertConfig{
			Enabled:    cfg.Logging.Alerts.Enabled,
			MinLevel:   cfg.Logging.Alerts.MinLevel,
			RatePerSec: cfg.Logging.Alerts.RatePerSec,
		},
	}
}

func mapObservabilityConfig(cfg *config.Config) observability.Config {
	ob := cfg.Observability
	return observability.Config{
		Enabled:       ob.Enabled,
		Addr:          ob.Addr,
		Token:         ob.Token,
		AllowInsecure: ob.AllowInsecure,
		Pprof:         ob.Pprof,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  60 * time.Second, // pprof profile runs 30s by default
	}
}

func runnerOptions(cfg *config.Config) []RunnerOption {
	return []RunnerOption{
		WithSeparator(cfg.Format.Separator),
		WithPersistOnPublishFailure(cfg.Run.PersistOnFailure()),
	}
}

// buildPublishers returns the enabled platform clients, or a log publisher in
// dry-run mode or when no platform is enabled. The telegram client, if any, is
// also returned as the alert sender.
func buildPublishers(cfg *config.Config, dryRun bool, log logx.Logger) ([]Publisher, logx.AlertSender, error) {
	var (
		pubs   []Publisher
		alerts logx.AlertSender
	)

	tg := cfg.Publishers.Telegram
	if tg.Enabled {
		c, err := telegram.New(telegram.Config{
			Token:       tg.Token,
			ChatID:      tg.ChatID,
			ThreadID:    tg.ThreadID,
			MaxLen:      tg.MaxLength,
			Thread:      tg.Threaded(),
			AlertChatID: tg.AlertChatID,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		alerts = c
		pubs = append(pubs, c)
	}

	tw := cfg.Publishers.Twitter
	if tw.Enabled {
		timeout, err := config.ParseDurationOrDefault("publishers.twitter.timeout", tw.Timeout, 15*time.Second)
		if err != nil {
			return nil, nil, err
		}
		c, err := twitter.New(twitter.Config{
			ConsumerKey:       tw.ConsumerKey,
			ConsumerSecret:    tw.ConsumerSecret,
			AccessToken:       tw.AccessToken,
			AccessTokenSecret: tw.AccessTokenSecret,
			Endpoint:          tw.Endpoint,
			MaxLen:            tw.MaxLength,
			Thread:            tw.Threaded(),
			Timeout:           timeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		// twitter first: it is the primary channel and the tighter limit
		pubs = append([]Publisher{c}, pubs...)
	}

	if dryRun || cfg.Run.DryRun {
		maxLen := tw.MaxLength
		if !tw.Enabled && tg.Enabled {
			maxLen = tg.MaxLength
		}
		return []Publisher{publisher.NewLog(log.With(logx.String("comp", "publisher.log")), maxLen)}, alerts, nil
	}
	if len(pubs) == 0 {
		log.Warn("no publisher enabled; changes will only be logged")
		pubs = append(pubs, publisher.NewLog(log.With(logx.String("comp", "publisher.log")), tw.MaxLength))
	}
	return pubs, alerts, nil
}
