package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctionsbot/internal/config"
	logx "sanctionsbot/pkg/logx"
)

func names(pubs []Publisher) []string { return publisherNames(pubs) }

func TestBuildPublishersOrdersTwitterFirst(t *testing.T) {
	cfg := config.Default()
	cfg.Publishers.Twitter = config.TwitterConfig{
		Enabled: true, ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessTokenSecret: "ats",
		MaxLength: 280,
	}
	cfg.Publishers.Telegram = config.TelegramConfig{Enabled: true, Token: "123:abc", ChatID: 42, MaxLength: 4096}

	pubs, alerts, err := buildPublishers(cfg, false, logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"twitter", "telegram"}, names(pubs))
	assert.NotNil(t, alerts)
	assert.Equal(t, 280, pubs[0].MaxLen())
	assert.Equal(t, 4096, pubs[1].MaxLen())
}

func TestBuildPublishersDryRunUsesLog(t *testing.T) {
	cfg := config.Default()
	cfg.Publishers.Telegram = config.TelegramConfig{Enabled: true, Token: "123:abc", ChatID: 42, MaxLength: 4096}

	pubs, alerts, err := buildPublishers(cfg, true, logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, names(pubs))
	// the telegram limit applies when twitter is off
	assert.Equal(t, 4096, pubs[0].MaxLen())
	// alerts still reach telegram in dry-run
	assert.NotNil(t, alerts)
}

func TestBuildPublishersNoneEnabledFallsBackToLog(t *testing.T) {
	pubs, alerts, err := buildPublishers(config.Default(), false, logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, names(pubs))
	assert.Nil(t, alerts)
}

func TestBuildPublishersRejectsBadTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Publishers.Twitter = config.TwitterConfig{
		Enabled: true, ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessTokenSecret: "ats",
		Timeout: "soon",
	}
	_, _, err := buildPublishers(cfg, false, logx.Nop())
	assert.ErrorContains(t, err, "publishers.twitter.timeout")
}

func TestMapConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{Driver: "sqlite", Path: "state.db", Key: "k"}
	cfg.Run.Timeout = "10m"
	cfg.Scheduler = config.SchedulerConfig{Enabled: true, Schedule: "at:09:00", Timezone: "UTC"}

	fc, err := mapFetcherConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, fc.Timeout)

	sc, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Second, sc.BusyTimeout)
	assert.Equal(t, "k", sc.Key)

	schedCfg, err := mapSchedulerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, schedCfg.Timeout)
	assert.Equal(t, "at:09:00", schedCfg.Schedule)
}
