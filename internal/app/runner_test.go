package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sanctionsbot/internal/app/mocks"
	"sanctionsbot/internal/fetcher"
	"sanctionsbot/internal/observability"
	"sanctionsbot/internal/publisher"
	"sanctionsbot/internal/storage"
	"sanctionsbot/internal/watchlist"
)

func snap(entries ...watchlist.Entry) watchlist.Snapshot {
	return watchlist.Snapshot{FetchedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), Entries: entries}
}

func e(name, source string) watchlist.Entry { return watchlist.Entry{Name: name, Source: source} }

type fixture struct {
	fetch *mocks.MockFetcher
	store *mocks.MockSnapshotStore
	pub   *mocks.MockPublisher
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		fetch: mocks.NewMockFetcher(ctrl),
		store: mocks.NewMockSnapshotStore(ctrl),
		pub:   mocks.NewMockPublisher(ctrl),
	}
	f.pub.EXPECT().Name().Return("twitter").AnyTimes()
	f.pub.EXPECT().MaxLen().Return(280).AnyTimes()
	return f
}

func (f fixture) runner(opts ...RunnerOption) *Runner {
	return NewRunner(f.fetch, f.store, []Publisher{f.pub}, opts...)
}

func TestRunBootstrapSavesWithoutPublishing(t *testing.T) {
	f := newFixture(t)
	cur := snap(e("A", "S1"))
	m := observability.NewMetrics()

	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(watchlist.Snapshot{}, false, nil)
	f.store.EXPECT().Save(gomock.Any(), cur).Return(nil)

	rep, err := f.runner(WithMetrics(m)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBootstrap, rep.Outcome)
	assert.True(t, rep.Persisted)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Runs.WithLabelValues("bootstrap")))
}

func TestRunNoChangeStillSaves(t *testing.T) {
	f := newFixture(t)
	prev := snap(e("A", "S1"), e("B", "S2"))
	cur := snap(e("B", "S2"), e("A", "S1"))

	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	f.store.EXPECT().Save(gomock.Any(), cur).Return(nil)

	rep, err := f.runner().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChange, rep.Outcome)
	assert.Zero(t, rep.Added)
	assert.Zero(t, rep.Removed)
}

func TestRunPublishesAdditionThenSaves(t *testing.T) {
	f := newFixture(t)
	prev := snap(e("A", "S1"))
	cur := snap(e("A", "S1"), e("B", "S1"))

	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	gomock.InOrder(
		f.pub.EXPECT().Publish(gomock.Any(), []string{"S1 added: B"}).Return(nil),
		f.store.EXPECT().Save(gomock.Any(), cur).Return(nil),
	)

	rep, err := f.runner().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, rep.Outcome)
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, []string{"twitter"}, rep.Published)
}

func TestRunPublishesRemoval(t *testing.T) {
	f := newFixture(t)
	prev := snap(e("A", "S1"), e("B", "S1"))
	cur := snap(e("B", "S1"))

	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	f.pub.EXPECT().Publish(gomock.Any(), []string{"S1 removed: A"}).Return(nil)
	f.store.EXPECT().Save(gomock.Any(), cur).Return(nil)

	rep, err := f.runner().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Removed)
}

func TestRunPublishFailureStillPersistsByDefault(t *testing.T) {
	f := newFixture(t)
	prev := snap(e("A", "S1"))
	cur := snap(e("A", "S1"), e("B", "S1"))
	m := observability.NewMetrics()

	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Return(&publisher.PublishError{Platform: "twitter", Status: 403, Message: "Forbidden"})
	f.store.EXPECT().Save(gomock.Any(), cur).Return(nil)

	rep, err := f.runner(WithMetrics(m)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublishFailed, rep.Outcome)
	assert.True(t, rep.Persisted)
	require.Len(t, rep.PublishErrors, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishFailures.WithLabelValues("twitter")))
}

func TestRunPublishFailureWithholdsSnapshotWhenConfigured(t *testing.T) {
	f := newFixture(t)
	prev := snap(e("A", "S1"))
	cur := snap(e("A", "S1"), e("B", "S1"))

	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Return(&publisher.PublishError{Platform: "twitter", Status: 503, Message: "Service Unavailable"})

	rep, err := f.runner(WithPersistOnPublishFailure(false)).Run(context.Background())
	require.Error(t, err)
	assert.False(t, rep.Persisted)

	var pe *publisher.PublishError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 503, pe.Status)
}

func TestRunPartialWhenOnePublisherFails(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockPublisher(ctrl)
	tg.EXPECT().Name().Return("telegram").AnyTimes()
	tg.EXPECT().MaxLen().Return(4096).AnyTimes()

	prev := snap(e("A", "S1"))
	cur := snap(e("A", "S1"), e("B", "S1"))
	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
	tg.EXPECT().Publish(gomock.Any(), []string{"S1 added: B"}).Return(nil)
	f.store.EXPECT().Save(gomock.Any(), cur).Return(nil)

	rep, err := NewRunner(f.fetch, f.store, []Publisher{f.pub, tg}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, rep.Outcome)
	assert.Equal(t, []string{"telegram"}, rep.Published)
}

func TestRunFetchErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.fetch.EXPECT().Fetch(gomock.Any()).Return(watchlist.Snapshot{}, &fetcher.StatusError{Status: 502})

	rep, err := f.runner().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetcher.ErrNetwork)
	assert.Equal(t, OutcomeFailed, rep.Outcome)
	assert.False(t, rep.Persisted)
}

func TestRunLoadErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.fetch.EXPECT().Fetch(gomock.Any()).Return(snap(e("A", "S1")), nil)
	f.store.EXPECT().Load(gomock.Any()).Return(watchlist.Snapshot{}, false, storage.ErrStorage)

	_, err := f.runner().Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func TestRunSaveErrorIsReported(t *testing.T) {
	f := newFixture(t)
	cur := snap(e("A", "S1"))
	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(cur, true, nil)
	f.store.EXPECT().Save(gomock.Any(), cur).Return(storage.ErrStorage)

	rep, err := f.runner().Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorage)
	assert.Equal(t, OutcomeFailed, rep.Outcome)
}

func TestRunSkipsWhileAnotherRunIsActive(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	cur := snap(e("A", "S1"))

	f.fetch.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(context.Context) (watchlist.Snapshot, error) {
		close(started)
		<-release
		return cur, nil
	})
	f.store.EXPECT().Load(gomock.Any()).Return(cur, true, nil)
	f.store.EXPECT().Save(gomock.Any(), cur).Return(nil)

	r := f.runner()
	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()
	<-started

	rep, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, OutcomeSkipped, rep.Outcome)

	close(release)
	require.NoError(t, <-done)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, OutcomeNoChange, last.Outcome)
}
