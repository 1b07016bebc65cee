package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "sanctionsbot/pkg/logx"
)

func TestServiceRunsJobAndSkipsOverlap(t *testing.T) {
	s := New(Config{}, logx.Nop())

	var runs int32
	release := make(chan struct{})
	if err := s.Set("refresh", "@every 1s", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if next := s.Next(); next.IsZero() {
		t.Fatal("expected a next trigger time")
	}

	// The first run blocks for ~2.5 triggers; overlapping triggers are skipped.
	time.Sleep(3500 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("runs while blocked = %d, want 1", got)
	}
	close(release)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	s.Stop(stopCtx)
	if !s.Next().IsZero() {
		t.Fatal("stopped scheduler must report no next time")
	}
}

func TestServiceSetRejectsBadSchedule(t *testing.T) {
	s := New(Config{}, logx.Nop())
	job := func(context.Context) error { return nil }
	if err := s.Set("x", "61 * * * *", job); err == nil {
		t.Fatal("expected cron parse error")
	}
	if err := s.Set("", "@daily", job); err == nil {
		t.Fatal("expected name error")
	}
	if err := s.Validate("at:07:15"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestServiceApplyChangesScheduleAndTimezone(t *testing.T) {
	s := New(Config{Schedule: "@daily"}, logx.Nop())
	if err := s.Set("refresh", "@daily", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Apply(Config{Schedule: "at:09:00", Timezone: "America/New_York"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	next := s.Next()
	if next.IsZero() {
		t.Fatal("expected next trigger after apply")
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if local := next.In(loc); local.Hour() != 9 || local.Minute() != 0 {
		t.Fatalf("next = %v, want 09:00 New York", local)
	}
}
