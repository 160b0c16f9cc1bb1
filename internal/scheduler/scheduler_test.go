package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeAdvancer struct {
	calls []time.Time
	n     int
	err   error
}

func (f *fakeAdvancer) AdvanceSchedule(ctx context.Context, now time.Time) (int, error) {
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a bounded context")
	}
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("every now and then", &fakeAdvancer{}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestNewRegistersAuctionJob(t *testing.T) {
	s, err := New("@every 1m", &fakeAdvancer{})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(s.cron.Entries()); got != 1 {
		t.Fatalf("entries = %d, want 1", got)
	}
}

func TestAdvanceAuctionsPassesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	adv := &fakeAdvancer{n: 2}
	s, err := New("@every 1m", adv)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return fixed }

	if n := s.AdvanceAuctions(context.Background()); n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if len(adv.calls) != 1 || !adv.calls[0].Equal(fixed) {
		t.Fatalf("calls = %v", adv.calls)
	}
}

func TestAdvanceAuctionsSurvivesErrors(t *testing.T) {
	adv := &fakeAdvancer{err: errors.New("db down")}
	s, _ := New("@every 1m", adv)
	if n := s.AdvanceAuctions(context.Background()); n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
}

func TestStartStop(t *testing.T) {
	s, _ := New("@every 1h", &fakeAdvancer{})
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
