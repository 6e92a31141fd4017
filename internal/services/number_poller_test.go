package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feldhof/orders/internal/domain"
)

func TestWaitForNumberReturnsOnceStamped(t *testing.T) {
	reads := 0
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			reads++
			if reads < 3 {
				return domain.Order{ID: "order-1"}, nil
			}
			return domain.Order{ID: "order-1", Number: "#0042"}, nil
		},
	}
	var sleeps []time.Duration
	poller, err := NewNumberPoller(NumberPollerDeps{
		Orders:   orders,
		Attempts: 5,
		Interval: 250 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) {
			sleeps = append(sleeps, d)
		},
	})
	if err != nil {
		t.Fatalf("new number poller: %v", err)
	}

	number, ok := poller.WaitForNumber(context.Background(), domain.StreamEggs, "order-1")
	if !ok || number != "#0042" {
		t.Fatalf("expected #0042, got %q ok=%v", number, ok)
	}
	if reads != 3 {
		t.Fatalf("expected 3 reads, got %d", reads)
	}
	// First attempt is immediate; only the retries sleep.
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 250*time.Millisecond {
			t.Fatalf("unexpected sleep %v", d)
		}
	}
}

func TestWaitForNumberExhaustsSoftly(t *testing.T) {
	reads := 0
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			reads++
			return domain.Order{ID: "order-1"}, nil
		},
	}
	sleeps := 0
	poller, err := NewNumberPoller(NumberPollerDeps{
		Orders:   orders,
		Attempts: 5,
		Interval: 250 * time.Millisecond,
		Sleep:    func(context.Context, time.Duration) { sleeps++ },
	})
	if err != nil {
		t.Fatalf("new number poller: %v", err)
	}

	number, ok := poller.WaitForNumber(context.Background(), domain.StreamEggs, "order-1")
	if ok || number != "" {
		t.Fatalf("expected soft exhaustion, got %q ok=%v", number, ok)
	}
	if reads != 5 {
		t.Fatalf("expected exactly 5 reads, got %d", reads)
	}
	if sleeps != 4 {
		t.Fatalf("expected 4 sleeps between 5 attempts, got %d", sleeps)
	}
}

func TestWaitForNumberReadErrorsConsumeAttempts(t *testing.T) {
	reads := 0
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			reads++
			return domain.Order{}, errors.New("unavailable")
		},
	}
	poller, err := NewNumberPoller(NumberPollerDeps{
		Orders:   orders,
		Attempts: 3,
		Interval: time.Millisecond,
		Sleep:    func(context.Context, time.Duration) {},
	})
	if err != nil {
		t.Fatalf("new number poller: %v", err)
	}

	_, ok := poller.WaitForNumber(context.Background(), domain.StreamEggs, "order-1")
	if ok {
		t.Fatal("expected exhaustion")
	}
	if reads != 3 {
		t.Fatalf("read errors must consume attempts, got %d reads", reads)
	}
}

func TestWaitForNumberStopsOnCancelledContext(t *testing.T) {
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return domain.Order{ID: "order-1"}, nil
		},
	}
	poller, err := NewNumberPoller(NumberPollerDeps{
		Orders:   orders,
		Attempts: 5,
		Interval: time.Millisecond,
		Sleep:    func(context.Context, time.Duration) {},
	})
	if err != nil {
		t.Fatalf("new number poller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := poller.WaitForNumber(ctx, domain.StreamEggs, "order-1"); ok {
		t.Fatal("cancelled context must not report a number")
	}
}
