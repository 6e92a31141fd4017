package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/repositories"
)

const (
	defaultPollAttempts = 5
	defaultPollInterval = 250 * time.Millisecond
)

// NumberPollerDeps bundles collaborators for the allocation poller.
type NumberPollerDeps struct {
	Orders   repositories.OrderRepository
	Attempts int
	Interval time.Duration
	// Sleep is injectable for tests; defaults to a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration)
}

// NumberPoller re-reads a freshly created order until its number appears.
// Allocation happens asynchronously in the event pipeline, so the submission
// caller polls a bounded number of times and degrades gracefully.
type NumberPoller struct {
	orders   repositories.OrderRepository
	attempts int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration)
}

// NewNumberPoller constructs the bounded allocation poller.
func NewNumberPoller(deps NumberPollerDeps) (*NumberPoller, error) {
	if deps.Orders == nil {
		return nil, errors.New("number poller: order repository is required")
	}
	attempts := deps.Attempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		}
	}
	return &NumberPoller{
		orders:   deps.Orders,
		attempts: attempts,
		interval: interval,
		sleep:    sleep,
	}, nil
}

// WaitForNumber re-reads the order up to the attempt budget, sleeping the
// configured interval between attempts, and returns the number as soon as it
// appears. Exhausting the budget is a soft outcome, not an error: the second
// return value is false and the caller proceeds with a degraded confirmation.
func (p *NumberPoller) WaitForNumber(ctx context.Context, stream domain.Stream, orderID string) (string, bool) {
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			p.sleep(ctx, p.interval)
		}
		if ctx.Err() != nil {
			return "", false
		}

		order, err := p.orders.Get(ctx, stream, orderID)
		if err != nil {
			// Read failures consume an attempt like any other miss.
			continue
		}
		if number := strings.TrimSpace(order.Number); number != "" {
			return number, true
		}
	}
	return "", false
}
