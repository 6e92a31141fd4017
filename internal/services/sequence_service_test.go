package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/feldhof/orders/internal/domain"
)

func TestFormatOrderNumber(t *testing.T) {
	cases := []struct {
		value int64
		want  string
	}{
		{1, "#0001"},
		{42, "#0042"},
		{999, "#0999"},
		{1000, "#1000"},
		{12345, "#12345"},
	}
	for _, tc := range cases {
		if got := FormatOrderNumber(tc.value); got != tc.want {
			t.Fatalf("FormatOrderNumber(%d) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestAllocateAssignsAndStampsNextNumber(t *testing.T) {
	orders := &stubOrderRepo{}
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, stream domain.Stream, _ func(ctx context.Context) (int64, error)) (int64, error) {
			if stream != domain.StreamEggs {
				t.Fatalf("unexpected stream %q", stream)
			}
			return 7, nil
		},
	}

	svc, err := NewSequenceService(SequenceServiceDeps{Orders: orders, Counters: counters})
	if err != nil {
		t.Fatalf("new sequence service: %v", err)
	}

	number, err := svc.Allocate(context.Background(), domain.StreamEggs, domain.Order{ID: "order-1"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if number != "#0007" {
		t.Fatalf("expected #0007, got %q", number)
	}
	if len(orders.setNumbers) != 1 || orders.setNumbers[0] != "#0007" {
		t.Fatalf("expected stamp of #0007, got %v", orders.setNumbers)
	}
}

func TestAllocateIsIdempotentForNumberedOrders(t *testing.T) {
	orders := &stubOrderRepo{}
	counters := &stubCounterRepo{}

	svc, err := NewSequenceService(SequenceServiceDeps{Orders: orders, Counters: counters})
	if err != nil {
		t.Fatalf("new sequence service: %v", err)
	}

	number, err := svc.Allocate(context.Background(), domain.StreamEggs, domain.Order{ID: "order-1", Number: "#0042"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if number != "#0042" {
		t.Fatalf("expected existing #0042, got %q", number)
	}
	if counters.calls != 0 {
		t.Fatalf("counter must not be touched for a numbered order, got %d calls", counters.calls)
	}
	if len(orders.setNumbers) != 0 {
		t.Fatalf("no stamp expected, got %v", orders.setNumbers)
	}
}

func TestAllocateRejectsUnknownStream(t *testing.T) {
	svc, err := NewSequenceService(SequenceServiceDeps{Orders: &stubOrderRepo{}, Counters: &stubCounterRepo{}})
	if err != nil {
		t.Fatalf("new sequence service: %v", err)
	}

	_, err = svc.Allocate(context.Background(), domain.Stream("honey"), domain.Order{ID: "order-1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAllocateStampFailureReturnsErrorAfterCommit(t *testing.T) {
	orders := &stubOrderRepo{
		setNumFn: func(context.Context, domain.Stream, string, string) error {
			return errors.New("write lost")
		},
	}
	counters := &stubCounterRepo{
		nextFn: func(context.Context, domain.Stream, func(ctx context.Context) (int64, error)) (int64, error) {
			return 9, nil
		},
	}

	svc, err := NewSequenceService(SequenceServiceDeps{Orders: orders, Counters: counters})
	if err != nil {
		t.Fatalf("new sequence service: %v", err)
	}

	_, err = svc.Allocate(context.Background(), domain.StreamEggs, domain.Order{ID: "order-1"})
	if err == nil {
		t.Fatal("expected stamp failure to propagate")
	}
	// The counter increment stands; the value is a gap for redelivery to skip.
	if counters.calls != 1 {
		t.Fatalf("expected one counter call, got %d", counters.calls)
	}
}

func TestAllocateContendingOrdersGetUniqueNumbers(t *testing.T) {
	var (
		mu   sync.Mutex
		last int64
	)
	counters := &stubCounterRepo{
		nextFn: func(context.Context, domain.Stream, func(ctx context.Context) (int64, error)) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			last++
			return last, nil
		},
	}
	orders := &stubOrderRepo{}

	svc, err := NewSequenceService(SequenceServiceDeps{Orders: orders, Counters: counters})
	if err != nil {
		t.Fatalf("new sequence service: %v", err)
	}

	const workers = 16
	numbers := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			number, err := svc.Allocate(context.Background(), domain.StreamEggs, domain.Order{ID: fmt.Sprintf("order-%d", idx)})
			if err != nil {
				t.Errorf("allocate order-%d: %v", idx, err)
				return
			}
			numbers[idx] = number
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int, workers)
	for idx, number := range numbers {
		if number == "" {
			continue
		}
		if prev, dup := seen[number]; dup {
			t.Fatalf("orders %d and %d both got %s", prev, idx, number)
		}
		seen[number] = idx
	}
	for value := int64(1); value <= workers; value++ {
		if _, ok := seen[FormatOrderNumber(value)]; !ok {
			t.Fatalf("expected %s to be handed out, got %v", FormatOrderNumber(value), numbers)
		}
	}
	if len(orders.setNumbers) != workers {
		t.Fatalf("expected %d stamps, got %d", workers, len(orders.setNumbers))
	}
}

func TestHighestLegacyNumberParsesFreeTextValues(t *testing.T) {
	orders := &stubOrderRepo{
		numbersFn: func(context.Context, domain.Stream, int) ([]string, error) {
			return []string{"#0042", "17b", "Nr. 108 (alt)", "draft", ""}, nil
		},
	}
	counters := &stubCounterRepo{
		nextFn: func(ctx context.Context, _ domain.Stream, bootstrap func(ctx context.Context) (int64, error)) (int64, error) {
			start, err := bootstrap(ctx)
			if err != nil {
				return 0, err
			}
			return start + 1, nil
		},
	}

	svc, err := NewSequenceService(SequenceServiceDeps{Orders: orders, Counters: counters})
	if err != nil {
		t.Fatalf("new sequence service: %v", err)
	}

	number, err := svc.Allocate(context.Background(), domain.StreamLivestock, domain.Order{ID: "order-1"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if number != "#0109" {
		t.Fatalf("expected bootstrap to continue from 108, got %q", number)
	}
}
