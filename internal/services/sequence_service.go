package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/repositories"
)

const (
	// numberPrefix is the marker character leading every formatted number.
	numberPrefix = "#"
	// numberWidth is the zero-padded width of the formatted sequence value.
	numberWidth = 4
	// bootstrapScanLimit caps the legacy record scan when no counter exists.
	bootstrapScanLimit = 500
)

// leadingDigits extracts the numeric part of legacy free-text order numbers
// such as "#0042" or "17b".
var leadingDigits = regexp.MustCompile(`^\D*(\d+)`)

// FormatOrderNumber renders a sequence value in its human-facing shape.
func FormatOrderNumber(value int64) string {
	return fmt.Sprintf("%s%0*d", numberPrefix, numberWidth, value)
}

// SequenceServiceDeps bundles collaborators for the sequence allocator.
type SequenceServiceDeps struct {
	Orders   repositories.OrderRepository
	Counters repositories.CounterRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type sequenceService struct {
	orders   repositories.OrderRepository
	counters repositories.CounterRepository
	logger   func(context.Context, string, map[string]any)
}

// NewSequenceService constructs the allocator assigning per-stream order numbers.
func NewSequenceService(deps SequenceServiceDeps) (SequenceAllocator, error) {
	if deps.Orders == nil {
		return nil, errors.New("sequence service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("sequence service: counter repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &sequenceService{
		orders:   deps.Orders,
		counters: deps.Counters,
		logger:   logger,
	}, nil
}

// Allocate assigns the next number of the stream to the order, or returns the
// number the order already carries. The counter increment commits inside a
// serializable transaction; the stamping write onto the order record happens
// afterwards and outside it. A failed stamp leaves the reserved value unused,
// so sequences may have gaps but never duplicates.
func (s *sequenceService) Allocate(ctx context.Context, stream domain.Stream, order domain.Order) (string, error) {
	if existing := strings.TrimSpace(order.Number); existing != "" {
		return existing, nil
	}
	if strings.TrimSpace(order.ID) == "" {
		return "", fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if _, ok := domain.ParseStream(string(stream)); !ok {
		return "", fmt.Errorf("%w: unknown stream %q", ErrInvalidInput, stream)
	}

	next, err := s.counters.Next(ctx, stream, func(ctx context.Context) (int64, error) {
		return s.highestLegacyNumber(ctx, stream)
	})
	if err != nil {
		return "", fmt.Errorf("allocate number for %s/%s: %w", stream, order.ID, err)
	}

	formatted := FormatOrderNumber(next)
	if err := s.orders.SetNumber(ctx, stream, order.ID, formatted); err != nil {
		// The counter already committed; this value becomes a gap.
		s.logger(ctx, "sequence.stamp.failed", map[string]any{
			"stream": string(stream),
			"order":  order.ID,
			"number": formatted,
			"error":  err.Error(),
		})
		return "", fmt.Errorf("stamp number %s onto %s/%s: %w", formatted, stream, order.ID, err)
	}

	s.logger(ctx, "sequence.allocated", map[string]any{
		"stream": string(stream),
		"order":  order.ID,
		"number": formatted,
	})
	return formatted, nil
}

// highestLegacyNumber derives the counter's starting value from numbers
// stamped before the counter document existed. It only runs when the counter
// is absent and can be removed once every stream has one.
func (s *sequenceService) highestLegacyNumber(ctx context.Context, stream domain.Stream) (int64, error) {
	numbers, err := s.orders.AssignedNumbers(ctx, stream, bootstrapScanLimit)
	if err != nil {
		return 0, err
	}

	var highest int64
	for _, raw := range numbers {
		match := leadingDigits.FindStringSubmatch(raw)
		if match == nil {
			continue
		}
		value, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		if value > highest {
			highest = value
		}
	}
	return highest, nil
}
