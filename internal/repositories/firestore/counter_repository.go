package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/feldhof/orders/internal/domain"
	pfirestore "github.com/feldhof/orders/internal/platform/firestore"
	"github.com/feldhof/orders/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	LastNumber int64     `firestore:"lastNumber"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

// CounterRepository implements repositories.CounterRepository backed by
// Firestore transactions. The transaction is the only mutual exclusion the
// allocation pipeline relies on: concurrent increments against the same
// counter document serialize or abort-and-retry inside the Firestore runtime.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.Collection[counterDocument]
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewCollection[counterDocument](provider, countersCollection),
	}, nil
}

func counterID(stream domain.Stream) string {
	return "orders:" + string(stream)
}

// Next reserves the next sequence value for the stream. When the counter
// document does not exist yet, bootstrap derives the starting value from the
// stream's existing records; the derived value is committed together with the
// increment so later callers never bootstrap again.
func (r *CounterRepository) Next(ctx context.Context, stream domain.Stream, bootstrap func(ctx context.Context) (int64, error)) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	if _, ok := domain.ParseStream(string(stream)); !ok {
		return 0, repositories.NewError(repositories.ErrorCodeInvalidInput, fmt.Sprintf("unknown stream %q", stream), nil)
	}

	id := counterID(stream)
	now := time.Now().UTC()
	var next int64

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.counters.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		var last int64
		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.OK:
			var doc counterDocument
			if err := snapshot.DataTo(&doc); err != nil {
				return fmt.Errorf("firestore counters decode %s: %w", id, err)
			}
			last = doc.LastNumber
		case codes.NotFound:
			if bootstrap != nil {
				last, err = bootstrap(ctx)
				if err != nil {
					return fmt.Errorf("counter bootstrap %s: %w", id, err)
				}
			}
		default:
			return err
		}

		next = last + 1
		return tx.Set(ref, counterDocument{LastNumber: next, UpdatedAt: now})
	})
	if err != nil {
		var repoErr *repositories.Error
		if errors.As(err, &repoErr) {
			return 0, repoErr
		}
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return next, nil
}
