package services

import (
	"context"
	"errors"
	"sync"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/repositories"
)

type stubOrderRepo struct {
	mu sync.Mutex

	createFn  func(ctx context.Context, order domain.Order) error
	getFn     func(ctx context.Context, stream domain.Stream, orderID string) (domain.Order, error)
	updateFn  func(ctx context.Context, order domain.Order) error
	setNumFn  func(ctx context.Context, stream domain.Stream, orderID, number string) error
	numbersFn func(ctx context.Context, stream domain.Stream, limit int) ([]string, error)

	created    []domain.Order
	updated    []domain.Order
	setNumbers []string
	getCalls   int
}

func (s *stubOrderRepo) Create(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	s.created = append(s.created, order)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Get(ctx context.Context, stream domain.Stream, orderID string) (domain.Order, error) {
	s.mu.Lock()
	s.getCalls++
	s.mu.Unlock()
	if s.getFn != nil {
		return s.getFn(ctx, stream, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	s.updated = append(s.updated, order)
	s.mu.Unlock()
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) SetNumber(ctx context.Context, stream domain.Stream, orderID, number string) error {
	s.mu.Lock()
	s.setNumbers = append(s.setNumbers, number)
	s.mu.Unlock()
	if s.setNumFn != nil {
		return s.setNumFn(ctx, stream, orderID, number)
	}
	return nil
}

func (s *stubOrderRepo) AssignedNumbers(ctx context.Context, stream domain.Stream, limit int) ([]string, error) {
	if s.numbersFn != nil {
		return s.numbersFn(ctx, stream, limit)
	}
	return nil, nil
}

type stubCounterRepo struct {
	mu    sync.Mutex
	calls int

	nextFn func(ctx context.Context, stream domain.Stream, bootstrap func(ctx context.Context) (int64, error)) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, stream domain.Stream, bootstrap func(ctx context.Context) (int64, error)) (int64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.nextFn != nil {
		return s.nextFn(ctx, stream, bootstrap)
	}
	return 0, errors.New("not implemented")
}

type stubStockRepo struct {
	getFn    func(ctx context.Context, itemID string) (domain.StockItem, error)
	upsertFn func(ctx context.Context, item domain.StockItem) (*domain.StockItem, error)
}

func (s *stubStockRepo) Get(ctx context.Context, itemID string) (domain.StockItem, error) {
	if s.getFn != nil {
		return s.getFn(ctx, itemID)
	}
	return domain.StockItem{}, errors.New("not implemented")
}

func (s *stubStockRepo) Upsert(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, item)
	}
	return nil, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *capturePublisher) PublishEvent(_ context.Context, event Event) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.events = append(c.events, event)
	return "msg-1", nil
}

type sentMail struct {
	Recipients []string
	Subject    string
	HTMLBody   string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (c *captureMailer) Send(_ context.Context, recipients []string, subject, htmlBody string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.sent = append(c.sent, sentMail{Recipients: recipients, Subject: subject, HTMLBody: htmlBody})
	return "delivery-1", nil
}

var _ repositories.OrderRepository = (*stubOrderRepo)(nil)
var _ repositories.CounterRepository = (*stubCounterRepo)(nil)
var _ repositories.StockRepository = (*stubStockRepo)(nil)
