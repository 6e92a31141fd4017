package di

import (
	"context"
	"errors"

	"github.com/feldhof/orders/internal/mail"
	"github.com/feldhof/orders/internal/platform/config"
	pfirestore "github.com/feldhof/orders/internal/platform/firestore"
	"github.com/feldhof/orders/internal/repositories"
	firestorerepo "github.com/feldhof/orders/internal/repositories/firestore"
	"github.com/feldhof/orders/internal/services"
)

// Repositories bundles the store-backed collaborators.
type Repositories struct {
	Orders   repositories.OrderRepository
	Counters repositories.CounterRepository
	Stock    repositories.StockRepository
}

// Services bundles the service-layer contracts the handlers and the worker
// rely upon.
type Services struct {
	Orders     services.OrderService
	Stock      services.StockService
	Allocator  services.SequenceAllocator
	Dispatcher services.EventHandler
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories Repositories
	Services     Services
}

// Deps carries the externally constructed infrastructure the container
// assembles services around.
type Deps struct {
	Config    config.Config
	Provider  *pfirestore.Provider
	Publisher services.EventPublisher
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewContainer constructs the runtime dependency graph.
func NewContainer(deps Deps) (*Container, error) {
	if deps.Provider == nil {
		return nil, errors.New("container: firestore provider is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("container: event publisher is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	orderRepo, err := firestorerepo.NewOrderRepository(deps.Provider)
	if err != nil {
		return nil, err
	}
	counterRepo, err := firestorerepo.NewCounterRepository(deps.Provider)
	if err != nil {
		return nil, err
	}
	stockRepo, err := firestorerepo.NewStockRepository(deps.Provider)
	if err != nil {
		return nil, err
	}

	allocator, err := services.NewSequenceService(services.SequenceServiceDeps{
		Orders:   orderRepo,
		Counters: counterRepo,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	poller, err := services.NewNumberPoller(services.NumberPollerDeps{
		Orders:   orderRepo,
		Attempts: deps.Config.Polling.Attempts,
		Interval: deps.Config.Polling.Interval,
	})
	if err != nil {
		return nil, err
	}

	composer := services.NewComposer()
	mailer := mail.NewClient(deps.Config.Mail)

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   orderRepo,
		Events:   deps.Publisher,
		Poller:   poller,
		Composer: composer,
		Mailer:   mailer,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	stockSvc, err := services.NewStockService(services.StockServiceDeps{
		Stock:  stockRepo,
		Events: deps.Publisher,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	notifications := deps.Config.Notifications
	dispatcher, err := services.NewEventDispatcher(services.EventDispatcherDeps{
		Orders:    orderRepo,
		Stock:     stockRepo,
		Allocator: allocator,
		Composer:  composer,
		Mailer:    mailer,
		Settings:  func() config.NotificationConfig { return notifications },
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config: deps.Config,
		Repositories: Repositories{
			Orders:   orderRepo,
			Counters: counterRepo,
			Stock:    stockRepo,
		},
		Services: Services{
			Orders:     orderSvc,
			Stock:      stockSvc,
			Allocator:  allocator,
			Dispatcher: dispatcher,
		},
	}, nil
}
