package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/feldhof/orders/internal/di"
	"github.com/feldhof/orders/internal/platform/config"
	pfirestore "github.com/feldhof/orders/internal/platform/firestore"
	"github.com/feldhof/orders/internal/platform/jobs"
	"github.com/feldhof/orders/internal/platform/observability"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("worker")
	ctx = observability.WithLogger(ctx, logger)

	// The worker is the component that actually sends mail, so an incomplete
	// mail configuration is a startup failure here rather than a per-message
	// one.
	cfg, err := config.Load(ctx, config.WithRequiredMail())
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()

	topic := pubsubClient.Topic(cfg.PubSub.EventsTopic)
	defer topic.Stop()

	publisher, err := jobs.NewPubSubEventPublisher(topic)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}

	container, err := di.NewContainer(di.Deps{
		Config:    cfg,
		Provider:  firestoreProvider,
		Publisher: publisher,
		Logger:    observability.EventLogger(logger.Named("dispatcher")),
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	subscription := pubsubClient.Subscription(cfg.PubSub.Subscription)
	receiver, err := jobs.NewEventReceiver(subscription, container.Services.Dispatcher, logger.Named("receiver"))
	if err != nil {
		logger.Fatal("failed to initialise event receiver", zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info("shutdown signal received; stopping receiver")
		cancel()
	}()

	logger.Info("feldhof orders worker consuming events",
		zap.String("subscription", cfg.PubSub.Subscription),
	)
	if err := receiver.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("event receiver stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}
