package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"spacebook/internal/reservations/events"
	"spacebook/pkg/config"
	"spacebook/pkg/kafka"
	kafka_config "spacebook/pkg/kafka/config"
	kafka_middleware "spacebook/pkg/kafka/middleware"
	"spacebook/pkg/logger"
)

const ServiceName = "reservation-events"

func main() {
	log := logger.New(logger.Config{
		Level:     envOr(config.EnvLogLevel, config.DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   ServiceName,
	})
	topic := envOr(config.EnvEventsTopic, config.DefaultEventsTopic)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(log)

	consumer, err := kafka.NewConsumer(kafkaCfg, topic, events.NewHandler(events.LogSink(log)), log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	var metrics kafka_middleware.Metrics
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	consumer.Use(metrics.ConsumerMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Consuming reservation events", "topic", topic, "group_id", kafkaCfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		log.Error("Failed to close consumer", "error", err)
	}

	snap := metrics.Snapshot()
	log.Info("Reservation events consumer stopped",
		"consumed", snap.Consumed,
		"failed", snap.ConsumeFailed,
		"avg_consume_duration", snap.AvgConsumeDuration,
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
