package main

import (
	"context"

	"spacebook/internal/health"
	reservationevents "spacebook/internal/reservations/events"
	reservationhandler "spacebook/internal/reservations/handler"
	"spacebook/internal/reservations/lock"
	reservationrepository "spacebook/internal/reservations/repository"
	reservationservice "spacebook/internal/reservations/service"
	reservationvalidator "spacebook/internal/reservations/validator"
	spacehandler "spacebook/internal/spaces/handler"
	spacerepository "spacebook/internal/spaces/repository"
	spaceservice "spacebook/internal/spaces/service"
	spacevalidator "spacebook/internal/spaces/validator"
	"spacebook/pkg/app"
	"spacebook/pkg/config"
	"spacebook/pkg/kafka"
	kafka_config "spacebook/pkg/kafka/config"
	kafka_middleware "spacebook/pkg/kafka/middleware"
)

const ServiceName = "spacebook"

var eventMetrics kafka_middleware.Metrics

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Spacebook service")

	publisher := initPublisher(cfg)
	locker := initLocker(cfg)
	spaceRepo := spacerepository.NewMongoSpaceRepository(cfg)
	reservationRepo := reservationrepository.NewMongoReservationRepository(cfg)

	spaceService := spaceservice.NewSpaceService(
		spaceRepo,
		reservationRepo,
		locker,
		spacevalidator.NewSpaceValidator(cfg.Log),
		cfg,
	)
	reservationService, availabilityService := initReservations(cfg, spaceRepo, reservationRepo, locker, publisher)

	healthHandler := health.NewHandler(cfg.Log).WithCheck("mongo", health.MongoCheck(cfg.Client.Mongo))
	if cfg.Client.Redis != nil {
		healthHandler = healthHandler.WithCheck("redis", health.RedisCheck(cfg.Client.Redis))
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		healthHandler,
		spacehandler.NewSpaceHandler(spaceService, cfg.Log),
		reservationhandler.NewReservationHandler(reservationService, availabilityService, cfg.Log),
	)
	serverApp.OnShutdown(func(context.Context) {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
		if cfg.EventsEnabled {
			snap := eventMetrics.Snapshot()
			cfg.Log.Info("Reservation events summary",
				"published", snap.Published,
				"failed", snap.PublishFailed,
				"avg_publish_duration", snap.AvgPublishDuration,
			)
		}
		cfg.GracefulShutdown()
	})
	serverApp.Run()
}

func initReservations(
	cfg *config.Config,
	spaceRepo spacerepository.SpaceRepository,
	repo reservationrepository.ReservationRepository,
	locker lock.Locker,
	publisher reservationevents.Publisher,
) (reservationservice.ReservationService, reservationservice.AvailabilityService) {
	coordinator := reservationservice.NewCoordinator(spaceRepo, repo, locker, cfg)

	reservationService := reservationservice.NewReservationService(
		repo,
		coordinator,
		reservationvalidator.NewReservationValidator(cfg.Log),
		publisher,
		cfg,
	)
	availabilityService := reservationservice.NewAvailabilityService(spaceRepo, repo, cfg)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName, "lock_backend", cfg.LockBackend)
	return reservationService, availabilityService
}

func initLocker(cfg *config.Config) lock.Locker {
	if cfg.LockBackend == config.LockBackendRedis {
		if cfg.Client.Redis == nil {
			cfg.Log.Fatal("Redis lock backend selected but no Redis client is connected")
		}
		return lock.NewRedisLocker(cfg.Client.Redis, cfg.LockTTL, cfg.LockWaitTimeout)
	}
	return lock.NewMongoLocker(
		reservationrepository.NewMongoReservationLockRepository(cfg),
		cfg.LockTTL,
		cfg.LockWaitTimeout,
	)
}

func initPublisher(cfg *config.Config) reservationevents.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Reservation events disabled")
		return reservationevents.NewNopPublisher()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(eventMetrics.ProducerMiddleware())

	cfg.Log.Info("Reservation events enabled", "topic", cfg.EventsTopic)
	return reservationevents.NewKafkaPublisher(producer)
}
