package main

import (
	"context"
	mongoMigration "slotbook/internal/migrations/mongo"
	"slotbook/internal/slots/events"
	"slotbook/internal/slots/handler"
	"slotbook/internal/slots/repository"
	"slotbook/internal/slots/seeder"
	"slotbook/internal/slots/service"
	"slotbook/internal/slots/validator"
	"slotbook/pkg/app"
	"slotbook/pkg/config"
	"slotbook/pkg/kafka"
	kafka_config "slotbook/pkg/kafka/config"
	"slotbook/pkg/telemetry"
	"time"

	_ "time/tzdata"
)

const ServiceName = "slots"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Slots service")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log); err != nil {
		cancel()
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cancel()

	shutdownTelemetry := initTelemetry(cfg)
	publisher := initPublisher(cfg)

	slotRepo := repository.NewMongoSlotRepository(cfg)
	customerRepo := repository.NewMongoCustomerRepository(cfg)
	slotService := service.NewSlotService(
		slotRepo,
		customerRepo,
		validator.NewSlotValidator(cfg.Log),
		publisher,
		cfg,
	)
	scheduler := seeder.NewScheduler(seeder.NewSeeder(slotRepo, publisher, cfg), cfg)
	cfg.Log.Info("Slot service initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication()
	serverApp.SetApp(
		cfg,
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewSlotHandler(slotService, cfg.Log),
	)
	serverApp.AddBackgroundTask(scheduler)
	serverApp.OnShutdown(func(context.Context) error { return publisher.Close() })
	serverApp.OnShutdown(shutdownTelemetry)
	serverApp.OnShutdown(func(context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initTelemetry(cfg *config.Config) app.ShutdownHook {
	otelCfg, err := telemetry.ConfigFromEnv(ServiceName)
	if err != nil {
		cfg.Log.Fatal("Invalid telemetry configuration", "error", err)
	}
	shutdown, err := telemetry.Setup(context.Background(), otelCfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize telemetry", "error", err)
	}
	cfg.Log.Info("Telemetry configured", "enabled", otelCfg.Enabled, "endpoint", otelCfg.OTLPEndpoint)
	return shutdown
}

func initPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	if !kafkaCfg.Enabled {
		return events.NewNoopPublisher()
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka.LoggingMiddleware(cfg.Log))
	return events.NewKafkaPublisher(producer, ServiceName, kafkaCfg.PublishTimeout)
}
