package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/validator"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/config"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/database"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/redis"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/retry"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/telemetry"
)

const serviceName = "booking-validator"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		log.Fatal("failed to init telemetry", zap.Error(err))
	}
	defer telemetry.Shutdown(context.Background())

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     serviceName,
	})
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := redis.NewClient(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	kafkaBus, err := bus.NewKafkaBus(ctx, &bus.KafkaConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: serviceName,
	})
	if err != nil {
		log.Fatal("failed to connect to kafka", zap.Error(err))
	}
	defer kafkaBus.Close()

	cat := catalog.NewCached(catalog.NewPostgresCatalog(db.Pool()), redisClient, cfg.Redis.CatalogTTL)

	consumer, err := bus.NewConsumer(ctx, &bus.ConsumerConfig{
		Brokers:   cfg.Kafka.Brokers,
		GroupID:   cfg.Kafka.ConsumerGroup + "-validator",
		ClientID:  serviceName,
		Topic:     cfg.Kafka.Topic,
		Handler:   validator.NewHandler(cat),
		Publisher: kafkaBus,
		DLQ:       retry.NewKafkaDLQPublisher(kafkaBus, &retry.DLQConfig{Source: serviceName}),
	})
	if err != nil {
		log.Fatal("failed to create consumer", zap.Error(err))
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("consumer stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down validator")
	cancel()
	consumer.Stop()
}
