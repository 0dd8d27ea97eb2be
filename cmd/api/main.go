package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diasporan-backend/internal/application/listingevents"
	"diasporan-backend/internal/config"
	"diasporan-backend/internal/interfaces/router"
	"diasporan-backend/internal/pkg/logger"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	logger.Setup(cfg.Env, cfg.LogLevel)

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("App create failed")
	}

	// Verify connections before serving.
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Database handle unavailable")
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	log.Info().Msg("Database connected")
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		log.Info().Msg("Redis connected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := listingevents.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaListingTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("Kafka publisher setup failed")
		}
		defer publisher.Close()
		relay := &listingevents.Relay{DB: db, Publisher: publisher, Interval: cfg.RelayInterval}
		go relay.Run(ctx)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaListingTopic).Msg("Kafka publisher ready")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msgf("Server running at http://localhost:%s", cfg.Port)
		log.Info().Msgf("Health check: http://localhost:%s/health/json", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = sqlDB.Close()
}
