package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/joho/godotenv"

	"github.com/echomatch/echomatch/internal/app"
	"github.com/echomatch/echomatch/internal/cache"
	"github.com/echomatch/echomatch/internal/config"
	"github.com/echomatch/echomatch/internal/db"
	"github.com/echomatch/echomatch/internal/events"
	"github.com/echomatch/echomatch/internal/logger"
	"github.com/echomatch/echomatch/internal/presence"
	"github.com/echomatch/echomatch/internal/repository"
	"github.com/echomatch/echomatch/internal/server"
	"github.com/echomatch/echomatch/internal/service/matching"
	"github.com/echomatch/echomatch/internal/service/nearby"
	"github.com/echomatch/echomatch/internal/service/ranking"
	"github.com/echomatch/echomatch/internal/spotify"
)

func main() {
	_ = godotenv.Load()
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Presence fan-out bus. In-process channel transport; swap for a
	// broker-backed Watermill publisher when analytics moves out of process.
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(log))
	publisher := events.NewPublisher(bus, cfg.Events.Topic)

	sink := events.NewHistorySink(repository.NewHistoryRepository(database))
	if err := sink.Run(ctx, bus, cfg.Events.Topic); err != nil {
		log.Error("failed to start history sink", "err", err)
		return
	}

	appCtx := app.New(cfg, database, redisCache, publisher, log)

	store := presence.NewStore(redisCache, cfg.Presence.TTL)
	player := spotify.NewClient(cfg)
	tokens := repository.NewTokenRepository(database)

	registrars := []server.Registrar{
		matching.NewRegistrar(appCtx),
		nearby.NewRegistrar(nearby.NewService(appCtx, store, player, tokens)),
		ranking.NewRegistrar(ranking.NewService(appCtx)),
	}

	if cfg.App.Env == "development" {
		if err := db.SeedDemoData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	router := server.NewRouter(registrars...)
	if err := server.Start(ctx, cfg, router); err != nil {
		log.Error("server exited", "err", err)
	}
}
