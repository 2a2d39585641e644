package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whist-game/internal/auth"
	"whist-game/internal/config"
	"whist-game/internal/database"
	"whist-game/internal/game"
	"whist-game/internal/server"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("WHIST_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("auth.jwt_secret (WHIST_AUTH_JWT_SECRET) is required")
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	registry := game.NewRegistry(db, game.Options{
		CodeLength:  cfg.Game.RoomCodeLength,
		SettleDelay: cfg.Game.SettleDelay,
	})
	hub := server.NewHub(registry)
	registry.SetSender(hub)
	go hub.Run()

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	router := server.NewRouter(hub, registry, verifier)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting whist server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
