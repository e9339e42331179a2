package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/lobby/internal/adapters/http"
	"github.com/dkeye/lobby/internal/adapters/capture"
	"github.com/dkeye/lobby/internal/app"
	"github.com/dkeye/lobby/internal/app/orch"
	"github.com/dkeye/lobby/internal/config"
	"github.com/dkeye/lobby/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	devices := capture.NewDevices(capture.Config{
		AllowCapture:   cfg.Media.AllowCapture,
		Width:          cfg.Media.Width,
		Height:         cfg.Media.Height,
		FrameRate:      cfg.Media.FrameRate,
		AcquireTimeout: cfg.Media.AcquireTimeout,
	})
	log.Info().Str("drivers", driverSet).Int("devices", len(devices.Enumerate())).Msg("media layer ready")

	defaultRoom, err := domain.NewRoomName(cfg.DefaultRoom, "lobby")
	if err != nil {
		log.Fatal().Err(err).Str("room", cfg.DefaultRoom).Msg("bad default room")
	}

	orch := &orch.Orchestrator{
		Registry:    app.NewRegistry(),
		Rooms:       app.NewRoomManager(cfg.Limits.RoomCapacity),
		Media:       devices,
		DefaultRoom: defaultRoom,
	}

	r := router.SetupRouter(ctx, cfg, orch, devices)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("lobby server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Hijacked websockets are not covered by Shutdown; release their devices here.
	orch.Shutdown()
	log.Info().Msg("Server exited gracefully")
}
