package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("backend exited")
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel, cfg.LogPretty); err != nil {
		return err
	}
	configStore.Update(cfg)

	archive, err := OpenGameArchive(cfg.DBPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	controller := NewGameController(DefaultGameSettings())
	hub := NewHub()
	srv := newServer(controller, hub, archive, configStore, cfg.RecordPath)
	controller.SetFinishHook(srv.archiveFinished)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	g, ctx := errgroup.WithContext(sigCtx)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		hub.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		return srv.tickLoop(ctx, time.Duration(cfg.TickMs)*time.Millisecond)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("backend listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
			return errors.Wrap(httpServer.Close(), "force close")
		}
		return nil
	})
	return g.Wait()
}
