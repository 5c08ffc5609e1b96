package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cattlegrid/cattlegrid/internal/config"
	"github.com/cattlegrid/cattlegrid/internal/geocode"
	httpserver "github.com/cattlegrid/cattlegrid/internal/http"
	"github.com/cattlegrid/cattlegrid/internal/rating"
	"github.com/cattlegrid/cattlegrid/internal/repository"
	"github.com/cattlegrid/cattlegrid/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "cattlegrid").
		Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	var geocoder geocode.Client
	if cfg.GeocoderURL != "" {
		client, err := geocode.NewHTTPClient(cfg.GeocoderURL, cfg.GeocoderAPIKey, time.Duration(cfg.GeocoderTimeoutSecs)*time.Second, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("init geocode client")
		}
		geocoder = client
	}

	repo := repository.New(st)
	aggregator := rating.New(st.Pool(), repo.Guards, repo.Ratings, logger)
	server := httpserver.New(cfg, st, repo, aggregator, geocoder, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
