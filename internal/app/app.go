// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/auth"
	"github.com/nurpe/gigflow/internal/config"
	"github.com/nurpe/gigflow/internal/db"
	"github.com/nurpe/gigflow/internal/excel"
	httphandler "github.com/nurpe/gigflow/internal/http"
	"github.com/nurpe/gigflow/internal/http/middleware"
	"github.com/nurpe/gigflow/internal/pdf"
	"github.com/nurpe/gigflow/internal/realtime"
	"github.com/nurpe/gigflow/internal/reconciler"
	"github.com/nurpe/gigflow/internal/repository"
	"github.com/nurpe/gigflow/internal/repository/memstore"
	"github.com/nurpe/gigflow/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Store is everything the services and the reconciler need from persistence.
type Store interface {
	service.GigStore
	service.BidStore
}

type sqlStore struct {
	*repository.GigRepository
	*repository.BidRepository
}

type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Router     *gin.Engine
	Registry   *realtime.ConnectionRegistry
	Hiring     *service.HiringCoordinator
	Reconciler *reconciler.Reconciler

	streams  *realtime.StreamServer
	database *gorm.DB
}

// OpenStore returns the store selected by DB_DRIVER and, for SQL drivers,
// the transactor used for atomic hires.
func OpenStore(cfg *config.Config, log zerolog.Logger) (Store, service.Transactor, *gorm.DB, error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memstore.New(), nil, nil, nil
	}

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	store := sqlStore{
		GigRepository: repository.NewGigRepository(database),
		BidRepository: repository.NewBidRepository(database),
	}
	return store, repository.NewTxManager(database), database, nil
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, tx, database, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	registry := realtime.NewConnectionRegistry()
	dispatcher := realtime.NewDispatcher(registry, log)

	var hiringOpts []service.HiringOption
	if cfg.Hiring.AtomicCommit && tx != nil {
		hiringOpts = append(hiringOpts, service.WithTransactor(tx))
	}
	hiring := service.NewHiringCoordinator(store, store, dispatcher, log, hiringOpts...)

	rtOpts := realtime.Options{
		SendBuffer:     cfg.Realtime.SendBuffer,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	streams := realtime.NewStreamServer(registry, rtOpts, log)

	handler := httphandler.NewHandler(httphandler.Services{
		Gigs:    service.NewGigService(store),
		Bids:    service.NewBidService(store, store),
		Hiring:  hiring,
		Exports: service.NewExportService(store, store, excel.NewGenerator(), pdf.NewGenerator()),
		Sockets: realtime.NewWebsocketServer(registry, rtOpts, log),
		Streams: streams,
	}, log)

	authMiddleware := middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret), cfg.Auth.CookieName)
	router := httphandler.NewRouter(handler, authMiddleware, log, httphandler.RouterOptions{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		EnableMetrics:  cfg.Telemetry.MetricsEnabled,
	})

	return &App{
		Config:     cfg,
		Log:        log,
		Router:     router,
		Registry:   registry,
		Hiring:     hiring,
		Reconciler: reconciler.New(store, log),
		streams:    streams,
		database:   database,
	}, nil
}

// Run serves HTTP and, when enabled, runs the reconciler until ctx is
// cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(a.streams.Shutdown)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reconcileDone := make(chan error, 1)
	if a.Config.Reconcile.Enabled {
		go func() {
			reconcileDone <- a.Reconciler.Start(runCtx, a.Config.Reconcile.Schedule)
		}()
	} else {
		reconcileDone <- nil
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", srv.Addr).Msg("starting gigflow")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.Log.Error().Err(shutdownErr).Msg("http shutdown failed")
	}
	if reconcileErr := <-reconcileDone; reconcileErr != nil && err == nil {
		err = reconcileErr
	}
	a.Log.Info().Msg("server stopped")
	return err
}

func (a *App) Close() error {
	if a.database == nil {
		return nil
	}
	sqlDB, err := a.database.DB()
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return sqlDB.Close()
}
