package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/cache"
	"github.com/anmoldairy/dairy/internal/config"
	"github.com/anmoldairy/dairy/internal/repository"
	"github.com/anmoldairy/dairy/internal/repository/memory"
	"github.com/anmoldairy/dairy/internal/repository/mongodb"
	"github.com/anmoldairy/dairy/internal/repository/sheets"
	"github.com/anmoldairy/dairy/internal/scheduler"
	"github.com/anmoldairy/dairy/internal/server/handlers"
	"github.com/anmoldairy/dairy/internal/server/router"
	commandsvc "github.com/anmoldairy/dairy/internal/service/commands"
	dairysvc "github.com/anmoldairy/dairy/internal/service/dairy"
	reportingsvc "github.com/anmoldairy/dairy/internal/service/reporting"
	whatsappsvc "github.com/anmoldairy/dairy/internal/service/whatsapp"
	backendclient "github.com/anmoldairy/dairy/pkg/clients/backend"
	whatsappclient "github.com/anmoldairy/dairy/pkg/clients/whatsapp"
	"github.com/anmoldairy/dairy/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	store, reportStore, closeBackend, err := openBackend(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init backend", zap.String("driver", cfg.Backend.Driver), zap.Error(err))
	}
	defer closeBackend()

	cacheStore, err := cache.NewStore(cfg.Cache)
	if err != nil {
		baseLogger.Fatal("failed to init cache", zap.Error(err))
	}
	backend := cache.NewBackend(store, cacheStore, cfg.Cache.TTL, baseLogger.Named("cache"))

	dairySvc := dairysvc.NewService(backend, loc, baseLogger.Named("svc.dairy"))
	reportingSvc := reportingsvc.NewService(backend, reportingsvc.Options{
		PageSize:   cfg.Pagination.PageSize,
		MaxPages:   cfg.Pagination.MaxPages,
		FetchAhead: cfg.Pagination.FetchAhead,
		Location:   loc,
		DairyName:  cfg.Reporting.DairyName,
		PortalURL:  cfg.Reporting.PortalURL,
	}, baseLogger.Named("svc.reporting"))

	var sinks []scheduler.ReportSink
	if reportStore != nil {
		sinks = append(sinks, scheduler.SinkFunc{Label: "store", Fn: reportStore.SaveDailyReport})
	}

	var exporter handlers.BillExporter
	if cfg.Sheets.Enabled() {
		writer, err := sheets.NewGoogleSheetWriter(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets writer", zap.Error(err))
		}
		sheetExporter := sheets.NewExporter(writer, loc, baseLogger.Named("export.sheets"))
		exporter = sheetExporter
		sinks = append(sinks, scheduler.SinkFunc{Label: "sheets", Fn: sheetExporter.AppendDailyReport})
	} else {
		baseLogger.Warn("google sheets not configured, report export disabled")
	}

	var (
		notifier       handlers.BalanceNotifier
		webhookHandler *handlers.WebhookHandler
	)
	if cfg.WhatsApp.Enabled() {
		dispatcher := commandsvc.NewService(dairySvc, reportingSvc, cfg.Reporting.PortalURL, loc, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp, baseLogger.Named("client.whatsapp"))
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, reportingSvc, cfg.Reporting.DairyName, baseLogger.Named("svc.whatsapp"))
		notifier = messagingSvc
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		if cfg.WhatsApp.ManagerPhone != "" {
			sinks = append(sinks, scheduler.SinkFunc{Label: "whatsapp", Fn: messagingSvc.SendReport})
		}
	} else {
		baseLogger.Warn("whatsapp credentials missing, messaging disabled")
	}

	api := handlers.NewDairyHandler(dairySvc, reportingSvc, notifier, exporter, baseLogger.Named("handlers.api"))
	engine := router.New(api, webhookHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, loc, reportingSvc, sinks, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("backend", cfg.Backend.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openBackend connects the configured record store. The report store is nil
// when the backend cannot keep daily reports.
func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Backend, repository.ReportStore, func(), error) {
	switch cfg.Backend.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory backend, records are lost on restart")
		mem := memory.New(cfg.Pagination.PageSize)
		return mem, mem, func() {}, nil

	case config.DriverRemote:
		return backendclient.NewClient(cfg.Backend, log.Named("client.backend")), nil, func() {}, nil

	case config.DriverMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		repo, err := mongodb.NewRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.Pagination.PageSize, log.Named("repo.mongodb"))
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Error("failed to close mongodb connection", zap.Error(err))
			}
		}
		return repo, repo, closeFn, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
}
