package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"metrolab/internal/assets/service"
	calibrationstore "metrolab/internal/assets/store/calibration"
	certificatestore "metrolab/internal/assets/store/certificate"
	instrumentstore "metrolab/internal/assets/store/instrument"
	maintenancestore "metrolab/internal/assets/store/maintenance"
	reviewstore "metrolab/internal/assets/store/review"
	"metrolab/internal/audit"
	"metrolab/internal/platform/config"
	"metrolab/internal/platform/httpserver"
	"metrolab/internal/platform/logger"
	"metrolab/internal/platform/metrics"
	"metrolab/internal/tickets"
	httptransport "metrolab/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		db  *sql.DB
		err error

		instruments service.InstrumentStore
		certs       service.CertificateStore
		records     service.CalibrationStore
		reviews     service.ReviewStore
		maint       service.MaintenanceStore
		txRunner    service.TxRunner
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		instruments = instrumentstore.NewPostgres(db)
		certs = certificatestore.NewPostgres(db)
		records = calibrationstore.NewPostgres(db)
		reviews = reviewstore.NewPostgres(db)
		maint = maintenancestore.NewPostgres(db)
		txRunner = newPostgresTx(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		instruments = instrumentstore.NewInMemory()
		certs = certificatestore.NewInMemory()
		records = calibrationstore.NewInMemory()
		reviews = reviewstore.NewInMemory()
		maint = maintenancestore.NewInMemory()
		txRunner = service.NopTxRunner{}
	}

	bridge := tickets.New(tickets.Config{
		APIURL:  cfg.Tickets.APIURL,
		APIKey:  cfg.Tickets.APIKey,
		Timeout: cfg.Tickets.Timeout,
	}, tickets.WithLogger(log))

	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	recorder := audit.NewRecorder(256, log)
	auditWorker := audit.NewWorker(audit.NewInMemory(), recorder.Events())
	go func() {
		if err := auditWorker.Run(auditCtx); err != nil && err != context.Canceled {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	instrumentSvc := service.NewInstrumentService(instruments, txRunner,
		service.WithInstrumentLogger(log))
	certificateSvc := service.NewCertificateService(certs, txRunner,
		service.WithCertificateLogger(log),
		service.WithCertificateMetrics(m),
		service.WithCertificateAudit(recorder))
	calibrationSvc := service.NewCalibrationService(records, instruments, txRunner,
		service.WithCalibrationLogger(log),
		service.WithCalibrationMetrics(m))
	reviewSvc := service.NewReviewService(reviews, instruments, txRunner,
		service.WithReviewLogger(log),
		service.WithReviewMetrics(m),
		service.WithReviewAudit(recorder),
		service.WithTicketBridge(bridge))
	maintenanceSvc := service.NewMaintenanceService(maint, instruments, txRunner,
		service.WithMaintenanceLogger(log))

	handler := &httptransport.Handler{
		Instruments:  instrumentSvc,
		Certificates: certificateSvc,
		Calibrations: calibrationSvc,
		Reviews:      reviewSvc,
		Maintenance:  maintenanceSvc,
	}
	router := httptransport.NewRouter(handler, db)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting metrolab", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
