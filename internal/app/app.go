// Package app wires the repositories, recognizer, worker pool and services
// shared by the daemon and the batch CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/structural-analysis/internal/analysis"
	"github.com/joseph-ayodele/structural-analysis/internal/async"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/compliance"
	"github.com/joseph-ayodele/structural-analysis/internal/export"
	"github.com/joseph-ayodele/structural-analysis/internal/ingest"
	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
	"github.com/joseph-ayodele/structural-analysis/internal/ocr"
	"github.com/joseph-ayodele/structural-analysis/internal/pipeline"
	"github.com/joseph-ayodele/structural-analysis/internal/repository"
	"github.com/joseph-ayodele/structural-analysis/internal/server"
)

type App struct {
	Config *common.Config
	Logger *slog.Logger

	DB       *repository.DB
	Projects repository.ProjectRepository
	Files    repository.FileRepository
	Elements repository.ElementRepository
	Reports  repository.ReportRepository

	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Recognizer ocr.Recognizer
	Pool       *async.Pool

	Processor    *pipeline.Processor
	FileService  *pipeline.Service
	Engine       *compliance.Engine
	Orchestrator *analysis.Orchestrator
	Ingestor     *ingest.FSIngestor
	Export       *export.Service
}

// Build opens the database, migrates it when configured to and starts the
// worker pool. Close releases everything Build acquired.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	a.Projects = repository.NewProjectRepository(db, logger)
	a.Files = repository.NewFileRepository(db, logger)
	a.Elements = repository.NewElementRepository(db, logger)
	a.Reports = repository.NewReportRepository(db, logger)

	a.Registry = prometheus.NewRegistry()
	m, err := metrics.New(a.Registry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.Metrics = m

	runner := ocr.ExecRunner{Logger: logger}
	rec, err := ocr.New(ocr.Config{
		Engine:              cfg.OCR.Engine,
		Tesseract:           cfg.OCR.Tesseract,
		Language:            cfg.OCR.Language,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		MaxRetries:          cfg.OCR.MaxRetries,
		RetryBackoff:        cfg.OCR.RetryBackoff,
		Timeout:             cfg.OCR.Timeout,
		ConfidenceThreshold: cfg.OCR.ConfidenceThreshold,
		CacheTTL:            cfg.OCR.CacheTTL,
	}, runner, m, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recognizer: %w", err)
	}
	a.Recognizer = rec

	a.Pool = async.NewPool(logger,
		async.WithWorkers(cfg.Workers.Count),
		async.WithQueueSize(cfg.Workers.QueueSize),
		async.WithProcessTimeout(cfg.Workers.JobTimeout),
		async.WithMetrics(m),
	)

	rules := compliance.RulesFromConfig(cfg.Rules)
	a.Processor = pipeline.NewProcessor(a.Files, a.Elements,
		ocr.NewPDFText(cfg.OCR.Pdftotext, runner, logger), rec, logger,
		pipeline.WithMetrics(m),
		pipeline.WithDefaults(cfg.Extraction),
	)
	a.FileService = pipeline.NewService(a.Processor, a.Files, a.Elements, a.Pool, logger)
	a.Engine = compliance.NewEngine(a.Elements, rules, logger)
	a.Orchestrator = analysis.NewOrchestrator(a.Reports, a.Engine, a.Pool, m, logger)
	a.Ingestor = ingest.NewFSIngestor(a.Projects, a.Files, cfg.Workers.Count, logger)
	a.Export = export.NewService(a.Reports, rules, logger)

	a.Pool.Handle(async.KindProcessFile, a.FileService.HandleJob)
	a.Pool.Handle(async.KindAnalysis, a.Orchestrator.HandleJob)
	return a, nil
}

// HTTPHandler returns the API handler over the wired services.
func (a *App) HTTPHandler() http.Handler {
	return server.New(server.Deps{
		Analyses:     a.Orchestrator,
		Files:        a.FileService,
		Projects:     a.Projects,
		ProjectFiles: a.Files,
		Ingestor:     a.Ingestor,
		Takeoff:      a.Export,
		DB:           a.DB,
		Registry:     a.Registry,
	}, a.Logger).Handler()
}

// Close drains the pool within ctx, then releases the recognizer and the
// database.
func (a *App) Close(ctx context.Context) {
	a.Pool.Shutdown(ctx)
	if err := a.Recognizer.Terminate(); err != nil {
		a.Logger.Warn("recognizer terminate failed", "error", err)
	}
	a.DB.Close()
}
