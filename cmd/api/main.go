package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dvloznov/budgetwise/internal/api/handlers"
	"github.com/dvloznov/budgetwise/internal/api/middleware"
	"github.com/dvloznov/budgetwise/internal/archive"
	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/config"
	"github.com/dvloznov/budgetwise/internal/ingest"
	"github.com/dvloznov/budgetwise/internal/jobs/inmemory"
	"github.com/dvloznov/budgetwise/internal/logger"
	"github.com/dvloznov/budgetwise/internal/reconcile"
	"github.com/dvloznov/budgetwise/internal/suggest"

	infraBQ "github.com/dvloznov/budgetwise/internal/infra/bigquery"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	classifier, err := classify.NewGeminiClassifier(ctx, cfg.GeminiModel, cfg.AITimeout, cfg.AIRateRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create classifier")
	}

	var archiver handlers.Archiver
	if cfg.ArchiveBucket != "" {
		arch, err := archive.New(ctx, cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CSV archive")
		}
		defer arch.Close()
		archiver = arch
	} else {
		log.Warn().Msg("No GCS bucket configured - CSV archiving is disabled")
	}

	// Job infrastructure: the runner executes the whole pipeline for each
	// queued import.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.ImportQueueSize, jobStore)

	importer := ingest.NewImporter(repo, repo, log)
	reconciler := reconcile.New(repo, repo, classifier, log)
	runner := ingest.NewRunner(classifier, importer, reconciler, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting import worker")
		if err := jobQueue.Start(workerCtx, runner.Handle); err != nil {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()

	// Handlers
	accountsHandler := handlers.NewAccountsHandler(repo, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, suggest.New(), log)
	categoriesHandler := handlers.NewCategoriesHandler(repo, log)
	budgetsHandler := handlers.NewBudgetsHandler(repo, log)
	importsHandler := handlers.NewImportsHandler(classifier, jobQueue, jobStore, archiver, log)
	dashboardHandler := handlers.NewDashboardHandler(repo, repo, repo, repo, log)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountsHandler.List)
			r.Post("/", accountsHandler.Create)
			r.Put("/{id}", accountsHandler.Update)
			r.Delete("/{id}", accountsHandler.Delete)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactionsHandler.List)
			r.Post("/", transactionsHandler.Create)
			r.Post("/bulk-delete", transactionsHandler.BulkDelete)
			r.Get("/suggest-category", transactionsHandler.SuggestCategory)
			r.Put("/{id}", transactionsHandler.Update)
			r.Delete("/{id}", transactionsHandler.Delete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoriesHandler.List)
			r.Post("/", categoriesHandler.Create)
			r.Put("/{id}", categoriesHandler.Update)
			r.Delete("/{id}", categoriesHandler.Delete)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", budgetsHandler.List)
			r.Post("/", budgetsHandler.Create)
			r.Put("/{id}", budgetsHandler.Update)
			r.Delete("/{id}", budgetsHandler.Delete)
		})

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", importsHandler.Create)
			r.Post("/map-columns", importsHandler.MapColumns)
			r.Get("/jobs", importsHandler.ListJobs)
			r.Get("/jobs/{id}", importsHandler.GetJob)
		})

		r.Get("/dashboard", dashboardHandler.Get)
	})

	r.Get("/health", handlers.Health)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job queue shutdown failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
