package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/perflens/perflens/internal/advisor"
	"github.com/perflens/perflens/internal/advisor/catalog"
	"github.com/perflens/perflens/internal/analyzer"
	"github.com/perflens/perflens/internal/api/handlers"
	"github.com/perflens/perflens/internal/config"
	"github.com/perflens/perflens/internal/db"
	"github.com/perflens/perflens/internal/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.FromEnv()

	// Initialize database
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Load the advice-provider catalog and build the selected backend.
	// Advice stays disabled when no provider is selected; the analyzer
	// works either way.
	if err := catalog.InitFromEnvAndConfig(); err != nil {
		log.Printf("⚠️ Advice provider catalog: %v", err)
	}
	var provider advisor.Provider
	if cfg.AdviceProvider != "" {
		provider, err = catalog.Build(cfg.AdviceProvider)
		if err != nil {
			log.Printf("⚠️ Advice disabled: %v", err)
		}
	}
	adv := advisor.New(provider)

	logAnalyzer := analyzer.New(cfg.SlowThresholdMs, cfg.ErrorRateThreshold)
	runMonitor := monitor.NewMonitor(database)

	// Create router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	// Service info and health
	r.Get("/", handlers.RootHandler())
	r.Get("/health", handlers.HealthHandler(adv))

	// Analysis
	r.Post("/analyze", handlers.AnalyzeHandler(logAnalyzer, adv, runMonitor))
	r.Post("/quick-analyze", handlers.QuickAnalyzeHandler(logAnalyzer, runMonitor))

	// Run monitoring
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", handlers.RunsHandler(runMonitor))
		r.Get("/stats", handlers.RunStatsHandler(runMonitor))
		r.Post("/runs/clear", handlers.ClearRunsHandler(runMonitor))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	addr := cfg.Addr()
	log.Printf("🚀 Perflens starting on http://%s", addr)
	log.Printf("📊 Analyze API: http://%s/analyze", addr)
	if provider != nil {
		log.Printf("🤖 Advice provider: %s", provider.ID())
	} else {
		log.Printf("🤖 Advice provider: disabled")
	}

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
