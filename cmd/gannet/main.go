// Gannet - Multi-tiered content quality assessment.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pagequality/gannet/internal/api"
	"github.com/pagequality/gannet/internal/assess"
	"github.com/pagequality/gannet/internal/bus"
	"github.com/pagequality/gannet/internal/cache"
	"github.com/pagequality/gannet/internal/domain"
	"github.com/pagequality/gannet/internal/judge"
	"github.com/pagequality/gannet/internal/linguistic"
	"github.com/pagequality/gannet/internal/llm"
	"github.com/pagequality/gannet/internal/nlp"
	"github.com/pagequality/gannet/internal/pattern"
	"github.com/pagequality/gannet/internal/repository"
	"github.com/pagequality/gannet/internal/usage"
	"github.com/pagequality/gannet/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("GANNET_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting gannet",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("GANNET_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Tier-1 deterministic predicate evaluator
	tier1 := pattern.NewEvaluator(nil)

	// Tier-2 linguistic evaluator; the analyzer loads the prose models,
	// which takes a moment, so skip it entirely when disabled.
	var analyzer domain.Analyzer
	if cfg.Engine.DisableNLP {
		slog.Info("tier-2 nlp analyzer disabled")
	} else {
		analyzer = nlp.New()
		slog.Info("tier-2 nlp analyzer initialized")
	}
	tier2 := linguistic.NewEvaluator(analyzer)

	// Tier-3 model client; without a credential the tier reports skipped.
	modelClient := llm.NewAnthropicClient(cfg.Engine.Model, nil)
	if modelClient.Configured() {
		slog.Info("tier-3 model client initialized", "model", cfg.Engine.Model.ModelID)
	} else {
		slog.Warn("tier-3 model credential missing, tier 3 will report skipped",
			"api_key_env", cfg.Engine.Model.APIKeyEnv,
		)
	}
	tier3 := judge.NewEvaluator(modelClient, judge.DefaultPricing())

	// Rule source with cache-through reads
	ruleSource := assess.NewCachedRuleSource(repo, cacheImpl, cfg.Cache.RuleSetTTL)

	// Assessment orchestrator
	orchestrator := assess.NewOrchestrator(ruleSource, tier1, tier2, tier3)
	slog.Info("assessment orchestrator initialized")

	// Usage tracking
	usageSvc := usage.NewService(repo, cacheImpl)

	warnIfNoRules(ctx, repo)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("GANNET_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, orchestrator, cfg.Engine)

		tenantIDs := []string{}
		if envTenants := os.Getenv("GANNET_TENANTS"); envTenants != "" {
			for _, id := range strings.Split(envTenants, ",") {
				if id = strings.TrimSpace(id); id != "" {
					tenantIDs = append(tenantIDs, id)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs:   tenantIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, orchestrator, ruleSource, usageSvc, cfg.Engine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("gannet is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("gannet shutdown complete")
}

// GlobalTenantID is used for rules that apply to all tenants.
const GlobalTenantID = "*"

// warnIfNoRules logs a hint when the global tenant has no rules yet.
// All rules are configured via POST /rules - there are no hardcoded defaults.
func warnIfNoRules(ctx context.Context, repo domain.Repository) {
	rules, err := repo.ListRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return
	}

	if len(rules) == 0 {
		slog.Info("no rules in database - configure via POST /rules API")
		return
	}

	slog.Info("rules available", "count", len(rules))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  Gannet - Content Quality Assessment Engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /assess           - Assess content")
	fmt.Println("    GET    /assessments/{id} - Get assessment by ID")
	fmt.Println("    GET    /rules            - List all rules")
	fmt.Println("    GET    /rules/{id}       - Get rule by ID")
	fmt.Println("    POST   /rules            - Create a new rule")
	fmt.Println("    DELETE /rules/{id}       - Delete a rule")
	fmt.Println("    POST   /rules/reload     - Invalidate cached rule sets")
	fmt.Println("    GET    /usage            - Usage report")
	fmt.Println("    GET    /health           - Health check")
	fmt.Println("    GET    /ready            - Readiness check")
	fmt.Println()
}
