// Package worker provides async content processing for the Pro tier.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pagequality/gannet/internal/assess"
	"github.com/pagequality/gannet/internal/domain"
)

// Worker assesses submitted content asynchronously from the EventBus.
type Worker struct {
	bus          domain.EventBus
	repo         domain.Repository
	orchestrator *assess.Orchestrator
	engineCfg    domain.EngineConfig

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, orchestrator *assess.Orchestrator, engineCfg domain.EngineConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:          bus,
		repo:         repo,
		orchestrator: orchestrator,
		engineCfg:    engineCfg,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins processing submissions for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicContentSubmitted, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicContentSubmitted, func(ctx context.Context, msg *domain.Message) error {
		return w.processSubmission(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicContentSubmitted,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processSubmission(ctx, msg.TenantID, msg)
}

// processSubmission runs a submission through the assessment pipeline.
func (w *Worker) processSubmission(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var sub domain.ContentSubmitted
	if err := msg.Decode(&sub); err != nil {
		slog.Error("failed to decode submission event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if sub.TenantID != "" {
		tenantID = sub.TenantID
	}

	traceID := sub.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	if sub.Content == "" {
		slog.Warn("discarding submission with empty content",
			"message_id", msg.ID,
			"tenant_id", tenantID,
		)
		return nil
	}

	slog.Debug("processing submission",
		"tenant_id", tenantID,
		"trace_id", traceID,
		"content_length", len(sub.Content),
	)

	req := &domain.AssessmentRequest{
		TenantID: tenantID,
		TraceID:  traceID,
		Content:  sub.Content,
		PageType: sub.PageType,
		Industry: sub.Industry,
		Options:  w.resolveOptions(&sub),
	}

	result, err := w.orchestrator.Assess(ctx, req)
	if err != nil {
		slog.Error("assessment failed",
			"tenant_id", tenantID,
			"trace_id", traceID,
			"error", err,
		)
		return err
	}

	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, tenantID, result); err != nil {
			slog.Error("failed to save assessment",
				"assessment_id", result.ID,
				"error", err,
			)
		}
	}

	if err := w.bus.Publish(ctx, tenantID, domain.AssessmentCompleted{
		TenantID: tenantID,
		Result:   result,
	}); err != nil {
		slog.Error("failed to publish assessment result",
			"assessment_id", result.ID,
			"error", err,
		)
	}

	// Failing content goes to the review topic for human follow-up.
	if !result.Passed {
		if err := w.bus.Publish(ctx, tenantID, domain.AssessmentFlagged{
			TenantID:     tenantID,
			AssessmentID: result.ID,
			OverallScore: result.OverallScore,
			Result:       result,
		}); err != nil {
			slog.Error("failed to publish review request",
				"assessment_id", result.ID,
				"error", err,
			)
		}
	}

	slog.Info("submission assessed",
		"assessment_id", result.ID,
		"tenant_id", tenantID,
		"score", result.OverallScore,
		"passed", result.Passed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// resolveOptions merges per-submission overrides onto engine defaults.
func (w *Worker) resolveOptions(sub *domain.ContentSubmitted) domain.AssessOptions {
	opts := domain.AssessOptions{
		RunTier3:      w.engineCfg.RunTier3,
		ShortCircuit:  w.engineCfg.ShortCircuit,
		MaxTier3Rules: w.engineCfg.MaxTier3Rules,
	}
	if opts.MaxTier3Rules <= 0 {
		opts.MaxTier3Rules = domain.DefaultOptions().MaxTier3Rules
	}
	if sub.RunTier3 != nil {
		opts.RunTier3 = *sub.RunTier3
	}
	if sub.ShortCircuit != nil {
		opts.ShortCircuit = *sub.ShortCircuit
	}
	if sub.MaxTier3Rules != nil && *sub.MaxTier3Rules > 0 {
		opts.MaxTier3Rules = *sub.MaxTier3Rules
	}
	return opts
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscription_count"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
