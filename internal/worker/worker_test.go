package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagequality/gannet/internal/assess"
	"github.com/pagequality/gannet/internal/bus"
	"github.com/pagequality/gannet/internal/domain"
	"github.com/pagequality/gannet/internal/judge"
	"github.com/pagequality/gannet/internal/linguistic"
	"github.com/pagequality/gannet/internal/pattern"
)

// staticRuleSource serves a fixed tier-1 rule set.
type staticRuleSource struct {
	rules []*domain.Rule
}

func (s *staticRuleSource) GetRules(_ context.Context, _ string, tier int, _, _ string) ([]*domain.Rule, error) {
	if tier != 1 {
		return nil, nil
	}
	return s.rules, nil
}

func testOrchestrator() *assess.Orchestrator {
	source := &staticRuleSource{
		rules: []*domain.Rule{
			{
				ID:          "wk-phone",
				Name:        "Has phone number",
				Tier:        1,
				Directive:   "has-phone",
				Enforcement: domain.EnforcementRequired,
				Enabled:     true,
			},
		},
	}
	return assess.NewOrchestrator(
		source,
		pattern.NewEvaluator(nil),
		linguistic.NewEvaluator(nil),
		judge.NewEvaluator(nil, judge.DefaultPricing()),
	)
}

func testEngineConfig() domain.EngineConfig {
	return domain.EngineConfig{
		ShortCircuit:  true,
		RunTier3:      true,
		MaxTier3Rules: 10,
	}
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	orchestrator := testOrchestrator()

	t.Run("StartAndStop", func(t *testing.T) {
		worker := NewWorker(eventBus, nil, orchestrator, testEngineConfig())

		cfg := Config{
			TenantIDs:   []string{"tenant-001"},
			WorkerCount: 1,
		}

		err := worker.Start(cfg)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := worker.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}

		err = worker.Stop()
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = worker.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessSubmission", func(t *testing.T) {
		w := NewWorker(eventBus, nil, orchestrator, testEngineConfig())

		cfg := Config{
			TenantIDs: []string{"tenant-test"},
		}
		w.Start(cfg)
		defer w.Stop()

		var resultReceived atomic.Bool
		var completed domain.AssessmentCompleted

		eventBus.Subscribe(context.Background(), "tenant-test", domain.TopicAssessmentCompleted, func(ctx context.Context, msg *domain.Message) error {
			if err := msg.Decode(&completed); err != nil {
				t.Errorf("decode failed: %v", err)
			}
			resultReceived.Store(true)
			return nil
		})

		// Allow subscriptions to be active
		time.Sleep(50 * time.Millisecond)

		err := eventBus.Publish(context.Background(), "tenant-test", domain.ContentSubmitted{
			TenantID: "tenant-test",
			TraceID:  "trace-001",
			Content:  "Call us at (555) 123-4567 for same-day service anywhere in town.",
			PageType: "landing",
			Industry: "plumbing",
		})
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for processing
		time.Sleep(100 * time.Millisecond)

		if !resultReceived.Load() {
			t.Fatal("expected assessment result to be published")
		}

		result := completed.Result
		if result == nil {
			t.Fatal("completed event carries no result")
		}
		if result.OverallScore != 100 || !result.Passed {
			t.Errorf("score/passed = %d/%v, want 100/true", result.OverallScore, result.Passed)
		}
		if result.PageType != "landing" {
			t.Errorf("expected page type 'landing', got '%s'", result.PageType)
		}
	})

	t.Run("ReviewPublishedOnFailure", func(t *testing.T) {
		w := NewWorker(eventBus, nil, orchestrator, testEngineConfig())

		cfg := Config{
			TenantIDs: []string{"tenant-review"},
		}
		w.Start(cfg)
		defer w.Stop()

		var reviewReceived atomic.Bool
		var flagged domain.AssessmentFlagged

		eventBus.Subscribe(context.Background(), "tenant-review", domain.TopicAssessmentReview, func(ctx context.Context, msg *domain.Message) error {
			if err := msg.Decode(&flagged); err != nil {
				t.Errorf("decode failed: %v", err)
			}
			reviewReceived.Store(true)
			return nil
		})

		time.Sleep(50 * time.Millisecond)

		// No phone number anywhere, so the required rule fails.
		eventBus.Publish(context.Background(), "tenant-review", domain.ContentSubmitted{
			TenantID: "tenant-review",
			Content:  "A page with no contact information to speak of.",
		})

		time.Sleep(100 * time.Millisecond)

		if !reviewReceived.Load() {
			t.Fatal("expected failing content to be published for review")
		}
		if flagged.AssessmentID == "" {
			t.Error("flagged event missing assessment id")
		}
		if flagged.Result == nil || flagged.Result.Passed {
			t.Errorf("flagged event result = %+v", flagged.Result)
		}
	})

	t.Run("EmptyContentDiscarded", func(t *testing.T) {
		w := NewWorker(eventBus, nil, orchestrator, testEngineConfig())

		cfg := Config{
			TenantIDs: []string{"tenant-empty"},
		}
		w.Start(cfg)
		defer w.Stop()

		var resultReceived atomic.Bool
		eventBus.Subscribe(context.Background(), "tenant-empty", domain.TopicAssessmentCompleted, func(ctx context.Context, msg *domain.Message) error {
			resultReceived.Store(true)
			return nil
		})

		time.Sleep(50 * time.Millisecond)

		eventBus.Publish(context.Background(), "tenant-empty", domain.ContentSubmitted{TenantID: "tenant-empty"})

		time.Sleep(100 * time.Millisecond)

		if resultReceived.Load() {
			t.Error("empty submission should not produce a result")
		}
	})

	t.Run("MultiTenant", func(t *testing.T) {
		w := NewWorker(eventBus, nil, orchestrator, testEngineConfig())

		cfg := Config{
			TenantIDs: []string{"tenant-a", "tenant-b"},
		}
		w.Start(cfg)
		defer w.Stop()

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions for 2 tenants, got %d", stats.SubscriptionCount)
		}
	})
}

func TestResolveOptions(t *testing.T) {
	w := NewWorker(nil, nil, nil, domain.EngineConfig{
		ShortCircuit:  true,
		RunTier3:      true,
		MaxTier3Rules: 10,
	})

	t.Run("Defaults", func(t *testing.T) {
		opts := w.resolveOptions(&domain.ContentSubmitted{})
		if !opts.RunTier3 || !opts.ShortCircuit || opts.MaxTier3Rules != 10 {
			t.Errorf("unexpected defaults: %+v", opts)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		f := false
		n := 3
		opts := w.resolveOptions(&domain.ContentSubmitted{
			RunTier3:      &f,
			ShortCircuit:  &f,
			MaxTier3Rules: &n,
		})
		if opts.RunTier3 || opts.ShortCircuit || opts.MaxTier3Rules != 3 {
			t.Errorf("overrides not applied: %+v", opts)
		}
	})

	t.Run("NonPositiveCapIgnored", func(t *testing.T) {
		zero := 0
		opts := w.resolveOptions(&domain.ContentSubmitted{MaxTier3Rules: &zero})
		if opts.MaxTier3Rules != 10 {
			t.Errorf("cap = %d, want 10", opts.MaxTier3Rules)
		}
	})
}
