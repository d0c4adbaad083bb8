package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, tenantID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, tenantID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, tenantID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, tenantID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, tenantID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "c", []byte("3"), time.Minute)

		// Touch "a" so "b" becomes the eviction candidate
		_, _ = smallCache.Get(ctx, tenantID, "a")

		_ = smallCache.Set(ctx, tenantID, "d", []byte("4"), time.Minute)

		val, _ := smallCache.Get(ctx, tenantID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		val, _ = smallCache.Get(ctx, tenantID, "a")
		if val == nil {
			t.Error("expected 'a' to survive eviction")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "tenant-a", "shared-key", []byte("a-data"), time.Minute)
		_ = cache.Set(ctx, "tenant-b", "shared-key", []byte("b-data"), time.Minute)

		val, _ := cache.Get(ctx, "tenant-a", "shared-key")
		if string(val) != "a-data" {
			t.Errorf("tenant-a got '%s'", string(val))
		}

		val, _ = cache.Get(ctx, "tenant-b", "shared-key")
		if string(val) != "b-data" {
			t.Errorf("tenant-b got '%s'", string(val))
		}
	})

	t.Run("EmptyTenantRejected", func(t *testing.T) {
		if err := cache.Set(ctx, "", "key", []byte("v"), time.Minute); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := cache.Get(ctx, "", "key"); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})
}

func TestLRUCacheRuleSets(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"
	key := domain.RuleSetKey(1, "landing", "plumbing")

	t.Run("Miss", func(t *testing.T) {
		rules, err := cache.GetRuleSet(ctx, tenantID, key)
		if err != nil {
			t.Fatalf("GetRuleSet failed: %v", err)
		}
		if rules != nil {
			t.Errorf("expected nil on miss, got %v", rules)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		rules := []*domain.Rule{
			{ID: "r1", Name: "Has phone", Tier: 1, Directive: "has-phone", Enforcement: domain.EnforcementRequired, Priority: 10, Enabled: true},
			{ID: "r2", Name: "Word count", Tier: 1, Directive: "word-count-min:300", Enforcement: domain.EnforcementRecommended, Enabled: true},
		}

		if err := cache.SetRuleSet(ctx, tenantID, key, rules, time.Minute); err != nil {
			t.Fatalf("SetRuleSet failed: %v", err)
		}

		got, err := cache.GetRuleSet(ctx, tenantID, key)
		if err != nil {
			t.Fatalf("GetRuleSet failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 rules, got %d", len(got))
		}
		if got[0].ID != "r1" || got[0].Directive != "has-phone" {
			t.Errorf("rule not round-tripped: %+v", got[0])
		}
	})

	t.Run("EmptySetIsAHit", func(t *testing.T) {
		emptyKey := domain.RuleSetKey(2, "landing", "plumbing")
		if err := cache.SetRuleSet(ctx, tenantID, emptyKey, []*domain.Rule{}, time.Minute); err != nil {
			t.Fatalf("SetRuleSet failed: %v", err)
		}

		got, err := cache.GetRuleSet(ctx, tenantID, emptyKey)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Error("cached empty rule set must not look like a miss")
		}
		if len(got) != 0 {
			t.Errorf("expected empty set, got %d rules", len(got))
		}
	})
}

func TestLRUCacheAssessments(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Miss", func(t *testing.T) {
		got, err := cache.GetAssessment(ctx, tenantID, "assess:none")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil on miss, got %+v", got)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		result := &domain.AssessmentResult{
			ID:           "assess-001",
			OverallScore: 85,
			Passed:       true,
			TiersRun:     []int{1, 2},
			TierResults: map[int]*domain.TierResult{
				1: {Tier: 1, RulesChecked: 4, RulesPassed: 4},
			},
			PageType: "landing",
		}

		if err := cache.SetAssessment(ctx, tenantID, "assess:abc", result, time.Minute); err != nil {
			t.Fatalf("SetAssessment failed: %v", err)
		}

		got, err := cache.GetAssessment(ctx, tenantID, "assess:abc")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected a hit")
		}
		if got.ID != "assess-001" || got.OverallScore != 85 || !got.Passed {
			t.Errorf("verdict not round-tripped: %+v", got)
		}
		if got.TierResults[1] == nil || got.TierResults[1].RulesChecked != 4 {
			t.Errorf("tier results not round-tripped: %+v", got.TierResults)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		if err := cache.SetAssessment(ctx, "tenant-a", "assess:shared", &domain.AssessmentResult{ID: "a"}, time.Minute); err != nil {
			t.Fatal(err)
		}

		got, err := cache.GetAssessment(ctx, "tenant-b", "assess:shared")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("verdict leaked across tenants: %+v", got)
		}
	})
}

func TestLRUCacheStats(t *testing.T) {
	cache := NewLRUCache(10)
	ctx := context.Background()
	tenantID := "tenant-001"

	_ = cache.Set(ctx, tenantID, "k", []byte("v"), time.Minute)
	_, _ = cache.Get(ctx, tenantID, "k")
	_, _ = cache.Get(ctx, tenantID, "k")
	_, _ = cache.Get(ctx, tenantID, "absent")

	stats := cache.Stats()
	if stats.Size != 1 || stats.Capacity != 10 {
		t.Errorf("size/capacity = %d/%d, want 1/10", stats.Size, stats.Capacity)
	}
	if stats.Hits != 2 {
		t.Errorf("hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
}

func TestIncrementCounter(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	for i := int64(1); i <= 3; i++ {
		count, err := cache.IncrementCounter(ctx, tenantID, "assessments:daily", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
	}

	t.Run("WindowReset", func(t *testing.T) {
		_, _ = cache.IncrementCounter(ctx, tenantID, "short", 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		count, err := cache.IncrementCounter(ctx, tenantID, "short", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("count after window expiry = %d, want 1", count)
		}
	})
}

func TestNewCacheFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected *LRUCache, got %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "bogus"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
