package domain

import (
	"context"
	"strconv"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetRuleSet retrieves a cached rule list for one tier/filter combination.
	GetRuleSet(ctx context.Context, tenantID string, key string) ([]*Rule, error)

	// SetRuleSet caches a rule list so repeated assessments skip the catalog query.
	SetRuleSet(ctx context.Context, tenantID string, key string, rules []*Rule, ttl time.Duration) error

	// GetAssessment retrieves a cached assessment verdict.
	// Returns nil, nil if key not found.
	GetAssessment(ctx context.Context, tenantID string, key string) (*AssessmentResult, error)

	// SetAssessment caches a verdict so identical resubmissions skip the
	// pipeline, tier-3 model calls included.
	SetAssessment(ctx context.Context, tenantID string, key string, result *AssessmentResult, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for per-tenant usage tracking (e.g., assessments per day).
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RuleSetKey builds the cache key for a tier's filtered rule list.
func RuleSetKey(tier int, pageType, industry string) string {
	return "rules:" + strconv.Itoa(tier) + ":" + pageType + ":" + industry
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis

	// RuleSetTTL is how long filtered rule lists stay cached.
	RuleSetTTL time.Duration
}
