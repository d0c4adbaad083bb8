package assess

import (
	"context"
	"log/slog"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

// CachedRuleSource serves per-tier rule lists from the cache, falling back
// to the repository on a miss. Rules are fetched fresh per assessment, so
// the TTL bounds how long a catalog edit takes to become visible.
type CachedRuleSource struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewCachedRuleSource wraps a repository with rule-set caching. A nil cache
// disables caching and reads straight through.
func NewCachedRuleSource(repo domain.Repository, cache domain.Cache, ttl time.Duration) *CachedRuleSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRuleSource{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// GetRules implements RuleSource. Cache failures degrade to repository
// reads rather than failing the assessment.
func (s *CachedRuleSource) GetRules(ctx context.Context, tenantID string, tier int, pageType, industry string) ([]*domain.Rule, error) {
	key := domain.RuleSetKey(tier, pageType, industry)

	if s.cache != nil {
		rules, err := s.cache.GetRuleSet(ctx, tenantID, key)
		if err != nil {
			slog.Warn("rule-set cache read failed",
				"tenant_id", tenantID,
				"key", key,
				"error", err,
			)
		} else if rules != nil {
			return rules, nil
		}
	}

	rules, err := s.repo.GetRules(ctx, tenantID, tier, pageType, industry)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if rules == nil {
			// Cache the empty result too; a tier with no rules is the
			// common case and worth skipping the query for.
			rules = []*domain.Rule{}
		}
		if err := s.cache.SetRuleSet(ctx, tenantID, key, rules, s.ttl); err != nil {
			slog.Warn("rule-set cache write failed",
				"tenant_id", tenantID,
				"key", key,
				"error", err,
			)
		}
	}

	return rules, nil
}

// Invalidate drops the cached rule sets for a tenant's tier/filter
// combination. Called after catalog writes.
func (s *CachedRuleSource) Invalidate(ctx context.Context, tenantID string, tier int, pageType, industry string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, tenantID, domain.RuleSetKey(tier, pageType, industry))
}
