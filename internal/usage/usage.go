// Package usage tracks per-tenant assessment volume for quota and billing
// visibility.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

// dailyWindow is the rolling window for the fast counter.
const dailyWindow = 24 * time.Hour

// Service tracks how many assessments a tenant has run. The cache counter
// gives a cheap rolling figure for admission checks; the repository count
// is the authoritative number for reporting.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new usage service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Record bumps the tenant's rolling daily counter after an assessment runs.
// Returns the counter value within the current window.
func (s *Service) Record(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.IncrementCounter(ctx, tenantID, "assessments:daily", dailyWindow)
}

// Count returns the authoritative assessment count for a tenant within a
// time window, read from the repository.
func (s *Service) Count(ctx context.Context, tenantID string, window time.Duration) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}
	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}
	return s.repo.CountAssessmentsSince(ctx, tenantID, time.Now().Add(-window))
}

// Report is the usage summary returned by the API.
type Report struct {
	TenantID    string `json:"tenant_id"`
	WindowHours int    `json:"window_hours"`
	Assessments int64  `json:"assessments"`
}

// ReportFor builds a usage report over the given window.
func (s *Service) ReportFor(ctx context.Context, tenantID string, window time.Duration) (*Report, error) {
	count, err := s.Count(ctx, tenantID, window)
	if err != nil {
		return nil, err
	}
	return &Report{
		TenantID:    tenantID,
		WindowHours: int(window / time.Hour),
		Assessments: count,
	}, nil
}
