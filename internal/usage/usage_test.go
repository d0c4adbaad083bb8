package usage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pagequality/gannet/internal/cache"
	"github.com/pagequality/gannet/internal/domain"
	"github.com/pagequality/gannet/internal/repository"
)

func TestUsageService(t *testing.T) {
	// Create temp database
	tmpFile, err := os.CreateTemp("", "usage-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	lruCache := cache.NewLRUCache(100)
	defer lruCache.Close()

	svc := NewService(repo, lruCache)

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("EmptyDatabase", func(t *testing.T) {
		count, err := svc.Count(ctx, tenantID, time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected count 0 for empty database, got %d", count)
		}
	})

	t.Run("WithAssessments", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			result := &domain.AssessmentResult{
				ID:           fmt.Sprintf("assess-%d", i),
				OverallScore: 80,
				Passed:       true,
				PageType:     "landing",
				AssessedAt:   time.Now().UTC(),
			}
			if err := repo.SaveAssessment(ctx, tenantID, result); err != nil {
				t.Fatalf("failed to save assessment: %v", err)
			}
		}

		count, err := svc.Count(ctx, tenantID, time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 5 {
			t.Errorf("expected count 5, got %d", count)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		count, err := svc.Count(ctx, "other-tenant", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected count 0 for different tenant, got %d", count)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if _, err := svc.Count(ctx, "", time.Hour); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := svc.Record(ctx, ""); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("RecordIncrementsCounter", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := svc.Record(ctx, tenantID)
			if err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if got != want {
				t.Errorf("counter = %d, want %d", got, want)
			}
		}
	})

	t.Run("Report", func(t *testing.T) {
		report, err := svc.ReportFor(ctx, tenantID, 24*time.Hour)
		if err != nil {
			t.Fatalf("ReportFor failed: %v", err)
		}
		if report.Assessments != 5 {
			t.Errorf("report assessments = %d, want 5", report.Assessments)
		}
		if report.WindowHours != 24 {
			t.Errorf("window hours = %d, want 24", report.WindowHours)
		}
	})
}
