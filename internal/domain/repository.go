// Package domain defines the core interfaces and types for Gannet.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Rule catalog operations. GetRules returns active rules for one tier,
	// filtered by page-type/industry applicability, ordered by descending
	// priority. This is the read contract the assessment engine depends on.
	SaveRule(ctx context.Context, tenantID string, rule *Rule) error
	GetRule(ctx context.Context, tenantID string, ruleID string) (*Rule, error)
	ListRules(ctx context.Context, tenantID string) ([]*Rule, error)
	GetRules(ctx context.Context, tenantID string, tier int, pageType, industry string) ([]*Rule, error)
	DeleteRule(ctx context.Context, tenantID string, ruleID string) error

	// Assessment results
	SaveAssessment(ctx context.Context, tenantID string, result *AssessmentResult) error
	GetAssessment(ctx context.Context, tenantID string, id string) (*AssessmentResult, error)
	CountAssessmentsSince(ctx context.Context, tenantID string, since time.Time) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
