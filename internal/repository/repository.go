// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRule stores a rule with tenant isolation. Saving an existing
// (id, version) pair updates it in place.
func (r *SQLRepository) SaveRule(ctx context.Context, tenantID string, rule *domain.Rule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if rule.Tier < 1 || rule.Tier > 3 {
		return fmt.Errorf("%w: tier must be 1, 2, or 3", ErrInvalidInput)
	}

	version := rule.Version
	if version == "" {
		version = "1"
	}

	pageTypes, _ := json.Marshal(rule.PageTypes)
	industries, _ := json.Marshal(rule.Industries)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}
	autoFixable := 0
	if rule.AutoFixable {
		autoFixable = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rules (
			id, tenant_id, name, category, description, version, tier,
			directive, check_type, enforcement, priority, auto_fixable,
			fix_suggestion, page_types, industries, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			tier = excluded.tier,
			directive = excluded.directive,
			check_type = excluded.check_type,
			enforcement = excluded.enforcement,
			priority = excluded.priority,
			auto_fixable = excluded.auto_fixable,
			fix_suggestion = excluded.fix_suggestion,
			page_types = excluded.page_types,
			industries = excluded.industries,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Category, rule.Description,
		version, rule.Tier, rule.Directive, string(rule.CheckType),
		string(rule.Enforcement), rule.Priority, autoFixable,
		rule.FixSuggestion, string(pageTypes), string(industries), enabled,
		now, now,
	)
	return err
}

const ruleColumns = `id, tenant_id, name, category, description, version, tier,
	   directive, check_type, enforcement, priority, auto_fixable,
	   fix_suggestion, page_types, industries, enabled`

func scanRule(scan func(...any) error) (*domain.Rule, error) {
	var rule domain.Rule
	var checkType, enforcement, pageTypes, industries string
	var enabled, autoFixable int

	if err := scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Category, &rule.Description,
		&rule.Version, &rule.Tier, &rule.Directive, &checkType, &enforcement,
		&rule.Priority, &autoFixable, &rule.FixSuggestion,
		&pageTypes, &industries, &enabled,
	); err != nil {
		return nil, err
	}

	rule.CheckType = domain.CheckType(checkType)
	rule.Enforcement = domain.Enforcement(enforcement)
	rule.Enabled = enabled == 1
	rule.AutoFixable = autoFixable == 1
	if pageTypes != "" {
		json.Unmarshal([]byte(pageTypes), &rule.PageTypes)
	}
	if industries != "" {
		json.Unmarshal([]byte(industries), &rule.Industries)
	}

	return &rule, nil
}

// GetRule retrieves the latest enabled version of a rule with tenant isolation.
// Version is stored as text, so the newest row is picked in Go where "10"
// compares after "9".
func (r *SQLRepository) GetRule(ctx context.Context, tenantID string, ruleID string) (*domain.Rule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules, err := collectLatest(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrNotFound
	}
	return rules[0], nil
}

// ListRules retrieves all active rules for a tenant, every tier.
func (r *SQLRepository) ListRules(ctx context.Context, tenantID string) ([]*domain.Rule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE tenant_id = ? AND enabled = 1
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules, err := collectLatest(rows)
	if err != nil {
		return nil, err
	}

	// Sort after version resolution: a newer version may carry a different
	// tier or priority than the rows it superseded.
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Tier != rules[j].Tier {
			return rules[i].Tier < rules[j].Tier
		}
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
	return rules, nil
}

// GetRules retrieves active rules for one tier, filtered by page-type and
// industry applicability, ordered by descending priority. This is the read
// path the assessment engine runs on every request.
func (r *SQLRepository) GetRules(ctx context.Context, tenantID string, tier int, pageType, industry string) ([]*domain.Rule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	// The tier filter is applied after version resolution: a version bump can
	// move a rule between tiers, and the stale row must not survive in its
	// old tier.
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE tenant_id = ? AND enabled = 1
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	all, err := collectLatest(rows)
	if err != nil {
		return nil, err
	}

	// Applicability filters are JSON arrays; match them in Go rather than
	// pushing per-driver JSON operators into the query.
	rules := all[:0]
	for _, rule := range all {
		if rule.Tier == tier && rule.AppliesTo(pageType, industry) {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
	return rules, nil
}

// collectLatest scans all rows and keeps the newest version of each rule id.
// Scan order does not matter; callers sort the survivors.
func collectLatest(rows *sql.Rows) ([]*domain.Rule, error) {
	latest := make(map[string]*domain.Rule)
	var order []string

	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		cur, ok := latest[rule.ID]
		if !ok {
			latest[rule.ID] = rule
			order = append(order, rule.ID)
			continue
		}
		if newerVersion(rule.Version, cur.Version) {
			latest[rule.ID] = rule
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rules := make([]*domain.Rule, 0, len(order))
	for _, id := range order {
		rules = append(rules, latest[id])
	}
	return rules, nil
}

// newerVersion reports whether version a supersedes version b. Versions are
// text columns; numeric values compare numerically so "10" beats "9", and
// anything else falls back to length-then-lexicographic order.
func newerVersion(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na > nb
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

// DeleteRule soft-deletes every version of a rule by setting enabled = 0.
func (r *SQLRepository) DeleteRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAssessment stores an assessment result with tenant isolation. The
// full result document is kept as JSON alongside queryable columns.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, result *domain.AssessmentResult) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	passed := 0
	if result.Passed {
		passed = 1
	}

	query := `
		INSERT INTO assessments (
			id, tenant_id, page_type, industry, overall_score, passed,
			content_length, result, assessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		result.ID, tenantID, result.PageType, result.Industry,
		result.OverallScore, passed, result.ContentLength,
		string(doc), result.AssessedAt,
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.AssessmentResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT result
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	var doc string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var result domain.AssessmentResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("failed to parse assessment %s: %w", id, err)
	}
	return &result, nil
}

// CountAssessmentsSince counts a tenant's assessments in a time window.
// Backs the usage accounting endpoint.
func (r *SQLRepository) CountAssessmentsSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*)
		FROM assessments
		WHERE tenant_id = ? AND assessed_at >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, since).Scan(&count)
	return count, err
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
