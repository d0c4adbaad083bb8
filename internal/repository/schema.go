package repository

// Schema definitions for the Gannet database.
// Compatible with both SQLite and PostgreSQL.

const schemaRules = `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT,
    description TEXT,
    version TEXT NOT NULL,
    tier INTEGER NOT NULL,
    directive TEXT,
    check_type TEXT,
    enforcement TEXT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 0,
    auto_fixable INTEGER NOT NULL DEFAULT 0,
    fix_suggestion TEXT,
    page_types TEXT,
    industries TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_rules_tenant ON rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rules_tier ON rules(tenant_id, tier, enabled);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    page_type TEXT,
    industry TEXT,
    overall_score INTEGER NOT NULL,
    passed INTEGER NOT NULL,
    content_length INTEGER NOT NULL,
    result TEXT NOT NULL,
    assessed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_time ON assessments(tenant_id, assessed_at);
CREATE INDEX IF NOT EXISTS idx_assessments_passed ON assessments(tenant_id, passed);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRules,
		schemaAssessments,
	}
}
