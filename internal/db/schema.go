package db

// Schema version for migrations
// Version 1: trials, organizations, users, compliance checks and auth bookkeeping
const SchemaVersion = 1

// Schema contains the database schema.
// Dates are stored as TEXT (YYYY-MM-DD) and timestamps as TEXT (YYYY-MM-DD HH:MM:SS).
const Schema = `
-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- ═══════════════════════════════════════════════════════════════
-- CORE ENTITIES
-- ═══════════════════════════════════════════════════════════════

CREATE TABLE IF NOT EXISTS organization (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL UNIQUE,
    created_at      TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ctgov_user (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    email           TEXT NOT NULL UNIQUE,
    password_hash   TEXT NOT NULL DEFAULT '',
    organization_id INTEGER REFERENCES organization(id),
    is_admin        BOOLEAN DEFAULT FALSE,
    created_at      TEXT DEFAULT CURRENT_TIMESTAMP
);

-- ═══════════════════════════════════════════════════════════════
-- TRIALS
-- ═══════════════════════════════════════════════════════════════

CREATE TABLE IF NOT EXISTS trial (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    nct_id               TEXT NOT NULL UNIQUE,
    title                TEXT NOT NULL,
    organization_id      INTEGER REFERENCES organization(id),
    user_id              INTEGER REFERENCES ctgov_user(id),
    status               TEXT,
    funding_source_class TEXT,
    start_date           TEXT,
    completion_date      TEXT,
    reporting_due_date   TEXT,
    created_at           TEXT DEFAULT CURRENT_TIMESTAMP,
    updated_at           TEXT DEFAULT CURRENT_TIMESTAMP
);

-- status is 'Compliant', 'Incompliant' or NULL (pending)
CREATE TABLE IF NOT EXISTS trial_compliance (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    trial_id              INTEGER NOT NULL UNIQUE REFERENCES trial(id),
    status                TEXT,
    last_checked          TEXT,
    results_reported_date TEXT
);

-- ═══════════════════════════════════════════════════════════════
-- AUTH BOOKKEEPING
-- ═══════════════════════════════════════════════════════════════

CREATE TABLE IF NOT EXISTS password_reset (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         INTEGER NOT NULL REFERENCES ctgov_user(id),
    token           TEXT NOT NULL UNIQUE,
    expires_at      TEXT NOT NULL,
    used            BOOLEAN DEFAULT FALSE,
    created_at      TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS login_activity (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         INTEGER NOT NULL REFERENCES ctgov_user(id),
    login_time      TEXT NOT NULL
);

-- ═══════════════════════════════════════════════════════════════
-- INDEXES
-- ═══════════════════════════════════════════════════════════════

CREATE INDEX IF NOT EXISTS idx_trial_org ON trial(organization_id);
CREATE INDEX IF NOT EXISTS idx_trial_user ON trial(user_id);
CREATE INDEX IF NOT EXISTS idx_trial_start ON trial(start_date);
CREATE INDEX IF NOT EXISTS idx_trial_funding ON trial(funding_source_class);
CREATE INDEX IF NOT EXISTS idx_compliance_status ON trial_compliance(status);
CREATE INDEX IF NOT EXISTS idx_login_user ON login_activity(user_id, login_time);
`

// Views contains the database views
const Views = `
-- ═══════════════════════════════════════════════════════════════
-- VIEWS
-- ═══════════════════════════════════════════════════════════════

CREATE VIEW IF NOT EXISTS joined_trials AS
SELECT
    t.id as trial_id,
    t.nct_id,
    t.title,
    o.id as organization_id,
    o.name as organization_name,
    t.user_id,
    u.email,
    tc.status as compliance_status,
    t.status as trial_status,
    t.funding_source_class,
    t.start_date,
    t.completion_date,
    t.reporting_due_date,
    tc.last_checked,
    tc.results_reported_date
FROM trial t
LEFT JOIN trial_compliance tc ON t.id = tc.trial_id
LEFT JOIN organization o ON o.id = t.organization_id
LEFT JOIN ctgov_user u ON u.id = t.user_id;

CREATE VIEW IF NOT EXISTS compare_orgs AS
SELECT
    o.id,
    o.name,
    COUNT(t.id) as total_trials,
    COALESCE(SUM(CASE WHEN tc.status = 'Compliant' THEN 1 ELSE 0 END), 0) as on_time_count,
    COALESCE(SUM(CASE WHEN tc.status = 'Incompliant' THEN 1 ELSE 0 END), 0) as late_count,
    COALESCE(SUM(CASE WHEN t.id IS NOT NULL AND tc.status IS NULL THEN 1 ELSE 0 END), 0) as pending_count,
    CASE WHEN COUNT(t.id) = 0 THEN 0.0
         ELSE ROUND(100.0 * SUM(CASE WHEN tc.status = 'Compliant' THEN 1 ELSE 0 END) / COUNT(t.id), 1)
    END as compliance_rate
FROM organization o
LEFT JOIN trial t ON o.id = t.organization_id
LEFT JOIN trial_compliance tc ON t.id = tc.trial_id
GROUP BY o.id, o.name;
`
