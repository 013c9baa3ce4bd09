// Package store persists audit outcomes to SQLite so repeated scans
// can be compared over time.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MSB-Labs/prevet/internal/audit"
)

// Store manages the SQLite database of audit records
type Store struct {
	db     *sql.DB
	dbPath string
}

// Record is one persisted audit outcome
type Record struct {
	ID               int64     `json:"id"`
	PackageName      string    `json:"package_name"`
	Version          string    `json:"version"`
	AuditedAt        time.Time `json:"audited_at"`
	RiskScore        int       `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
	HasScripts       bool      `json:"has_scripts"`
	PatternCount     int       `json:"pattern_count"`
	CriticalFindings int       `json:"critical_findings"`
	WarningFindings  int       `json:"warning_findings"`
	Chains           []string  `json:"chains"`
}

// New creates a new store, initializing the database if needed
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_name TEXT NOT NULL,
		version TEXT NOT NULL,
		audited_at DATETIME NOT NULL,
		risk_score INTEGER DEFAULT 0,
		risk_level TEXT NOT NULL DEFAULT 'SAFE',
		has_scripts BOOLEAN DEFAULT FALSE,
		pattern_count INTEGER DEFAULT 0,
		critical_findings INTEGER DEFAULT 0,
		warning_findings INTEGER DEFAULT 0,
		chains TEXT,
		UNIQUE(package_name, version)
	);

	CREATE INDEX IF NOT EXISTS idx_audits_package
		ON audits(package_name);

	CREATE INDEX IF NOT EXISTS idx_audits_risk
		ON audits(risk_score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAudit records an audit outcome, replacing any previous record
// for the same package and version label.
func (s *Store) SaveAudit(a *audit.PackageAudit, version string) error {
	if version == "" {
		version = "latest"
	}
	chainNames := make([]string, 0, len(a.BehavioralChains))
	for _, c := range a.BehavioralChains {
		chainNames = append(chainNames, string(c.Type))
	}
	chains, _ := json.Marshal(chainNames)

	query := `
	INSERT INTO audits (
		package_name, version, audited_at, risk_score, risk_level,
		has_scripts, pattern_count, critical_findings, warning_findings, chains
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(package_name, version) DO UPDATE SET
		audited_at = excluded.audited_at,
		risk_score = excluded.risk_score,
		risk_level = excluded.risk_level,
		has_scripts = excluded.has_scripts,
		pattern_count = excluded.pattern_count,
		critical_findings = excluded.critical_findings,
		warning_findings = excluded.warning_findings,
		chains = excluded.chains
	`

	_, err := s.db.Exec(query,
		a.PackageName, version, time.Now().UTC(),
		a.RiskScore, string(a.RiskLevel), a.HasScripts,
		len(a.SuspiciousPatterns),
		a.CountBySeverity(audit.SeverityCritical),
		a.CountBySeverity(audit.SeverityWarning),
		string(chains),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}
	return nil
}

// GetAudit retrieves the stored record for a package version
func (s *Store) GetAudit(packageName, version string) (*Record, error) {
	query := `
	SELECT id, package_name, version, audited_at, risk_score, risk_level,
		has_scripts, pattern_count, critical_findings, warning_findings, chains
	FROM audits
	WHERE package_name = ? AND version = ?
	`

	var rec Record
	var chains string

	err := s.db.QueryRow(query, packageName, version).Scan(
		&rec.ID, &rec.PackageName, &rec.Version, &rec.AuditedAt,
		&rec.RiskScore, &rec.RiskLevel, &rec.HasScripts,
		&rec.PatternCount, &rec.CriticalFindings, &rec.WarningFindings,
		&chains,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}

	json.Unmarshal([]byte(chains), &rec.Chains)
	return &rec, nil
}

// GetHighRisk returns stored records at or above a score threshold
func (s *Store) GetHighRisk(minScore int) ([]*Record, error) {
	query := `
	SELECT id, package_name, version, audited_at, risk_score, risk_level,
		has_scripts, pattern_count, critical_findings, warning_findings, chains
	FROM audits
	WHERE risk_score >= ?
	ORDER BY risk_score DESC
	`

	rows, err := s.db.Query(query, minScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		var rec Record
		var chains string
		err := rows.Scan(
			&rec.ID, &rec.PackageName, &rec.Version, &rec.AuditedAt,
			&rec.RiskScore, &rec.RiskLevel, &rec.HasScripts,
			&rec.PatternCount, &rec.CriticalFindings, &rec.WarningFindings,
			&chains,
		)
		if err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(chains), &rec.Chains)
		results = append(results, &rec)
	}
	return results, rows.Err()
}

// Stats returns database statistics
type Stats struct {
	TotalAudits    int
	UniquePackages int
	HighRiskCount  int
	WithScripts    int
	LastAudited    time.Time
}

// GetStats returns statistics about the audit database
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats

	s.db.QueryRow(`SELECT COUNT(*) FROM audits`).Scan(&stats.TotalAudits)
	s.db.QueryRow(`SELECT COUNT(DISTINCT package_name) FROM audits`).Scan(&stats.UniquePackages)

	// high risk = High or Critical level
	s.db.QueryRow(`SELECT COUNT(*) FROM audits WHERE risk_score >= 60`).Scan(&stats.HighRiskCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM audits WHERE has_scripts = TRUE`).Scan(&stats.WithScripts)

	// MAX() loses the DATETIME affinity, so order instead
	var last sql.NullTime
	s.db.QueryRow(`SELECT audited_at FROM audits ORDER BY audited_at DESC LIMIT 1`).Scan(&last)
	if last.Valid {
		stats.LastAudited = last.Time
	}

	return &stats, nil
}

// DefaultDBPath returns the default database path
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".prevet", "audits.db")
}
