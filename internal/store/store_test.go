package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MSB-Labs/prevet/internal/audit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAudit(name string, score int) *audit.PackageAudit {
	a := audit.NewPackageAudit(name)
	a.HasScripts = true
	a.Postinstall = "node setup.js"
	a.SuspiciousPatterns = []audit.SuspiciousPattern{{Name: "curl", Reason: "network"}}
	a.SourceFindings = []audit.SourceFinding{
		{Kind: audit.FindingEvalUsage, Severity: audit.SeverityCritical},
		{Kind: audit.FindingCommandExecution, Severity: audit.SeverityWarning},
	}
	a.BehavioralChains = []audit.BehavioralChain{
		{Type: audit.ChainBackdoor, Score: 90},
	}
	a.RiskScore = score
	a.RiskLevel = audit.LevelForScore(score)
	return a
}

func TestNew_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing: %v", err)
	}
	if _, err := s.GetStats(); err != nil {
		t.Errorf("GetStats on empty database: %v", err)
	}
}

func TestSaveAndGetAudit(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveAudit(sampleAudit("evil-pkg", 120), "1.0.0"); err != nil {
		t.Fatalf("SaveAudit returned error: %v", err)
	}

	rec, err := s.GetAudit("evil-pkg", "1.0.0")
	if err != nil {
		t.Fatalf("GetAudit returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("GetAudit returned nil for saved record")
	}
	if rec.RiskScore != 120 {
		t.Errorf("RiskScore = %d, want 120", rec.RiskScore)
	}
	if rec.RiskLevel != "CRITICAL" {
		t.Errorf("RiskLevel = %q, want CRITICAL", rec.RiskLevel)
	}
	if rec.CriticalFindings != 1 || rec.WarningFindings != 1 {
		t.Errorf("finding counts = %d/%d, want 1/1", rec.CriticalFindings, rec.WarningFindings)
	}
	if len(rec.Chains) != 1 || rec.Chains[0] != "backdoor" {
		t.Errorf("Chains = %v, want [backdoor]", rec.Chains)
	}
}

func TestGetAudit_NotFound(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.GetAudit("no-such", "1.0.0")
	if err != nil {
		t.Fatalf("GetAudit returned error: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil", rec)
	}
}

func TestSaveAudit_Upsert(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveAudit(sampleAudit("pkg", 10), "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAudit(sampleAudit("pkg", 95), "1.0.0"); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetAudit("pkg", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if rec.RiskScore != 95 {
		t.Errorf("RiskScore = %d, want 95 after upsert", rec.RiskScore)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAudits != 1 {
		t.Errorf("TotalAudits = %d, want 1 after upsert", stats.TotalAudits)
	}
}

func TestSaveAudit_DefaultVersionLabel(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveAudit(sampleAudit("pkg", 5), ""); err != nil {
		t.Fatal(err)
	}
	rec, err := s.GetAudit("pkg", "latest")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Error("empty version not stored under latest")
	}
}

func TestGetHighRisk(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveAudit(sampleAudit("low", 5), "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAudit(sampleAudit("high", 80), "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAudit(sampleAudit("critical", 150), "1.0.0"); err != nil {
		t.Fatal(err)
	}

	recs, err := s.GetHighRisk(60)
	if err != nil {
		t.Fatalf("GetHighRisk returned error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].PackageName != "critical" {
		t.Errorf("recs[0] = %q, want highest score first", recs[0].PackageName)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveAudit(sampleAudit("a", 80), "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAudit(sampleAudit("a", 90), "2.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAudit(sampleAudit("b", 5), "1.0.0"); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats returned error: %v", err)
	}
	if stats.TotalAudits != 3 {
		t.Errorf("TotalAudits = %d, want 3", stats.TotalAudits)
	}
	if stats.UniquePackages != 2 {
		t.Errorf("UniquePackages = %d, want 2", stats.UniquePackages)
	}
	if stats.HighRiskCount != 2 {
		t.Errorf("HighRiskCount = %d, want 2", stats.HighRiskCount)
	}
	if stats.WithScripts != 3 {
		t.Errorf("WithScripts = %d, want 3", stats.WithScripts)
	}
	if stats.LastAudited.IsZero() {
		t.Error("LastAudited is zero")
	}
}
