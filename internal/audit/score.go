package audit

// Weights applied when aggregating a package risk score.
const (
	weightCriticalFinding = 15
	weightWarningFinding  = 5
	weightPattern         = 8
	weightScript          = 3
)

// Score thresholds for each risk level.
const (
	thresholdCritical = 100
	thresholdHigh     = 60
	thresholdMedium   = 30
	thresholdLow      = 10
)

// Score computes the aggregate risk score for an audit. Chain scores
// are summed in full, then weighted contributions are added for each
// finding, matched pattern, and non-empty lifecycle script.
func Score(a *PackageAudit) int {
	total := 0
	for _, c := range a.BehavioralChains {
		total += c.Score
	}
	total += weightCriticalFinding * a.CountBySeverity(SeverityCritical)
	total += weightWarningFinding * a.CountBySeverity(SeverityWarning)
	total += weightPattern * len(a.SuspiciousPatterns)
	total += weightScript * a.ScriptCount()
	return total
}

// LevelForScore maps an aggregate score to its risk level
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= thresholdCritical:
		return RiskCritical
	case score >= thresholdHigh:
		return RiskHigh
	case score >= thresholdMedium:
		return RiskMedium
	case score >= thresholdLow:
		return RiskLow
	default:
		return RiskSafe
	}
}

// Finalize recomputes the score and level from the audit's current
// findings, patterns, and chains. Call after all analysis steps.
func Finalize(a *PackageAudit) {
	a.RiskScore = Score(a)
	a.RiskLevel = LevelForScore(a.RiskScore)
}
