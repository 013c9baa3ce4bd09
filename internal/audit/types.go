// Package audit defines the data model for package security audits:
// findings collected from source analysis, suspicious install-script
// patterns, behavioral chains, and the aggregate risk score.
package audit

// Severity classifies how dangerous an individual finding is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// FindingKind identifies the category of a source finding
type FindingKind string

const (
	FindingEvalUsage           FindingKind = "eval_usage"
	FindingDynamicFunction     FindingKind = "dynamic_function"
	FindingChildProcessImport  FindingKind = "child_process_import"
	FindingCommandExecution    FindingKind = "command_execution"
	FindingDynamicModuleLoad   FindingKind = "dynamic_module_loading"
	FindingObfuscatedExecution FindingKind = "obfuscated_code_execution"
	FindingExternalHTTPRequest FindingKind = "external_http_request"
	FindingSensitiveDataAccess FindingKind = "sensitive_data_access"
)

// SourceFinding is a single suspicious construct located in package source
type SourceFinding struct {
	FilePath    string      `json:"file_path"`
	Line        int         `json:"line"`
	Kind        FindingKind `json:"kind"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Snippet     string      `json:"snippet,omitempty"`
}

// SuspiciousPattern is a known-bad token matched in an install script
type SuspiciousPattern struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ChainType identifies a recognized multi-signal attack pattern
type ChainType string

const (
	ChainDataExfiltration ChainType = "data_exfiltration"
	ChainCredentialTheft  ChainType = "credential_theft"
	ChainRemoteExecution  ChainType = "remote_code_execution"
	ChainBackdoor         ChainType = "backdoor"
	ChainCryptomining     ChainType = "cryptomining"
	ChainObfuscation      ChainType = "obfuscation"
)

// BehavioralChain is a combination of signals that together indicate
// a coherent attack, scored independently of individual findings
type BehavioralChain struct {
	Type        ChainType `json:"chain_type"`
	Description string    `json:"description"`
	Evidence    []string  `json:"evidence"`
	Severity    Severity  `json:"severity"`
	Score       int       `json:"risk_score"`
}

// RiskLevel buckets an aggregate score into a human-facing category
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
	RiskSafe     RiskLevel = "SAFE"
)

// PackageAudit is the complete audit result for one package
type PackageAudit struct {
	PackageName        string              `json:"package_name"`
	HasScripts         bool                `json:"has_scripts"`
	Preinstall         string              `json:"preinstall,omitempty"`
	Install            string              `json:"install,omitempty"`
	Postinstall        string              `json:"postinstall,omitempty"`
	SuspiciousPatterns []SuspiciousPattern `json:"suspicious_patterns"`
	SourceFindings     []SourceFinding     `json:"source_findings"`
	BehavioralChains   []BehavioralChain   `json:"behavioral_chains"`
	RiskScore          int                 `json:"risk_score"`
	RiskLevel          RiskLevel           `json:"risk_level"`
	Dependencies       []string            `json:"dependencies"`
	DevDependencies    []string            `json:"dev_dependencies"`
}

// NewPackageAudit returns an empty audit for the named package
func NewPackageAudit(name string) *PackageAudit {
	return &PackageAudit{
		PackageName:        name,
		RiskLevel:          RiskSafe,
		SuspiciousPatterns: []SuspiciousPattern{},
		SourceFindings:     []SourceFinding{},
		BehavioralChains:   []BehavioralChain{},
		Dependencies:       []string{},
		DevDependencies:    []string{},
	}
}

// ScriptCount returns how many lifecycle scripts are non-empty
func (a *PackageAudit) ScriptCount() int {
	n := 0
	for _, s := range []string{a.Preinstall, a.Install, a.Postinstall} {
		if s != "" {
			n++
		}
	}
	return n
}

// CountBySeverity returns the number of findings at the given severity
func (a *PackageAudit) CountBySeverity(sev Severity) int {
	n := 0
	for _, f := range a.SourceFindings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// RiskCounts tallies audited packages per risk level
type RiskCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Safe     int `json:"safe"`
}

// Add increments the counter for the given level
func (c *RiskCounts) Add(level RiskLevel) {
	switch level {
	case RiskCritical:
		c.Critical++
	case RiskHigh:
		c.High++
	case RiskMedium:
		c.Medium++
	case RiskLow:
		c.Low++
	default:
		c.Safe++
	}
}

// FailedPackage records a package that could not be audited
type FailedPackage struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// TransitiveScanResult aggregates audits across a dependency tree
type TransitiveScanResult struct {
	TotalPackages       int                      `json:"total_packages"`
	ScannedPackages     int                      `json:"scanned_packages"`
	RiskCounts          RiskCounts               `json:"risk_counts"`
	PackagesWithScripts int                      `json:"packages_with_scripts"`
	MaxDepthReached     int                      `json:"max_depth_reached"`
	PackageAudits       map[string]*PackageAudit `json:"package_audits"`
	Failed              []FailedPackage          `json:"failed,omitempty"`
}

// NewTransitiveScanResult returns an empty scan result
func NewTransitiveScanResult() *TransitiveScanResult {
	return &TransitiveScanResult{
		PackageAudits: make(map[string]*PackageAudit),
	}
}
