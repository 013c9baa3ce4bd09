package audit

import "fmt"

// Chain scores are fixed weights per attack archetype. Data
// exfiltration drops to the lower score when no obfuscation signal
// accompanies it.
const (
	scoreDataExfiltration      = 100
	scoreDataExfiltrationPlain = 75
	scoreCredentialTheft       = 95
	scoreRemoteExecution       = 100
	scoreBackdoor              = 90
	scoreCryptomining          = 85
	scoreObfuscation           = 80
)

// Pattern names grouped by the capability they indicate. Names match
// the built-in install-script catalog.
var (
	networkPatterns = newNameSet(
		"curl", "wget", "fetch(", "XMLHttpRequest",
		"require('http", "require('https", "nc ", "netcat",
	)
	sensitivePatterns = newNameSet(
		"process.env", "~/.ssh", "~/.aws", "/etc/passwd",
		".npmrc", ".git-credentials",
	)
	credentialFilePatterns = newNameSet(
		"~/.ssh", "~/.aws", ".npmrc", ".git-credentials",
	)
	writePatterns = newNameSet(
		"fs.writeFile", "/tmp", "rm -rf",
	)
	downloadPatterns = newNameSet(
		"curl", "wget", "git clone",
	)
	chmodPatterns = newNameSet(
		"chmod +x", "chmod 777",
	)
	shellExecPatterns = newNameSet(
		"bash -c", "sh -c", "| bash", "| sh", "node -e", "python -c",
		"python3 -c", "perl -e", "ruby -e", "php -r", "exec", "spawn",
	)
	persistencePatterns = newNameSet(
		".bashrc", ".bash_profile", ".profile", "crontab",
	)
	cpuPatterns = newNameSet(
		"worker", "mining", "stratum", "crypto",
	)
	backgroundPatterns = newNameSet(
		"nohup", "daemon", "disown",
	)
	obfuscationPatterns = newNameSet(
		"base64", "atob(",
	)
)

type nameSet map[string]bool

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// signals is the per-package view the chain detector works from.
// Popularity and package name are deliberately absent: nothing here
// can exempt a package from detection.
type signals struct {
	network      []string
	sensitive    []string
	credentials  []string
	write        []string
	download     []string
	chmod        []string
	shellExec    []string
	persistence  []string
	cpu          []string
	background   []string
	obfuscation  []string
	codeExec     []string
	dynamicExec  int
	obfuscFounds int
}

func collectSignals(a *PackageAudit) *signals {
	s := &signals{}
	for _, p := range a.SuspiciousPatterns {
		label := fmt.Sprintf("install script pattern: %s", p.Name)
		if networkPatterns[p.Name] {
			s.network = append(s.network, label)
		}
		if sensitivePatterns[p.Name] {
			s.sensitive = append(s.sensitive, label)
		}
		if credentialFilePatterns[p.Name] {
			s.credentials = append(s.credentials, label)
		}
		if writePatterns[p.Name] {
			s.write = append(s.write, label)
		}
		if downloadPatterns[p.Name] {
			s.download = append(s.download, label)
		}
		if chmodPatterns[p.Name] {
			s.chmod = append(s.chmod, label)
		}
		if shellExecPatterns[p.Name] {
			s.shellExec = append(s.shellExec, label)
		}
		if persistencePatterns[p.Name] {
			s.persistence = append(s.persistence, label)
		}
		if cpuPatterns[p.Name] {
			s.cpu = append(s.cpu, label)
		}
		if backgroundPatterns[p.Name] {
			s.background = append(s.background, label)
		}
		if obfuscationPatterns[p.Name] {
			s.obfuscation = append(s.obfuscation, label)
		}
	}
	for _, f := range a.SourceFindings {
		label := fmt.Sprintf("source finding: %s at %s:%d", f.Kind, f.FilePath, f.Line)
		switch f.Kind {
		case FindingExternalHTTPRequest:
			s.network = append(s.network, label)
		case FindingSensitiveDataAccess:
			s.sensitive = append(s.sensitive, label)
			s.credentials = append(s.credentials, label)
		case FindingObfuscatedExecution:
			s.obfuscation = append(s.obfuscation, label)
			s.obfuscFounds++
			s.codeExec = append(s.codeExec, label)
		case FindingEvalUsage, FindingDynamicFunction, FindingCommandExecution:
			s.codeExec = append(s.codeExec, label)
			s.dynamicExec++
		}
	}
	return s
}

// DetectChains inspects an audit's findings and patterns for known
// attack combinations and appends every chain that matches. More than
// one chain may fire for the same package. There is no allow-list:
// the package name is never consulted.
func DetectChains(a *PackageAudit) {
	s := collectSignals(a)

	if len(s.network) > 0 && len(s.sensitive) > 0 {
		chain := BehavioralChain{
			Type:        ChainDataExfiltration,
			Description: "Accesses sensitive data and communicates over the network",
			Severity:    SeverityWarning,
			Score:       scoreDataExfiltrationPlain,
		}
		if len(s.obfuscation) > 0 {
			chain.Severity = SeverityCritical
			chain.Score = scoreDataExfiltration
			chain.Evidence = append(chain.Evidence, s.obfuscation...)
		}
		chain.Evidence = append(chain.Evidence, s.network...)
		chain.Evidence = append(chain.Evidence, s.sensitive...)
		a.BehavioralChains = append(a.BehavioralChains, chain)
	}

	if len(s.credentials) > 0 && (len(s.network) > 0 || len(s.write) > 0) {
		ev := append([]string{}, s.credentials...)
		ev = append(ev, s.network...)
		ev = append(ev, s.write...)
		a.BehavioralChains = append(a.BehavioralChains, BehavioralChain{
			Type:        ChainCredentialTheft,
			Description: "Reads credential files and can move them off the machine",
			Evidence:    ev,
			Severity:    SeverityCritical,
			Score:       scoreCredentialTheft,
		})
	}

	if len(s.download) > 0 && (len(s.chmod) > 0 || len(s.shellExec) > 0) && len(s.codeExec) > 0 {
		ev := append([]string{}, s.download...)
		ev = append(ev, s.chmod...)
		ev = append(ev, s.shellExec...)
		ev = append(ev, s.codeExec...)
		a.BehavioralChains = append(a.BehavioralChains, BehavioralChain{
			Type:        ChainRemoteExecution,
			Description: "Downloads a payload and executes it",
			Evidence:    ev,
			Severity:    SeverityCritical,
			Score:       scoreRemoteExecution,
		})
	}

	if len(s.network) > 0 && len(s.persistence) > 0 {
		ev := append([]string{}, s.network...)
		ev = append(ev, s.persistence...)
		a.BehavioralChains = append(a.BehavioralChains, BehavioralChain{
			Type:        ChainBackdoor,
			Description: "Modifies shell startup or cron files and talks to the network",
			Evidence:    ev,
			Severity:    SeverityCritical,
			Score:       scoreBackdoor,
		})
	}

	if len(s.cpu) > 0 && len(s.background) > 0 && len(s.network) > 0 {
		ev := append([]string{}, s.cpu...)
		ev = append(ev, s.background...)
		ev = append(ev, s.network...)
		a.BehavioralChains = append(a.BehavioralChains, BehavioralChain{
			Type:        ChainCryptomining,
			Description: "Long-running background worker with network access",
			Evidence:    ev,
			Severity:    SeverityCritical,
			Score:       scoreCryptomining,
		})
	}

	if s.obfuscFounds >= 3 && s.dynamicExec >= 1 {
		a.BehavioralChains = append(a.BehavioralChains, BehavioralChain{
			Type:        ChainObfuscation,
			Description: "Heavily obfuscated code combined with dynamic execution",
			Evidence:    append([]string{}, s.obfuscation...),
			Severity:    SeverityCritical,
			Score:       scoreObfuscation,
		})
	}
}
