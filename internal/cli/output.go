package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/MSB-Labs/prevet/internal/audit"
	"github.com/MSB-Labs/prevet/internal/colorutil"
)

// InfoJSON is the JSON output for the info command
type InfoJSON struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Description      string   `json:"description,omitempty"`
	HasInstallHooks  bool     `json:"has_install_hooks"`
	LifecycleScripts []string `json:"lifecycle_scripts,omitempty"`
	Dependencies     int      `json:"dependencies"`
	DevDependencies  int      `json:"dev_dependencies"`
}

func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func printAuditReport(a *audit.PackageAudit) {
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Println("  Audit Results")
	fmt.Println("───────────────────────────────────────────────────────────")

	if a.HasScripts {
		fmt.Printf("  Install scripts:     %d\n", a.ScriptCount())
		printScript("preinstall", a.Preinstall)
		printScript("install", a.Install)
		printScript("postinstall", a.Postinstall)
	} else {
		fmt.Println("  Install scripts:     none")
	}
	fmt.Printf("  Dependencies:        %d\n", len(a.Dependencies))
	fmt.Println()

	if len(a.SuspiciousPatterns) > 0 {
		fmt.Printf("  Suspicious script patterns: %d\n", len(a.SuspiciousPatterns))
		for _, p := range a.SuspiciousPatterns {
			fmt.Printf("    • %s: %s\n", p.Name, p.Reason)
		}
		fmt.Println()
	}

	if len(a.SourceFindings) > 0 {
		fmt.Printf("  Source findings: %d (%d critical, %d warning)\n",
			len(a.SourceFindings),
			a.CountBySeverity(audit.SeverityCritical),
			a.CountBySeverity(audit.SeverityWarning))
		for _, f := range a.SourceFindings {
			fmt.Printf("    [%s] %s:%d %s\n",
				colorutil.ColorizeSeverity(string(f.Severity)), f.FilePath, f.Line, f.Description)
			if f.Snippet != "" {
				fmt.Printf("        %s\n", f.Snippet)
			}
		}
		fmt.Println()
	}

	if len(a.BehavioralChains) > 0 {
		fmt.Printf("  Behavioral chains: %d\n", len(a.BehavioralChains))
		for _, c := range a.BehavioralChains {
			fmt.Printf("    [%s] %s (score %d)\n",
				colorutil.ColorizeSeverity(string(c.Severity)), c.Description, c.Score)
			for _, ev := range c.Evidence {
				fmt.Printf("        - %s\n", ev)
			}
		}
		fmt.Println()
	}

	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Risk: %d [%s]\n", a.RiskScore, colorutil.ColorizeRiskLevel(string(a.RiskLevel)))
	fmt.Println("───────────────────────────────────────────────────────────")
}

func printScript(hook, body string) {
	if body == "" {
		return
	}
	fmt.Printf("    %s: %s\n", hook, body)
}

func printScanSummary(res *audit.TransitiveScanResult, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Println("  Scan Summary")
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Total packages:      %d\n", res.TotalPackages)
	fmt.Printf("  Scanned:             %d\n", res.ScannedPackages)
	fmt.Printf("  With install hooks:  %d\n", res.PackagesWithScripts)
	fmt.Printf("  Depth reached:       %d\n", res.MaxDepthReached)
	fmt.Println()

	colorutil.PrintRiskLevel("CRITICAL", res.RiskCounts.Critical)
	colorutil.PrintRiskLevel("HIGH", res.RiskCounts.High)
	colorutil.PrintRiskLevel("MEDIUM", res.RiskCounts.Medium)
	colorutil.PrintRiskLevel("LOW", res.RiskCounts.Low)
	colorutil.PrintRiskLevel("SAFE", res.RiskCounts.Safe)

	// Call out every package at High or above, worst first
	var risky []*audit.PackageAudit
	for _, a := range res.PackageAudits {
		if a.RiskLevel == audit.RiskCritical || a.RiskLevel == audit.RiskHigh {
			risky = append(risky, a)
		}
	}
	sort.Slice(risky, func(i, j int) bool {
		if risky[i].RiskScore != risky[j].RiskScore {
			return risky[i].RiskScore > risky[j].RiskScore
		}
		return risky[i].PackageName < risky[j].PackageName
	})
	if len(risky) > 0 {
		fmt.Println()
		fmt.Println("  [!] High-risk packages:")
		for _, a := range risky {
			fmt.Printf("      %s\n", colorutil.ColorizePackageRisk(
				fmt.Sprintf("%s (score: %d)", a.PackageName, a.RiskScore), a.RiskScore))
		}
	}

	if len(res.Failed) > 0 {
		fmt.Println()
		fmt.Printf("  [*] Failed to audit: %d\n", len(res.Failed))
		for _, f := range res.Failed {
			fmt.Printf("      %s: %s\n", f.Name, f.Reason)
		}
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	if res.ScannedPackages == res.TotalPackages {
		fmt.Printf("  Scan complete. All %d packages audited.\n", res.TotalPackages)
	} else {
		fmt.Printf("  Scan complete. %d of %d packages audited.\n", res.ScannedPackages, res.TotalPackages)
	}
	fmt.Printf("  Duration: %v\n", elapsed.Round(time.Second))
	fmt.Println("═══════════════════════════════════════════════════════════")
}
