package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MSB-Labs/prevet/internal/audit"
	"github.com/MSB-Labs/prevet/internal/colorutil"
	"github.com/MSB-Labs/prevet/internal/config"
	"github.com/MSB-Labs/prevet/internal/jsscan"
	"github.com/MSB-Labs/prevet/internal/manifest"
	"github.com/MSB-Labs/prevet/internal/registry"
	"github.com/MSB-Labs/prevet/internal/sandbox"
	"github.com/MSB-Labs/prevet/internal/scanner"
	"github.com/MSB-Labs/prevet/internal/store"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	dbPath      string
	noColor     bool
	jsonOutput  bool
	manager     string
	timeout     int
	maxDepth    int
	failAbove   int
	assumeYes   bool
	catalogPath string
)

var rootCmd = &cobra.Command{
	Use:   "prevet",
	Short: "prevet - Pre-install Vetting for npm Packages",
	Long: `prevet - Pre-install Vetting for npm Packages

A static analysis tool that audits npm packages BEFORE you install them.
Packages are fetched into a throwaway sandbox with all lifecycle scripts
disabled, then their install hooks and JavaScript sources are analyzed
for the behaviors real supply-chain attacks rely on: data exfiltration,
credential theft, remote code execution, backdoors, cryptomining and
heavy obfuscation.

Every package is judged purely on what its code does. There is no
allow-list: a compromised release of a popular package is caught the
same way an unknown one is.

Quick Start:
  prevet audit lodash            Audit a single package
  prevet scan express --depth 2  Audit a package and its dependencies
  prevet info left-pad           Registry metadata without installing
  prevet inspect ./index.js      Analyze one JavaScript file

Documentation: https://github.com/MSB-Labs/prevet`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version number of prevet.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("prevet v%s\n", version)
		fmt.Println("Pre-install Vetting for npm Packages")
		fmt.Println("https://github.com/MSB-Labs/prevet")
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <package>[@version]",
	Short: "Audit a single package before installing it",
	Long: `Install a package into an isolated scratch directory with all lifecycle
scripts disabled, then analyze it without executing any of its code.

The audit covers:
  - Install hooks (preinstall, install, postinstall) matched against a
    catalog of suspicious shell patterns
  - Every JavaScript source file, parsed and walked for dangerous
    constructs (eval, Function constructor, child_process, dynamic
    requires, obfuscated payloads)
  - Behavioral chains: combinations of signals that together indicate
    a coherent attack, scored independently

The result is saved to the local audit database, and the command ends
by asking whether to proceed with installation. The answer keys the
exit code, so it composes in shell:

  prevet audit left-pad && npm install left-pad

Examples:
  prevet audit lodash            Audit latest version
  prevet audit lodash@4.17.21    Audit a specific version
  prevet audit @babel/core       Audit a scoped package
  prevet audit express --json    Output the full report as JSON
  prevet audit express --yes     Skip the confirmation prompt`,
	Args: cobra.ExactArgs(1),
}

var scanCmd = &cobra.Command{
	Use:   "scan <package>[@version]",
	Short: "Audit a package and its transitive dependencies",
	Long: `Audit a package together with its dependency tree, breadth-first up to
--depth levels. Each package gets the same full audit as 'prevet audit';
a package that fails to install is recorded and the scan continues.

Dependency names come from each audited package's manifest, so the tree
reflects what an install would actually pull in.

Examples:
  prevet scan express                Scan with the default depth
  prevet scan express --depth 0      Audit only the root package
  prevet scan express --json         Output the full report as JSON
  prevet scan express --fail-above 30
                                     Exit 1 if any package scores above 30`,
	Args: cobra.ExactArgs(1),
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Analyze a single JavaScript file",
	Long: `Run the source analyzer over one file and report every finding along
with parse metadata. Useful for checking what the analyzer sees in a
specific file, or for vetting a script outside any package.

Unlike a package audit there is no fallback: if the file does not
parse, the parse error is reported instead of findings.

Examples:
  prevet inspect ./index.js
  prevet inspect ./dist/bundle.min.js --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInspect(args[0])
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <package>[@version]",
	Short: "Show registry metadata without installing",
	Long: `Fetch package metadata from the npm registry: resolved version,
lifecycle-script presence and dependency counts. Nothing is downloaded
beyond the registry document and nothing is installed.

This is a cheap precheck; 'prevet audit' does the real analysis.

Examples:
  prevet info lodash
  prevet info lodash@^4.0.0
  prevet info @types/node --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInfo(args[0])
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audit database statistics",
	Long: `Display statistics about the local audit database.

Shows:
  - Total audits and unique packages
  - Number of high-risk packages detected
  - Packages with install hooks
  - Last audit timestamp`,
	Run: func(cmd *cobra.Command, args []string) {
		runStats()
	},
}

// ask prompts on stdin; a variable so tests can stub the answer.
var ask = func(prompt string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Printf("%s %s ", prompt, hint)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return defaultYes
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultYes
	}
}

// confirmInstall asks whether to proceed after an audit. Safe packages
// never prompt; only Low defaults to yes.
func confirmInstall(a *audit.PackageAudit) bool {
	switch a.RiskLevel {
	case audit.RiskSafe:
		return true
	case audit.RiskLow:
		return ask(fmt.Sprintf("Minor findings in %s. Proceed with installation?", a.PackageName), true)
	case audit.RiskCritical:
		return ask(fmt.Sprintf("%s risk detected in %s. Proceed anyway?",
			colorutil.ColorizeRiskLevel("CRITICAL"), a.PackageName), false)
	default:
		return ask(fmt.Sprintf("%s risk detected in %s. Proceed with installation?",
			colorutil.ColorizeRiskLevel(string(a.RiskLevel)), a.PackageName), false)
	}
}

// passesUnprompted decides the exit code for --json audits, where a
// prompt would corrupt the output stream. Safe and Low pass; anything
// higher exits 1 so scripts can branch on the exit code.
func passesUnprompted(a *audit.PackageAudit) bool {
	return a.RiskLevel == audit.RiskSafe || a.RiskLevel == audit.RiskLow
}

func loadCatalog() *manifest.Catalog {
	if catalogPath == "" {
		return nil
	}
	cat, err := manifest.LoadCatalogFromFile(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load pattern catalog: %v\n", err)
		os.Exit(1)
	}
	return cat
}

// applyConfig fills in flag values the user did not set explicitly
// from the config file.
func applyConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.Default()
	}
	if cmd.Flags().Lookup("manager") != nil && !cmd.Flags().Changed("manager") {
		manager = cfg.PackageManager
	}
	if cmd.Flags().Lookup("timeout") != nil && !cmd.Flags().Changed("timeout") {
		timeout = cfg.InstallTimeout
	}
	if cmd.Flags().Lookup("depth") != nil && !cmd.Flags().Changed("depth") {
		maxDepth = cfg.MaxDepth
	}
	return cfg
}

func openStore() *store.Store {
	db, err := store.New(dbPath)
	if err != nil {
		if !jsonOutput {
			fmt.Fprintf(os.Stderr, "Warning: could not open database: %v\n", err)
			fmt.Fprintf(os.Stderr, "Continuing without audit history...\n\n")
		}
		return nil
	}
	return db
}

func runAudit(packageArg string) {
	if noColor {
		colorutil.ApplyNoColor()
	}

	cfg := applyConfig(auditCmd)
	if !cfg.SecurityAudit {
		fmt.Println("Security auditing is disabled in the config file.")
		return
	}

	_, packageVersion := parsePackageArg(packageArg)

	if !jsonOutput {
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  prevet - Package Security Audit")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Printf("Package:  %s\n", packageArg)
		fmt.Printf("Manager:  %s\n", manager)
		fmt.Println()
		fmt.Println("Installing into sandbox (scripts disabled)...")
	}

	// Sweep scratch dirs left behind by interrupted runs
	sandbox.CleanupStale(time.Hour)

	pipeline := scanner.NewPipeline(manager, time.Duration(timeout)*time.Second, loadCatalog())
	a, err := pipeline.Audit(context.Background(), packageArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db := openStore()
	if db != nil {
		if err := db.SaveAudit(a, packageVersion); err != nil && !jsonOutput {
			fmt.Fprintf(os.Stderr, "Warning: could not save audit: %v\n", err)
		}
		db.Close()
	}

	if jsonOutput {
		outputJSON(a)
		if !assumeYes && !passesUnprompted(a) {
			os.Exit(1)
		}
		return
	}

	fmt.Println()
	printAuditReport(a)

	if assumeYes {
		return
	}
	if !confirmInstall(a) {
		fmt.Println("\nInstallation declined.")
		os.Exit(1)
	}
}

// progressPrinter reports scan progress; warnings always go to stderr
// so --json stdout stays clean.
type progressPrinter struct {
	quiet bool
}

func (p progressPrinter) Progress(pkg string, depth int) {
	if p.quiet {
		return
	}
	fmt.Printf("  auditing %s (depth %d)...\n", pkg, depth)
}

func (p progressPrinter) Warn(pkg string, err error) {
	fmt.Fprintf(os.Stderr, "  [!] %s: %v\n", pkg, err)
}

func runScan(packageArg string) {
	scanStart := time.Now()

	if noColor {
		colorutil.ApplyNoColor()
	}

	applyConfig(scanCmd)

	if !jsonOutput {
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  prevet - Transitive Dependency Scan")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Printf("Root package: %s\n", packageArg)
		fmt.Printf("Max depth:    %d\n", maxDepth)
		fmt.Println()
	}

	sandbox.CleanupStale(time.Hour)

	pipeline := scanner.NewPipeline(manager, time.Duration(timeout)*time.Second, loadCatalog())
	sc := scanner.New(pipeline, maxDepth, progressPrinter{quiet: jsonOutput})

	result, err := sc.Scan(context.Background(), packageArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db := openStore()
	if db != nil {
		for name, a := range result.PackageAudits {
			_, v := parsePackageArg(name)
			if err := db.SaveAudit(a, v); err != nil && !jsonOutput {
				fmt.Fprintf(os.Stderr, "Warning: could not save audit for %s: %v\n", name, err)
			}
		}
		db.Close()
	}

	if jsonOutput {
		outputJSON(result)
	} else {
		printScanSummary(result, time.Since(scanStart))
	}

	if failAbove >= 0 {
		maxRisk := 0
		for _, a := range result.PackageAudits {
			if a.RiskScore > maxRisk {
				maxRisk = a.RiskScore
			}
		}
		if maxRisk > failAbove {
			if !jsonOutput {
				fmt.Printf("\n  [!] FAILED: max risk score %d exceeds threshold %d\n", maxRisk, failAbove)
			}
			os.Exit(1)
		}
	}
}

func runInspect(path string) {
	if noColor {
		colorutil.ApplyNoColor()
	}

	res, err := jsscan.InspectFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		outputJSON(res)
		return
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  prevet - Source File Inspection")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  File:        %s\n", res.FilePath)
	fmt.Printf("  Source kind: %s\n", res.SourceKind)
	fmt.Printf("  Lines:       %d\n", res.LineCount)
	if !res.Parsed {
		fmt.Printf("  Parsed:      no (%s)\n", res.ParseError)
		fmt.Println()
		fmt.Println("  The file could not be parsed; a package audit would fall")
		fmt.Println("  back to the line-based scanner here.")
		return
	}
	fmt.Println("  Parsed:      yes")
	fmt.Println()

	if len(res.Findings) == 0 {
		fmt.Println("  No findings.")
		return
	}

	fmt.Printf("  Findings: %d\n", len(res.Findings))
	for _, f := range res.Findings {
		fmt.Printf("    [%s] line %d: %s\n",
			colorutil.ColorizeSeverity(string(f.Severity)), f.Line, f.Description)
		if f.Snippet != "" {
			fmt.Printf("        %s\n", f.Snippet)
		}
	}
}

func runInfo(packageArg string) {
	if noColor {
		colorutil.ApplyNoColor()
	}

	name, spec := parsePackageArg(packageArg)
	client := registry.NewClient()

	resolved, err := client.ResolveVersion(name, spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	info, err := client.GetVersionInfo(name, resolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		outputJSON(InfoJSON{
			Name:             info.Name,
			Version:          info.Version,
			Description:      info.Description,
			HasInstallHooks:  info.HasInstallScripts(),
			Dependencies:     len(info.Dependencies),
			DevDependencies:  len(info.DevDependencies),
			LifecycleScripts: lifecycleScripts(info.Scripts),
		})
		return
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  prevet - Registry Metadata")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  Package:          %s\n", info.Name)
	fmt.Printf("  Version:          %s\n", info.Version)
	if info.Description != "" {
		fmt.Printf("  Description:      %s\n", info.Description)
	}
	fmt.Printf("  Dependencies:     %d\n", len(info.Dependencies))
	fmt.Printf("  Dev dependencies: %d\n", len(info.DevDependencies))
	if info.HasInstallScripts() {
		fmt.Printf("\n  ⚠ This package runs lifecycle scripts on install:\n")
		for _, hook := range lifecycleScripts(info.Scripts) {
			fmt.Printf("      %s: %s\n", hook, info.Scripts[hook])
		}
		fmt.Println()
		fmt.Println("  Run 'prevet audit' before installing.")
	} else {
		fmt.Println()
		fmt.Println("  No install-time lifecycle scripts.")
	}
}

// lifecycleScripts returns the install-time hook names present in a
// scripts map, in execution order.
func lifecycleScripts(scripts map[string]string) []string {
	var out []string
	for _, hook := range []string{"preinstall", "install", "postinstall", "preuninstall", "postuninstall"} {
		if _, ok := scripts[hook]; ok {
			out = append(out, hook)
		}
	}
	return out
}

func runStats() {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  prevet - Audit Database Statistics")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()

	db, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not get stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  Database path:       %s\n", dbPath)
	fmt.Printf("  Total audits:        %d\n", stats.TotalAudits)
	fmt.Printf("  Unique packages:     %d\n", stats.UniquePackages)
	fmt.Printf("  High risk (>=60):    %d\n", stats.HighRiskCount)
	fmt.Printf("  With install hooks:  %d\n", stats.WithScripts)
	if !stats.LastAudited.IsZero() {
		fmt.Printf("  Last audited:        %s\n", stats.LastAudited.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
}

func parsePackageArg(arg string) (name, version string) {
	// Scoped packages like @types/node@18.0.0 keep the leading @
	if strings.HasPrefix(arg, "@") {
		parts := strings.SplitN(arg[1:], "@", 2)
		if len(parts) == 2 {
			return "@" + parts[0], parts[1]
		}
		return arg, "latest"
	}

	parts := strings.SplitN(arg, "@", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return arg, "latest"
}

func init() {
	// Run assigned here rather than in the literals to avoid an
	// initialization cycle: runAudit/runScan reference their commands.
	auditCmd.Run = func(cmd *cobra.Command, args []string) {
		runAudit(args[0])
	}
	scanCmd.Run = func(cmd *cobra.Command, args []string) {
		runScan(args[0])
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", store.DefaultDBPath(), "Path to audit database")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Audit flags
	auditCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	auditCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	auditCmd.Flags().StringVar(&manager, "manager", "npm", "Package manager for the sandbox install (npm, pnpm, yarn, bun)")
	auditCmd.Flags().IntVarP(&timeout, "timeout", "t", 120, "Install timeout in seconds")
	auditCmd.Flags().StringVar(&catalogPath, "patterns", "", "Path to a custom YAML pattern catalog")

	// Scan flags
	scanCmd.Flags().IntVar(&maxDepth, "depth", scanner.DefaultMaxDepth, "Maximum dependency depth to audit")
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	scanCmd.Flags().StringVar(&manager, "manager", "npm", "Package manager for the sandbox install (npm, pnpm, yarn, bun)")
	scanCmd.Flags().IntVarP(&timeout, "timeout", "t", 120, "Install timeout per package in seconds")
	scanCmd.Flags().StringVar(&catalogPath, "patterns", "", "Path to a custom YAML pattern catalog")
	scanCmd.Flags().IntVar(&failAbove, "fail-above", -1, "Exit with code 1 if any package exceeds this risk score (disabled by default)")

	// Inspect / info flags
	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	infoCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statsCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
