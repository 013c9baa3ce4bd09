package jsscan

import (
	"strings"

	"github.com/MSB-Labs/prevet/internal/audit"
)

// ScanFallback is the line-oriented scanner used when a file cannot
// be tokenized. It trades precision for coverage: matches inside
// strings and comments are reported too.
func ScanFallback(path, src string) []audit.SourceFinding {
	var findings []audit.SourceFinding
	emit := func(line int, text string, kind audit.FindingKind, sev audit.Severity, desc string) {
		findings = append(findings, audit.SourceFinding{
			FilePath:    path,
			Line:        line,
			Kind:        kind,
			Severity:    sev,
			Description: desc,
			Snippet:     truncateLine(text),
		})
	}

	for n, line := range strings.Split(src, "\n") {
		ln := n + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		hasEval := strings.Contains(trimmed, "eval(")
		hasFunction := strings.Contains(trimmed, "new Function(")
		hasEncoding := strings.Contains(trimmed, "atob(") || strings.Contains(trimmed, "base64")

		switch {
		case hasEncoding && (hasEval || hasFunction):
			emit(ln, trimmed, audit.FindingObfuscatedExecution, audit.SeverityCritical,
				"encoded payload decoded and executed")
		case hasEval:
			emit(ln, trimmed, audit.FindingEvalUsage, audit.SeverityCritical,
				"eval() executes arbitrary strings as code")
		case hasFunction:
			emit(ln, trimmed, audit.FindingDynamicFunction, audit.SeverityWarning,
				"Function constructor builds code from strings")
		}

		if strings.Contains(trimmed, "require('child_process'") ||
			strings.Contains(trimmed, `require("child_process"`) {
			emit(ln, trimmed, audit.FindingChildProcessImport, audit.SeverityWarning,
				"imports child_process for running external commands")
		}

		if hasExecCall(trimmed) && !looksLikeRegexLine(trimmed) {
			emit(ln, trimmed, audit.FindingCommandExecution, audit.SeverityWarning,
				"runs external commands")
		}

		if dynamicRequire(trimmed) {
			emit(ln, trimmed, audit.FindingDynamicModuleLoad, audit.SeverityWarning,
				"module path is computed at runtime")
		}

		if (strings.Contains(trimmed, "http://") || strings.Contains(trimmed, "https://")) &&
			(strings.Contains(trimmed, "fetch(") || strings.Contains(trimmed, "axios") ||
				strings.Contains(trimmed, "request(") || strings.Contains(trimmed, "XMLHttpRequest")) {
			emit(ln, trimmed, audit.FindingExternalHTTPRequest, audit.SeverityWarning,
				"makes outbound HTTP requests")
		}

		if sensitiveAccess(trimmed) {
			emit(ln, trimmed, audit.FindingSensitiveDataAccess, audit.SeverityWarning,
				"touches credentials or sensitive files")
		}

		if len(trimmed) > 500 && strings.Count(trimmed, `\x`) > 10 {
			emit(ln, trimmed, audit.FindingObfuscatedExecution, audit.SeverityCritical,
				"long hex-escaped blob hides the real payload")
		}
	}
	return findings
}

var execCalls = []string{"exec(", "execSync(", "execFile(", "spawn(", "spawnSync(", "fork("}

func hasExecCall(line string) bool {
	for _, c := range execCalls {
		if strings.Contains(line, c) {
			return true
		}
	}
	return false
}

// looksLikeRegexLine suppresses the exec() check for lines that are
// clearly running a regex, the common false positive.
func looksLikeRegexLine(line string) bool {
	if strings.Contains(line, "child_process") {
		return false
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "regex") || strings.Contains(lower, "pattern") ||
		strings.Contains(lower, ".prototype") {
		return true
	}
	// /re/.exec(...) on the same line
	if i := strings.Index(line, ".exec("); i > 0 && line[i-1] == '/' {
		return true
	}
	return false
}

func dynamicRequire(line string) bool {
	i := strings.Index(line, "require(")
	if i < 0 {
		return false
	}
	rest := line[i+len("require("):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		end = len(rest)
	}
	arg := rest[:end]
	return strings.Contains(arg, "+") || strings.Contains(arg, "${") ||
		strings.Contains(arg, "concat")
}

var sensitiveNeedles = []string{
	"~/.ssh", "~/.aws", "/etc/passwd", ".npmrc", ".git-credentials",
}

func sensitiveAccess(line string) bool {
	for _, n := range sensitiveNeedles {
		if strings.Contains(line, n) {
			return true
		}
	}
	if strings.Contains(line, "process.env") {
		for _, sink := range []string{"stringify", "fetch", "http", "POST", "send("} {
			if strings.Contains(line, sink) {
				return true
			}
		}
	}
	return false
}

func truncateLine(line string) string {
	if len(line) > maxSnippetLen {
		return line[:maxSnippetLen] + "..."
	}
	return line
}
