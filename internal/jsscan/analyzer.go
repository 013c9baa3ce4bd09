package jsscan

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/MSB-Labs/prevet/internal/audit"
)

// ErrParseFailed marks source that could not be tokenized; callers
// degrade to the fallback scanner for that file only.
var ErrParseFailed = errors.New("source could not be parsed")

// VariableKind tracks what a file-scoped variable was last assigned
type VariableKind int

const (
	VarUnknown VariableKind = iota
	VarRegexLike
	VarChildProcess
)

const maxSnippetLen = 100

// names that execute commands when called on a child_process handle
var dangerousMethods = map[string]bool{
	"exec":      true,
	"execSync":  true,
	"execFile":  true,
	"spawn":     true,
	"spawnSync": true,
	"fork":      true,
}

// eight or more consecutive hex or unicode escapes in one literal
var hexEscapeRun = regexp.MustCompile(`(\\x[0-9a-fA-F]{2}|\\u[0-9a-fA-F]{4}|\\u\{[0-9a-fA-F]+\}){8,}`)

var base64Like = regexp.MustCompile(`^[A-Za-z0-9+/]{40,}={0,2}$`)

type analyzer struct {
	path     string
	src      string
	toks     []token
	vars     map[string]VariableKind
	findings []audit.SourceFinding

	stmtStart   int // token index of the current statement's first token
	stmtDynExec bool
	stmtBase64  int // token index of a base64-like literal, -1 if none
}

// AnalyzeSource tokenizes and walks one source file. A lex failure is
// reported as ErrParseFailed so the caller can fall back.
func AnalyzeSource(path, src string) ([]audit.SourceFinding, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	a := &analyzer{
		path: path, src: src, toks: toks,
		vars:       make(map[string]VariableKind),
		stmtBase64: -1,
	}
	a.run()
	return a.findings, nil
}

// ScanSource analyzes a file, degrading to the line-oriented fallback
// when the source cannot be tokenized. The second return reports
// whether the primary path succeeded.
func ScanSource(path, src string) ([]audit.SourceFinding, bool) {
	findings, err := AnalyzeSource(path, src)
	if err != nil {
		return ScanFallback(path, src), false
	}
	return findings, true
}

func (a *analyzer) run() {
	for i := 0; i < len(a.toks); i++ {
		tok := a.toks[i]
		switch tok.kind {
		case tokEOF:
			a.flushStatement()
		case tokPunct:
			switch tok.text {
			case ";", "{", "}":
				a.flushStatement()
				a.stmtStart = i + 1
			case ".", "?.":
				a.checkMemberCall(i)
			}
		case tokIdent:
			a.checkIdent(i)
		case tokString:
			a.checkLiteral(i)
		}
	}
}

func (a *analyzer) at(i int) token {
	if i < 0 || i >= len(a.toks) {
		return token{kind: tokEOF}
	}
	return a.toks[i]
}

func (a *analyzer) isPunct(i int, text string) bool {
	t := a.at(i)
	return t.kind == tokPunct && t.text == text
}

func (a *analyzer) isIdent(i int, name string) bool {
	t := a.at(i)
	return t.kind == tokIdent && t.text == name
}

func (a *analyzer) afterDot(i int) bool {
	return a.isPunct(i-1, ".") || a.isPunct(i-1, "?.")
}

func (a *analyzer) checkIdent(i int) {
	tok := a.toks[i]
	name := tok.text
	calledHere := a.isPunct(i+1, "(")

	if !a.afterDot(i) {
		switch {
		case name == "eval":
			a.stmtDynExec = true
			if calledHere {
				a.emit(i, audit.FindingEvalUsage, audit.SeverityCritical,
					"eval() executes arbitrary strings as code")
			}
		case name == "Function":
			a.stmtDynExec = true
			if calledHere {
				a.emit(i, audit.FindingDynamicFunction, audit.SeverityWarning,
					"Function constructor builds code from strings")
			}
		case name == "require" && calledHere:
			a.checkRequire(i)
		case name == "import" && calledHere:
			a.checkDynamicImport(i)
		case name == "var" || name == "let" || name == "const":
			a.checkDeclaration(i)
		}
	}

	// assignment updates the symbol table, last write wins
	if !a.afterDot(i) && a.isPunct(i+1, "=") {
		a.vars[name] = a.classifyRHS(i + 2)
	}

	// direct call of a binding that holds a child_process export,
	// e.g. exec('ls') after destructuring the module
	if calledHere && !a.afterDot(i) && a.vars[name] == VarChildProcess && dangerousMethods[name] {
		a.emit(i, audit.FindingCommandExecution, audit.SeverityWarning,
			fmt.Sprintf("%s() runs external commands", name))
	}
}

// checkRequire flags require('child_process') and any require whose
// argument is not a plain string literal.
func (a *analyzer) checkRequire(i int) {
	arg := a.at(i + 2)
	closed := a.isPunct(i+3, ")")
	switch {
	case arg.kind == tokPunct && arg.text == ")":
		// empty call, nothing to resolve
	case arg.kind == tokString && closed:
		if arg.text == "child_process" || arg.text == "node:child_process" {
			a.emit(i, audit.FindingChildProcessImport, audit.SeverityWarning,
				"imports child_process for running external commands")
		}
	case arg.kind == tokTemplate && !arg.dynamic && closed:
		// constant template, same as a string literal
	default:
		a.emit(i, audit.FindingDynamicModuleLoad, audit.SeverityWarning,
			"module path is computed at runtime")
	}
}

func (a *analyzer) checkDynamicImport(i int) {
	arg := a.at(i + 2)
	closed := a.isPunct(i+3, ")")
	if (arg.kind == tokString && closed) ||
		(arg.kind == tokTemplate && !arg.dynamic && closed) {
		return
	}
	a.emit(i, audit.FindingDynamicModuleLoad, audit.SeverityWarning,
		"import() target is computed at runtime")
}

// checkDeclaration handles uninitialized declarations and
// destructuring of require('child_process').
func (a *analyzer) checkDeclaration(i int) {
	next := a.at(i + 1)
	if next.kind == tokIdent {
		if !a.isPunct(i+2, "=") {
			a.vars[next.text] = VarUnknown
		}
		return
	}
	if !a.isPunct(i+1, "{") {
		return
	}
	names, after := a.destructuredNames(i + 1)
	if names == nil {
		return
	}
	kind := VarUnknown
	if a.isPunct(after, "=") {
		kind = a.classifyRHS(after + 1)
	}
	for _, n := range names {
		a.vars[n] = kind
	}
}

// destructuredNames collects the bound names of a flat object pattern
// starting at the opening brace and returns the token index just
// after the closing brace. Nested patterns are ignored.
func (a *analyzer) destructuredNames(open int) ([]string, int) {
	var names []string
	i := open + 1
	for {
		t := a.at(i)
		switch {
		case t.kind == tokEOF:
			return nil, i
		case t.kind == tokPunct && t.text == "}":
			return names, i + 1
		case t.kind == tokIdent:
			bound := t.text
			if a.isPunct(i+1, ":") && a.at(i+2).kind == tokIdent {
				bound = a.at(i + 2).text
				i += 2
			}
			names = append(names, bound)
			// skip a default initializer up to , or }
			if a.isPunct(i+1, "=") {
				for !a.isPunct(i+1, ",") && !a.isPunct(i+1, "}") && a.at(i+1).kind != tokEOF {
					i++
				}
			}
			i++
		case t.kind == tokPunct && (t.text == "," || t.text == "..."):
			i++
		default:
			return nil, i
		}
	}
}

// classifyRHS inspects the tokens after an assignment operator and
// reports what kind of value the variable now holds.
func (a *analyzer) classifyRHS(k int) VariableKind {
	t := a.at(k)
	switch t.kind {
	case tokRegex:
		return VarRegexLike
	case tokIdent:
		switch t.text {
		case "new":
			if a.isIdent(k+1, "RegExp") {
				return VarRegexLike
			}
			return VarUnknown
		case "RegExp":
			return VarRegexLike
		case "require":
			if a.isPunct(k+1, "(") && a.at(k+2).kind == tokString &&
				(a.at(k+2).text == "child_process" || a.at(k+2).text == "node:child_process") &&
				a.isPunct(k+3, ")") {
				return VarChildProcess
			}
			return VarUnknown
		default:
			// one level of aliasing: copy the kind of a bare ident RHS
			if kind, ok := a.vars[t.text]; ok && a.endsExpression(k+1) {
				return kind
			}
			return VarUnknown
		}
	default:
		return VarUnknown
	}
}

func (a *analyzer) endsExpression(i int) bool {
	t := a.at(i)
	if t.kind == tokEOF {
		return true
	}
	if t.kind != tokPunct {
		return false
	}
	switch t.text {
	case ";", ",", ")", "}", "]":
		return true
	}
	return false
}

// checkMemberCall flags obj.exec(...) style calls unless the object
// is regex-like. The check also covers indirect calls through .call
// or .apply. A plain property assignment to the method name is not a
// call and is skipped.
func (a *analyzer) checkMemberCall(i int) {
	m := a.at(i + 1)
	if m.kind != tokIdent || !dangerousMethods[m.text] {
		return
	}
	next := a.at(i + 2)
	isCall := next.kind == tokPunct && (next.text == "(" || next.text == "." || next.text == "?.")
	if !isCall {
		return
	}
	if a.isRegexObject(i - 1) {
		return
	}
	a.emit(i+1, audit.FindingCommandExecution, audit.SeverityWarning,
		fmt.Sprintf("%s() runs external commands", m.text))
}

// isRegexObject decides whether the expression ending at token j is
// regex-like: a regex literal, a RegExp construction, a variable last
// assigned one of those, or a name that reads like a pattern.
func (a *analyzer) isRegexObject(j int) bool {
	t := a.at(j)
	switch t.kind {
	case tokRegex:
		return true
	case tokString, tokTemplate:
		return false
	case tokIdent:
		name := t.text
		if name == "prototype" && a.afterDot(j) {
			owner := a.at(j - 2)
			return owner.kind == tokIdent && nameLooksRegex(owner.text)
		}
		if kind, ok := a.vars[name]; ok {
			switch kind {
			case VarRegexLike:
				return true
			case VarChildProcess:
				return false
			}
		}
		return nameLooksRegex(name)
	case tokPunct:
		if t.text != ")" {
			return false
		}
		open := a.matchBack(j)
		if open < 0 {
			return false
		}
		callee := a.at(open - 1)
		if callee.kind != tokIdent {
			return false
		}
		if callee.text == "RegExp" {
			return true
		}
		// str.match(...) yields match data; any other call result,
		// require(...) above all, is not regex-like whatever the
		// callee's name reads like
		return callee.text == "match" && a.afterDot(open-1)
	}
	return false
}

// matchBack finds the opening paren matching a closing paren at j
func (a *analyzer) matchBack(j int) int {
	depth := 0
	for i := j; i >= 0; i-- {
		if a.toks[i].kind != tokPunct {
			continue
		}
		switch a.toks[i].text {
		case ")":
			depth++
		case "(":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func nameLooksRegex(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "regex") ||
		strings.Contains(lower, "pattern") ||
		strings.Contains(lower, "match") ||
		strings.HasSuffix(lower, "re")
}

// checkLiteral looks for obfuscation signals inside string literals
func (a *analyzer) checkLiteral(i int) {
	text := a.toks[i].text
	if hexEscapeRun.MatchString(text) {
		a.emit(i, audit.FindingObfuscatedExecution, audit.SeverityCritical,
			"long run of hex/unicode escapes hides the real payload")
		return
	}
	if a.stmtBase64 < 0 && base64Like.MatchString(text) {
		a.stmtBase64 = i
	}
}

// flushStatement resolves signals that need the whole statement, such
// as a base64 blob fed to eval or the Function constructor.
func (a *analyzer) flushStatement() {
	if a.stmtDynExec && a.stmtBase64 >= 0 {
		a.emit(a.stmtBase64, audit.FindingObfuscatedExecution, audit.SeverityCritical,
			"base64 payload decoded and executed in the same statement")
	}
	a.stmtDynExec = false
	a.stmtBase64 = -1
}

func (a *analyzer) emit(i int, kind audit.FindingKind, sev audit.Severity, desc string) {
	a.findings = append(a.findings, audit.SourceFinding{
		FilePath:    a.path,
		Line:        a.toks[i].line,
		Kind:        kind,
		Severity:    sev,
		Description: desc,
		Snippet:     a.snippetAt(i),
	})
}

// snippetAt returns the statement text around token i, trimmed and
// truncated for display.
func (a *analyzer) snippetAt(i int) string {
	start := a.stmtStart
	if start > i {
		start = i
	}
	end := i
	for end < len(a.toks) {
		t := a.toks[end]
		if t.kind == tokEOF {
			break
		}
		if t.kind == tokPunct && (t.text == ";" || t.text == "{" || t.text == "}") {
			break
		}
		end++
	}
	startOff := a.toks[start].start
	endOff := len(a.src)
	if end < len(a.toks) {
		endOff = a.toks[end].start
	}
	snippet := strings.TrimSpace(a.src[startOff:endOff])
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen] + "..."
	}
	return snippet
}
