// Package jsscan analyzes JavaScript and TypeScript source for
// dangerous constructs. The primary path tokenizes the source and
// walks statements with a small symbol table so that regex method
// calls are not confused with child_process calls; when the source
// cannot be tokenized, a line-oriented fallback scanner takes over.
package jsscan

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokTemplate
	tokRegex
	tokPunct
)

// token is one lexical unit with its position in the source
type token struct {
	kind    tokenKind
	text    string // ident name, punct spelling, or literal content
	line    int
	start   int
	end     int
	dynamic bool // template literal with substitutions
}

type lexer struct {
	src    string
	pos    int
	line   int
	tokens []token

	parens   int
	braces   int
	brackets int
}

// multi-char operators, longest first so greedy matching works
var operators = []string{
	">>>=", "...", "===", "!==", "**=", "<<=", ">>=", ">>>",
	"&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.",
	"++", "--", "+=", "-=", "*=", "%=", "&=", "|=", "^=",
	"<<", ">>", "**",
}

const singlePunct = "(){}[];,.<>+-*%&|^!~?:="

// keywords after which a slash starts a regex literal, not division
var regexAfterKeyword = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true,
	"of": true, "new": true, "delete": true, "void": true,
	"throw": true, "case": true, "do": true, "else": true,
	"yield": true, "await": true,
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src, line: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	if l.parens != 0 || l.braces != 0 || l.brackets != 0 {
		return nil, fmt.Errorf("unbalanced brackets at end of input")
	}
	l.tokens = append(l.tokens, token{kind: tokEOF, line: l.line, start: len(src), end: len(src)})
	return l.tokens, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/':
			if err := l.lexSlash(); err != nil {
				return err
			}
		case c == '\'' || c == '"':
			if err := l.lexString(c); err != nil {
				return err
			}
		case c == '`':
			if err := l.lexTemplate(); err != nil {
				return err
			}
		case isIdentStart(c):
			l.lexIdent()
		case c >= '0' && c <= '9':
			l.lexNumber()
		default:
			if err := l.lexPunct(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *lexer) emit(kind tokenKind, text string, start int, startLine int) {
	l.tokens = append(l.tokens, token{
		kind: kind, text: text, line: startLine, start: start, end: l.pos,
	})
}

func (l *lexer) lexSlash() error {
	if l.pos+1 < len(l.src) {
		switch l.src[l.pos+1] {
		case '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			return nil
		case '*':
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return fmt.Errorf("unterminated block comment at line %d", l.line)
			}
			l.line += strings.Count(l.src[l.pos:l.pos+2+end+2], "\n")
			l.pos += 2 + end + 2
			return nil
		}
	}
	if l.regexAllowed() {
		return l.lexRegex()
	}
	start := l.pos
	text := "/"
	if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
		text = "/="
	}
	l.pos += len(text)
	l.emit(tokPunct, text, start, l.line)
	return nil
}

// regexAllowed reports whether a slash at the current position starts
// a regex literal. After a value-producing token it is division.
func (l *lexer) regexAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	prev := l.tokens[len(l.tokens)-1]
	switch prev.kind {
	case tokIdent:
		return regexAfterKeyword[prev.text]
	case tokNumber, tokString, tokTemplate, tokRegex:
		return false
	case tokPunct:
		switch prev.text {
		case ")", "]", "++", "--":
			return false
		}
		return true
	}
	return true
}

func (l *lexer) lexRegex() error {
	start := l.pos
	startLine := l.line
	i := l.pos + 1
	inClass := false
	for {
		if i >= len(l.src) || l.src[i] == '\n' {
			return fmt.Errorf("unterminated regex literal at line %d", startLine)
		}
		switch l.src[i] {
		case '\\':
			i += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				i++
				for i < len(l.src) && isIdentPart(l.src[i]) {
					i++
				}
				l.pos = i
				l.emit(tokRegex, l.src[start:l.pos], start, startLine)
				return nil
			}
		}
		i++
	}
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	startLine := l.line
	i := l.pos + 1
	for {
		if i >= len(l.src) || l.src[i] == '\n' {
			return fmt.Errorf("unterminated string at line %d", startLine)
		}
		if l.src[i] == '\\' {
			i += 2
			continue
		}
		if l.src[i] == quote {
			break
		}
		i++
	}
	value := l.src[start+1 : i]
	l.pos = i + 1
	// escaped line continuations are the only newlines that survive
	l.line += strings.Count(l.src[start:l.pos], "\n")
	l.emit(tokString, value, start, startLine)
	return nil
}

func (l *lexer) lexTemplate() error {
	start := l.pos
	startLine := l.line
	dynamic := false
	i := l.pos + 1
	for {
		if i >= len(l.src) {
			return fmt.Errorf("unterminated template literal at line %d", startLine)
		}
		switch l.src[i] {
		case '\\':
			i += 2
			continue
		case '\n':
			l.line++
		case '`':
			l.pos = i + 1
			l.line = startLine + strings.Count(l.src[start:l.pos], "\n")
			l.tokens = append(l.tokens, token{
				kind: tokTemplate, text: l.src[start+1 : i],
				line: startLine, start: start, end: l.pos, dynamic: dynamic,
			})
			return nil
		case '$':
			if i+1 < len(l.src) && l.src[i+1] == '{' {
				dynamic = true
				next, err := l.skipSubstitution(i + 2)
				if err != nil {
					return err
				}
				i = next
				continue
			}
		}
		i++
	}
}

// skipSubstitution consumes a ${...} body starting just after the
// opening brace and returns the index after the closing brace.
// Strings, comments, and nested templates inside the substitution are
// skipped so their braces do not confuse the depth count.
func (l *lexer) skipSubstitution(i int) (int, error) {
	depth := 1
	for i < len(l.src) {
		switch l.src[i] {
		case '\n':
			l.line++
			i++
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i, nil
			}
		case '\'', '"':
			j, err := skipQuoted(l.src, i)
			if err != nil {
				return 0, fmt.Errorf("%v at line %d", err, l.line)
			}
			i = j
		case '`':
			j, err := skipNestedTemplate(l.src, i)
			if err != nil {
				return 0, fmt.Errorf("%v at line %d", err, l.line)
			}
			l.line += strings.Count(l.src[i:j], "\n")
			i = j
		case '/':
			if i+1 < len(l.src) && l.src[i+1] == '/' {
				for i < len(l.src) && l.src[i] != '\n' {
					i++
				}
			} else if i+1 < len(l.src) && l.src[i+1] == '*' {
				end := strings.Index(l.src[i+2:], "*/")
				if end < 0 {
					return 0, fmt.Errorf("unterminated comment at line %d", l.line)
				}
				l.line += strings.Count(l.src[i:i+2+end+2], "\n")
				i += 2 + end + 2
			} else {
				i++
			}
		default:
			i++
		}
	}
	return 0, fmt.Errorf("unterminated template substitution at line %d", l.line)
}

func skipQuoted(src string, i int) (int, error) {
	quote := src[i]
	i++
	for i < len(src) {
		if src[i] == '\\' {
			i += 2
			continue
		}
		if src[i] == quote {
			return i + 1, nil
		}
		if src[i] == '\n' {
			return 0, fmt.Errorf("unterminated string")
		}
		i++
	}
	return 0, fmt.Errorf("unterminated string")
}

func skipNestedTemplate(src string, i int) (int, error) {
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '`':
			return i + 1, nil
		case '$':
			if i+1 < len(src) && src[i+1] == '{' {
				depth := 1
				i += 2
				for i < len(src) && depth > 0 {
					switch src[i] {
					case '{':
						depth++
					case '}':
						depth--
					case '`':
						j, err := skipNestedTemplate(src, i)
						if err != nil {
							return 0, err
						}
						i = j - 1
					case '\'', '"':
						j, err := skipQuoted(src, i)
						if err != nil {
							return 0, err
						}
						i = j - 1
					}
					i++
				}
				continue
			}
		}
		i++
	}
	return 0, fmt.Errorf("unterminated template literal")
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	l.emit(tokIdent, l.src[start:l.pos], start, l.line)
}

func (l *lexer) lexNumber() {
	start := l.pos
	if l.src[l.pos] == '0' && l.pos+1 < len(l.src) &&
		(l.src[l.pos+1] == 'x' || l.src[l.pos+1] == 'X' ||
			l.src[l.pos+1] == 'b' || l.src[l.pos+1] == 'B' ||
			l.src[l.pos+1] == 'o' || l.src[l.pos+1] == 'O') {
		l.pos += 2
		for l.pos < len(l.src) && (isAlnum(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		l.emit(tokNumber, l.src[start:l.pos], start, l.line)
		return
	}
	digits := func() {
		for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '_') {
			l.pos++
		}
	}
	digits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' &&
		l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
		l.pos++
		digits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		digits()
	}
	if l.pos < len(l.src) && l.src[l.pos] == 'n' {
		l.pos++
	}
	l.emit(tokNumber, l.src[start:l.pos], start, l.line)
}

func (l *lexer) lexPunct() error {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			start := l.pos
			l.pos += len(op)
			l.emit(tokPunct, op, start, l.line)
			return nil
		}
	}
	c := l.src[l.pos]
	if strings.IndexByte(singlePunct, c) < 0 {
		return fmt.Errorf("unexpected character %q at line %d", c, l.line)
	}
	switch c {
	case '(':
		l.parens++
	case ')':
		l.parens--
	case '{':
		l.braces++
	case '}':
		l.braces--
	case '[':
		l.brackets++
	case ']':
		l.brackets--
	}
	if l.parens < 0 || l.braces < 0 || l.brackets < 0 {
		return fmt.Errorf("unbalanced %q at line %d", c, l.line)
	}
	start := l.pos
	l.pos++
	l.emit(tokPunct, string(c), start, l.line)
	return nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isIdentPart(c)
}
