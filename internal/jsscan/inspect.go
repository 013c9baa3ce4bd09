package jsscan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MSB-Labs/prevet/internal/audit"
)

// InspectResult is the outcome of analyzing one file on its own,
// with parse metadata and no fallback.
type InspectResult struct {
	FilePath   string                `json:"file_path"`
	SourceKind string                `json:"source_kind"`
	LineCount  int                   `json:"line_count"`
	Parsed     bool                  `json:"parsed"`
	ParseError string                `json:"parse_error,omitempty"`
	Findings   []audit.SourceFinding `json:"findings"`
}

// InspectFile runs the tokenizing analyzer over a single file. Used
// by inspection tooling; a parse failure is reported in the result,
// not degraded to the fallback scanner.
func InspectFile(path string) (*InspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	src := string(data)
	res := &InspectResult{
		FilePath:   path,
		SourceKind: sourceKindFor(path),
		LineCount:  strings.Count(src, "\n") + 1,
		Findings:   []audit.SourceFinding{},
	}
	findings, err := AnalyzeSource(filepath.Base(path), src)
	if err != nil {
		if errors.Is(err, ErrParseFailed) {
			res.ParseError = err.Error()
			return res, nil
		}
		return nil, err
	}
	res.Parsed = true
	if findings != nil {
		res.Findings = findings
	}
	return res, nil
}

func sourceKindFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return "TypeScript"
	case ".tsx":
		return "TypeScript JSX"
	case ".jsx":
		return "JavaScript JSX"
	case ".mjs":
		return "ES Module"
	case ".cjs":
		return "CommonJS Module"
	default:
		return "JavaScript"
	}
}
