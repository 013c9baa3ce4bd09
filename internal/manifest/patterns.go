package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MSB-Labs/prevet/internal/audit"
)

// PatternCheck is one substring check run over install-script text
type PatternCheck struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// Catalog holds the checks applied to lifecycle scripts
type Catalog struct {
	Version  string
	Patterns []PatternCheck
}

// ParseCatalog parses YAML pattern definitions
func ParseCatalog(data []byte) (*Catalog, error) {
	var config struct {
		Version  string         `yaml:"version"`
		Patterns []PatternCheck `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse pattern catalog: %w", err)
	}
	return &Catalog{
		Version:  config.Version,
		Patterns: config.Patterns,
	}, nil
}

// LoadCatalogFromFile loads a pattern catalog from a YAML file
func LoadCatalogFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in pattern catalog
func DefaultCatalog() *Catalog {
	catalog, _ := ParseCatalog([]byte(DefaultPatternsYAML))
	return catalog
}

// Match runs every check over the script text and returns one
// suspicious pattern per matching check.
func (c *Catalog) Match(script string) []audit.SuspiciousPattern {
	var out []audit.SuspiciousPattern
	for _, check := range c.Patterns {
		if strings.Contains(script, check.Pattern) {
			out = append(out, audit.SuspiciousPattern{
				Name:   check.Pattern,
				Reason: check.Reason,
			})
		}
	}
	return out
}
