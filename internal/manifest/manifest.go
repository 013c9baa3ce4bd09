// Package manifest reads package.json files and checks their
// lifecycle scripts against a catalog of suspicious patterns.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/MSB-Labs/prevet/internal/audit"
)

// Manifest is the subset of package.json the auditor cares about
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Parse decodes package.json content
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}
	return &m, nil
}

// ReadManifest loads and parses a package.json from disk
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// DependencyNames returns the sorted names of runtime dependencies
func (m *Manifest) DependencyNames() []string {
	return sortedKeys(m.Dependencies)
}

// DevDependencyNames returns the sorted names of dev dependencies
func (m *Manifest) DevDependencyNames() []string {
	return sortedKeys(m.DevDependencies)
}

// Apply fills the manifest-derived fields of an audit: lifecycle
// scripts, dependency name lists, and suspicious patterns matched
// against the concatenated script text.
func (m *Manifest) Apply(a *audit.PackageAudit, catalog *Catalog) {
	a.HasScripts = len(m.Scripts) > 0
	a.Preinstall = m.Scripts["preinstall"]
	a.Install = m.Scripts["install"]
	a.Postinstall = m.Scripts["postinstall"]
	a.Dependencies = m.DependencyNames()
	a.DevDependencies = m.DevDependencyNames()

	scripts := strings.Join([]string{a.Preinstall, a.Install, a.Postinstall}, "\n")
	if strings.TrimSpace(scripts) != "" {
		a.SuspiciousPatterns = append(a.SuspiciousPatterns, catalog.Match(scripts)...)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
