package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MSB-Labs/prevet/internal/audit"
	"github.com/MSB-Labs/prevet/internal/jsscan"
	"github.com/MSB-Labs/prevet/internal/manifest"
	"github.com/MSB-Labs/prevet/internal/sandbox"
)

// Pipeline audits one package at a time: sandboxed install, manifest
// analysis, source scan, chain detection, scoring. Each audit uses
// its own scratch directory, released before Audit returns.
type Pipeline struct {
	Manager string
	Timeout time.Duration
	Catalog *manifest.Catalog
}

// NewPipeline builds a pipeline with the default catalog when nil
func NewPipeline(manager string, timeout time.Duration, catalog *manifest.Catalog) *Pipeline {
	if catalog == nil {
		catalog = manifest.DefaultCatalog()
	}
	if manager == "" {
		manager = "npm"
	}
	return &Pipeline{Manager: manager, Timeout: timeout, Catalog: catalog}
}

// Audit implements Auditor
func (p *Pipeline) Audit(ctx context.Context, pkg string) (*audit.PackageAudit, error) {
	sb, err := sandbox.New(&sandbox.Config{Manager: p.Manager, Timeout: p.Timeout})
	if err != nil {
		return nil, err
	}
	defer sb.Remove()

	if err := sb.Install(ctx, pkg); err != nil {
		return nil, err
	}

	dir, err := sb.PackageDir(pkg)
	if err != nil {
		return nil, err
	}

	m, err := manifest.ReadManifest(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("manifest analysis failed for %s: %w", pkg, err)
	}

	a := audit.NewPackageAudit(pkg)
	m.Apply(a, p.Catalog)

	files, err := sandbox.ListSourceFiles(dir, nil)
	if err == nil {
		p.scanFiles(a, sb.Dir, files)
	}

	audit.DetectChains(a)
	audit.Finalize(a)
	return a, nil
}

// scanFiles runs the source analyzer over every listed file, falling
// back per file when parsing fails. Unreadable files are skipped.
func (p *Pipeline) scanFiles(a *audit.PackageAudit, root string, files []string) {
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		rel := strings.TrimPrefix(path, root+string(filepath.Separator))
		findings, _ := jsscan.ScanSource(filepath.ToSlash(rel), string(data))
		a.SourceFindings = append(a.SourceFindings, findings...)
	}
}
