// Package scanner walks a package's dependency graph breadth-first,
// auditing every package once up to a depth bound.
package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/MSB-Labs/prevet/internal/audit"
	"github.com/MSB-Labs/prevet/internal/sandbox"
)

// DefaultMaxDepth bounds transitive scans unless overridden
const DefaultMaxDepth = 2

// Auditor produces a complete audit for one package spec
type Auditor interface {
	Audit(ctx context.Context, pkg string) (*audit.PackageAudit, error)
}

// ProgressSink receives incremental scan events
type ProgressSink interface {
	Progress(pkg string, depth int)
	Warn(pkg string, err error)
}

// NopSink discards all progress events
type NopSink struct{}

func (NopSink) Progress(string, int) {}
func (NopSink) Warn(string, error)   {}

// Scanner runs depth-bounded transitive audits
type Scanner struct {
	auditor  Auditor
	maxDepth int
	sink     ProgressSink

	mu      sync.Mutex
	visited map[string]bool
}

// New creates a scanner. Depth 0 means the root package only. A nil
// sink is replaced with NopSink.
func New(auditor Auditor, maxDepth int, sink ProgressSink) *Scanner {
	if sink == nil {
		sink = NopSink{}
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Scanner{
		auditor:  auditor,
		maxDepth: maxDepth,
		sink:     sink,
		visited:  make(map[string]bool),
	}
}

type queueItem struct {
	name  string
	depth int
}

// markVisited records a package name once; the second caller loses.
// Dedup is by name only, so two versions of the same package are
// scanned once. That under-scan is accepted and kept visible here.
func (s *Scanner) markVisited(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visited[name] {
		return false
	}
	s.visited[name] = true
	return true
}

// Scan audits the root package and its dependencies breadth-first up
// to the configured depth. Individual package failures are recorded
// and skipped; only failure to create scratch storage aborts.
func (s *Scanner) Scan(ctx context.Context, root string) (*audit.TransitiveScanResult, error) {
	result := audit.NewTransitiveScanResult()
	queue := []queueItem{{name: root, depth: 0}}
	s.markVisited(root)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item := queue[0]
		queue = queue[1:]

		result.TotalPackages++
		if item.depth > result.MaxDepthReached {
			result.MaxDepthReached = item.depth
		}
		s.sink.Progress(item.name, item.depth)

		a, err := s.auditor.Audit(ctx, item.name)
		if err != nil {
			if errors.Is(err, sandbox.ErrScratch) {
				return result, err
			}
			s.sink.Warn(item.name, err)
			result.Failed = append(result.Failed, audit.FailedPackage{
				Name:   item.name,
				Reason: err.Error(),
			})
			continue
		}

		result.ScannedPackages++
		result.RiskCounts.Add(a.RiskLevel)
		if a.HasScripts {
			result.PackagesWithScripts++
		}
		result.PackageAudits[item.name] = a

		if item.depth < s.maxDepth {
			deps := append([]string{}, a.Dependencies...)
			sort.Strings(deps)
			for _, dep := range deps {
				if s.markVisited(dep) {
					queue = append(queue, queueItem{name: dep, depth: item.depth + 1})
				}
			}
		}
	}
	return result, nil
}
