package scanner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/MSB-Labs/prevet/internal/audit"
	"github.com/MSB-Labs/prevet/internal/sandbox"
)

// fakeAuditor serves canned audits from a dependency graph
type fakeAuditor struct {
	graph  map[string][]string
	failed map[string]error
	calls  []string
}

func (f *fakeAuditor) Audit(_ context.Context, pkg string) (*audit.PackageAudit, error) {
	f.calls = append(f.calls, pkg)
	if err, ok := f.failed[pkg]; ok {
		return nil, err
	}
	a := audit.NewPackageAudit(pkg)
	a.Dependencies = append([]string{}, f.graph[pkg]...)
	audit.Finalize(a)
	return a, nil
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Progress(pkg string, depth int) {
	r.events = append(r.events, fmt.Sprintf("%s@%d", pkg, depth))
}

func (r *recordingSink) Warn(pkg string, err error) {
	r.events = append(r.events, "warn:"+pkg)
}

func chainGraph() map[string][]string {
	return map[string][]string{
		"root": {"a"},
		"a":    {"b"},
		"b":    {"c"},
		"c":    {},
	}
}

func TestScan_DepthZero(t *testing.T) {
	f := &fakeAuditor{graph: chainGraph()}
	s := New(f, 0, nil)

	result, err := s.Scan(context.Background(), "root")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.TotalPackages != 1 || result.ScannedPackages != 1 {
		t.Errorf("total = %d, scanned = %d, want 1 and 1",
			result.TotalPackages, result.ScannedPackages)
	}
	if _, ok := result.PackageAudits["root"]; !ok {
		t.Error("root missing from package_audits")
	}
	if len(result.PackageAudits) != 1 {
		t.Errorf("audits = %d, want root only", len(result.PackageAudits))
	}
}

func TestScan_DepthTwo(t *testing.T) {
	f := &fakeAuditor{graph: chainGraph()}
	s := New(f, 2, nil)

	result, err := s.Scan(context.Background(), "root")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	for _, name := range []string{"root", "a", "b"} {
		if _, ok := result.PackageAudits[name]; !ok {
			t.Errorf("%s missing from package_audits", name)
		}
	}
	if _, ok := result.PackageAudits["c"]; ok {
		t.Error("c audited beyond the depth bound")
	}
	if result.MaxDepthReached != 2 {
		t.Errorf("MaxDepthReached = %d, want 2", result.MaxDepthReached)
	}
	if result.ScannedPackages > result.TotalPackages {
		t.Errorf("scanned %d > total %d", result.ScannedPackages, result.TotalPackages)
	}
}

func TestScan_SharedDependencyAuditedOnce(t *testing.T) {
	f := &fakeAuditor{graph: map[string][]string{
		"root":   {"left", "right"},
		"left":   {"shared"},
		"right":  {"shared"},
		"shared": {},
	}}
	s := New(f, 3, nil)

	result, err := s.Scan(context.Background(), "root")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	seen := map[string]int{}
	for _, c := range f.calls {
		seen[c]++
	}
	if seen["shared"] != 1 {
		t.Errorf("shared audited %d times, want 1", seen["shared"])
	}
	if result.TotalPackages != 4 {
		t.Errorf("TotalPackages = %d, want 4", result.TotalPackages)
	}
}

func TestScan_FailedPackageCountedNotScanned(t *testing.T) {
	f := &fakeAuditor{
		graph:  chainGraph(),
		failed: map[string]error{"a": errors.New("manifest parse failed")},
	}
	sink := &recordingSink{}
	s := New(f, 2, sink)

	result, err := s.Scan(context.Background(), "root")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.TotalPackages != 2 {
		t.Errorf("TotalPackages = %d, want 2 (root and a)", result.TotalPackages)
	}
	if result.ScannedPackages != 1 {
		t.Errorf("ScannedPackages = %d, want 1", result.ScannedPackages)
	}
	if len(result.Failed) != 1 || result.Failed[0].Name != "a" {
		t.Errorf("Failed = %+v, want one entry for a", result.Failed)
	}
	found := false
	for _, e := range sink.events {
		if e == "warn:a" {
			found = true
		}
	}
	if !found {
		t.Errorf("sink events = %v, missing warn for a", sink.events)
	}
}

func TestScan_ScratchFailureAborts(t *testing.T) {
	f := &fakeAuditor{
		graph:  chainGraph(),
		failed: map[string]error{"root": fmt.Errorf("%w: disk full", sandbox.ErrScratch)},
	}
	s := New(f, 2, nil)

	_, err := s.Scan(context.Background(), "root")
	if !errors.Is(err, sandbox.ErrScratch) {
		t.Errorf("err = %v, want ErrScratch", err)
	}
}

func TestScan_Deterministic(t *testing.T) {
	graph := map[string][]string{
		"root": {"zeta", "alpha", "mid"},
		"zeta": {}, "alpha": {}, "mid": {},
	}
	run := func() []string {
		f := &fakeAuditor{graph: graph}
		sink := &recordingSink{}
		s := New(f, 1, sink)
		if _, err := s.Scan(context.Background(), "root"); err != nil {
			t.Fatalf("Scan returned error: %v", err)
		}
		return sink.events
	}
	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("order varies between runs: %v vs %v", got, first)
		}
	}
	want := []string{"root@0", "alpha@1", "mid@1", "zeta@1"}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("events = %v, want %v", first, want)
	}
}

func TestScan_RiskCounts(t *testing.T) {
	f := &fakeAuditor{graph: map[string][]string{"root": {}}}
	s := New(f, 0, nil)

	result, err := s.Scan(context.Background(), "root")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.RiskCounts.Safe != 1 {
		t.Errorf("Safe count = %d, want 1", result.RiskCounts.Safe)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeAuditor{graph: chainGraph()}
	s := New(f, 2, nil)

	_, err := s.Scan(ctx, "root")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
