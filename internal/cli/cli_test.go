package cli

import (
	"testing"

	"github.com/MSB-Labs/prevet/internal/audit"
)

func TestParsePackageArg_RegularPackage(t *testing.T) {
	name, version := parsePackageArg("lodash")
	if name != "lodash" {
		t.Errorf("name = %q, want %q", name, "lodash")
	}
	if version != "latest" {
		t.Errorf("version = %q, want %q", version, "latest")
	}
}

func TestParsePackageArg_WithVersion(t *testing.T) {
	name, version := parsePackageArg("lodash@4.17.21")
	if name != "lodash" {
		t.Errorf("name = %q, want %q", name, "lodash")
	}
	if version != "4.17.21" {
		t.Errorf("version = %q, want %q", version, "4.17.21")
	}
}

func TestParsePackageArg_ScopedPackage(t *testing.T) {
	name, version := parsePackageArg("@types/node")
	if name != "@types/node" {
		t.Errorf("name = %q, want %q", name, "@types/node")
	}
	if version != "latest" {
		t.Errorf("version = %q, want %q", version, "latest")
	}
}

func TestParsePackageArg_ScopedWithVersion(t *testing.T) {
	name, version := parsePackageArg("@types/node@18.0.0")
	if name != "@types/node" {
		t.Errorf("name = %q, want %q", name, "@types/node")
	}
	if version != "18.0.0" {
		t.Errorf("version = %q, want %q", version, "18.0.0")
	}
}

func TestParsePackageArg_VersionRange(t *testing.T) {
	name, version := parsePackageArg("express@^4.0.0")
	if name != "express" {
		t.Errorf("name = %q, want %q", name, "express")
	}
	if version != "^4.0.0" {
		t.Errorf("version = %q, want %q", version, "^4.0.0")
	}
}

func TestConfirmInstall_SafeNeverPrompts(t *testing.T) {
	orig := ask
	defer func() { ask = orig }()

	prompted := false
	ask = func(string, bool) bool {
		prompted = true
		return false
	}

	a := audit.NewPackageAudit("left-pad")
	if !confirmInstall(a) {
		t.Error("confirmInstall = false for a SAFE package, want true")
	}
	if prompted {
		t.Error("SAFE package triggered a prompt")
	}
}

func TestConfirmInstall_CriticalDefaultsToNo(t *testing.T) {
	orig := ask
	defer func() { ask = orig }()

	var gotDefault bool
	ask = func(_ string, defaultYes bool) bool {
		gotDefault = defaultYes
		return defaultYes
	}

	a := audit.NewPackageAudit("evil-pkg")
	a.RiskLevel = audit.RiskCritical
	if confirmInstall(a) {
		t.Error("confirmInstall = true for CRITICAL with default answer, want false")
	}
	if gotDefault {
		t.Error("CRITICAL prompt defaulted to yes, want no")
	}
}

func TestConfirmInstall_LowDefaultsToYes(t *testing.T) {
	orig := ask
	defer func() { ask = orig }()

	var gotDefault bool
	ask = func(_ string, defaultYes bool) bool {
		gotDefault = defaultYes
		return defaultYes
	}

	a := audit.NewPackageAudit("mostly-fine")
	a.RiskLevel = audit.RiskLow
	if !confirmInstall(a) {
		t.Error("confirmInstall = false for LOW with default answer, want true")
	}
	if !gotDefault {
		t.Error("LOW prompt defaulted to no, want yes")
	}
}

func TestPassesUnprompted(t *testing.T) {
	a := audit.NewPackageAudit("pkg")

	a.RiskLevel = audit.RiskSafe
	if !passesUnprompted(a) {
		t.Error("SAFE should pass without a prompt")
	}
	a.RiskLevel = audit.RiskLow
	if !passesUnprompted(a) {
		t.Error("LOW should pass without a prompt")
	}
	a.RiskLevel = audit.RiskMedium
	if passesUnprompted(a) {
		t.Error("MEDIUM should not pass without a prompt")
	}
	a.RiskLevel = audit.RiskCritical
	if passesUnprompted(a) {
		t.Error("CRITICAL should not pass without a prompt")
	}
}

func TestLifecycleScripts_Order(t *testing.T) {
	scripts := map[string]string{
		"postinstall": "node setup.js",
		"preinstall":  "node check.js",
		"test":        "jest",
	}
	got := lifecycleScripts(scripts)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != "preinstall" || got[1] != "postinstall" {
		t.Errorf("order = %v, want [preinstall postinstall]", got)
	}
}

func TestLifecycleScripts_NoneInstallTime(t *testing.T) {
	scripts := map[string]string{"build": "tsc", "test": "jest"}
	if got := lifecycleScripts(scripts); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestFailAboveFlag_DefaultValue(t *testing.T) {
	f := scanCmd.Flags().Lookup("fail-above")
	if f == nil {
		t.Fatal("--fail-above flag not registered on scan command")
	}
	if f.DefValue != "-1" {
		t.Errorf("default = %q, want %q", f.DefValue, "-1")
	}
}

func TestDepthFlag_DefaultValue(t *testing.T) {
	f := scanCmd.Flags().Lookup("depth")
	if f == nil {
		t.Fatal("--depth flag not registered on scan command")
	}
	if f.DefValue != "2" {
		t.Errorf("default = %q, want %q", f.DefValue, "2")
	}
}
