package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	server := httptest.NewServer(handler)
	client := NewClientWithBaseURL(server.URL)
	client.httpClient = server.Client()
	return client, server.Close
}

func registryHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	pkg := PackageInfo{
		Name:     "left-pad",
		DistTags: map[string]string{"latest": "1.3.0"},
		Versions: map[string]VersionInfo{
			"1.0.0":        {Name: "left-pad", Version: "1.0.0"},
			"1.2.0":        {Name: "left-pad", Version: "1.2.0"},
			"1.3.0":        {Name: "left-pad", Version: "1.3.0"},
			"2.0.0-beta.1": {Name: "left-pad", Version: "2.0.0-beta.1"},
		},
	}
	latest := VersionInfo{
		Name:    "left-pad",
		Version: "1.3.0",
		Scripts: map[string]string{"postinstall": "node hook.js"},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/left-pad":
			if r.Header.Get("Accept") != "application/vnd.npm.install-v1+json" {
				t.Errorf("Accept header = %q, want abbreviated metadata", r.Header.Get("Accept"))
			}
			json.NewEncoder(w).Encode(pkg)
		case "/left-pad/latest", "/left-pad/1.3.0":
			json.NewEncoder(w).Encode(latest)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestGetPackageInfo(t *testing.T) {
	client, cleanup := newTestClient(registryHandler(t))
	defer cleanup()

	info, err := client.GetPackageInfo("left-pad")
	if err != nil {
		t.Fatalf("GetPackageInfo returned error: %v", err)
	}
	if info.Name != "left-pad" {
		t.Errorf("Name = %q, want %q", info.Name, "left-pad")
	}
	if len(info.Versions) != 4 {
		t.Errorf("Versions count = %d, want 4", len(info.Versions))
	}
}

func TestGetPackageInfo_NotFound(t *testing.T) {
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer cleanup()

	if _, err := client.GetPackageInfo("nope"); err == nil {
		t.Error("expected error for missing package")
	}
}

func TestGetLatestVersion(t *testing.T) {
	client, cleanup := newTestClient(registryHandler(t))
	defer cleanup()

	v, err := client.GetLatestVersion("left-pad")
	if err != nil {
		t.Fatalf("GetLatestVersion returned error: %v", err)
	}
	if v != "1.3.0" {
		t.Errorf("version = %q, want %q", v, "1.3.0")
	}
}

func TestResolveVersion(t *testing.T) {
	client, cleanup := newTestClient(registryHandler(t))
	defer cleanup()

	tests := []struct {
		spec string
		want string
	}{
		{"", "1.3.0"},
		{"latest", "1.3.0"},
		{"*", "1.3.0"},
		{"1.2.0", "1.2.0"},
		{"^1.0.0", "1.3.0"},
		{"~1.2.0", "1.2.0"},
		{">=1.0.0 <1.3.0", "1.2.0"},
	}
	for _, tt := range tests {
		got, err := client.ResolveVersion("left-pad", tt.spec)
		if err != nil {
			t.Errorf("ResolveVersion(%q) returned error: %v", tt.spec, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveVersion(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestResolveVersion_SkipsPrereleases(t *testing.T) {
	client, cleanup := newTestClient(registryHandler(t))
	defer cleanup()

	got, err := client.ResolveVersion("left-pad", ">=1.0.0")
	if err != nil {
		t.Fatalf("ResolveVersion returned error: %v", err)
	}
	if got != "1.3.0" {
		t.Errorf("ResolveVersion = %q, want stable 1.3.0 over 2.0.0-beta.1", got)
	}
}

func TestResolveVersion_NoMatch(t *testing.T) {
	client, cleanup := newTestClient(registryHandler(t))
	defer cleanup()

	if _, err := client.ResolveVersion("left-pad", "^9.0.0"); err == nil {
		t.Error("expected error for unsatisfiable range")
	}
}

func TestHasInstallScripts(t *testing.T) {
	v := &VersionInfo{Scripts: map[string]string{"test": "jest"}}
	if v.HasInstallScripts() {
		t.Error("test script counted as install script")
	}
	v.Scripts["postinstall"] = "node hook.js"
	if !v.HasInstallScripts() {
		t.Error("postinstall not detected")
	}
}
