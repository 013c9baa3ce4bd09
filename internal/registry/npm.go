// Package registry is a thin npm registry client used for metadata
// prechecks before anything is installed.
package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
)

const npmRegistryURL = "https://registry.npmjs.org"

// Client handles communication with the npm registry
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// PackageInfo represents package metadata from the npm registry
type PackageInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	DistTags    map[string]string      `json:"dist-tags"`
	Versions    map[string]VersionInfo `json:"versions"`
}

// VersionInfo represents a specific version's metadata
type VersionInfo struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
	Dist            Dist              `json:"dist"`
}

// Dist contains distribution information
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity"`
}

// NewClient creates a new npm registry client
func NewClient() *Client {
	return &Client{
		baseURL: npmRegistryURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a client against a custom registry,
// used for private registries and tests.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// GetPackageInfo fetches package metadata using the abbreviated
// metadata format, which is much smaller than the full response
// (critical for packages like @types/node with thousands of versions).
func (c *Client) GetPackageInfo(packageName string) (*PackageInfo, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, packageName)

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", packageName, err)
	}
	// Abbreviated metadata: only version keys, dist-tags, and deps.
	req.Header.Set("Accept", "application/vnd.npm.install-v1+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch package %s: %w", packageName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("package %s not found", packageName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npm registry returned status %d for %s", resp.StatusCode, packageName)
	}

	var info PackageInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse npm response for %s: %w", packageName, err)
	}
	return &info, nil
}

// GetVersionInfo fetches metadata for a specific version or dist-tag
func (c *Client) GetVersionInfo(packageName, version string) (*VersionInfo, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, packageName, version)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s@%s: %w", packageName, version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("version %s@%s not found", packageName, version)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npm registry returned status %d for %s@%s", resp.StatusCode, packageName, version)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse npm response for %s@%s: %w", packageName, version, err)
	}
	return &info, nil
}

// GetLatestVersion returns the latest version by fetching only that
// dist-tag instead of the full package metadata.
func (c *Client) GetLatestVersion(packageName string) (string, error) {
	info, err := c.GetVersionInfo(packageName, "latest")
	if err != nil {
		return "", fmt.Errorf("no latest version found for %s: %w", packageName, err)
	}
	return info.Version, nil
}

// ResolveVersion resolves a version spec against the registry: an
// exact version is returned as-is, a dist-tag or empty spec resolves
// through dist-tags, and a semver range picks the highest matching
// stable version.
func (c *Client) ResolveVersion(packageName, spec string) (string, error) {
	if spec == "" || spec == "latest" || spec == "*" {
		return c.GetLatestVersion(packageName)
	}
	if _, err := semver.StrictNewVersion(spec); err == nil {
		return spec, nil
	}

	constraint, err := semver.NewConstraint(spec)
	if err != nil {
		// not a range either, try it as a dist-tag
		info, tagErr := c.GetVersionInfo(packageName, spec)
		if tagErr != nil {
			return "", fmt.Errorf("cannot resolve %s@%s: %w", packageName, spec, tagErr)
		}
		return info.Version, nil
	}

	info, err := c.GetPackageInfo(packageName)
	if err != nil {
		return "", err
	}

	var matching semver.Collection
	for raw := range info.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil || v.Prerelease() != "" {
			continue
		}
		if constraint.Check(v) {
			matching = append(matching, v)
		}
	}
	if len(matching) == 0 {
		return "", fmt.Errorf("no version of %s satisfies %s", packageName, spec)
	}
	sort.Sort(matching)
	return matching[len(matching)-1].String(), nil
}

// HasInstallScripts reports whether a version declares lifecycle
// scripts that would run on install.
func (v *VersionInfo) HasInstallScripts() bool {
	riskyScripts := []string{"preinstall", "install", "postinstall", "preuninstall", "postuninstall"}
	for _, script := range riskyScripts {
		if _, exists := v.Scripts[script]; exists {
			return true
		}
	}
	return false
}
