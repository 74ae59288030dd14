package fetch

import (
	"github.com/node-pkgs/pkgtree/client"
	"github.com/node-pkgs/pkgtree/internal/core"
)

const defaultRegistryURL = "https://registry.npmjs.org"

// Resolver determines download URLs for package tarballs.
type Resolver struct {
	baseURL string
}

// NewResolver creates a resolver that falls back to registry-convention URLs
// rooted at baseURL when a descriptor record carries no dist.tarball. An
// empty baseURL selects the public npm registry.
func NewResolver(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = defaultRegistryURL
	}
	return &Resolver{baseURL: baseURL}
}

// ArtifactInfo contains information about a downloadable tarball.
type ArtifactInfo struct {
	URL       string
	Filename  string // cache entry name, <sanitized-name>@<version>.tgz
	Shasum    string // hex sha1, may be empty
	Integrity string // sha512-... or sha1-..., may be empty
}

// Resolve returns the download URL and cache filename for a package version.
// The version must be a key of the descriptor's Versions map; the published
// dist.tarball URL is preferred over the convention URL and is used exactly
// as published, whatever its scheme.
func (r *Resolver) Resolve(desc *core.Descriptor, version string) (*ArtifactInfo, error) {
	rec, err := desc.Record(version)
	if err != nil {
		return nil, err
	}

	url := rec.Dist.Tarball
	if url == "" {
		url = client.TarballURL(r.baseURL, desc.Name, version)
	}

	return &ArtifactInfo{
		URL:       url,
		Filename:  CacheFileName(desc.Name, version),
		Shasum:    rec.Dist.Shasum,
		Integrity: rec.Dist.Integrity,
	}, nil
}
