// Package npm provides a descriptor client for npm-compatible registries.
package npm

import (
	"context"
	"strings"

	"github.com/node-pkgs/pkgtree/client"
	"github.com/node-pkgs/pkgtree/internal/core"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// Registry fetches package descriptors from one npm-compatible registry.
type Registry struct {
	baseURL string
	client  *core.Client
}

// New creates a registry client. An empty baseURL selects the public
// registry; a nil client selects core.DefaultClient().
func New(baseURL string, c *core.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = core.DefaultClient()
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  c,
	}
}

// BaseURL returns the registry base URL the client was built with.
func (r *Registry) BaseURL() string {
	return r.baseURL
}

// descriptorResponse decodes only the fields needed to locate and verify
// tarballs. Everything else in the document is ignored.
type descriptorResponse struct {
	Name     string                 `json:"name"`
	DistTags map[string]string      `json:"dist-tags"`
	Versions map[string]versionInfo `json:"versions"`
}

type versionInfo struct {
	Dist distInfo `json:"dist"`
}

type distInfo struct {
	Shasum    string `json:"shasum"`
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
}

// FetchDescriptor retrieves the descriptor document for a package.
func (r *Registry) FetchDescriptor(ctx context.Context, name string) (*core.Descriptor, error) {
	url := client.DescriptorURL(r.baseURL, name)

	var resp descriptorResponse
	if err := r.client.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*core.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Name: name}
		}
		return nil, err
	}

	desc := &core.Descriptor{
		Name:     resp.Name,
		DistTags: resp.DistTags,
		Versions: make(map[string]core.VersionRecord, len(resp.Versions)),
	}
	if desc.Name == "" {
		desc.Name = name
	}
	for num, v := range resp.Versions {
		desc.Versions[num] = core.VersionRecord{
			Dist: core.Dist{
				Tarball:   v.Dist.Tarball,
				Shasum:    v.Dist.Shasum,
				Integrity: v.Dist.Integrity,
			},
		}
	}

	return desc, nil
}

// TarballURL returns the registry-convention download URL for a version,
// used when a descriptor record carries no dist.tarball.
func (r *Registry) TarballURL(name, version string) string {
	return client.TarballURL(r.baseURL, name, version)
}
