package core

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with npm-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name in the format the registry expects.
// packageurl-go keeps @ in the namespace, so "@babel" + "/" + "core" = "@babel/core".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:npm/left-pad) and version PURLs
// (pkg:npm/left-pad@1.3.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	if p.Type != "npm" {
		return nil, fmt.Errorf("unsupported purl type %q", p.Type)
	}
	return &PURL{p}, nil
}

// RegistryOverride returns the repository_url qualifier if the PURL carries
// one, for packages published to a private registry.
func (p PURL) RegistryOverride() string {
	return p.Qualifiers.Map()["repository_url"]
}
