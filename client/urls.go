package client

import (
	"fmt"
	"net/url"
	"strings"
)

// DescriptorURL returns the registry URL for a package's descriptor document.
// Scoped names are path-escaped so "@scope/name" becomes "@scope%2Fname".
func DescriptorURL(baseURL, name string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), url.PathEscape(name))
}

// TarballURL returns the registry-convention download URL for a package
// version: <base>/<name>/-/<short-name>-<version>.tgz. Scoped packages keep
// the scope in the path but drop it from the file name.
func TarballURL(baseURL, name, version string) string {
	if version == "" {
		return ""
	}
	shortName := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		shortName = name[idx+1:]
	}
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", strings.TrimSuffix(baseURL, "/"), name, shortName, version)
}
