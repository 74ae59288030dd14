// Package pkgtree downloads npm package tarballs into a local cache,
// installs them into a node_modules dependency tree, strips files that serve
// no purpose in an installed tree, and packs the tree into a single archive
// for faster restores.
//
// Basic usage:
//
//	registry := pkgtree.NewRegistry("", pkgtree.DefaultClient())
//	fetcher := pkgtree.NewFetcher()
//	ins := pkgtree.NewInstaller(registry, fetcher, cacheDir, treeRoot)
//
//	results := ins.Install(ctx, []pkgtree.Request{
//		{Name: "left-pad", Spec: "1.3.0"},
//		{Name: "@babel/core"},
//	})
//	if err := results.Err(); err != nil {
//		log.Fatal(err)
//	}
//
// To shrink the tree and produce a single-file archive next to it:
//
//	filter := pkgtree.NewFilter(pkgtree.MustCompile(pkgtree.DefaultPatterns()))
//	report, err := filter.Clean(treeRoot)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := pkgtree.Pack(treeRoot, packPath); err != nil {
//		log.Fatal(err)
//	}
//
// The subpackages client, fetch, extract, compact and install expose the
// full surface; this package re-exports the types and constructors most
// programs need.
package pkgtree

import (
	"github.com/node-pkgs/pkgtree/client"
	"github.com/node-pkgs/pkgtree/compact"
	"github.com/node-pkgs/pkgtree/extract"
	"github.com/node-pkgs/pkgtree/fetch"
	"github.com/node-pkgs/pkgtree/install"
	"github.com/node-pkgs/pkgtree/internal/core"
	"github.com/node-pkgs/pkgtree/internal/npm"
)

// Re-export types from internal/core
type (
	// Descriptor is the registry record for a package: its dist-tags and the
	// dist fields of every published version.
	Descriptor = core.Descriptor

	// VersionRecord holds the per-version descriptor fields.
	VersionRecord = core.VersionRecord

	// Dist locates a version's tarball and carries its published digests.
	Dist = core.Dist

	// PURL represents a parsed Package URL.
	PURL = core.PURL
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// RateLimiter controls request pacing.
	RateLimiter = client.RateLimiter
)

// Re-export errors
var (
	ErrNotFound     = core.ErrNotFound
	ErrRateLimited  = fetch.ErrRateLimited
	ErrUpstreamDown = fetch.ErrUpstreamDown
	ErrUnsafePath   = extract.ErrUnsafePath
)

// Error types
type (
	HTTPError          = client.HTTPError
	NotFoundError      = core.NotFoundError
	RateLimitError     = client.RateLimitError
	IntegrityError     = fetch.IntegrityError
	ArchiveFormatError = extract.ArchiveFormatError
	EntryError         = compact.EntryError
)

// Registry fetches package descriptors from an npm-compatible endpoint.
type Registry = npm.Registry

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = npm.DefaultURL

// NewRegistry creates a registry client. If baseURL is empty, the public npm
// registry is used. If c is nil, DefaultClient() is used.
func NewRegistry(baseURL string, c *Client) *Registry {
	return npm.New(baseURL, c)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// Fetcher downloads package tarballs into the cache.
type Fetcher = fetch.Fetcher

// FetchOption configures a Fetcher.
type FetchOption = fetch.Option

// NewFetcher creates a tarball fetcher with retry, backoff and DNS caching.
func NewFetcher(opts ...FetchOption) *Fetcher {
	return fetch.NewFetcher(opts...)
}

// Downloader is the artifact download surface the installer consumes.
// *fetch.Fetcher and *fetch.CircuitBreakerFetcher both satisfy it.
type Downloader = fetch.Downloader

// NewCircuitBreakerFetcher wraps a Fetcher with per-registry-host circuit
// breaking, keeping one unreachable registry from stalling every download.
var NewCircuitBreakerFetcher = fetch.NewCircuitBreakerFetcher

// SanitizeName flattens a package name into a filename-safe form.
var SanitizeName = fetch.SanitizeName

// CacheFileName returns the cache entry name for a package version.
var CacheFileName = fetch.CacheFileName

// ParsePURL parses a Package URL string. Only the npm type is accepted.
func ParsePURL(purl string) (*PURL, error) {
	return core.ParsePURL(purl)
}

// Extract unpacks a package tarball into the dependency tree, replacing the
// package's directory wholesale.
var Extract = extract.Extract

// Untar unpacks a plain tar stream, validating every entry path.
var Untar = extract.Untar

// Filtering and packing of an installed tree.
type (
	// PatternSet is a compiled, case-insensitive set of removable-name
	// patterns.
	PatternSet = compact.PatternSet

	// Filter deletes tree entries matching a pattern set.
	Filter = compact.Filter

	// Report summarizes one filter pass.
	Report = compact.Report
)

// DefaultPatterns returns the built-in removables list.
var DefaultPatterns = compact.DefaultPatterns

// CompilePatterns builds a PatternSet from pattern strings.
var CompilePatterns = compact.CompilePatterns

// MustCompile is CompilePatterns for pattern lists known to be valid.
var MustCompile = compact.MustCompile

// NewFilter creates a Filter over the given pattern set.
var NewFilter = compact.NewFilter

// Pack serializes a dependency tree into a single tar+gzip archive.
var Pack = compact.Pack

// Unpack restores a packed tree, replacing the destination wholesale.
var Unpack = compact.Unpack

// DefaultPackName is the conventional archive name.
const DefaultPackName = compact.DefaultPackName

// Installation pipeline.
type (
	// Installer runs fetch and extract tasks with bounded parallelism.
	Installer = install.Installer

	// Request names one package to process.
	Request = install.Request

	// Result is the settled outcome of one request.
	Result = install.Result

	// Results holds one settled Result per request.
	Results = install.Results

	// DescriptorSource fetches package descriptors. *Registry satisfies it.
	DescriptorSource = install.DescriptorSource

	// InstallOption configures an Installer.
	InstallOption = install.Option
)

// WithConcurrency bounds the number of packages processed in parallel.
var WithConcurrency = install.WithConcurrency

// NewInstaller creates an Installer that downloads into cacheDir and
// installs into the tree rooted at treeRoot.
func NewInstaller(source DescriptorSource, d Downloader, cacheDir, treeRoot string, opts ...InstallOption) *Installer {
	return install.New(source, d, cacheDir, treeRoot, opts...)
}
