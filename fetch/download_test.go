package fetch

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/node-pkgs/pkgtree/internal/core"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"left-pad", "left-pad"},
		{"@babel/core", "babel__core"},
		{"@types/node", "types__node"},
		{"socket.io", "socket_io"},
		{"@scope/pkg.js", "scope__pkg_js"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.name); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCacheFileName(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"left-pad", "1.3.0", "left-pad@1.3.0.tgz"},
		{"@babel/core", "7.0.0", "babel__core@7.0.0.tgz"},
		// The version is not sanitized, only the name is.
		{"left-pad", "1.0.0-beta.1", "left-pad@1.0.0-beta.1.tgz"},
	}

	for _, tt := range tests {
		if got := CacheFileName(tt.name, tt.version); got != tt.want {
			t.Errorf("CacheFileName(%q, %q) = %q, want %q", tt.name, tt.version, got, tt.want)
		}
	}
}

func downloadDescriptor(name, version, tarballURL string) *core.Descriptor {
	return &core.Descriptor{
		Name: name,
		Versions: map[string]core.VersionRecord{
			version: {
				Dist: core.Dist{Tarball: tarballURL},
			},
		},
	}
}

func TestDownload(t *testing.T) {
	content := "tarball bytes"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	desc := downloadDescriptor("left-pad", "1.3.0", server.URL+"/left-pad/-/left-pad-1.3.0.tgz")

	f := NewFetcher()
	cacheDir := t.TempDir()
	path, err := f.Download(context.Background(), desc, "1.3.0", cacheDir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	want := filepath.Join(cacheDir, "left-pad@1.3.0.tgz")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache entry: %v", err)
	}
	if string(data) != content {
		t.Errorf("cache entry = %q, want %q", string(data), content)
	}
}

func TestDownloadScopedName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("scoped"))
	}))
	defer server.Close()

	desc := downloadDescriptor("@babel/core", "7.0.0", server.URL+"/@babel/core/-/core-7.0.0.tgz")

	f := NewFetcher()
	cacheDir := t.TempDir()
	path, err := f.Download(context.Background(), desc, "7.0.0", cacheDir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if filepath.Base(path) != "babel__core@7.0.0.tgz" {
		t.Errorf("cache entry name = %q, want %q", filepath.Base(path), "babel__core@7.0.0.tgz")
	}
}

func TestDownloadVersionNotInDescriptor(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("never served"))
	}))
	defer server.Close()

	desc := downloadDescriptor("left-pad", "1.3.0", server.URL+"/left-pad/-/left-pad-1.3.0.tgz")

	f := NewFetcher()
	_, err := f.Download(context.Background(), desc, "2.0.0", t.TempDir())
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Download = %v, want ErrNotFound", err)
	}

	// The version check happens before any network I/O.
	if hits.Load() != 0 {
		t.Errorf("server hits = %d, want 0", hits.Load())
	}
}

func TestDownloadOverwritesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer server.Close()

	desc := downloadDescriptor("left-pad", "1.3.0", server.URL+"/left-pad.tgz")

	cacheDir := t.TempDir()
	stale := filepath.Join(cacheDir, "left-pad@1.3.0.tgz")
	if err := os.WriteFile(stale, []byte("stale entry"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher()
	path, err := f.Download(context.Background(), desc, "1.3.0", cacheDir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "fresh" {
		t.Errorf("cache entry = %q, want the re-downloaded bytes", string(data))
	}
}

func TestDownloadPartialFileRemoved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more bytes than are sent; the client sees an unexpected
		// EOF while streaming the body to disk.
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	desc := downloadDescriptor("left-pad", "1.3.0", server.URL+"/left-pad.tgz")

	f := NewFetcher()
	cacheDir := t.TempDir()
	_, err := f.Download(context.Background(), desc, "1.3.0", cacheDir)
	if err == nil {
		t.Fatal("expected error for truncated body")
	}

	if _, statErr := os.Stat(filepath.Join(cacheDir, "left-pad@1.3.0.tgz")); !os.IsNotExist(statErr) {
		t.Error("partial cache entry was not deleted")
	}
}

func TestDownloadShasumVerified(t *testing.T) {
	content := []byte("verified tarball")
	sum := sha1.Sum(content)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer server.Close()

	desc := &core.Descriptor{
		Name: "left-pad",
		Versions: map[string]core.VersionRecord{
			"1.3.0": {
				Dist: core.Dist{
					Tarball: server.URL + "/left-pad.tgz",
					Shasum:  hex.EncodeToString(sum[:]),
				},
			},
		},
	}

	f := NewFetcher()
	path, err := f.Download(context.Background(), desc, "1.3.0", t.TempDir())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache entry missing after verified download: %v", err)
	}
}

func TestDownloadIntegrityMismatch(t *testing.T) {
	otherSum := sha512.Sum512([]byte("some other bytes"))
	integrity := "sha512-" + base64.StdEncoding.EncodeToString(otherSum[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("corrupted tarball"))
	}))
	defer server.Close()

	desc := &core.Descriptor{
		Name: "left-pad",
		Versions: map[string]core.VersionRecord{
			"1.3.0": {
				Dist: core.Dist{
					Tarball:   server.URL + "/left-pad.tgz",
					Integrity: integrity,
				},
			},
		},
	}

	f := NewFetcher()
	cacheDir := t.TempDir()
	_, err := f.Download(context.Background(), desc, "1.3.0", cacheDir)

	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Download = %v, want *IntegrityError", err)
	}
	if ie.Algorithm != "sha512" {
		t.Errorf("Algorithm = %q, want sha512", ie.Algorithm)
	}

	if _, statErr := os.Stat(filepath.Join(cacheDir, "left-pad@1.3.0.tgz")); !os.IsNotExist(statErr) {
		t.Error("mismatched cache entry was not deleted")
	}
}

func TestDownloadKeepsHTTPS(t *testing.T) {
	var sawTLS atomic.Bool
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawTLS.Store(r.TLS != nil)
		_, _ = w.Write([]byte("secure"))
	}))
	defer server.Close()

	desc := downloadDescriptor("left-pad", "1.3.0", server.URL+"/left-pad.tgz")

	f := NewFetcher(WithHTTPClient(server.Client()))
	_, err := f.Download(context.Background(), desc, "1.3.0", t.TempDir())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if !sawTLS.Load() {
		t.Error("request was not served over TLS")
	}
}
