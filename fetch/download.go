package fetch

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/node-pkgs/pkgtree/internal/core"
)

// SanitizeName flattens a package name into a filename-safe form:
// "/" becomes "__", "@" is stripped, "." becomes "_". Distinct (name,
// version) pairs map to distinct cache entries.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "__")
	name = strings.ReplaceAll(name, "@", "")
	return strings.ReplaceAll(name, ".", "_")
}

// CacheFileName returns the cache entry name for a package version:
// <sanitized-name>@<version>.tgz. The version is used verbatim.
func CacheFileName(name, version string) string {
	return SanitizeName(name) + "@" + version + ".tgz"
}

// IntegrityError reports a checksum mismatch between the descriptor's dist
// fields and the downloaded bytes. The invalid cache entry has already been
// deleted when this error is returned.
type IntegrityError struct {
	Name      string
	Version   string
	Algorithm string
	Expected  string
	Actual    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s@%s: %s expected %s, got %s",
		e.Name, e.Version, e.Algorithm, e.Expected, e.Actual)
}

// Download fetches the tarball for one package version into cacheDir and
// returns the cache entry path. The version must be a key of the
// descriptor's Versions map; that is checked before any network I/O.
//
// The response body is streamed to disk in chunks, hashed on the way through
// when the descriptor carries an integrity or shasum field. An existing
// cache entry of the same name is overwritten. On any failure the partial
// file is deleted so the cache never holds a truncated entry.
func (f *Fetcher) Download(ctx context.Context, desc *core.Descriptor, version, cacheDir string) (string, error) {
	info, err := f.resolver.Resolve(desc, version)
	if err != nil {
		return "", err
	}
	return f.download(ctx, desc, version, cacheDir, info)
}

func (f *Fetcher) download(ctx context.Context, desc *core.Descriptor, version, cacheDir string, info *ArtifactInfo) (string, error) {
	artifact, err := f.Fetch(ctx, info.URL)
	if err != nil {
		return "", err
	}
	defer artifact.Body.Close()

	path := filepath.Join(cacheDir, info.Filename)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating cache entry %s: %w", path, err)
	}

	check := newVerifier(info.Integrity, info.Shasum)
	var dst io.Writer = out
	if check != nil {
		dst = io.MultiWriter(out, check)
	}

	if _, err := io.Copy(dst, artifact.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("writing cache entry %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("closing cache entry %s: %w", path, err)
	}

	if check != nil && !check.ok() {
		_ = os.Remove(path)
		return "", &IntegrityError{
			Name:      desc.Name,
			Version:   version,
			Algorithm: check.algo,
			Expected:  check.expected(),
			Actual:    check.actual(),
		}
	}

	return path, nil
}

// verifier hashes the download stream and compares against the digest the
// registry published. SRI integrity strings are preferred; a bare hex shasum
// is the sha1 fallback. Unparseable digests disable verification rather than
// failing the download.
type verifier struct {
	algo string
	h    hash.Hash
	want []byte
	hexd bool // digest was given as hex (shasum) rather than base64 (SRI)
}

func newVerifier(integrity, shasum string) *verifier {
	if integrity != "" {
		algo, b64, found := strings.Cut(integrity, "-")
		if found {
			var h hash.Hash
			switch algo {
			case "sha1":
				h = sha1.New()
			case "sha256":
				h = sha256.New()
			case "sha512":
				h = sha512.New()
			}
			if h != nil {
				if want, err := base64.StdEncoding.DecodeString(b64); err == nil && len(want) == h.Size() {
					return &verifier{algo: algo, h: h, want: want}
				}
			}
		}
	}

	if shasum != "" {
		if want, err := hex.DecodeString(shasum); err == nil && len(want) == sha1.Size {
			return &verifier{algo: "sha1", h: sha1.New(), want: want, hexd: true}
		}
	}

	return nil
}

func (v *verifier) Write(p []byte) (int, error) {
	return v.h.Write(p)
}

func (v *verifier) ok() bool {
	return bytes.Equal(v.h.Sum(nil), v.want)
}

func (v *verifier) expected() string {
	return v.encode(v.want)
}

func (v *verifier) actual() string {
	return v.encode(v.h.Sum(nil))
}

func (v *verifier) encode(sum []byte) string {
	if v.hexd {
		return hex.EncodeToString(sum)
	}
	return base64.StdEncoding.EncodeToString(sum)
}
