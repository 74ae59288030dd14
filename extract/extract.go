// Package extract unpacks package tarballs into a dependency tree.
//
// Extraction is all-or-nothing: entries are unpacked into a hidden staging
// directory under the tree root and the staging directory is renamed into
// place only after the whole archive has been read. A package directory is
// replaced wholesale, never merged with leftovers from a previous version.
package extract

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// ErrUnsafePath reports an archive entry whose path would land outside the
// extraction directory.
var ErrUnsafePath = errors.New("entry path escapes the target directory")

// ArchiveFormatError reports a malformed archive: corrupt compression
// stream, truncated tar data, or an entry with an unsafe path.
type ArchiveFormatError struct {
	Path string // archive path, empty when unpacking a stream
	Err  error
}

func (e *ArchiveFormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed archive: %v", e.Err)
	}
	return fmt.Sprintf("malformed archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveFormatError) Unwrap() error { return e.Err }

// Extract unpacks the tarball at src into the dependency tree rooted at
// root, replacing <root>/<name> wholesale. It returns the installed package
// directory.
//
// The compression format is chosen by filename suffix: xz for .txz and
// .tar.xz, gzip otherwise. Registry tarballs wrap their contents in a single
// top-level directory (conventionally "package/"); that component is
// stripped so files land in the package directory itself.
func Extract(src, root, name string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening tarball: %w", err)
	}
	defer f.Close()

	target, err := securePath(root, name)
	if err != nil {
		return "", fmt.Errorf("package name %q escapes the tree root", name)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("creating tree root: %w", err)
	}

	staging, err := os.MkdirTemp(root, stagingPattern(name))
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	// No-op once the staging directory has been renamed into place.
	defer os.RemoveAll(staging)

	zr, err := decompress(src, f)
	if err != nil {
		return "", &ArchiveFormatError{Path: src, Err: err}
	}
	if c, ok := zr.(io.Closer); ok {
		defer c.Close()
	}

	if err := untarInto(tar.NewReader(zr), staging, src, true); err != nil {
		return "", err
	}

	// Commit point. Everything before this leaves the tree untouched.
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating parent of %s: %w", target, err)
	}
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("removing existing %s: %w", target, err)
	}
	if err := os.Rename(staging, target); err != nil {
		return "", fmt.Errorf("installing %s: %w", target, err)
	}
	return target, nil
}

// Untar unpacks a plain tar stream into dir. It is the same unpack core
// Extract uses, without the top-level component strip: entry paths are
// validated against dir, symlink and hardlink entries are skipped.
func Untar(r io.Reader, dir string) error {
	return untarInto(tar.NewReader(r), dir, "", false)
}

func untarInto(tr *tar.Reader, dir, archive string, stripTop bool) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &ArchiveFormatError{Path: archive, Err: err}
		}

		name := header.Name
		if path.IsAbs(name) || filepath.IsAbs(name) {
			return &ArchiveFormatError{Path: archive, Err: fmt.Errorf("entry %s: %w", name, ErrUnsafePath)}
		}
		if stripTop {
			name = stripTopComponent(name)
			if name == "" {
				// The wrapper directory itself.
				continue
			}
		}

		target, err := securePath(dir, name)
		if err != nil {
			return &ArchiveFormatError{Path: archive, Err: err}
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating dir for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(header))
			if err != nil {
				return fmt.Errorf("creating file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				if errors.Is(err, io.ErrUnexpectedEOF) {
					return &ArchiveFormatError{Path: archive, Err: fmt.Errorf("entry %s: %w", header.Name, err)}
				}
				return fmt.Errorf("writing file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("closing file %s: %w", target, err)
			}
		default:
			// Symlinks, hardlinks and special files from untrusted archives
			// are skipped.
		}
	}
	return nil
}

// securePath joins name onto dir and verifies the result stays under dir.
func securePath(dir, name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("entry %s: %w", name, ErrUnsafePath)
	}
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %s: %w", name, ErrUnsafePath)
	}
	return target, nil
}

// stripTopComponent drops the single top-level directory registry tarballs
// wrap their contents in. Entries without a further path (the wrapper
// itself) map to the empty string.
func stripTopComponent(name string) string {
	name = strings.TrimPrefix(path.Clean(name), "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

func stagingPattern(name string) string {
	return "." + strings.ReplaceAll(name, "/", "-") + "-"
}

func fileMode(header *tar.Header) os.FileMode {
	mode := os.FileMode(header.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}
	return mode
}

func decompress(name string, r io.Reader) (io.Reader, error) {
	if strings.HasSuffix(name, ".txz") || strings.HasSuffix(name, ".tar.xz") {
		return xz.NewReader(r)
	}
	return gzip.NewReader(r)
}
