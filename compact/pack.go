package compact

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/node-pkgs/pkgtree/extract"
)

// DefaultPackName is the conventional archive name, written next to the
// dependency tree it was built from.
const DefaultPackName = "node_modules.pack"

// Pack serializes the tree rooted at treeRoot into a single tar+gzip archive
// at outPath. Entries are streamed one at a time and stored relative to the
// tree root with forward slashes, so the archive restores identically
// through Unpack.
//
// The archive is written to a temp file in the destination directory and
// renamed into place on success. On any failure the temp file is removed; a
// truncated archive is never left at outPath.
func Pack(treeRoot, outPath string) (err error) {
	if _, err := os.Stat(treeRoot); err != nil {
		return fmt.Errorf("reading tree root: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+"-")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	tw := tar.NewWriter(zw)

	err = filepath.WalkDir(treeRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walking %s: %w", p, walkErr)
		}
		if p == treeRoot {
			return nil
		}

		rel, relErr := filepath.Rel(treeRoot, p)
		if relErr != nil {
			return relErr
		}
		name := filepath.ToSlash(rel)

		// Regular files and directories only. The extractor never creates
		// anything else, so other types are not part of a valid tree.
		switch {
		case d.IsDir():
			info, infoErr := d.Info()
			if infoErr != nil {
				return fmt.Errorf("reading %s: %w", p, infoErr)
			}
			header, hdrErr := tar.FileInfoHeader(info, "")
			if hdrErr != nil {
				return hdrErr
			}
			header.Name = name + "/"
			return tw.WriteHeader(header)
		case d.Type().IsRegular():
			info, infoErr := d.Info()
			if infoErr != nil {
				return fmt.Errorf("reading %s: %w", p, infoErr)
			}
			header, hdrErr := tar.FileInfoHeader(info, "")
			if hdrErr != nil {
				return hdrErr
			}
			header.Name = name

			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			f, openErr := os.Open(p)
			if openErr != nil {
				return fmt.Errorf("reading %s: %w", p, openErr)
			}
			if _, err := io.Copy(tw, f); err != nil {
				_ = f.Close()
				return fmt.Errorf("packing %s: %w", p, err)
			}
			return f.Close()
		default:
			return nil
		}
	})
	if err != nil {
		return err
	}

	if err = tw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp archive: %w", err)
	}

	if err = os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("installing archive %s: %w", outPath, err)
	}
	return nil
}

// Unpack restores a packed tree into destRoot, replacing any existing tree
// wholesale. It unpacks into a staging directory next to destRoot and
// renames it into place once the whole archive has been read, mirroring how
// single packages are installed.
func Unpack(packPath, destRoot string) error {
	f, err := os.Open(packPath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return &extract.ArchiveFormatError{Path: packPath, Err: err}
	}
	defer zr.Close()

	parent := filepath.Dir(destRoot)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(destRoot)+"-restore-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extract.Untar(zr, staging); err != nil {
		return fmt.Errorf("unpacking %s: %w", packPath, err)
	}

	if err := os.RemoveAll(destRoot); err != nil {
		return fmt.Errorf("removing existing %s: %w", destRoot, err)
	}
	if err := os.Rename(staging, destRoot); err != nil {
		return fmt.Errorf("installing %s: %w", destRoot, err)
	}
	return nil
}
