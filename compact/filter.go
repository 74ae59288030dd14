package compact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EntryError records one entry the filter could not delete. The walk keeps
// going; failures are reported together once the whole tree has been seen.
type EntryError struct {
	Path string
	Op   string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Report summarizes one Clean pass.
type Report struct {
	Removed  int
	Failures []EntryError
}

// Err folds the recorded failures into a single error, nil when every
// deletion succeeded.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i := range r.Failures {
		errs[i] = &r.Failures[i]
	}
	return errors.Join(errs...)
}

// Filter deletes tree entries whose base names match a pattern set.
type Filter struct {
	patterns *PatternSet
}

// NewFilter creates a Filter over the given pattern set. Pass
// MustCompile(DefaultPatterns()) for the built-in removables.
func NewFilter(patterns *PatternSet) *Filter {
	return &Filter{patterns: patterns}
}

// Clean walks the dependency tree rooted at root and deletes matching
// entries. The root itself, top-level package directories, scope
// directories, and the package directories under a scope are never deletion
// candidates: a package named "test" survives while a "test" directory
// inside a package is removed.
//
// Matching directories are removed with their whole subtree and not
// descended into. Deletion is best-effort: a failed removal is recorded in
// the report and the walk continues. Entries that vanish mid-walk are
// skipped, never an error. Running Clean twice removes nothing on the
// second pass.
func (f *Filter) Clean(root string) (*Report, error) {
	report := &Report{}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("walking tree root: %w", err)
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			report.Failures = append(report.Failures, EntryError{Path: p, Op: "walk", Err: err})
			return nil
		}
		if p == root {
			return nil
		}

		if protected(root, p) {
			return nil
		}
		if !f.patterns.Match(d.Name()) {
			return nil
		}

		if d.IsDir() {
			if err := os.RemoveAll(p); err != nil {
				report.Failures = append(report.Failures, EntryError{Path: p, Op: "remove", Err: err})
			} else {
				report.Removed++
			}
			// Removed or not, this subtree is done.
			return fs.SkipDir
		}

		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			report.Failures = append(report.Failures, EntryError{Path: p, Op: "remove", Err: err})
			return nil
		}
		report.Removed++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// protected reports whether p is structural: a top-level package directory,
// a scope directory, or the package directory directly under a scope.
func protected(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return true
	}
	parts := strings.Split(rel, string(filepath.Separator))
	switch len(parts) {
	case 1:
		return true
	case 2:
		return strings.HasPrefix(parts[0], "@")
	default:
		return false
	}
}
