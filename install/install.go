// Package install orchestrates the fetch and extract pipeline for a set of
// requested packages.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/node-pkgs/pkgtree/extract"
	"github.com/node-pkgs/pkgtree/fetch"
	"github.com/node-pkgs/pkgtree/internal/core"
)

const defaultConcurrency = 15

// DescriptorSource fetches package descriptors from a registry.
type DescriptorSource interface {
	FetchDescriptor(ctx context.Context, name string) (*core.Descriptor, error)
}

// Request names one package to process. Spec is an exact version, a
// dist-tag, or empty for "latest".
type Request struct {
	Name string
	Spec string
}

// Result is the settled outcome of one request. Version is filled once the
// spec has been resolved against the descriptor; Archive and Dir are filled
// as the corresponding stage completes.
type Result struct {
	Name    string
	Version string
	Archive string
	Dir     string
	Err     error
}

// Results holds one settled Result per request, in request order.
type Results []Result

// Err aggregates the failed results into a single error, nil when every
// request succeeded.
func (rs Results) Err() error {
	var errs []error
	for _, r := range rs {
		if r.Err == nil {
			continue
		}
		if r.Version != "" {
			errs = append(errs, fmt.Errorf("%s@%s: %w", r.Name, r.Version, r.Err))
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of failed results.
func (rs Results) Failed() int {
	n := 0
	for _, r := range rs {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Installer runs fetch and extract tasks with bounded parallelism. One
// package's failure never aborts its siblings; every task settles and the
// caller inspects the Results.
type Installer struct {
	source      DescriptorSource
	downloader  fetch.Downloader
	cacheDir    string
	treeRoot    string
	concurrency int

	// locks serializes work per package name so the replacement of one
	// package directory is never interleaved with another task for the
	// same name.
	locks sync.Map
}

// Option configures an Installer.
type Option func(*Installer)

// WithConcurrency bounds the number of packages processed in parallel.
func WithConcurrency(n int) Option {
	return func(ins *Installer) {
		if n < 1 {
			n = 1
		}
		ins.concurrency = n
	}
}

// New creates an Installer that downloads into cacheDir and installs into
// the dependency tree rooted at treeRoot.
func New(source DescriptorSource, downloader fetch.Downloader, cacheDir, treeRoot string, opts ...Option) *Installer {
	ins := &Installer{
		source:      source,
		downloader:  downloader,
		cacheDir:    cacheDir,
		treeRoot:    treeRoot,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(ins)
	}
	return ins
}

// Install fetches and extracts every requested package. Each package's
// download completes before its own extraction begins; there is no ordering
// across packages.
func (ins *Installer) Install(ctx context.Context, reqs []Request) Results {
	return ins.run(ctx, reqs, true)
}

// Fetch downloads every requested package into the cache without touching
// the dependency tree.
func (ins *Installer) Fetch(ctx context.Context, reqs []Request) Results {
	return ins.run(ctx, reqs, false)
}

func (ins *Installer) run(ctx context.Context, reqs []Request, extractAfter bool) Results {
	results := make(Results, len(reqs))
	sem := make(chan struct{}, ins.concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result{Name: req.Name, Err: ctx.Err()}
				return
			}

			results[i] = ins.one(ctx, req, extractAfter)
		}(i, req)
	}

	wg.Wait()
	return results
}

func (ins *Installer) one(ctx context.Context, req Request, extractAfter bool) Result {
	res := Result{Name: req.Name}

	desc, err := ins.source.FetchDescriptor(ctx, req.Name)
	if err != nil {
		res.Err = err
		return res
	}
	version, err := desc.Resolve(req.Spec)
	if err != nil {
		res.Err = err
		return res
	}
	res.Version = version

	mu := ins.nameLock(req.Name)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(ins.cacheDir, 0o755); err != nil {
		res.Err = fmt.Errorf("creating cache dir: %w", err)
		return res
	}
	archive, err := ins.downloader.Download(ctx, desc, version, ins.cacheDir)
	if err != nil {
		res.Err = err
		return res
	}
	res.Archive = archive

	if !extractAfter {
		return res
	}

	dir, err := extract.Extract(archive, ins.treeRoot, desc.Name)
	if err != nil {
		res.Err = err
		return res
	}
	res.Dir = dir
	return res
}

func (ins *Installer) nameLock(name string) *sync.Mutex {
	v, _ := ins.locks.LoadOrStore(name, &sync.Mutex{})
	return v.(*sync.Mutex)
}
