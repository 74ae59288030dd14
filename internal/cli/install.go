package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/node-pkgs/pkgtree"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <package>...",
		Short: "Download packages and install them into node_modules",
		Long: `Download package tarballs into the cache and extract them into the
dependency tree, replacing any previously installed version.

Packages may be named three ways:

  pkgtree install left-pad
  pkgtree install left-pad@1.3.0 @babel/core@7.26.0
  pkgtree install pkg:npm/%40babel/core@7.26.0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), args, true)
		},
	}
}

// parseSpec turns a command-line package argument into a Request. Accepted
// forms: "name", "name@version", "@scope/name", "@scope/name@version", and
// "pkg:npm/..." purls. An empty version means the latest dist-tag. A purl
// may carry a repository_url qualifier naming the registry that hosts the
// package; the override is returned alongside the request.
func parseSpec(arg string) (pkgtree.Request, string, error) {
	if strings.HasPrefix(arg, "pkg:") {
		p, err := pkgtree.ParsePURL(arg)
		if err != nil {
			return pkgtree.Request{}, "", fmt.Errorf("parsing %q: %w", arg, err)
		}
		return pkgtree.Request{Name: p.FullName(), Spec: p.Version}, p.RegistryOverride(), nil
	}
	// The @ at index 0 of a scoped name is not a version separator.
	if i := strings.LastIndex(arg, "@"); i > 0 {
		return pkgtree.Request{Name: arg[:i], Spec: arg[i+1:]}, "", nil
	}
	return pkgtree.Request{Name: arg}, "", nil
}

// parseSpecs parses every argument. All registry overrides must agree; the
// lone override, if any, is returned.
func parseSpecs(args []string) ([]pkgtree.Request, string, error) {
	reqs := make([]pkgtree.Request, 0, len(args))
	override := ""
	for _, arg := range args {
		req, reg, err := parseSpec(arg)
		if err != nil {
			return nil, "", err
		}
		if reg != "" {
			if override != "" && override != reg {
				return nil, "", fmt.Errorf("conflicting registry overrides %q and %q", override, reg)
			}
			override = reg
		}
		reqs = append(reqs, req)
	}
	return reqs, override, nil
}

// runPipeline fetches every requested package, extracting into the tree when
// extract is set. Failures are logged per package and summarized in the
// returned error.
func runPipeline(ctx context.Context, args []string, extract bool) error {
	logger := loggerFromContext(ctx)
	settings := settingsFromContext(ctx)

	reqs, override, err := parseSpecs(args)
	if err != nil {
		return err
	}

	registryURL := settings.RegistryURL
	if override != "" {
		logger.Debugf("registry override %s", override)
		registryURL = override
	}

	registry := pkgtree.NewRegistry(registryURL, pkgtree.DefaultClient())
	downloader := pkgtree.NewCircuitBreakerFetcher(pkgtree.NewFetcher())
	ins := pkgtree.NewInstaller(registry, downloader, settings.CacheDir, settings.TreeDir,
		pkgtree.WithConcurrency(settings.Concurrency))

	verb, summary := "fetched", "Fetched %d packages"
	if extract {
		verb, summary = "installed", "Installed %d packages"
	}

	p := newProgress(logger)
	var results pkgtree.Results
	if extract {
		results = ins.Install(ctx, reqs)
	} else {
		results = ins.Fetch(ctx, reqs)
	}

	done := 0
	for _, res := range results {
		if res.Err != nil {
			if res.Version != "" {
				logger.Errorf("%s@%s: %v", res.Name, res.Version, res.Err)
			} else {
				logger.Errorf("%s: %v", res.Name, res.Err)
			}
			continue
		}
		logger.Debugf("cached %s", res.Archive)
		logger.Infof("%s %s@%s", verb, res.Name, res.Version)
		done++
	}

	if failed := results.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d packages failed", failed, len(results))
	}
	p.done(fmt.Sprintf(summary, done))
	return nil
}
