// Package compact strips redundant files from an installed dependency tree
// and packs the result into a single archive for faster restores.
package compact

import (
	"fmt"
	"path"
	"strings"
)

// defaultPatterns is the curated removables list: documentation, CI configs,
// VCS metadata, editor droppings, build scaffolding, logs, and test or
// example directories that serve no purpose in an installed tree.
var defaultPatterns = []string{
	"readme",
	"readme.*",
	".npmignore",
	"license",
	"license.md",
	"licence.md",
	"license.markdown",
	"licence.markdown",
	"license-mit",
	"history.md",
	"history.markdown",
	".gitattributes",
	".gitmodules",
	".travis.yml",
	"binding.gyp",
	"contributing*",
	"component.json",
	"composer.json",
	"makefile.*",
	"gemfile.*",
	"rakefile.*",
	".coveralls.yml",
	"example.*",
	"changelog",
	"changelog.*",
	"changes",
	".jshintrc",
	"bower.json",
	"*appveyor.yml",
	"*.log",
	"*.tlog",
	"*.patch",
	"*.sln",
	"*.pdb",
	"*.vcxproj*",
	".gitignore",
	".sauce-labs*",
	".vimrc*",
	".idea",
	"examples",
	"samples",
	"test",
	"tests",
	"draft-00",
	"draft-01",
	"draft-02",
	"draft-03",
	"draft-04",
	".eslintrc",
	".eslintrc.*",
	".jamignore",
	".jscsrc",
	"*.todo",
	"*.md",
	"*.markdown",
	"*.js.map",
	"contributors",
	"*.orig",
	"*.rej",
	".zuul.yml",
	".editorconfig",
	".npmrc",
	".jshintignore",
	".eslintignore",
	".lint",
	".lintignore",
	"cakefile",
	".istanbul.yml",
	"authors",
	"hyper-schema",
	"mocha.opts",
	".gradle",
	".tern-port",
	".gitkeep",
	".dntrc",
	"*.watchr",
	".jsbeautifyrc",
	"cname",
	"screenshots",
	".dir-locals.el",
	"jsl.conf",
	"jsstyle",
	"benchmark",
	"dockerfile",
	"*.nuspec",
	"*.csproj",
	"thumbs.db",
	".ds_store",
	"desktop.ini",
	"yarn-error.log",
	"npm-debug.log",
	"wercker.yml",
	".flowconfig",
}

// DefaultPatterns returns the built-in removables list. The caller owns the
// returned slice.
func DefaultPatterns() []string {
	return append([]string(nil), defaultPatterns...)
}

// PatternSet is a compiled, case-insensitive set of filename patterns. A
// pattern without glob metacharacters matches a base name exactly; a pattern
// with them matches glob-style over the whole base name.
type PatternSet struct {
	exact map[string]struct{}
	globs []string
}

// CompilePatterns builds a PatternSet. Invalid glob syntax is rejected here
// rather than surfacing as a silent non-match during a walk.
func CompilePatterns(patterns []string) (*PatternSet, error) {
	s := &PatternSet{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.ToLower(p)
		if !strings.ContainsAny(p, "*?[") {
			s.exact[p] = struct{}{}
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		s.globs = append(s.globs, p)
	}
	return s, nil
}

// MustCompile is CompilePatterns for pattern lists known to be valid, such
// as DefaultPatterns.
func MustCompile(patterns []string) *PatternSet {
	s, err := CompilePatterns(patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether the base name of a tree entry matches any pattern.
// Matching is case-insensitive: "license" matches "LICENSE" but not
// "LICENSE.md", which is covered by its own pattern.
func (s *PatternSet) Match(base string) bool {
	base = strings.ToLower(base)
	if _, ok := s.exact[base]; ok {
		return true
	}
	for _, g := range s.globs {
		if ok, _ := path.Match(g, base); ok {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (s *PatternSet) Len() int {
	return len(s.exact) + len(s.globs)
}
