package pkgtree_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/node-pkgs/pkgtree"
)

// Mock descriptor response for benchmarks
var descriptorResponse = map[string]interface{}{
	"name": "left-pad",
	"dist-tags": map[string]string{
		"latest": "1.3.0",
	},
	"versions": map[string]interface{}{
		"1.3.0": map[string]interface{}{
			"dist": map[string]interface{}{
				"tarball":   "https://registry.npmjs.org/left-pad/-/left-pad-1.3.0.tgz",
				"shasum":    "5b8a3a7765dfe001261dde915589e782f8c94d1e",
				"integrity": "sha512-XI5MPzVNApjAyhQzphX8BkmKsKUxD4LdyK24iZeQGinBN9yTQT3bFlCBy/aVx2HrNcqQGsdot8ghrjyrvMCoEA==",
			},
		},
		"1.2.0": map[string]interface{}{
			"dist": map[string]interface{}{
				"tarball": "https://registry.npmjs.org/left-pad/-/left-pad-1.2.0.tgz",
				"shasum":  "d30a73c45d8b16ed0a8a83d1e329e6eed7e7f2e0",
			},
		},
	},
}

func BenchmarkNewRegistry(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = pkgtree.NewRegistry("", nil)
	}
}

func BenchmarkFetchDescriptor(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(descriptorResponse)
	}))
	defer server.Close()

	reg := pkgtree.NewRegistry(server.URL, pkgtree.DefaultClient())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.FetchDescriptor(ctx, "left-pad")
	}
}

func BenchmarkFetchDescriptor_Parallel(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(descriptorResponse)
	}))
	defer server.Close()

	reg := pkgtree.NewRegistry(server.URL, pkgtree.DefaultClient())
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = reg.FetchDescriptor(ctx, "left-pad")
		}
	})
}

func BenchmarkResolve(b *testing.B) {
	desc := &pkgtree.Descriptor{
		Name:     "left-pad",
		DistTags: map[string]string{"latest": "1.3.0"},
		Versions: map[string]pkgtree.VersionRecord{
			"1.3.0": {},
			"1.2.0": {},
		},
	}
	specs := []string{"latest", "1.3.0", "1.2.0", ""}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = desc.Resolve(specs[i%len(specs)])
	}
}

func BenchmarkSanitizeName(b *testing.B) {
	names := []string{"left-pad", "@babel/core", "socket.io", "@types/node", "lodash"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pkgtree.SanitizeName(names[i%len(names)])
	}
}

func BenchmarkCacheFileName(b *testing.B) {
	names := []string{"left-pad", "@babel/core", "socket.io"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pkgtree.CacheFileName(names[i%len(names)], "1.3.0")
	}
}

func BenchmarkPatternMatch(b *testing.B) {
	patterns := pkgtree.MustCompile(pkgtree.DefaultPatterns())
	entries := []string{"index.js", "README.md", "test", "LICENSE", "main.d.ts", ".travis.yml", "lodash.min.js"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = patterns.Match(entries[i%len(entries)])
	}
}

func BenchmarkCompilePatterns(b *testing.B) {
	patterns := pkgtree.DefaultPatterns()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pkgtree.CompilePatterns(patterns)
	}
}

// Benchmark JSON parsing overhead
func BenchmarkJSONParsing_Descriptor(b *testing.B) {
	data, _ := json.Marshal(descriptorResponse)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var result map[string]interface{}
		_ = json.Unmarshal(data, &result)
	}
}

func BenchmarkJSONParsing_LargeDescriptor(b *testing.B) {
	// Simulate a descriptor with many published versions
	largeResponse := map[string]interface{}{
		"name":     "lodash",
		"versions": make(map[string]interface{}),
	}
	versions := largeResponse["versions"].(map[string]interface{})
	for i := 0; i < 500; i++ {
		num := fmt.Sprintf("4.%d.%d", i/10, i%10)
		versions[num] = map[string]interface{}{
			"dist": map[string]interface{}{
				"tarball": "https://registry.npmjs.org/lodash/-/lodash-" + num + ".tgz",
				"shasum":  "d30a73c45d8b16ed0a8a83d1e329e6eed7e7f2e0",
			},
		}
	}

	data, _ := json.Marshal(largeResponse)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var result map[string]interface{}
		_ = json.Unmarshal(data, &result)
	}
}
