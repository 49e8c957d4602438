// Package languageprofile holds the static, read-only per-language execution
// table: image, file layout, compile/run argv, and resource limits.
package languageprofile

import (
	"strings"
	"time"
)

// Profile is the per-language execution recipe.
type Profile struct {
	Language         string
	Image            string
	FileExtension    string
	SolutionFilename string
	TestFilename     string
	CompileArgv      []string
	RunArgv          []string
	// CompiledArtifactArg is the final argv element appended to RunArgv
	// after a successful compile step (a class name, an artifact path, or
	// empty when RunArgv alone already names the built executable). Ignored
	// when CompileArgv is empty, in which case TestFilename is appended
	// instead.
	CompiledArtifactArg string
	MemoryLimitMiB      int64
	CPULimitCores       float64
	Timeout             time.Duration
}

// Registry is a read-only mapping from language tag to Profile.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a Registry from the given profiles, keyed by their
// (normalized) Language field. It never mutates after construction.
func NewRegistry(profiles []Profile) *Registry {
	m := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		m[normalize(p.Language)] = p
	}
	return &Registry{profiles: m}
}

// Lookup resolves a language tag (after alias normalization) to its Profile.
func (r *Registry) Lookup(language string) (Profile, bool) {
	p, ok := r.profiles[normalize(language)]
	return p, ok
}

// normalize maps common spellings onto the registry's canonical tags, the
// way a dispatcher client might abbreviate a language name.
func normalize(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	switch lang {
	case "js", "node", "nodejs":
		return "javascript"
	case "ts":
		return "typescript"
	case "py", "python3":
		return "python"
	case "golang":
		return "go"
	case "c++":
		return "cpp"
	default:
		return lang
	}
}

// Default returns the built-in language table. Images and run commands mirror a conventional slim per-language
// execution image; per-language resource ceilings scale with how heavy the
// toolchain's runtime/compiler footprint tends to be.
func Default() *Registry {
	return NewRegistry([]Profile{
		{
			Language:         "python",
			Image:            "python:3.12-slim-bookworm",
			FileExtension:    "py",
			SolutionFilename: "solution.py",
			TestFilename:     "test.py",
			RunArgv:          []string{"python3", "-u"},
			MemoryLimitMiB:   256,
			CPULimitCores:    0.5,
			Timeout:          10 * time.Second,
		},
		{
			Language:         "javascript",
			Image:            "node:20-slim",
			FileExtension:    "js",
			SolutionFilename: "solution.js",
			TestFilename:     "test.js",
			RunArgv:          []string{"node"},
			MemoryLimitMiB:   256,
			CPULimitCores:    0.75,
			Timeout:          10 * time.Second,
		},
		{
			Language:         "typescript",
			Image:            "node:20-slim",
			FileExtension:    "ts",
			SolutionFilename: "solution.ts",
			TestFilename:     "test.ts",
			RunArgv:          []string{"npx", "--yes", "tsx"},
			MemoryLimitMiB:   512,
			CPULimitCores:    1.0,
			Timeout:          15 * time.Second,
		},
		{
			Language:         "go",
			Image:            "golang:1.22-bookworm",
			FileExtension:    "go",
			SolutionFilename: "solution.go",
			TestFilename:     "test.go",
			RunArgv:          []string{"go", "run"},
			MemoryLimitMiB:   768,
			CPULimitCores:    1.5,
			Timeout:          20 * time.Second,
		},
		{
			Language:         "java",
			Image:            "eclipse-temurin:21-jdk-jammy",
			FileExtension:    "java",
			SolutionFilename: "Solution.java",
			TestFilename:        "TestRunner.java",
			CompileArgv:         []string{"javac"},
			RunArgv:             []string{"java"},
			CompiledArtifactArg: "TestRunner",
			MemoryLimitMiB:      1024,
			CPULimitCores:       1.5,
			Timeout:             20 * time.Second,
		},
		{
			Language:         "cpp",
			Image:            "gcc:13-bookworm",
			FileExtension:    "cpp",
			SolutionFilename: "solution.cpp",
			TestFilename:     "test.cpp",
			CompileArgv:      []string{"g++", "-O2", "-std=c++17", "-o", "runner"},
			RunArgv:          []string{"./runner"},
			MemoryLimitMiB:   512,
			CPULimitCores:    1.25,
			Timeout:          15 * time.Second,
		},
	})
}
