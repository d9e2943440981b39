// Package config loads ambient runtime configuration for the vibe CLI:
// the .env search/load behavior the teacher's internal/config provides
// unchanged, plus the handful of Vibe-specific knobs (sandbox root,
// tool-calling round cap, host-eval timeout) that internal/interp and
// internal/hosteval need at startup.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from a .env file.
//
// Search order (stops at the first file found):
//  1. Explicit paths passed as arguments (legacy / test use).
//  2. Directory of the running executable, then up to three of its parent
//     directories — stable after workspace migration.
//  3. Current working directory            — fallback for `go run ./cmd/vibe`.
//
// If no .env is found anywhere, the program continues with system env vars.
func LoadEnv(paths ...string) {
	// Caller-supplied paths (legacy / test support).
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			log.Printf("[Config] No .env file at specified path(s), using system environment variables")
		}
		return
	}

	candidates := resolveEnvCandidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				log.Printf("[Config] Failed to load .env from %s: %v", p, err)
			} else {
				log.Printf("[Config] Loaded .env from %s", p)
			}
			return
		}
	}

	log.Printf("[Config] No .env file found (searched: %v), using system environment variables", candidates)
}

// resolveEnvCandidates returns the ordered list of .env paths to probe.
// It only builds the list; it does not stat or load any file.
func resolveEnvCandidates() []string {
	var candidates []string
	seen := map[string]bool{}

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}

	// 1. Walk up from the executable directory (up to 3 levels).
	//    This lets bin/vibe naturally find the project-root .env
	//    without requiring users to place .env anywhere unusual.
	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		for i := 0; i <= 3; i++ {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break // reached filesystem root
			}
			dir = parent
		}
	}

	// 2. Current working directory — fallback for `go run ./cmd/vibe`.
	if cwd, err := os.Getwd(); err == nil {
		add(filepath.Join(cwd, ".env"))
	}

	return candidates
}

// EnvFilePath returns a human-readable description of where .env will be loaded
// from. Useful for startup log messages.
func EnvFilePath() string {
	for _, p := range resolveEnvCandidates() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return fmt.Sprintf("(not found; searched %v)", resolveEnvCandidates())
}

// Runtime holds the Vibe-specific knobs read from the environment that
// internal/interp and internal/hosteval need before a program can run.
type Runtime struct {
	SandboxRoot     string        // VIBE_SANDBOX_ROOT, default: current working directory
	MaxToolRounds   int           // VIBE_MAX_TOOL_ROUNDS, default: 0 (interp.NewRuntime applies its own default of 16)
	HostEvalTimeout time.Duration // VIBE_TS_TIMEOUT_SECONDS, default: 0 (hosteval.Evaluator applies its own default of 30s)
}

// RuntimeFromEnv reads VIBE_SANDBOX_ROOT, VIBE_MAX_TOOL_ROUNDS, and
// VIBE_TS_TIMEOUT_SECONDS. An unset sandbox root falls back to the
// current working directory; an unset or malformed round cap or timeout
// is left at zero so interp and hosteval apply their own defaults.
func RuntimeFromEnv() Runtime {
	root := os.Getenv("VIBE_SANDBOX_ROOT")
	if root == "" {
		root, _ = os.Getwd()
	}
	rt := Runtime{SandboxRoot: root}
	if v := os.Getenv("VIBE_MAX_TOOL_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rt.MaxToolRounds = n
		} else {
			log.Printf("[Config] Invalid VIBE_MAX_TOOL_ROUNDS=%q, using default", v)
		}
	}
	if v := os.Getenv("VIBE_TS_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rt.HostEvalTimeout = time.Duration(n) * time.Second
		} else {
			log.Printf("[Config] Invalid VIBE_TS_TIMEOUT_SECONDS=%q, using default", v)
		}
	}
	return rt
}
