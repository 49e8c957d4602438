// Package workspace creates and tears down the hermetic per-job scratch
// directory that holds the solution file and the rendered test harness.
package workspace

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"execagent/internal/languageprofile"
	"execagent/internal/logging"

	"go.uber.org/zap"
)

const testCasesToken = "{{TEST_CASES}}"

// Workspace is a filesystem directory owned exclusively by one job.
type Workspace struct {
	Dir              string
	SolutionFilePath string
	TestFilePath     string
}

// Manager allocates and reclaims per-job directories under Root.
type Manager struct {
	Root string
}

// NewManager returns a Manager rooted at root, creating it if absent.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		root = "./temp"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root %s: %w", root, err)
	}
	return &Manager{Root: root}, nil
}

// Sweep removes any stale per-job directories left behind by a previous
// process crash. It is best-effort and never returns an error to the caller.
func (m *Manager) Sweep() {
	entries, err := os.ReadDir(m.Root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(m.Root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logging.L().Warn("workspace sweep: failed to remove stale directory",
				zap.String("path", path), zap.Error(err))
		}
	}
}

// Create allocates a fresh directory, writes the solution file verbatim and
// the test harness with its single substitution token replaced, and returns
// the resulting Workspace.
func (m *Manager) Create(profile languageprofile.Profile, code string, testCases json.RawMessage, harnessTemplate string) (*Workspace, error) {
	dirName := fmt.Sprintf("%d-%s", time.Now().UnixNano(), randomSuffix())
	dir := filepath.Join(m.Root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	solutionName := profile.SolutionFilename
	if solutionName == "" {
		solutionName = "solution." + profile.FileExtension
	}
	testName := profile.TestFilename
	if testName == "" {
		testName = "test." + profile.FileExtension
	}

	solutionPath := filepath.Join(dir, solutionName)
	if err := os.WriteFile(solutionPath, []byte(code), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write solution file: %w", err)
	}

	rendered := strings.Replace(harnessTemplate, testCasesToken, string(testCases), 1)
	testPath := filepath.Join(dir, testName)
	if err := os.WriteFile(testPath, []byte(rendered), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write test harness file: %w", err)
	}

	return &Workspace{
		Dir:              dir,
		SolutionFilePath: solutionPath,
		TestFilePath:     testPath,
	}, nil
}

// Destroy recursively removes the workspace directory. Failure is logged and
// swallowed — it must never fail a job that has otherwise succeeded.
func (m *Manager) Destroy(w *Workspace) {
	if w == nil {
		return
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		logging.L().Warn("workspace destroy failed", zap.String("dir", w.Dir), zap.Error(err))
	}
}

func randomSuffix() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively unrecoverable entropy starvation;
		// fall back to the clock so Create still produces a usable name.
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(b)
}
