package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"execagent/internal/languageprofile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWritesVerbatimCodeAndRendersHarness(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root)
	require.NoError(t, err)

	profile := languageprofile.Profile{
		Language:         "python",
		FileExtension:    "py",
		SolutionFilename: "solution.py",
		TestFilename:     "test.py",
	}
	code := "def solution(a, b):\n    return a + b\n"
	cases := json.RawMessage(`[{"input":[1,2],"expected":3}]`)
	harness := "RUN({{TEST_CASES}})"

	ws, err := mgr.Create(profile, code, cases, harness)
	require.NoError(t, err)
	defer mgr.Destroy(ws)

	gotCode, err := os.ReadFile(ws.SolutionFilePath)
	require.NoError(t, err)
	assert.Equal(t, code, string(gotCode))

	gotTest, err := os.ReadFile(ws.TestFilePath)
	require.NoError(t, err)
	assert.Equal(t, `RUN([{"input":[1,2],"expected":3}])`, string(gotTest))

	assert.Equal(t, root, filepath.Dir(ws.Dir))
}

func TestCreateProducesUniqueDirectories(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root)
	require.NoError(t, err)
	profile := languageprofile.Profile{FileExtension: "py"}

	ws1, err := mgr.Create(profile, "a", json.RawMessage(`[]`), "{{TEST_CASES}}")
	require.NoError(t, err)
	defer mgr.Destroy(ws1)

	ws2, err := mgr.Create(profile, "b", json.RawMessage(`[]`), "{{TEST_CASES}}")
	require.NoError(t, err)
	defer mgr.Destroy(ws2)

	assert.NotEqual(t, ws1.Dir, ws2.Dir)
}

func TestDestroyRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root)
	require.NoError(t, err)
	profile := languageprofile.Profile{FileExtension: "py"}

	ws, err := mgr.Create(profile, "code", json.RawMessage(`[]`), "{{TEST_CASES}}")
	require.NoError(t, err)

	mgr.Destroy(ws)

	_, err = os.Stat(ws.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestDestroyNeverPanicsOnNil(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root)
	require.NoError(t, err)
	assert.NotPanics(t, func() { mgr.Destroy(nil) })
}
