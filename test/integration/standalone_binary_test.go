package integration

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/listlens into a temp dir and returns its path.
func buildBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}
	goModPathBytes, err := exec.Command("go", "env", "GOMOD").Output()
	if err != nil {
		t.Fatalf("go env GOMOD: %v", err)
	}
	goModPath := strings.TrimSpace(string(goModPathBytes))
	if goModPath == "" {
		t.Fatalf("go env GOMOD returned empty")
	}
	repoRoot := filepath.Dir(goModPath)

	binaryPath := filepath.Join(t.TempDir(), "listlens")
	build := exec.Command("go", "build", "-o", binaryPath, "./cmd/listlens")
	build.Dir = repoRoot
	build.Env = os.Environ()
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build: %v\n%s", err, string(out))
	}
	return binaryPath
}

// isolatedEnv keeps the user's config and data directories out of the run.
func isolatedEnv(t *testing.T, extra ...string) []string {
	t.Helper()
	home := t.TempDir()
	env := []string{
		"HOME=" + home,
		"XDG_CONFIG_HOME=" + filepath.Join(home, ".config"),
		"XDG_DATA_HOME=" + filepath.Join(home, ".local", "share"),
		"PATH=" + os.Getenv("PATH"),
	}
	return append(env, extra...)
}

func TestStandaloneBinaryVersionAndHelpWorkOutsideRepo(t *testing.T) {
	binaryPath := buildBinary(t)

	outside := t.TempDir()
	copiedBinary := filepath.Join(outside, "listlens")

	data, err := os.ReadFile(binaryPath)
	if err != nil {
		t.Fatalf("read built binary: %v", err)
	}
	if err := os.WriteFile(copiedBinary, data, 0o755); err != nil {
		t.Fatalf("write copied binary: %v", err)
	}

	version := exec.Command(copiedBinary, "version")
	version.Dir = outside
	version.Env = isolatedEnv(t)
	out, err := version.CombinedOutput()
	if err != nil {
		t.Fatalf("version failed: %v\n%s", err, string(out))
	}
	assert.Contains(t, string(out), "listlens")

	help := exec.Command(copiedBinary, "--help")
	help.Dir = outside
	help.Env = isolatedEnv(t)
	if out, err := help.CombinedOutput(); err != nil {
		t.Fatalf("--help failed: %v\n%s", err, string(out))
	}
}

func TestStandaloneBinaryRun(t *testing.T) {
	binaryPath := buildBinary(t)

	router := chi.NewRouter()
	router.Get("/crm/v3/lists/{listId}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "listId") == "500" {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"list":{"filterBranch":{"filterBranchType":"OR","filters":[{"filterType":"PROPERTY","property":"prop_%s"}]}}}`,
			chi.URLParam(r, "listId"))
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "lists_to_check.csv"),
		[]byte("Name,ListId\nFirst,1\nSecond,2\nBroken,500\nNameless,\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(work, "properties_to_check.txt"),
		[]byte("prop_2\nprop_1\n"), 0o600))

	run := exec.Command(binaryPath, "run", "--output", "json", "--concurrency", "2")
	run.Dir = work
	run.Env = isolatedEnv(t,
		"HUBSPOT_BEARER=token",
		"LISTLENS_HUBSPOT_BASE_URL="+server.URL,
	)
	out, err := run.CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), `"total": 4`)

	file, err := os.Open(filepath.Join(work, "checked_lists.csv"))
	require.NoError(t, err)
	defer file.Close() // nolint:errcheck
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Name", "ListId", "prop_2", "prop_1"}, rows[0])

	cells := map[string][]string{}
	for _, row := range rows[1:] {
		cells[row[1]] = row[2:]
	}
	assert.Equal(t, []string{"", "TRUE"}, cells["1"])
	assert.Equal(t, []string{"TRUE", ""}, cells["2"])
	assert.Equal(t, []string{"ERROR", "ERROR"}, cells["500"])
	assert.Equal(t, []string{"ERROR", "ERROR"}, cells[""])

	errorLog, err := os.ReadFile(filepath.Join(work, "log_file.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "DateTime,List_Name,List_ID,StatusCode,ErrorMessage")
	assert.Contains(t, string(errorLog), "Broken,500,500,API error: upstream exploded")
	assert.Contains(t, string(errorLog), "Nameless,,0,list id is required")
}

func TestStandaloneBinaryMissingTokenExitsWithConfigCode(t *testing.T) {
	binaryPath := buildBinary(t)

	run := exec.Command(binaryPath, "run")
	run.Dir = t.TempDir()
	run.Env = isolatedEnv(t)
	out, err := run.CombinedOutput()
	require.Error(t, err, string(out))

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.NotEqual(t, 0, exitErr.ExitCode())
	assert.Contains(t, string(out), "bearer token is required")
}
