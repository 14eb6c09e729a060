package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/require"

	"github.com/namelens/listlens/internal/core"
	apperrors "github.com/namelens/listlens/internal/errors"
)

func TestParseTargets(t *testing.T) {
	content := "\xEF\xBB\xBFName,ListId\n" +
		"Researchers, 101\n" +
		"\"Partners, EMEA\",202\n" +
		"No id,\n" +
		"Short row\n"

	targets, warnings, err := ParseTargets(strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, []core.ListTarget{
		{Name: "Researchers", ListID: "101"},
		{Name: "Partners, EMEA", ListID: "202"},
		{Name: "No id", ListID: ""},
		{Name: "Short row", ListID: ""},
	}, targets)
	require.Equal(t, []RowWarning{
		{Line: 4, Reason: "empty ListId"},
		{Line: 5, Reason: "empty ListId"},
	}, warnings)
}

func TestParseTargetsKeepsEveryRow(t *testing.T) {
	targets, warnings, err := ParseTargets(strings.NewReader("Name,ListId\nA,1\nBlank,\nC,3\n"))
	require.NoError(t, err)
	require.Len(t, targets, 3)
	require.Equal(t, "Blank", targets[1].Name)
	require.Empty(t, targets[1].ListID)
	require.Len(t, warnings, 1)
}

func TestParseTargetsColumnOrder(t *testing.T) {
	targets, _, err := ParseTargets(strings.NewReader("ListId,Owner,Name\n7,ops,Seven\n"))
	require.NoError(t, err)
	require.Equal(t, []core.ListTarget{{Name: "Seven", ListID: "7"}}, targets)
}

func TestParseTargetsHeaderRequired(t *testing.T) {
	_, _, err := ParseTargets(strings.NewReader(""))
	require.Error(t, err)
	require.True(t, apperrors.IsConfigError(err))

	_, _, err = ParseTargets(strings.NewReader("name,listid\nA,1\n"))
	require.Error(t, err)
	require.True(t, apperrors.IsConfigError(err))
}

func TestParseProperties(t *testing.T) {
	content := "\xEF\xBB\xBFtechniques\n\n# comment\nResearch_Areas\ntechniques\n  email  \n"

	set, err := ParseProperties(strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, []string{"techniques", "Research_Areas", "email"}, set.Names())
	require.True(t, set.Contains("Research_Areas"))
	require.False(t, set.Contains("research_areas"))
}

func TestParsePropertiesEmpty(t *testing.T) {
	_, err := ParseProperties(strings.NewReader("\n# nothing\n"))
	require.Error(t, err)
	require.True(t, apperrors.IsConfigError(err))
}

func TestReadMissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")

	_, _, err := ReadTargets(missing)
	require.Error(t, err)
	require.Equal(t, foundry.ExitFileNotFound, apperrors.ExitCodeFor(err))

	_, err = ReadProperties(missing)
	require.Error(t, err)
	require.Equal(t, foundry.ExitFileNotFound, apperrors.ExitCodeFor(err))

	_, err = ReadProperties(" ")
	require.Equal(t, foundry.ExitConfigInvalid, apperrors.ExitCodeFor(err))
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	listsPath := filepath.Join(dir, "lists_to_check.csv")
	propsPath := filepath.Join(dir, "properties_to_check.txt")
	require.NoError(t, os.WriteFile(listsPath, []byte("Name,ListId\nA,1\nB,2\n"), 0o600))
	require.NoError(t, os.WriteFile(propsPath, []byte("techniques\n"), 0o600))

	targets, warnings, err := ReadTargets(listsPath)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	require.Empty(t, warnings)

	set, err := ReadProperties(propsPath)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
}
