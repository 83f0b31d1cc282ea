package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE", "sqlite")
	t.Setenv("LOG_LEVEL", "error")
	if os.Getenv("SQLITE_PATH") == "" {
		t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	}
	root := newRootCommand("test")
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const quote = `{
  "material": {"materialType": "COLD ROLLED STEEL", "materialThickness": 0.125, "coilWidth": 24,
               "maxYieldStrength": 60000, "maxTensileStrength": 70000},
  "coil": {"coilID": 20, "maxCoilOD": 48, "maxCoilWeight": 4000},
  "feed": {"typeOfLine": "Motorized", "average": {"length": 5, "spm": 30}}
}`

func TestAutofillCommand(t *testing.T) {
	out, err := run(t, quote, "autofill", "--sections", "rfq,material-specs,tddbhd")
	require.NoError(t, err)
	var resp autofill.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"rfq", "material-specs", "tddbhd"}, resp.GeneratedSections)
	assert.Equal(t, "CPR-040", resp.AutoFillValues["reel"].(map[string]any)["model"])
}

func TestAutofillCommandFailure(t *testing.T) {
	out, err := run(t, `{}`, "autofill")
	require.ErrorIs(t, err, errReported)
	var resp autofill.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Success)
	assert.Nil(t, resp.AutoFillValues)
	assert.NotEmpty(t, resp.Error)

	_, err = run(t, `not json`, "autofill")
	require.ErrorIs(t, err, errReported)

	_, err = run(t, quote, "autofill", "--sections", "press")
	require.Error(t, err)
}

func TestCalcAndLookupCommands(t *testing.T) {
	out, err := run(t, `{"average":{"length":5,"spm":30}}`, "calc", "rfq")
	require.NoError(t, err)
	assert.Contains(t, out, `"fpm": 12.5`)

	out, err = run(t, "", "lookup", "reels", "CPR-040")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = run(t, "", "lookup", "reels", "CPR-999")
	require.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "configs.db"))

	_, err := run(t, `{"material":{"materialType":"ALUMINUM"}}`, "config", "save", "Q-1001")
	require.NoError(t, err)

	out, err := run(t, "", "config", "get", "Q-1001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"material":{"materialType":"ALUMINUM"}}`, out)

	out, err = run(t, "", "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"ref": "Q-1001"`)

	out, err = run(t, "", "export", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "material.materialType,ref\nALUMINUM,Q-1001\n", out)

	_, err = run(t, "", "config", "delete", "Q-1001")
	require.NoError(t, err)
	_, err = run(t, "", "config", "get", "Q-1001")
	require.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "quotes.csv")
	require.NoError(t, os.WriteFile(in, []byte("feed.average.length,feed.average.spm\n5,30\n10,30\n"), 0o644))

	out, err := run(t, "", "import", in)
	require.NoError(t, err)
	var res autofill.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Count)

	xlsx := filepath.Join(dir, "results.xlsx")
	_, err = run(t, "", "import", in, "--out", xlsx)
	require.NoError(t, err)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestReportCommand(t *testing.T) {
	filled, err := run(t, quote, "autofill", "--sections", "rfq,material-specs,tddbhd")
	require.NoError(t, err)

	pdf := filepath.Join(t.TempDir(), "q.pdf")
	_, err = run(t, filled, "report", "--project", "Q-1001", "--out", pdf)
	require.NoError(t, err)
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = run(t, filled, "report")
	require.Error(t, err)
}

func TestHashKeyCommand(t *testing.T) {
	out, err := run(t, "", "hashkey", "s3cret")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))
}
