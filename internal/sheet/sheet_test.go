package sheet

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const rowsCSV = `material.materialType,material.materialThickness,feed.typeOfLine,note
COLD ROLLED STEEL,0.125,Conventional,
ALUMINUM,0.06,,second
,,,
`

func TestReadCSV(t *testing.T) {
	docs, err := ReadCSV(strings.NewReader(rowsCSV))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	want := autofill.Document{
		"material": map[string]any{"materialType": "COLD ROLLED STEEL", "materialThickness": 0.125},
		"feed":     map[string]any{"typeOfLine": "Conventional"},
	}
	if diff := cmp.Diff(want, docs[0]); diff != "" {
		t.Errorf("first row mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "second", docs[1]["note"])
}

func TestReadRejectsEmptySheet(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a.b\n"))
	require.ErrorIs(t, err, ErrEmptySheet)
	_, err = ReadCSV(strings.NewReader("a.b\n,\n"))
	require.ErrorIs(t, err, ErrEmptySheet)
}

func TestXLSXRoundTrip(t *testing.T) {
	docs := []autofill.Document{
		{"material": map[string]any{"materialType": "ALUMINUM", "materialThickness": 0.06}},
		{"reel": map[string]any{"model": "CPR-040"}, "feed": map[string]any{"average": map[string]any{"length": 5.0}}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, docs))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Results", f.GetSheetName(0))
	f.Close()

	got, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	if diff := cmp.Diff(docs, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVColumnsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []autofill.Document{
		{"b": 1.0, "a": map[string]any{"x": "y"}},
		{"c": true},
	}))
	assert.Equal(t, "a.x,b,c\ny,1,\n,,true\n", buf.String())
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("Quotes.XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)
	f, err = FormatOf("rows.csv")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)
	_, err = FormatOf("rows.ods")
	require.Error(t, err)
}

func TestResults(t *testing.T) {
	docs := Results([]autofill.Response{{
		Success:           true,
		AutoFillValues:    autofill.Document{"reel": map[string]any{"model": "CPR-040"}},
		GeneratedSections: []string{"rfq", "tddbhd"},
		SectionErrors:     map[string]string{"shear": "boom"},
	}})
	require.Len(t, docs, 1)
	flat := autofill.Flatten(docs[0])
	assert.Equal(t, true, flat["autofill.success"])
	assert.Equal(t, "rfq,tddbhd", flat["autofill.generatedSections"])
	assert.Equal(t, "boom", flat["autofill.errors.shear"])
	assert.Equal(t, "CPR-040", flat["reel.model"])
}

func upload(t *testing.T, name, body, query string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	fw.Write([]byte(body))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/import"+query, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportHandler(t *testing.T) {
	env, err := calc.NewEnv()
	require.NoError(t, err)
	h := &Handler{Engine: autofill.New(env)}

	rec := httptest.NewRecorder()
	h.Import(rec, upload(t, "quotes.csv", rowsCSV, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var res autofill.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 2, res.Count)

	rec = httptest.NewRecorder()
	h.Import(rec, upload(t, "quotes.csv", rowsCSV, "?output=csv"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, strings.SplitN(rec.Body.String(), "\n", 2)[0], "autofill.success")

	rec = httptest.NewRecorder()
	h.Import(rec, upload(t, "quotes.ods", rowsCSV, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Import(rec, upload(t, "quotes.csv", rowsCSV, "?output=pdf"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
