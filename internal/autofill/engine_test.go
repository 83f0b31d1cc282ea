package autofill

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/lookup"
	"github.com/CoePress/coesco-web/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const motorizedSheet = `{
	"material": {
		"materialType": "COLD ROLLED STEEL",
		"materialThickness": 0.125,
		"coilWidth": 24,
		"maxYieldStrength": 60000,
		"maxTensileStrength": 70000
	},
	"coil": {"coilID": 20, "maxCoilOD": 48, "maxCoilWeight": 4000},
	"feed": {"typeOfLine": "Motorized", "average": {"length": 5.0, "spm": 30}},
	"tddbhd": {"brake": {"model": ""}}
}`

func env(t *testing.T) calc.Env {
	t.Helper()
	e, err := calc.NewEnv()
	require.NoError(t, err)
	return e
}

func parse(t *testing.T, s string) Document {
	t.Helper()
	var d Document
	require.NoError(t, json.Unmarshal([]byte(s), &d))
	return d
}

func TestRunFillsEverySection(t *testing.T) {
	e := New(env(t), WithMetrics(metrics.New()))
	resp, err := e.Run(context.Background(), parse(t, motorizedSheet))
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, Version, resp.Metadata.Version)
	assert.NotEmpty(t, resp.Metadata.RequestID)

	out := resp.AutoFillValues
	length, _ := out.Float("feed.average.length")
	assert.Equal(t, 5.0, length)
	fpm, _ := out.Float("feed.average.fpm")
	assert.InDelta(t, 12.5, fpm, 1e-9)

	require.GreaterOrEqual(t, len(resp.GeneratedSections), 3)
	assert.Equal(t, []string{SectionRFQ, SectionMaterial, SectionTDDBHD}, resp.GeneratedSections[:3])
	for _, s := range Sections() {
		_, failed := resp.SectionErrors[s.Name]
		generated := false
		for _, g := range resp.GeneratedSections {
			generated = generated || g == s.Name
		}
		assert.True(t, failed != generated, "section %s must be generated or failed, not both", s.Name)
	}

	// the reel is selected for the coil and the motorized line needs no brake search
	model, _ := out.String(PathReelModel)
	assert.Equal(t, "CPR-040", model)
	status, _ := out.String("tddbhd.status")
	assert.Equal(t, calc.UseMotorized, status)
	iters, _ := out.Get("tddbhd.search.iterations")
	assert.Equal(t, 1, iters)
	brake, _ := out.String("tddbhd.brake.model")
	assert.Equal(t, "Single Stage", brake)

	checks, ok := out.Get("tddbhd.checks")
	require.True(t, ok)
	cm, ok := asMap(checks)
	require.True(t, ok)
	assert.Len(t, cm, 6)
	for name, v := range cm {
		assert.Contains(t, []any{calc.Pass, calc.Fail}, v, name)
	}
}

func TestRunKeepsPinnedCallerValues(t *testing.T) {
	doc := parse(t, motorizedSheet)
	doc.Set(PathLineType, "Conventional")
	doc.Set("tddbhd.brake.model", "Failsafe - Double Stage")
	doc.Set("tddbhd.airPressure", 80.0)

	resp, err := New(env(t)).Run(context.Background(), doc)
	require.NoError(t, err)

	out := resp.AutoFillValues
	brake, _ := out.String("tddbhd.brake.model")
	assert.Equal(t, "Failsafe - Double Stage", brake)
	air, _ := out.Float("tddbhd.airPressure")
	assert.Equal(t, 80.0, air)
	status, _ := out.String("tddbhd.status")
	assert.Contains(t, []string{calc.OK, calc.NotOK}, status)

	// the caller's document is not modified
	orig, _ := doc.Get("tddbhd.status")
	assert.Nil(t, orig)
}

// conventionalSheet is a pull-off line quote with no feed data and no coil weight.
func conventionalSheet(thickness, width float64) Document {
	return Document{
		"material": map[string]any{
			"materialType":      "COLD ROLLED STEEL",
			"materialThickness": thickness,
			"coilWidth":         width,
			"maxYieldStrength":  60000.0,
		},
		"coil": map[string]any{"coilID": 20.0, "maxCoilOD": 60.0},
		"feed": map[string]any{"typeOfLine": "Conventional"},
	}
}

func TestRunMaterialOnlyQuotes(t *testing.T) {
	e := New(env(t))
	for _, tc := range []struct {
		thickness, width float64
	}{
		{0.06, 12}, {0.125, 24}, {0.25, 24}, {0.06, 30}, {0.187, 30},
	} {
		resp, err := e.Run(context.Background(), conventionalSheet(tc.thickness, tc.width))
		require.NoError(t, err)
		require.True(t, resp.Success)
		out := resp.AutoFillValues

		assert.NotContains(t, resp.SectionErrors, SectionTDDBHD, "t=%g w=%g", tc.thickness, tc.width)
		assert.NotContains(t, resp.SectionErrors, SectionStrUtil, "t=%g w=%g", tc.thickness, tc.width)
		assert.NotContains(t, resp.GeneratedSections, SectionReelDrive)

		// the written cylinder is the one the hold-down was computed with
		emitted, ok := out.String("tddbhd.holddown.cylinder")
		require.True(t, ok)
		used, ok := out.String("tddbhd.result.holddown_cylinder")
		require.True(t, ok)
		assert.Equal(t, used, emitted, "t=%g w=%g", tc.thickness, tc.width)

		// with no line speed the straightener feed rate is searched
		fr, ok := out.Float("straightener.feedRate")
		require.True(t, ok)
		assert.GreaterOrEqual(t, fr, 5.0)
		assert.LessOrEqual(t, fr, 25.0)
	}
}

func TestRunOverweightCoilTakesLargestReel(t *testing.T) {
	// a 60 in OD coil 30 in wide weighs over 21,000 lb
	resp, err := New(env(t)).Run(context.Background(), conventionalSheet(0.06, 30))
	require.NoError(t, err)
	model, _ := resp.AutoFillValues.String(PathReelModel)
	assert.Equal(t, "CPR-200", model)
	weight, _ := resp.AutoFillValues.Float("tddbhd.result.coil_weight")
	assert.Equal(t, 20000.0, weight)
}

func TestRunKeepsPinnedCylinder(t *testing.T) {
	doc := conventionalSheet(0.06, 12)
	doc.Set("tddbhd.holddown.assy", "SD")
	doc.Set("tddbhd.holddown.cylinder", "Hydraulic")
	resp, err := New(env(t)).Run(context.Background(), doc)
	require.NoError(t, err)
	cyl, _ := resp.AutoFillValues.String("tddbhd.holddown.cylinder")
	assert.Equal(t, "Hydraulic", cyl)
	used, _ := resp.AutoFillValues.String("tddbhd.result.holddown_cylinder")
	assert.Equal(t, "Hydraulic", used)
}

func TestRunShearDwellTime(t *testing.T) {
	sections, err := Only(SectionShear)
	require.NoError(t, err)
	e := New(env(t), WithSections(sections...))

	resp, err := e.Run(context.Background(), parse(t, motorizedSheet))
	require.NoError(t, err)
	dwell, ok := resp.AutoFillValues.Float("shear.result.timing.dwell")
	require.True(t, ok)
	assert.Equal(t, env(t).Config.Defaults.Shear.DwellTime, dwell)

	doc := parse(t, motorizedSheet)
	doc.Set("shear.time.dwellTime", 0.0)
	resp, err = e.Run(context.Background(), doc)
	require.NoError(t, err)
	dwell, ok = resp.AutoFillValues.Float("shear.result.timing.dwell")
	require.True(t, ok)
	assert.Zero(t, dwell)
}

func TestRunIsolatesSectionFailures(t *testing.T) {
	var sawFine bool
	e := New(env(t), WithSections(
		Section{Name: "boom", run: func(*request) (contribution, error) { panic("division by zero") }},
		Section{Name: "broken", run: func(*request) (contribution, error) {
			return contribution{}, &lookup.UnknownKeyError{Table: lookup.TableReels, Key: "CPR-999"}
		}},
		Section{Name: "fine", run: func(*request) (contribution, error) {
			return contribution{values: Document{"fine": map[string]any{"status": calc.OK}}, satisfied: true}, nil
		}},
		Section{Name: "reader", run: func(r *request) (contribution, error) {
			_, sawFine = r.doc.Get("fine.status")
			return contribution{values: Document{}}, nil
		}},
		Section{Name: "skipped", applies: func(*request) bool { return false }, run: func(*request) (contribution, error) {
			t.Fatal("skipped section ran")
			return contribution{}, nil
		}},
	))
	resp, err := e.Run(context.Background(), Document{"material": map[string]any{"materialThickness": 0.125}})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"fine", "reader"}, resp.GeneratedSections)
	assert.Contains(t, resp.SectionErrors["boom"], "panicked")
	assert.Contains(t, resp.SectionErrors["broken"], "CPR-999")
	assert.True(t, sawFine)
}

func TestRunUnknownMaterialOnlyFailsItsSections(t *testing.T) {
	doc := parse(t, motorizedSheet)
	doc.Set(PathMaterialType, "UNOBTAINIUM")

	resp, err := New(env(t)).Run(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.GeneratedSections, SectionRFQ)
	assert.Contains(t, resp.SectionErrors[SectionMaterial], "UNOBTAINIUM")
	assert.Contains(t, resp.SectionErrors[SectionTDDBHD], "UNOBTAINIUM")
}

func TestRunRejectsEmptyAndCancelled(t *testing.T) {
	e := New(env(t))
	_, err := e.Run(context.Background(), Document{})
	require.ErrorIs(t, err, ErrEmptyDocument)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, parse(t, motorizedSheet))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunBatch(t *testing.T) {
	e := New(env(t))
	out, err := e.RunBatch(context.Background(), []Document{parse(t, motorizedSheet), {}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Success)
	assert.False(t, out[1].Success)
	assert.Nil(t, out[1].AutoFillValues)
	assert.Contains(t, out[1].Error, "empty")

	_, err = e.RunBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestOnly(t *testing.T) {
	s, err := Only(SectionShear, SectionRFQ)
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, SectionRFQ, s[0].Name)

	_, err = Only("paint")
	require.Error(t, err)
}

func TestHandler(t *testing.T) {
	h := &Handler{Engine: New(env(t))}

	rec := httptest.NewRecorder()
	h.Autofill(rec, httptest.NewRequest(http.MethodPost, "/api/autofill", strings.NewReader(motorizedSheet)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)

	rec = httptest.NewRecorder()
	h.Autofill(rec, httptest.NewRequest(http.MethodPost, "/api/autofill", strings.NewReader("{")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var failed map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&failed))
	assert.Equal(t, false, failed["success"])
	assert.Nil(t, failed["autoFillValues"])

	body, _ := json.Marshal(BatchInput{Items: []Document{parse(t, motorizedSheet)}})
	rec = httptest.NewRecorder()
	h.Batch(rec, httptest.NewRequest(http.MethodPost, "/api/autofill/batch", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var batch BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&batch))
	assert.Equal(t, 1, batch.Count)
}
