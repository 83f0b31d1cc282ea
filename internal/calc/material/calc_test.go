package material

import (
	"testing"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/lookup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(t *testing.T) calc.Env {
	t.Helper()
	e, err := calc.NewEnv()
	require.NoError(t, err)
	return e
}

func TestSpecsFromOD(t *testing.T) {
	res, err := Calculate(env(t), Input{
		MaterialType:  "cold rolled steel",
		Thickness:     0.125,
		Width:         24,
		YieldStrength: 60000,
		CoilID:        20,
		CoilOD:        48,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.283, res.Density)
	assert.InDelta(t, 30.729, res.MinBendRadius, 1e-3)
	assert.InDelta(t, 96.54, res.MinLoopLength, 1e-2)
	assert.Equal(t, 48.0, res.CalculatedCoilOD)
	assert.InDelta(t, 10156.74, res.CoilWeight, 0.01)
	assert.InDelta(t, 10.188, res.WeightPerFoot, 1e-3)
}

func TestODFromWeight(t *testing.T) {
	res, err := Calculate(env(t), Input{
		MaterialType:  "COLD ROLLED STEEL",
		Thickness:     0.125,
		Width:         24,
		YieldStrength: 60000,
		CoilID:        20,
		CoilWeight:    4000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 33.91, res.CalculatedCoilOD, 0.01)
	assert.Equal(t, 4000.0, res.CoilWeight)
}

func TestMissingCoilSize(t *testing.T) {
	_, err := Calculate(env(t), Input{MaterialType: "BRASS", Thickness: 0.1, Width: 10, YieldStrength: 30000, CoilID: 20})
	var zv *calc.ZeroValueError
	require.ErrorAs(t, err, &zv)
	assert.Equal(t, []string{"coil_od"}, zv.Fields)
}

func TestUnknownMaterial(t *testing.T) {
	_, err := Calculate(env(t), Input{MaterialType: "WOOD", Thickness: 0.1, Width: 10, YieldStrength: 30000, CoilID: 20, CoilOD: 40})
	var uk *lookup.UnknownKeyError
	require.ErrorAs(t, err, &uk)
}
