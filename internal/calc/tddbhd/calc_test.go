package tddbhd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
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

func baseInput() Input {
	return Input{
		MaterialType:     "COLD ROLLED STEEL",
		Thickness:        0.125,
		Width:            24,
		YieldStrength:    60000,
		CoilID:           20,
		CoilOD:           72,
		ReelModel:        "CPR-040",
		TypeOfLine:       "Conventional",
		Decel:            5,
		Friction:         0.25,
		AirPressure:      80,
		BrakeModel:       "Failsafe - Double Stage",
		BrakeQuantity:    1,
		HolddownAssy:     "SD",
		HolddownCylinder: "5in Air",
	}
}

var allChecks = []string{CheckMinWidth, CheckAirPressure, CheckRewindTorque, CheckHoldDown, CheckBrakePress, CheckTorqueReq}

func TestExampleScenario(t *testing.T) {
	res, err := Calculate(env(t), baseInput())
	require.NoError(t, err)

	assert.Contains(t, []string{calc.OK, calc.NotOK, calc.UseMotorized}, res.Status)
	require.Len(t, res.Checks, 6)
	for _, name := range allChecks {
		assert.Contains(t, []string{calc.Pass, calc.Fail}, res.Checks[name], name)
	}

	// 4000 lb reel cap, OD solved back from the weight
	assert.Equal(t, 4000.0, res.CoilWeight)
	assert.InDelta(t, 33.91, res.CoilOD, 0.01)
	assert.InDelta(t, 225.0, res.WebTensionLbs, 1e-9)
	assert.InDelta(t, 3814.8, res.RewindTorque, 0.5)
	assert.InDelta(t, 1115.1, res.HoldDownForceReq, 0.5)
	assert.InDelta(t, 1568.0, res.HoldDownForceAvailable, 1e-9)
	assert.InDelta(t, 8.33, res.BrakePressRequired, 1e-9)
	assert.InDelta(t, 14310.0, res.FailsafeHoldingForce, 1e-9)
	assert.Equal(t, calc.OK, res.Status)
}

func TestValuesAreNonNegative(t *testing.T) {
	e := env(t)
	for _, th := range []float64{0.01, 0.06, 0.125, 0.25} {
		for _, w := range []float64{2, 12, 24} {
			for _, y := range []float64{20000, 60000, 120000} {
				in := baseInput()
				in.Thickness, in.Width, in.YieldStrength = th, w, y
				res, err := Calculate(e, in)
				require.NoError(t, err)
				for _, v := range []float64{res.TorqueRequired, res.RewindTorque, res.WebTensionLbs,
					res.HoldDownForceReq, res.HoldDownForceAvailable, res.BrakePressRequired} {
					assert.GreaterOrEqual(t, v, 0.0)
				}
				for _, name := range allChecks {
					assert.Contains(t, []string{calc.Pass, calc.Fail}, res.Checks[name])
				}
			}
		}
	}
}

func TestZeroValuesDetected(t *testing.T) {
	e := env(t)
	zeroers := map[string]func(*Input){
		"thickness":    func(in *Input) { in.Thickness = 0 },
		"width":        func(in *Input) { in.Width = 0 },
		"coil_id":      func(in *Input) { in.CoilID = 0 },
		"coil_od":      func(in *Input) { in.CoilOD = 0 },
		"air_pressure": func(in *Input) { in.AirPressure = 0 },
	}
	for field, zero := range zeroers {
		t.Run(field, func(t *testing.T) {
			in := baseInput()
			zero(&in)
			_, err := Calculate(e, in)
			var zv *calc.ZeroValueError
			require.True(t, errors.As(err, &zv))
			assert.Equal(t, []string{field}, zv.Fields)
			assert.Contains(t, err.Error(), "zero value detected")
			assert.Equal(t, calc.KindConfiguration, calc.Classify(err))
		})
	}
}

func TestCoilODMustExceedCoilID(t *testing.T) {
	e := env(t)
	for _, od := range []float64{10, 20} {
		in := baseInput()
		in.CoilOD = od
		res, err := Calculate(e, in)
		var ie *calc.InputError
		require.ErrorAs(t, err, &ie)
		assert.Contains(t, err.Error(), "CoilOD")
		assert.Equal(t, calc.KindConfiguration, calc.Classify(err))
		assert.Zero(t, res.CoilWeight)
	}
}

func TestIdempotent(t *testing.T) {
	e := env(t)
	a, err := Calculate(e, baseInput())
	require.NoError(t, err)
	b, err := Calculate(e, baseInput())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMotorizedLine(t *testing.T) {
	in := baseInput()
	in.TypeOfLine = "Motorized"
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.UseMotorized, res.Status)
	assert.Equal(t, 1200.0, res.TorqueAtMandrel)
	assert.Len(t, res.Checks, 6)
}

func TestStagedBrakeIgnoresHoldingForce(t *testing.T) {
	in := baseInput()
	in.BrakeModel = "Triple Stage"
	in.AirPressure = 120
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.Fail, res.Checks[CheckTorqueReq])
	assert.Equal(t, calc.Pass, res.Checks[CheckBrakePress])
	assert.Equal(t, calc.OK, res.Status)
}

func TestMinWidthWaivedWhenConfirmed(t *testing.T) {
	in := baseInput()
	in.Width = 1.5
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.Fail, res.Checks[CheckMinWidth])

	in.ConfirmedMinWidth = true
	confirmed, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.Fail, confirmed.Checks[CheckMinWidth])
	assert.Equal(t, calc.NotOK, res.Status)
	assert.Equal(t, calc.OK, confirmed.Status)
}

func TestUnknownKeysAreConfigurationErrors(t *testing.T) {
	e := env(t)
	for name, mut := range map[string]func(*Input){
		"reel":     func(in *Input) { in.ReelModel = "CPR-999" },
		"brake":    func(in *Input) { in.BrakeModel = "MB4000" },
		"material": func(in *Input) { in.MaterialType = "UNOBTAINIUM" },
		"line":     func(in *Input) { in.TypeOfLine = "Sideways" },
	} {
		t.Run(name, func(t *testing.T) {
			in := baseInput()
			mut(&in)
			_, err := Calculate(e, in)
			var uk *lookup.UnknownKeyError
			require.ErrorAs(t, err, &uk)
			assert.Equal(t, calc.KindConfiguration, calc.Classify(err))
		})
	}
}

func TestAggregate(t *testing.T) {
	pass := map[string]string{}
	for _, n := range allChecks {
		pass[n] = calc.Pass
	}
	assert.Equal(t, calc.OK, Aggregate(lookup.ReelPullOff, pass, false, true))

	fail := map[string]string{}
	for k, v := range pass {
		fail[k] = v
	}
	fail[CheckHoldDown] = calc.Fail
	assert.Equal(t, calc.NotOK, Aggregate(lookup.ReelPullOff, fail, true, true))
	assert.Equal(t, calc.UseMotorized, Aggregate(lookup.ReelMotorized, fail, false, true))
}

func TestHandler(t *testing.T) {
	h := &Handler{Env: env(t)}
	body, _ := json.Marshal(baseInput())
	rec := httptest.NewRecorder()
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/calc/tddbhd", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, calc.OK, res.Status)

	rec = httptest.NewRecorder()
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/calc/tddbhd", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
