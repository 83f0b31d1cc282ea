package reeldrive

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

func baseInput() Input {
	return Input{
		ReelModel:    "CPR-040",
		MaterialType: "COLD ROLLED STEEL",
		Width:        24,
		CoilID:       20,
		CoilOD:       48,
		MotorHP:      20,
		ReducerRatio: 20,
		Speed:        60,
		Accel:        1,
		TypeOfLine:   "Motorized",
	}
}

func TestMotorizedReelSized(t *testing.T) {
	res, err := Calculate(env(t), baseInput())
	require.NoError(t, err)

	assert.Equal(t, 4000.0, res.Coil.Weight)
	assert.InDelta(t, 33.91, res.Coil.OD, 0.01)
	assert.Equal(t, 80.0, res.Total.Ratio)
	assert.InDelta(t, 288.1, res.Mandrel.Weight, 0.1)
	assert.InDelta(t, 0.7737, res.Total.ReflectedInertiaEmpty, 1e-3)
	assert.Greater(t, res.Total.ReflectedInertiaFull, res.Total.ReflectedInertiaEmpty)
	assert.InDelta(t, 916.7, res.Speed.MotorRPMEmpty, 0.1)
	assert.InDelta(t, 1.0, res.Speed.AccelTime, 1e-9)

	assert.Equal(t, HPValid, res.HPReq.StatusEmpty)
	assert.Equal(t, HPValid, res.HPReq.StatusFull)
	assert.Equal(t, calc.OK, res.Checks[CheckRegen])
	assert.Equal(t, calc.OK, res.Checks[CheckUsePullOff])
	assert.Equal(t, calc.OK, res.Status)
}

func TestUndersizedMotor(t *testing.T) {
	in := baseInput()
	in.MotorHP = 2
	in.ReducerRatio = 5
	in.Speed = 400
	in.Accel = 10
	res, err := Calculate(env(t), in)
	require.NoError(t, err)

	assert.Equal(t, HPUndersized, res.HPReq.StatusEmpty)
	assert.Equal(t, HPUndersized, res.HPReq.StatusFull)
	assert.Equal(t, calc.RegenRequired, res.Checks[CheckRegen])
	assert.Equal(t, calc.NotOK, res.Status)
}

func TestOverSpeed(t *testing.T) {
	in := baseInput()
	in.Speed = 400
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, HPOverSpeed, res.HPReq.StatusEmpty)
	assert.Equal(t, calc.NotOK, res.Status)
}

func TestPullOffLine(t *testing.T) {
	in := baseInput()
	in.TypeOfLine = "Conventional"
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.UsePullOff, res.Checks[CheckUsePullOff])
	assert.Equal(t, calc.UsePullOff, res.Status)
	// still computed
	assert.Greater(t, res.HPReq.Full, 0.0)
}

func TestDefaultAccelRate(t *testing.T) {
	in := baseInput()
	in.Accel = 0
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, env(t).Config.ReelDrive.AccelRate, res.Speed.Accel)
}

func TestZeroAndUnknownInputs(t *testing.T) {
	e := env(t)

	in := baseInput()
	in.ReducerRatio = 0
	_, err := Calculate(e, in)
	var zv *calc.ZeroValueError
	require.ErrorAs(t, err, &zv)
	assert.Equal(t, []string{"reducer_ratio"}, zv.Fields)

	in = baseInput()
	in.MotorHP = 4
	_, err = Calculate(e, in)
	var uk *lookup.UnknownKeyError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, lookup.TableMotors, uk.Table)
}

func TestCoilODBelowIDIsInvalidInput(t *testing.T) {
	in := baseInput()
	in.CoilOD = 18
	_, err := Calculate(env(t), in)
	var ie *calc.InputError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "CoilOD failed gtfield")
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, calc.UsePullOff, Aggregate(map[string]string{CheckUsePullOff: calc.UsePullOff}))
	assert.Equal(t, calc.OK, Aggregate(map[string]string{
		CheckUsePullOff: calc.OK, CheckStatusEmpty: HPValid, CheckStatusFull: HPValid,
	}))
	assert.Equal(t, calc.NotOK, Aggregate(map[string]string{
		CheckUsePullOff: calc.OK, CheckStatusEmpty: HPValid, CheckStatusFull: HPOverSpeed,
	}))
}
