package feed

import (
	"encoding/json"
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
		Table:            TableSigmaFive,
		Model:            "CPRF-S2",
		FeedLength:       12,
		SPM:              30,
		MaterialType:     "COLD ROLLED STEEL",
		Thickness:        0.125,
		Width:            24,
		AccelerationRate: 6,
	}
}

func TestServoFeedSized(t *testing.T) {
	res, err := Calculate(env(t), baseInput())
	require.NoError(t, err)

	assert.Equal(t, 2.0, res.CycleTime)
	assert.InDelta(t, 0.02012, res.LoadInertia, 1e-5)
	assert.InDelta(t, 1.1178, res.Match, 1e-4)
	assert.InDelta(t, 18.75, res.Torques.Frictional, 1e-9)
	assert.InDelta(t, 7.641, res.Torques.Loop, 1e-9)
	assert.Equal(t, 0.0, res.Torques.Straightener)

	assert.InDelta(t, 0.93, res.Angle1.MoveTime, 1e-9)
	assert.InDelta(t, 96.774, res.MaxVelocity, 1e-3)
	assert.InDelta(t, 5.2029, res.Acceleration, 1e-4)
	assert.InDelta(t, 32.738, res.Torques.Peak, 1e-3)
	assert.InDelta(t, 19.746, res.Angle1.RMSTorque, 1e-3)
	assert.InDelta(t, 22.108, res.Angle2.RMSTorque, 1e-3)
	assert.InDelta(t, 2.868, res.RegenWatts, 1e-3)

	for name, status := range res.Checks {
		assert.Equal(t, calc.OK, status, name)
	}
	assert.Equal(t, calc.OK, res.Status)
}

func TestAccelerationLimit(t *testing.T) {
	in := baseInput()
	in.AccelerationRate = 5
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.NotOK, res.Checks[CheckAcceleration])
	assert.Equal(t, calc.NotOK, res.Status)

	in.AccelerationRate = 0
	res, err = Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.OK, res.Checks[CheckAcceleration])
}

func TestFeedTooFast(t *testing.T) {
	in := baseInput()
	in.FeedLength = 24
	in.SPM = 60
	in.AccelerationRate = 0
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.InDelta(t, 418.6, res.MaxVelocity, 0.1)
	assert.Equal(t, calc.NotOK, res.Checks[CheckFeed])
	assert.Equal(t, calc.NotOK, res.Status)
}

func TestMaterialWiderThanFeed(t *testing.T) {
	in := baseInput()
	in.Model = "CPRF-S1"
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.NotOK, res.Checks[CheckFeed])
}

func TestPullThruAddsStraightenerDrag(t *testing.T) {
	in := baseInput()
	in.Table = TableSigmaFivePT
	in.Model = "CPRF-S2-PT"
	in.YieldStrength = 60000
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.InDelta(t, 98.4375, res.Torques.Straightener, 1e-9)
	assert.InDelta(t, 18.75+7.641+98.4375, res.Torques.Settle, 1e-9)
	assert.Equal(t, calc.NotOK, res.Checks[CheckFeedAngle2])

	in.YieldStrength = 0
	_, err = Calculate(env(t), in)
	var zv *calc.ZeroValueError
	require.ErrorAs(t, err, &zv)
	assert.Equal(t, []string{"yield_strength"}, zv.Fields)
}

func TestFeedAngleShorterThanSettle(t *testing.T) {
	in := baseInput()
	in.FeedAngle1 = 10
	res, err := Calculate(env(t), in)
	require.NoError(t, err)
	assert.Equal(t, calc.NotOK, res.Checks[CheckFeedAngle1])
	assert.Equal(t, calc.NotOK, res.Status)
	// the other angle still drives the profile
	assert.Equal(t, res.Angle2.MaxVelocity, res.MaxVelocity)

	_, err = json.Marshal(res)
	assert.NoError(t, err)
}

func TestUnknownModel(t *testing.T) {
	in := baseInput()
	in.Model = "CPRF-S9"
	_, err := Calculate(env(t), in)
	var uk *lookup.UnknownKeyError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, calc.KindConfiguration, calc.Classify(err))
}
