// Package feed sizes a servo roll feed for a press: move profile, reflected
// inertia, peak and RMS motor torque at both feed angles, and regenerated energy.
package feed

import (
	"math"
	"strings"

	"github.com/CoePress/coesco-web/internal/calc"
)

// Feed tables.
const (
	TableSigmaFive    = "sigma-five"
	TableSigmaFivePT  = "sigma-five-pt"
	TableAllenBradley = "allen-bradley"
)

type Input struct {
	Table            string  `json:"table" validate:"omitempty,oneof=sigma-five sigma-five-pt allen-bradley"`
	Model            string  `json:"model" validate:"required"`
	FeedLength       float64 `json:"feed_length"` // in
	SPM              float64 `json:"spm"`
	MaterialType     string  `json:"material_type" validate:"required"`
	Thickness        float64 `json:"thickness"`
	Width            float64 `json:"width"`
	YieldStrength    float64 `json:"yield_strength"` // pull-thru only
	PressBedLength   float64 `json:"press_bed_length"`
	MaterialInLoop   float64 `json:"material_in_loop"`
	FrictionInDie    float64 `json:"friction_in_die"`   // lbs
	AccelerationRate float64 `json:"acceleration_rate"` // ft/s^2 limit, 0 means unlimited
	FeedAngle1       float64 `json:"feed_angle_1" validate:"gte=0,lte=360"`
	FeedAngle2       float64 `json:"feed_angle_2" validate:"gte=0,lte=360"`
	StrRolls         int     `json:"str_rolls"` // pull-thru, 0 means the model's rolls
}

type Torques struct {
	Peak         float64 `json:"peak"`
	Frictional   float64 `json:"frictional"`
	Loop         float64 `json:"loop"`
	Settle       float64 `json:"settle"`
	Acceleration float64 `json:"acceleration"`
	Straightener float64 `json:"straightener"`
}

// Angle is the move profile and RMS torque when feeding within one feed angle.
type Angle struct {
	Angle        float64 `json:"angle"`
	Window       float64 `json:"window"`    // s
	MoveTime     float64 `json:"move_time"` // s, window less settle
	MaxVelocity  float64 `json:"max_velocity"`
	Acceleration float64 `json:"acceleration"` // ft/s^2
	MotorRPM     float64 `json:"motor_rpm"`
	PeakTorque   float64 `json:"peak_torque"`
	RMSTorque    float64 `json:"rms_torque"`
}

type Result struct {
	Table          string            `json:"table"`
	Model          string            `json:"model"`
	Ratio          float64           `json:"ratio"`
	MaxMotorRPM    float64           `json:"max_motor_rpm"`
	MotorInertia   float64           `json:"motor_inertia"`
	LoadInertia    float64           `json:"load_inertia"` // reflected to the motor
	Match          float64           `json:"match"`
	MaterialWeight float64           `json:"material_weight"`
	CycleTime      float64           `json:"cycle_time"`
	MaxVelocity    float64           `json:"max_velocity"` // fpm
	Acceleration   float64           `json:"acceleration"` // ft/s^2
	Torques        Torques           `json:"torques"`
	Angle1         Angle             `json:"angle_1"`
	Angle2         Angle             `json:"angle_2"`
	RegenWatts     float64           `json:"regen_watts"`
	Checks         map[string]string `json:"checks"`
	Status         string            `json:"status"`
}

// Check names.
const (
	CheckFeed         = "feed_check"
	CheckMatch        = "match_check"
	CheckPeakTorque   = "peak_torque_check"
	CheckAcceleration = "acceleration_check"
	CheckMotor        = "motor_check"
	CheckFeedAngle1   = "feed_angle1_check"
	CheckFeedAngle2   = "feed_angle2_check"
	CheckRegen        = "regen_check"
)

// in-lb to joules
const inLbJoules = 0.112985

type drive struct {
	r, ratio, jTotal     float64
	settleTime           float64
	friction, loop, strT float64
}

// profile fits a 1/3 trapezoid move of length L into the feed angle window and
// returns its RMS torque over one press cycle.
func (d drive) profile(L, cycle, angle float64) Angle {
	a := Angle{Angle: angle, Window: angle / 360 * cycle}
	a.MoveTime = a.Window - d.settleTime
	if a.MoveTime <= 0 {
		return a
	}
	t := a.MoveTime
	v := 1.5 * L / t         // in/s
	acc := 4.5 * L / (t * t) // in/s^2
	a.MaxVelocity = v * 60 / 12
	a.Acceleration = acc / 12
	a.MotorRPM = v / (math.Pi * 2 * d.r) * 60 * d.ratio

	hold := d.friction + d.loop + d.strT
	accelT := d.jTotal * acc / d.r * d.ratio
	a.PeakTorque = accelT + hold
	seg := t / 3
	dwell := cycle - a.Window
	sumSq := a.PeakTorque*a.PeakTorque*seg +
		hold*hold*seg +
		(accelT-hold)*(accelT-hold)*seg +
		hold*hold*d.settleTime +
		d.loop*d.loop*dwell
	a.RMSTorque = math.Sqrt(sumSq / cycle)
	return a
}

func Calculate(env calc.Env, in Input) (Result, error) {
	def := env.Config.Defaults.Feed
	table := in.Table
	if table == "" {
		table = def.Table
	}
	orDefault := func(v, d float64) float64 {
		if v == 0 {
			return d
		}
		return v
	}
	bed := orDefault(in.PressBedLength, def.PressBedLength)
	loopLen := orDefault(in.MaterialInLoop, def.MaterialInLoop)
	friction := orDefault(in.FrictionInDie, def.FrictionInDie)
	angle1 := orDefault(in.FeedAngle1, def.FeedAngle1)
	angle2 := orDefault(in.FeedAngle2, def.FeedAngle2)

	fields := map[string]float64{
		"feed_length": in.FeedLength,
		"spm":         in.SPM,
		"thickness":   in.Thickness,
		"width":       in.Width,
	}
	if table == TableSigmaFivePT {
		fields["yield_strength"] = in.YieldStrength
	}
	if err := calc.CheckZero(fields); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}
	f, err := env.Tables.Feed(table, in.Model)
	if err != nil {
		return Result{}, err
	}
	mat, err := env.Tables.Material(in.MaterialType)
	if err != nil {
		return Result{}, err
	}

	p := env.Config.Physics
	t, w := in.Thickness, in.Width
	r := f.RollDiameter / 2

	weight := t * w * mat.Density * (bed + loopLen)
	loopWeight := t * w * mat.Density * loopLen
	jLoad := (weight/p.Gravity*r*r + f.RollInertia) / (f.Ratio * f.Ratio)

	d := drive{
		r:          r,
		ratio:      f.Ratio,
		jTotal:     f.MotorInertia + jLoad,
		settleTime: f.SettleTime,
		friction:   friction * r / f.Ratio,
		loop:       loopWeight * r / f.Ratio,
	}
	if table == TableSigmaFivePT {
		// drag of pulling the strip through the straightener rolls
		rolls := in.StrRolls
		if rolls == 0 {
			rolls = f.StrRolls
		}
		mp := w * t * t * in.YieldStrength / 4
		d.strT = f.KConst * float64(rolls) * mp / f.CenterDistance * r / f.Ratio
	}

	cycle := 60 / in.SPM
	a1 := d.profile(in.FeedLength, cycle, angle1)
	a2 := d.profile(in.FeedLength, cycle, angle2)

	// the tighter of the two angles sets the peak demand
	tight := a1
	if a2.MoveTime > 0 && (a1.MoveTime <= 0 || a2.MoveTime < a1.MoveTime) {
		tight = a2
	}
	accelT := 0.0
	if tight.MoveTime > 0 {
		accelT = d.jTotal * tight.Acceleration * 12 / r * f.Ratio
	}
	torques := Torques{
		Peak:         tight.PeakTorque,
		Frictional:   d.friction,
		Loop:         d.loop,
		Settle:       d.friction + d.loop + d.strT,
		Acceleration: accelT,
		Straightener: d.strT,
	}

	omega := tight.MaxVelocity * 12 / 60 / r * f.Ratio
	regen := 0.5 * d.jTotal * omega * omega * inLbJoules * in.SPM / 60

	match := jLoad / f.MotorInertia
	checks := map[string]string{
		CheckFeed:         calc.OKNotOK(tight.MaxVelocity <= f.MaxVelocity && w <= f.MaxWidth),
		CheckMatch:        calc.OKNotOK(match <= env.Config.Feed.MaxInertiaMatch),
		CheckPeakTorque:   calc.OKNotOK(tight.MoveTime > 0 && tight.PeakTorque <= f.PeakTorque),
		CheckAcceleration: calc.OKNotOK(in.AccelerationRate == 0 || tight.Acceleration <= in.AccelerationRate),
		CheckMotor:        calc.OKNotOK(tight.MotorRPM <= f.MaxMotorRPM),
		CheckFeedAngle1:   calc.OKNotOK(a1.MoveTime > 0 && a1.RMSTorque <= f.RMSTorque),
		CheckFeedAngle2:   calc.OKNotOK(a2.MoveTime > 0 && a2.RMSTorque <= f.RMSTorque),
		CheckRegen:        calc.OK,
	}
	if regen > f.RegenCapacity {
		checks[CheckRegen] = calc.RegenRequired
	}

	return Result{
		Table:          table,
		Model:          strings.TrimSpace(in.Model),
		Ratio:          f.Ratio,
		MaxMotorRPM:    f.MaxMotorRPM,
		MotorInertia:   f.MotorInertia,
		LoadInertia:    jLoad,
		Match:          match,
		MaterialWeight: weight,
		CycleTime:      cycle,
		MaxVelocity:    tight.MaxVelocity,
		Acceleration:   tight.Acceleration,
		Torques:        torques,
		Angle1:         a1,
		Angle2:         a2,
		RegenWatts:     regen,
		Checks:         checks,
		Status:         Aggregate(checks),
	}, nil
}

// Aggregate is OK when every check passes; regen is advisory.
func Aggregate(checks map[string]string) string {
	return calc.OKNotOK(calc.AllOK(checks,
		CheckFeed, CheckMatch, CheckPeakTorque, CheckAcceleration,
		CheckMotor, CheckFeedAngle1, CheckFeedAngle2))
}
