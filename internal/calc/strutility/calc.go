// Package strutility sizes a powered straightener: roll forces, gear capacity,
// pinch roll torque and drive horsepower.
package strutility

import (
	"math"
	"strings"

	"github.com/CoePress/coesco-web/internal/calc"
)

type Input struct {
	StraightenerModel     string  `json:"straightener_model" validate:"required"`
	Rolls                 int     `json:"rolls" validate:"gte=0"` // 0 means the configured default
	MaterialType          string  `json:"material_type" validate:"required"`
	Thickness             float64 `json:"thickness"`
	Width                 float64 `json:"width"`
	YieldStrength         float64 `json:"yield_strength"`
	CoilWeight            float64 `json:"coil_weight"`
	CoilID                float64 `json:"coil_id"`
	CoilOD                float64 `json:"coil_od" validate:"gtfield=CoilID"`
	Horsepower            float64 `json:"horsepower"`
	FeedRate              float64 `json:"feed_rate"`    // fpm, 0 means required_fpm plus buffer
	RequiredFPM           float64 `json:"required_fpm"` // line speed
	Acceleration          float64 `json:"acceleration" validate:"gte=0"`
	AutoBrakeCompensation bool    `json:"auto_brake_compensation"`
}

type Gear struct {
	Teeth       int     `json:"teeth"`
	DP          float64 `json:"dp"`
	LewisFactor float64 `json:"lewis_factor"`
	RatedTorque float64 `json:"rated_torque"`
}

type Result struct {
	StraightenerModel  string            `json:"straightener_model"`
	Rolls              int               `json:"rolls"`
	RollDiameter       float64           `json:"roll_diameter"`
	CenterDistance     float64           `json:"center_distance"`
	PinchRollDiameter  float64           `json:"pinch_roll_diameter"`
	FeedRate           float64           `json:"feed_rate"`
	CoilWeight         float64           `json:"coil_weight"`
	PlasticMoment      float64           `json:"plastic_moment"`
	RequiredForce      float64           `json:"required_force"`
	JackForceAvailable float64           `json:"jack_force_available"`
	StrTorque          float64           `json:"str_torque"`
	StrRollTorque      float64           `json:"str_roll_torque"` // per roll
	WebTension         float64           `json:"web_tension"`
	BrakeTorque        float64           `json:"brake_torque"`
	CoilInertia        float64           `json:"coil_inertia"`
	ReflectedInertia   float64           `json:"reflected_inertia"` // at the pinch rolls
	AccelTorque        float64           `json:"accel_torque"`
	PinchRollTorque    float64           `json:"pinch_roll_torque"` // per pinch roll
	StrRPM             float64           `json:"str_rpm"`
	PinchRPM           float64           `json:"pinch_rpm"`
	HorsepowerRequired float64           `json:"horsepower_required"`
	StrGear            Gear              `json:"str_gear"`
	PinchGear          Gear              `json:"pinch_gear"`
	Checks             map[string]string `json:"checks"`
	Status             string            `json:"status"`
}

// Check names and their non-binary outcomes.
const (
	CheckHorsepower  = "horsepower_check"
	CheckJackForce   = "jack_force_check"
	CheckBackupRolls = "backup_rolls_check"
	CheckFeedRate    = "feed_rate_check"
	CheckPinchRoll   = "pinch_roll_check"
	CheckStrRoll     = "str_roll_check"
	CheckFPM         = "fpm_check"

	UseBackupRolls  = "USE BACKUP ROLLS"
	FPMSufficient   = "FPM SUFFICIENT"
	FPMInsufficient = "FPM INSUFFICIENT"
)

func Calculate(env calc.Env, in Input) (Result, error) {
	k := env.Config.Straightener
	p := env.Config.Physics
	rolls := in.Rolls
	if rolls == 0 {
		rolls = env.Config.Defaults.Straightener.Rolls
	}
	accel := in.Acceleration
	if accel == 0 {
		accel = env.Config.Defaults.Straightener.Acceleration
	}
	feedRate := in.FeedRate
	if feedRate == 0 {
		feedRate = in.RequiredFPM * k.FPMBuffer
	}
	if err := calc.CheckZero(map[string]float64{
		"thickness":      in.Thickness,
		"width":          in.Width,
		"yield_strength": in.YieldStrength,
		"coil_id":        in.CoilID,
		"coil_od":        in.CoilOD,
		"horsepower":     in.Horsepower,
		"feed_rate":      feedRate,
		"rolls":          float64(rolls),
	}); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}

	tb := env.Tables
	s, err := tb.Straightener(in.StraightenerModel)
	if err != nil {
		return Result{}, err
	}
	mat, err := tb.Material(in.MaterialType)
	if err != nil {
		return Result{}, err
	}
	strY, err := tb.LewisFactor(s.StrRollTeeth)
	if err != nil {
		return Result{}, err
	}
	pinchY, err := tb.LewisFactor(s.PinchRollTeeth)
	if err != nil {
		return Result{}, err
	}

	t, w, yield := in.Thickness, in.Width, in.YieldStrength
	D, c, pd := s.RollDiameter, s.CenterDistance, s.PinchRollDiameter
	n := float64(rolls)
	g := p.Gravity

	// Roll forces and straightening torque
	mp := w * t * t * yield / 4
	reqForce := 4 * mp / c * math.Floor(n/2)
	strTorque := n * mp * (D / 2) / c
	strRollTorque := strTorque / n

	// Pinch rolls hold back the web and accelerate the coil
	tension := t * w * yield / env.Config.TDDBHD.TensionDivisor
	brake := tension * pd / 2
	if in.AutoBrakeCompensation {
		brake /= 2
	}
	weight := in.CoilWeight
	if weight <= 0 {
		weight = math.Pi / 4 * (in.CoilOD*in.CoilOD - in.CoilID*in.CoilID) * w * mat.Density
	}
	od, id := in.CoilOD, in.CoilID
	jCoil := weight * (od*od + id*id) / (8 * g)
	rollJ := func(dia float64) float64 {
		r := dia / 2
		return p.SteelDensity * math.Pi * r * r * r * r * s.MaxWidth / (2 * g)
	}
	jRef := jCoil*(pd/od)*(pd/od) + n*rollJ(D)*(pd/D)*(pd/D) + k.PinchRollQty*rollJ(pd)
	alpha := accel * 12 / (pd / 2)
	accelTorque := jRef * alpha
	pinchTorque := (brake + accelTorque) / k.PinchRollQty

	strRPM := feedRate * 12 / (math.Pi * D)
	pinchRPM := feedRate * 12 / (math.Pi * pd)
	hpReq := (strTorque*strRPM + (brake+accelTorque)*pinchRPM) / p.HPConstant / k.Efficiency

	strGear := lewisGear(s.StrRollTeeth, s.StrRollDP, strY, s.FaceWidth, k.GearAllowableStress)
	pinchGear := lewisGear(s.PinchRollTeeth, s.PinchRollDP, pinchY, s.FaceWidth, k.GearAllowableStress)

	checks := map[string]string{
		CheckHorsepower:  calc.OKNotOK(hpReq <= in.Horsepower),
		CheckJackForce:   calc.OKNotOK(reqForce <= s.JackForce),
		CheckBackupRolls: calc.OK,
		CheckFeedRate:    calc.OKNotOK(feedRate <= s.MaxFeedRate),
		CheckPinchRoll:   calc.OKNotOK(pinchTorque <= pinchGear.RatedTorque),
		CheckStrRoll:     calc.OKNotOK(strRollTorque <= strGear.RatedTorque),
		CheckFPM:         FPMSufficient,
	}
	if w > k.BackupRollWidth && !s.BackupRolls {
		checks[CheckBackupRolls] = UseBackupRolls
	}
	if feedRate < in.RequiredFPM*k.FPMBuffer {
		checks[CheckFPM] = FPMInsufficient
	}

	return Result{
		StraightenerModel:  strings.ToUpper(strings.TrimSpace(in.StraightenerModel)),
		Rolls:              rolls,
		RollDiameter:       D,
		CenterDistance:     c,
		PinchRollDiameter:  pd,
		FeedRate:           feedRate,
		CoilWeight:         weight,
		PlasticMoment:      mp,
		RequiredForce:      reqForce,
		JackForceAvailable: s.JackForce,
		StrTorque:          strTorque,
		StrRollTorque:      strRollTorque,
		WebTension:         tension,
		BrakeTorque:        brake,
		CoilInertia:        jCoil,
		ReflectedInertia:   jRef,
		AccelTorque:        accelTorque,
		PinchRollTorque:    pinchTorque,
		StrRPM:             strRPM,
		PinchRPM:           pinchRPM,
		HorsepowerRequired: hpReq,
		StrGear:            strGear,
		PinchGear:          pinchGear,
		Checks:             checks,
		Status:             Aggregate(checks),
	}, nil
}

// lewisGear rates a spur gear by the Lewis bending equation.
func lewisGear(teeth int, dp, y, face, stress float64) Gear {
	wt := stress * face * y / dp
	return Gear{
		Teeth:       teeth,
		DP:          dp,
		LewisFactor: y,
		RatedTorque: wt * float64(teeth) / dp / 2,
	}
}

func Aggregate(checks map[string]string) string {
	ok := calc.AllOK(checks, CheckHorsepower, CheckJackForce, CheckBackupRolls, CheckFeedRate, CheckPinchRoll, CheckStrRoll) &&
		checks[CheckFPM] == FPMSufficient
	return calc.OKNotOK(ok)
}
