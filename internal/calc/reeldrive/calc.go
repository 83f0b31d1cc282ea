// Package reeldrive sizes the motor and reducer of a motorized coil reel.
package reeldrive

import (
	"math"
	"strings"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/lookup"
)

type Input struct {
	ReelModel         string  `json:"reel_model" validate:"required"`
	MaterialType      string  `json:"material_type" validate:"required"`
	Width             float64 `json:"width"`
	CoilID            float64 `json:"coil_id"`
	CoilOD            float64 `json:"coil_od" validate:"gtfield=CoilID"`
	CoilWeight        float64 `json:"coil_weight"`        // 0 means a full coil at coil_od
	BackplateDiameter float64 `json:"backplate_diameter"` // 0 means the coil OD
	MotorHP           float64 `json:"motor_hp"`
	ReducerRatio      float64 `json:"reducer_ratio"`
	Speed             float64 `json:"speed"`                  // fpm
	Accel             float64 `json:"accel" validate:"gte=0"` // ft/s^2, 0 means the configured rate
	TypeOfLine        string  `json:"type_of_line" validate:"required"`
}

// Part is a rotating component modelled as a solid or hollow cylinder.
type Part struct {
	Diameter  float64 `json:"diameter"`
	Length    float64 `json:"length"` // axial length or thickness
	Weight    float64 `json:"weight"`
	Inertia   float64 `json:"inertia"` // lb-in-s^2 about its own axis
	Reflected float64 `json:"reflected"`
}

type Coil struct {
	ID        float64 `json:"id"`
	OD        float64 `json:"od"`
	Width     float64 `json:"width"`
	Weight    float64 `json:"weight"`
	Inertia   float64 `json:"inertia"`
	Reflected float64 `json:"reflected"`
}

type Reducer struct {
	Ratio       float64 `json:"ratio"`
	Driving     float64 `json:"driving"`
	Backdriving float64 `json:"backdriving"`
	Inertia     float64 `json:"inertia"`
}

type Chain struct {
	Ratio    float64 `json:"ratio"`
	Sprocket Part    `json:"sprocket"`
}

type Total struct {
	Ratio                 float64 `json:"ratio"`
	ReflectedInertiaEmpty float64 `json:"reflected_inertia_empty"`
	ReflectedInertiaFull  float64 `json:"reflected_inertia_full"`
}

type Motor struct {
	HP      float64 `json:"hp"`
	Inertia float64 `json:"inertia"`
	BaseRPM float64 `json:"base_rpm"`
}

type Friction struct {
	RearBearingLoadEmpty  float64 `json:"rear_bearing_load_empty"`
	FrontBearingLoadEmpty float64 `json:"front_bearing_load_empty"`
	RearBearingLoadFull   float64 `json:"rear_bearing_load_full"`
	FrontBearingLoadFull  float64 `json:"front_bearing_load_full"`
	MandrelTorque         float64 `json:"mandrel_torque"` // at the mandrel, empty reel
	CoilTorque            float64 `json:"coil_torque"`    // added by the coil
	ReflectedEmpty        float64 `json:"reflected_empty"`
	ReflectedFull         float64 `json:"reflected_full"`
}

type Speed struct {
	FPM             float64 `json:"fpm"`
	Accel           float64 `json:"accel"`
	AccelTime       float64 `json:"accel_time"`
	MandrelRPMEmpty float64 `json:"mandrel_rpm_empty"`
	MandrelRPMFull  float64 `json:"mandrel_rpm_full"`
	MotorRPMEmpty   float64 `json:"motor_rpm_empty"`
	MotorRPMFull    float64 `json:"motor_rpm_full"`
}

type EmptyFull struct {
	Empty float64 `json:"empty"`
	Full  float64 `json:"full"`
}

type HPReq struct {
	Empty       float64 `json:"empty"`
	Full        float64 `json:"full"`
	StatusEmpty string  `json:"status_empty"`
	StatusFull  string  `json:"status_full"`
}

type Result struct {
	Reel      lookup.Reel       `json:"reel"`
	ReelModel string            `json:"reel_model"`
	Mandrel   Part              `json:"mandrel"`
	Backplate Part              `json:"backplate"`
	Coil      Coil              `json:"coil"`
	Reducer   Reducer           `json:"reducer"`
	Chain     Chain             `json:"chain"`
	Total     Total             `json:"total"`
	Motor     Motor             `json:"motor"`
	Friction  Friction          `json:"friction"`
	Speed     Speed             `json:"speed"`
	Torque    EmptyFull         `json:"torque"` // at the motor
	HPReq     HPReq             `json:"hp_req"`
	Regen     EmptyFull         `json:"regen"`
	Checks    map[string]string `json:"checks"`
	Status    string            `json:"status"`
}

// HP statuses.
const (
	HPValid      = "valid"
	HPUndersized = "undersized"
	HPOverSpeed  = "over speed"
)

// Check names.
const (
	CheckStatusEmpty = "status_empty"
	CheckStatusFull  = "status_full"
	CheckRegen       = "regen"
	CheckUsePullOff  = "use_pulloff"
)

func cylinder(dia, length, density, g float64) Part {
	r := dia / 2
	w := math.Pi * r * r * length * density
	return Part{Diameter: dia, Length: length, Weight: w, Inertia: w * r * r / (2 * g)}
}

// bearingTorque is the friction torque of a mandrel supported on two bearings
// with the load overhung at half the mandrel length past the front bearing.
func bearingTorque(load, overhang, bearingDist, frontDia, rearDia, mu float64) (rear, front, torque float64) {
	rear = load * overhang / bearingDist
	front = load + rear
	torque = mu * (rear*rearDia/2 + front*frontDia/2)
	return rear, front, torque
}

func Calculate(env calc.Env, in Input) (Result, error) {
	if err := calc.CheckZero(map[string]float64{
		"width":         in.Width,
		"coil_id":       in.CoilID,
		"coil_od":       in.CoilOD,
		"motor_hp":      in.MotorHP,
		"reducer_ratio": in.ReducerRatio,
		"speed":         in.Speed,
	}); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}
	k := env.Config.ReelDrive
	p := env.Config.Physics
	tb := env.Tables

	reel, err := tb.Reel(in.ReelModel)
	if err != nil {
		return Result{}, err
	}
	mat, err := tb.Material(in.MaterialType)
	if err != nil {
		return Result{}, err
	}
	line, err := tb.LineType(in.TypeOfLine)
	if err != nil {
		return Result{}, err
	}
	motor, err := tb.Motor(in.MotorHP)
	if err != nil {
		return Result{}, err
	}
	accel := in.Accel
	if accel == 0 {
		accel = k.AccelRate
	}
	g, rhoS := p.Gravity, p.SteelDensity
	id, w := in.CoilID, in.Width

	// Coil, capped at the reel rating
	weight := in.CoilWeight
	if weight <= 0 {
		weight = math.Pi / 4 * (in.CoilOD*in.CoilOD - id*id) * w * mat.Density
	}
	weight = math.Min(weight, reel.MaxWeight)
	od := math.Sqrt(4*weight/(mat.Density*w*math.Pi) + id*id)
	coil := Coil{ID: id, OD: od, Width: w, Weight: weight, Inertia: weight * (od*od + id*id) / (8 * g)}

	mandrel := cylinder(reel.MandrelDiameter, reel.MandrelLength, rhoS, g)
	bpDia := in.BackplateDiameter
	if bpDia <= 0 {
		bpDia = in.CoilOD
	}
	backplate := cylinder(bpDia, reel.BackplateThickness, rhoS, g)
	sprocket := cylinder(k.ChainSprocketOD, k.ChainSprocketThickness, rhoS, g)

	n := in.ReducerRatio * k.ChainRatio
	n2 := n * n
	mandrel.Reflected = mandrel.Inertia / n2
	backplate.Reflected = backplate.Inertia / n2
	sprocket.Reflected = sprocket.Inertia / n2
	coil.Reflected = coil.Inertia / n2

	jEmpty := motor.Inertia + k.ReducerInertia + mandrel.Reflected + backplate.Reflected + sprocket.Reflected
	jFull := jEmpty + coil.Reflected

	// Bearing friction
	emptyLoad := mandrel.Weight + backplate.Weight + sprocket.Weight
	overhang := reel.MandrelLength / 2
	rearE, frontE, tE := bearingTorque(emptyLoad, overhang, reel.BearingDistance, reel.FrontBearingDia, reel.RearBearingDia, k.BearingFriction)
	rearF, frontF, tF := bearingTorque(emptyLoad+weight, overhang, reel.BearingDistance, reel.FrontBearingDia, reel.RearBearingDia, k.BearingFriction)
	friction := Friction{
		RearBearingLoadEmpty:  rearE,
		FrontBearingLoadEmpty: frontE,
		RearBearingLoadFull:   rearF,
		FrontBearingLoadFull:  frontF,
		MandrelTorque:         tE,
		CoilTorque:            tF - tE,
		ReflectedEmpty:        tE / (n * k.ReducerDriving),
		ReflectedFull:         tF / (n * k.ReducerDriving),
	}

	// Speeds; the empty reel pays off at the coil ID
	speed := Speed{
		FPM:             in.Speed,
		Accel:           accel,
		MandrelRPMEmpty: in.Speed * 12 / (math.Pi * id),
		MandrelRPMFull:  in.Speed * 12 / (math.Pi * od),
	}
	if accel > 0 {
		speed.AccelTime = in.Speed / 60 / accel
	}
	speed.MotorRPMEmpty = speed.MandrelRPMEmpty * n
	speed.MotorRPMFull = speed.MandrelRPMFull * n

	// Angular acceleration at the motor, rad/s^2
	alphaEmpty := accel * 12 / (id / 2) * n
	alphaFull := accel * 12 / (od / 2) * n

	torque := EmptyFull{
		Empty: jEmpty*alphaEmpty + friction.ReflectedEmpty,
		Full:  jFull*alphaFull + friction.ReflectedFull,
	}
	hp := HPReq{
		Empty: torque.Empty * speed.MotorRPMEmpty / p.HPConstant,
		Full:  torque.Full * speed.MotorRPMFull / p.HPConstant,
	}
	hp.StatusEmpty = hpStatus(hp.Empty, speed.MotorRPMEmpty, in.MotorHP, k.MotorBaseRPM)
	hp.StatusFull = hpStatus(hp.Full, speed.MotorRPMFull, in.MotorHP, k.MotorBaseRPM)

	// Stopping at the same rate: whatever friction does not absorb flows back through the reducer
	regen := EmptyFull{
		Empty: math.Max(0, jEmpty*alphaEmpty-friction.ReflectedEmpty) * speed.MotorRPMEmpty / p.HPConstant * k.ReducerBackdriving,
		Full:  math.Max(0, jFull*alphaFull-friction.ReflectedFull) * speed.MotorRPMFull / p.HPConstant * k.ReducerBackdriving,
	}

	checks := map[string]string{
		CheckStatusEmpty: hp.StatusEmpty,
		CheckStatusFull:  hp.StatusFull,
		CheckRegen:       calc.OK,
		CheckUsePullOff:  calc.OK,
	}
	if math.Max(regen.Empty, regen.Full) > k.RegenFraction*in.MotorHP {
		checks[CheckRegen] = calc.RegenRequired
	}
	if line.ReelType == lookup.ReelPullOff {
		checks[CheckUsePullOff] = calc.UsePullOff
	}

	return Result{
		Reel:      reel,
		ReelModel: strings.ToUpper(strings.TrimSpace(in.ReelModel)),
		Mandrel:   mandrel,
		Backplate: backplate,
		Coil:      coil,
		Reducer: Reducer{
			Ratio:       in.ReducerRatio,
			Driving:     k.ReducerDriving,
			Backdriving: k.ReducerBackdriving,
			Inertia:     k.ReducerInertia,
		},
		Chain:    Chain{Ratio: k.ChainRatio, Sprocket: sprocket},
		Total:    Total{Ratio: n, ReflectedInertiaEmpty: jEmpty, ReflectedInertiaFull: jFull},
		Motor:    Motor{HP: in.MotorHP, Inertia: motor.Inertia, BaseRPM: k.MotorBaseRPM},
		Friction: friction,
		Speed:    speed,
		Torque:   torque,
		HPReq:    hp,
		Regen:    regen,
		Checks:   checks,
		Status:   Aggregate(checks),
	}, nil
}

func hpStatus(required, motorRPM, rated, baseRPM float64) string {
	switch {
	case motorRPM > baseRPM:
		return HPOverSpeed
	case required > rated:
		return HPUndersized
	default:
		return HPValid
	}
}

// Aggregate is USE PULLOFF when the line pulls material off the reel, otherwise
// OK only when the motor covers both the empty and the full reel.
func Aggregate(checks map[string]string) string {
	if checks[CheckUsePullOff] == calc.UsePullOff {
		return calc.UsePullOff
	}
	return calc.OKNotOK(checks[CheckStatusEmpty] == HPValid && checks[CheckStatusFull] == HPValid)
}
