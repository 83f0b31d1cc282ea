// Package shear sizes a hydraulic cut-off shear with a single rake or bow tie blade.
package shear

import (
	"fmt"
	"math"

	"github.com/CoePress/coesco-web/internal/calc"
)

// Blade types.
const (
	SingleRake = "single-rake"
	BowTie     = "bow-tie"
)

type Input struct {
	Type                 string   `json:"type" validate:"required,oneof=single-rake bow-tie"`
	Thickness            float64  `json:"thickness"`
	Width                float64  `json:"width"`
	TensileStrength      float64  `json:"tensile_strength"`
	RakeOfBladePerFoot   float64  `json:"rake_of_blade_per_foot"` // in/ft
	Overlap              float64  `json:"overlap"`
	BladeOpening         float64  `json:"blade_opening"`
	PercentOfPenetration float64  `json:"percent_of_penetration"`
	BoreSize             float64  `json:"bore_size"`
	RodDiameter          float64  `json:"rod_diameter"`
	Stroke               float64  `json:"stroke"`
	Pressure             float64  `json:"pressure"` // psi
	TimeForDownStroke    float64  `json:"time_for_down_stroke"`
	DwellTime            *float64 `json:"dwell_time,omitempty" validate:"omitempty,gte=0"` // nil takes the default, 0 is no dwell
}

type Blade struct {
	Angle             float64 `json:"angle"` // degrees
	InitialCutLength  float64 `json:"initial_cut_length"`
	CutArea           float64 `json:"cut_area"`
	Drop              float64 `json:"drop"`
	MinStrokeForBlade float64 `json:"min_stroke_for_blade"`
	MinStrokeOpening  float64 `json:"min_stroke_for_opening"`
	ActualOpening     float64 `json:"actual_opening"`
}

type Cylinder struct {
	Count        int     `json:"count"`
	Area         float64 `json:"area"`
	AnnulusArea  float64 `json:"annulus_area"`
	Volume       float64 `json:"volume"` // all cylinders, one down stroke
	ReturnVolume float64 `json:"return_volume"`
	ForcePerCyl  float64 `json:"force_per_cylinder"`
	TotalForce   float64 `json:"total_force"` // lbs
	TotalTons    float64 `json:"total_tons"`
}

type Timing struct {
	DownStroke    float64 `json:"down_stroke"`
	Dwell         float64 `json:"dwell"`
	ReturnStroke  float64 `json:"return_stroke"`
	StrokesPerMin float64 `json:"strokes_per_minute"`
	PartsPerMin   float64 `json:"parts_per_minute"`
	PartsPerHour  float64 `json:"parts_per_hour"`
	InstantGPM    float64 `json:"instant_gpm"`
	AverageGPM    float64 `json:"average_gpm"`
	FluidVelocity float64 `json:"fluid_velocity"` // ft/s in the supply hose
}

type Result struct {
	Type          string            `json:"type"`
	ForceRequired float64           `json:"force_required"` // lbs
	SafetyFactor  float64           `json:"safety_factor"`
	Blade         Blade             `json:"blade"`
	Cylinder      Cylinder          `json:"cylinder"`
	Timing        Timing            `json:"timing"`
	Checks        map[string]string `json:"checks"`
	Status        string            `json:"status"`
}

// Check names.
const (
	CheckForce  = "force_req_to_shear_check"
	CheckStroke = "stroke_check"
)

// gallons per cubic inch and the gpm/in^2 to ft/s factor
const (
	cubicInPerGallon = 231
	gpmToFPS         = 0.3208
)

func Calculate(env calc.Env, in Input) (Result, error) {
	def := env.Config.Defaults.Shear
	orDefault := func(v, d float64) float64 {
		if v == 0 {
			return d
		}
		return v
	}
	in.Overlap = orDefault(in.Overlap, def.Overlap)
	in.BladeOpening = orDefault(in.BladeOpening, def.BladeOpening)
	in.PercentOfPenetration = orDefault(in.PercentOfPenetration, def.PercentOfPenetration)
	in.RodDiameter = orDefault(in.RodDiameter, def.RodDiameter)
	in.TimeForDownStroke = orDefault(in.TimeForDownStroke, def.TimeForDownStroke)

	if err := calc.CheckZero(map[string]float64{
		"thickness":              in.Thickness,
		"width":                  in.Width,
		"tensile_strength":       in.TensileStrength,
		"rake_of_blade_per_foot": in.RakeOfBladePerFoot,
		"bore_size":              in.BoreSize,
		"stroke":                 in.Stroke,
		"pressure":               in.Pressure,
	}); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}
	if in.RodDiameter >= in.BoreSize {
		return Result{}, fmt.Errorf("rod diameter %g does not fit bore %g: %w", in.RodDiameter, in.BoreSize, calc.ErrInvalidCandidate)
	}
	k := env.Config.Shear
	t := in.Thickness

	cylinders, cutWidth := 1, in.Width
	if in.Type == BowTie {
		// two blade halves cut from the center out
		cylinders, cutWidth = 2, in.Width/2
	}

	// Blade
	tanA := in.RakeOfBladePerFoot / 12
	cutLen := math.Min(t/tanA, cutWidth)
	area := 0.5 * t * cutLen * float64(cylinders)
	force := k.ShearStrengthRatio * in.TensileStrength * area
	drop := cutWidth * tanA
	minBlade := t*in.PercentOfPenetration/100 + in.Overlap + drop
	blade := Blade{
		Angle:             math.Atan(tanA) * 180 / math.Pi,
		InitialCutLength:  cutLen,
		CutArea:           area,
		Drop:              drop,
		MinStrokeForBlade: minBlade,
		MinStrokeOpening:  minBlade + in.BladeOpening + t,
		ActualOpening:     in.Stroke - minBlade - t,
	}

	// Cylinders
	n := float64(cylinders)
	bore := math.Pi * in.BoreSize * in.BoreSize / 4
	annulus := bore - math.Pi*in.RodDiameter*in.RodDiameter/4
	cyl := Cylinder{
		Count:        cylinders,
		Area:         bore,
		AnnulusArea:  annulus,
		Volume:       bore * in.Stroke * n,
		ReturnVolume: annulus * in.Stroke * n,
		ForcePerCyl:  in.Pressure * bore,
	}
	cyl.TotalForce = cyl.ForcePerCyl * n
	cyl.TotalTons = cyl.TotalForce / 2000

	// Timing at a constant pump flow
	tDown := in.TimeForDownStroke
	tReturn := tDown * annulus / bore
	instant := cyl.Volume / cubicInPerGallon / tDown * 60
	dwell := def.DwellTime
	if in.DwellTime != nil {
		dwell = *in.DwellTime
	}
	spm := 60 / (tDown + dwell + tReturn)
	hose := math.Pi * k.HoseDiameter * k.HoseDiameter / 4
	timing := Timing{
		DownStroke:    tDown,
		Dwell:         dwell,
		ReturnStroke:  tReturn,
		StrokesPerMin: spm,
		PartsPerMin:   spm,
		PartsPerHour:  spm * 60,
		InstantGPM:    instant,
		AverageGPM:    (cyl.Volume + cyl.ReturnVolume) / cubicInPerGallon * spm,
		FluidVelocity: instant * gpmToFPS / hose,
	}

	sf := cyl.TotalForce / force
	checks := map[string]string{
		CheckForce:  calc.OKNotOK(sf >= k.MinSafetyFactor),
		CheckStroke: calc.OKNotOK(blade.ActualOpening >= in.BladeOpening),
	}
	return Result{
		Type:          in.Type,
		ForceRequired: force,
		SafetyFactor:  sf,
		Blade:         blade,
		Cylinder:      cyl,
		Timing:        timing,
		Checks:        checks,
		Status:        calc.OKNotOK(calc.AllOK(checks, CheckForce, CheckStroke)),
	}, nil
}
