// Package tddbhd sizes a coil reel's web tension, drag brake and hold-down.
package tddbhd

import (
	"fmt"
	"math"
	"strings"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/lookup"
)

type Input struct {
	MaterialType      string  `json:"material_type" validate:"required"`
	Thickness         float64 `json:"thickness"`      // in
	Width             float64 `json:"width"`          // in
	YieldStrength     float64 `json:"yield_strength"` // psi
	CoilID            float64 `json:"coil_id"`
	CoilOD            float64 `json:"coil_od" validate:"gtfield=CoilID"` // largest coil OD the line runs
	CoilWeight        float64 `json:"coil_weight"`                       // 0 means a full coil at coil_od
	ReelModel         string  `json:"reel_model" validate:"required"`
	TypeOfLine        string  `json:"type_of_line" validate:"required"`
	AirClutch         string  `json:"air_clutch" validate:"omitempty,oneof=Yes No"`
	HydThreadingDrive string  `json:"hyd_threading_drive"`
	Decel             float64 `json:"decel" validate:"gte=0"` // ft/s^2
	Friction          float64 `json:"friction" validate:"gt=0"`
	AirPressure       float64 `json:"air_pressure"` // psi
	BrakeModel        string  `json:"brake_model" validate:"required"`
	BrakeQuantity     int     `json:"brake_quantity" validate:"gte=1"`
	HolddownAssy      string  `json:"holddown_assy" validate:"required"`
	HolddownCylinder  string  `json:"holddown_cylinder"`
	ConfirmedMinWidth bool    `json:"confirmed_min_width"`
}

type Result struct {
	ReelModel              string            `json:"reel_model"`
	ReelType               string            `json:"reel_type"`
	Density                float64           `json:"density"`
	Modulus                float64           `json:"modulus"`
	CoilWeight             float64           `json:"coil_weight"`
	CoilOD                 float64           `json:"coil_od"`
	DispReelMtr            float64           `json:"disp_reel_mtr"`
	WebTensionPSI          float64           `json:"web_tension_psi"`
	WebTensionLbs          float64           `json:"web_tension_lbs"`
	TorqueAtMandrel        float64           `json:"torque_at_mandrel"`
	RewindTorque           float64           `json:"rewind_torque"`
	M                      float64           `json:"m"`
	My                     float64           `json:"my"`
	Y                      float64           `json:"y"`
	HoldDownForceReq       float64           `json:"hold_down_force_req"`
	HoldDownForceAvailable float64           `json:"hold_down_force_available"`
	HolddownCylinder       string            `json:"holddown_cylinder"`
	HolddownPressure       float64           `json:"holddown_pressure"`
	MinMaterialWidth       float64           `json:"min_material_width"`
	TorqueRequired         float64           `json:"torque_required"`
	BrakePressRequired     float64           `json:"brake_press_required"`
	FailsafeHoldingForce   float64           `json:"failsafe_holding_force"`
	Checks                 map[string]string `json:"checks"`
	Status                 string            `json:"status"`
}

// Check names.
const (
	CheckMinWidth     = "min_material_width_check"
	CheckAirPressure  = "air_pressure_check"
	CheckRewindTorque = "rewind_torque_check"
	CheckHoldDown     = "hold_down_force_check"
	CheckBrakePress   = "brake_press_check"
	CheckTorqueReq    = "torque_required_check"
)

func Calculate(env calc.Env, in Input) (Result, error) {
	if err := calc.CheckZero(map[string]float64{
		"thickness":      in.Thickness,
		"width":          in.Width,
		"coil_id":        in.CoilID,
		"coil_od":        in.CoilOD,
		"air_pressure":   in.AirPressure,
		"yield_strength": in.YieldStrength,
	}); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}
	k := env.Config.TDDBHD
	tb := env.Tables

	mat, err := tb.Material(in.MaterialType)
	if err != nil {
		return Result{}, err
	}
	reel, err := tb.Reel(in.ReelModel)
	if err != nil {
		return Result{}, err
	}
	line, err := tb.LineType(in.TypeOfLine)
	if err != nil {
		return Result{}, err
	}
	brake, err := tb.Brake(in.BrakeModel)
	if err != nil {
		return Result{}, err
	}
	hd, err := tb.Holddown(in.ReelModel, in.HolddownAssy, in.HolddownCylinder, in.AirPressure)
	if err != nil {
		return Result{}, err
	}
	airClutch := in.AirClutch
	if airClutch == "" {
		airClutch = "No"
	}
	hyd := in.HydThreadingDrive
	if hyd == "" {
		hyd = "None"
	}

	t, w, id := in.Thickness, in.Width, in.CoilID
	yield, E := in.YieldStrength, mat.Modulus
	qty := float64(in.BrakeQuantity)

	// Coil weight from the annulus at the largest OD, capped by the reel rating;
	// OD is then solved back from the weight.
	maxOD := math.Min(in.CoilOD, k.MaxCoilOD)
	weight := in.CoilWeight
	if weight <= 0 {
		weight = ((maxOD*maxOD - id*id) / 4) * math.Pi * w * mat.Density
	}
	weight = math.Min(weight, reel.MaxWeight)
	od := math.Min(math.Sqrt(4*weight/(mat.Density*w*math.Pi)+id*id), k.MaxCoilOD)

	// Web tension
	tensionPSI := yield / k.TensionDivisor
	tensionLbs := t * w * tensionPSI

	torqueAtMandrel := k.EmptyReelTorque
	if line.ReelType == lookup.ReelPullOff {
		torqueAtMandrel, err = tb.DriveTorque(in.ReelModel, airClutch, hyd)
		if err != nil {
			return Result{}, err
		}
	}
	rewind := tensionLbs * od / 2

	// Hold-down: elastic moment to wrap the material on the coil ID vs moment to yield
	M := E * w * t * t * t / (12 * (id / 2))
	My := w * t * t * yield / 6
	y := (t * id / 2) / (2 * (t * E / (2 * yield)))
	den := k.StaticFriction * (id / 2)
	var holdDownReq float64
	if M < My {
		holdDownReq = M / den
	} else {
		ratio := y / (t / 2)
		holdDownReq = ((w * t * t / 4) * yield * (1 - ratio*ratio/3)) / den
	}

	// Torque to stop a full coil at the decel rate, plus rewind
	torqueReq := 3*in.Decel*weight*(od*od+id*id)/(env.Config.Physics.Gravity*od) + rewind

	var brakePress, holding float64
	if brake.Failsafe {
		brakePress = brake.ReleasePSI / qty
		holding = brake.HoldingForce * in.Friction * k.BrakeDistance * k.BrakePads * qty
	} else {
		bore, rod := brake.CylinderBore, k.CylinderRod
		var area float64
		switch brake.Stages {
		case 1:
			area = bore * bore
		case 2:
			area = 2*bore*bore - rod*rod
		case 3:
			area = 3*bore*bore - 2*rod*rod
		default:
			return Result{}, fmt.Errorf("brake %q: unsupported stage count %d", in.BrakeModel, brake.Stages)
		}
		brakePress = 4 * torqueReq / (math.Pi * in.Friction * k.BrakeDistance * k.BrakePads * area) / qty
	}

	checks := map[string]string{
		CheckMinWidth:     calc.PassFail(hd.MinWidth < w),
		CheckAirPressure:  calc.PassFail(in.AirPressure <= k.MaxAirPressure),
		CheckRewindTorque: calc.PassFail(rewind < torqueAtMandrel),
		CheckHoldDown:     calc.PassFail(holdDownReq <= hd.ForceAvailable),
		CheckBrakePress:   calc.PassFail(brakePress <= in.AirPressure),
		CheckTorqueReq:    calc.PassFail(torqueReq < holding),
	}

	return Result{
		ReelModel:              strings.ToUpper(strings.TrimSpace(in.ReelModel)),
		ReelType:               line.ReelType,
		Density:                mat.Density,
		Modulus:                E,
		CoilWeight:             weight,
		CoilOD:                 od,
		DispReelMtr:            lookup.Displacement(hyd),
		WebTensionPSI:          tensionPSI,
		WebTensionLbs:          tensionLbs,
		TorqueAtMandrel:        torqueAtMandrel,
		RewindTorque:           rewind,
		M:                      M,
		My:                     My,
		Y:                      y,
		HoldDownForceReq:       holdDownReq,
		HoldDownForceAvailable: hd.ForceAvailable,
		HolddownCylinder:       hd.Cylinder,
		HolddownPressure:       hd.Pressure,
		MinMaterialWidth:       hd.MinWidth,
		TorqueRequired:         torqueReq,
		BrakePressRequired:     brakePress,
		FailsafeHoldingForce:   holding,
		Checks:                 checks,
		Status:                 Aggregate(line.ReelType, checks, in.ConfirmedMinWidth, brake.Failsafe),
	}, nil
}

// Aggregate combines the checks into one status. Only pull-off lines get a verdict;
// a confirmed narrower width waives the min width check, and the holding force
// check only binds failsafe brakes.
func Aggregate(reelType string, checks map[string]string, confirmedMinWidth, failsafe bool) string {
	if reelType != lookup.ReelPullOff {
		return calc.UseMotorized
	}
	ok := (checks[CheckMinWidth] == calc.Pass || confirmedMinWidth) &&
		checks[CheckRewindTorque] == calc.Pass &&
		checks[CheckHoldDown] == calc.Pass &&
		checks[CheckBrakePress] == calc.Pass &&
		checks[CheckAirPressure] == calc.Pass &&
		(checks[CheckTorqueReq] == calc.Pass || !failsafe)
	return calc.OKNotOK(ok)
}
