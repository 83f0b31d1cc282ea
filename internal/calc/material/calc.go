// Package material derives the material and coil properties the other
// sections share.
package material

import (
	"math"

	"github.com/CoePress/coesco-web/internal/calc"
)

type Input struct {
	MaterialType  string  `json:"material_type" validate:"required"`
	Thickness     float64 `json:"thickness"`
	Width         float64 `json:"width"`
	YieldStrength float64 `json:"yield_strength"`
	CoilID        float64 `json:"coil_id"`
	CoilOD        float64 `json:"coil_od" validate:"omitempty,gtfield=CoilID"`
	CoilWeight    float64 `json:"coil_weight"` // when set, the OD is derived from it
}

type Result struct {
	MaterialType     string  `json:"material_type"`
	Density          float64 `json:"density"`
	Modulus          float64 `json:"modulus"`
	MinBendRadius    float64 `json:"min_bend_radius"`
	MinLoopLength    float64 `json:"min_loop_length"`
	CalculatedCoilOD float64 `json:"calculated_coil_od"`
	CoilWeight       float64 `json:"coil_weight"`
	WeightPerFoot    float64 `json:"weight_per_foot"`
}

func Calculate(env calc.Env, in Input) (Result, error) {
	fields := map[string]float64{
		"thickness":      in.Thickness,
		"width":          in.Width,
		"yield_strength": in.YieldStrength,
		"coil_id":        in.CoilID,
	}
	if in.CoilWeight == 0 {
		fields["coil_od"] = in.CoilOD
	}
	if err := calc.CheckZero(fields); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}
	mat, err := env.Tables.Material(in.MaterialType)
	if err != nil {
		return Result{}, err
	}

	t, w, id := in.Thickness, in.Width, in.CoilID
	bend := mat.Modulus * t / (2 * in.YieldStrength)
	od, weight := in.CoilOD, in.CoilWeight
	if weight > 0 {
		od = math.Sqrt(4*weight/(mat.Density*w*math.Pi) + id*id)
	} else {
		weight = math.Pi / 4 * (od*od - id*id) * w * mat.Density
	}
	return Result{
		MaterialType:     in.MaterialType,
		Density:          mat.Density,
		Modulus:          mat.Modulus,
		MinBendRadius:    bend,
		MinLoopLength:    math.Pi * bend,
		CalculatedCoilOD: od,
		CoilWeight:       weight,
		WeightPerFoot:    t * w * 12 * mat.Density,
	}, nil
}
