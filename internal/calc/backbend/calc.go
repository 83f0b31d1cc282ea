// Package backbend simulates a roll straightener's bending schedule: the
// curvature each roller imposes, the resulting springback, roller depths and
// forces, and how much of the material's section is yielded by the first roll.
package backbend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/lookup"
)

// ErrTooDeep is returned with a populated Result when a roller would have to be
// set deeper than the straightener allows.
var ErrTooDeep = fmt.Errorf("roller depth %s: %w", calc.TooDeep, calc.ErrInvalidCandidate)

type Input struct {
	StraightenerModel string  `json:"straightener_model" validate:"required"`
	Rolls             int     `json:"rolls" validate:"gte=0"`
	MaterialType      string  `json:"material_type" validate:"required"`
	Thickness         float64 `json:"thickness"`
	Width             float64 `json:"width"`
	YieldStrength     float64 `json:"yield_strength"`
	ConfirmedYield    bool    `json:"confirmed_yield"`
}

// Pass is one bend of the material over a roller.
type Pass struct {
	Curvature             float64 `json:"curvature"` // 1/in, positive against coil set
	Height                float64 `json:"height"`    // roller depth
	ForceRequired         float64 `json:"force_required"`
	YieldStrains          float64 `json:"yield_strains"` // curvature change in multiples of yield
	Radius                float64 `json:"radius"`
	RRi                   float64 `json:"r_ri"` // radius over incoming radius, 0 when incoming flat
	Mb                    float64 `json:"mb"`
	MbMy                  float64 `json:"mb_my"`
	Springback            float64 `json:"springback"`
	PercentYield          float64 `json:"percent_yield"`
	RadiusAfterSpringback float64 `json:"radius_after_springback"` // 0 when flat
}

type Roller struct {
	Name string `json:"name"`
	Up   Pass   `json:"up"`
	Down Pass   `json:"down"`
}

type Result struct {
	StraightenerModel string            `json:"straightener_model"`
	Rolls             int               `json:"rolls"`
	Modulus           float64           `json:"modulus"`
	YieldCurvature    float64           `json:"yield_curvature"`
	My                float64           `json:"my"`
	RadiusOffCoil     float64           `json:"radius_off_coil"`
	RadiusAfterCreep  float64           `json:"radius_after_creep"`
	FirstUpStrain     float64           `json:"first_up_strain"` // yield strains targeted by the first roller
	PercentYield      float64           `json:"percent_yield"`
	Rollers           []Roller          `json:"rollers"`
	TotalForce        float64           `json:"total_force"`
	JackForce         float64           `json:"jack_force"`
	RollCapacity      float64           `json:"roll_capacity"`
	MaxRollDepth      float64           `json:"max_roll_depth"`
	Checks            map[string]string `json:"checks"`
	Status            string            `json:"status"`
}

// Check names and percent yield outcomes.
const (
	CheckDepth        = "roller_depth_required_check"
	CheckForce        = "roller_force_required_check"
	CheckPercentYield = "percent_yield_check"
	CheckFirstUp      = "force_required_check_first_up"
	CheckLast         = "force_required_check_last"

	YieldNotConfirmed = "BACKBEND YIELD NOT CONFIRMED"
	YieldNotOK        = "BACKBEND YIELD NOT OK"
)

type section struct {
	t, ky, my, ei float64
	c, maxDepth   float64
}

// bend applies curvature ka to material arriving with residual curvature kin
// and returns the pass and the residual curvature it leaves.
func (s section) bend(kin, ka float64) (Pass, float64, bool) {
	dk := math.Abs(ka - kin)
	q := dk / s.ky
	mbmy := q
	if q > 1 {
		mbmy = 1.5 * (1 - 1/(3*q*q))
	}
	mb := mbmy * s.my
	spring := mb / s.ei
	kres := ka - math.Copysign(spring, ka-kin)
	if math.Abs(kres) < 1e-12 {
		kres = 0
	}

	r := 1 / math.Abs(ka)
	half := s.c / 2
	tooDeep := r < half
	// a radius tighter than half the roll spacing cannot be formed; report the full wrap
	height := r
	if !tooDeep {
		height = r - math.Sqrt(r*r-half*half)
	}
	tooDeep = tooDeep || height > s.maxDepth-s.t

	p := Pass{
		Curvature:     ka,
		Height:        height,
		ForceRequired: 4 * mb / s.c,
		YieldStrains:  q,
		Radius:        math.Copysign(r, ka),
		Mb:            mb,
		MbMy:          mbmy,
		Springback:    spring,
	}
	if kin != 0 {
		p.RRi = (1 / ka) / (1 / kin)
	}
	if q > 1 {
		p.PercentYield = 1 - 1/q
	}
	if kres != 0 {
		p.RadiusAfterSpringback = 1 / kres
	}
	return p, kres, tooDeep
}

func rollerName(i, stages int) string {
	switch i {
	case 0:
		return "first"
	case stages - 1:
		return "last"
	}
	return "middle " + strconv.Itoa(i)
}

func Calculate(env calc.Env, in Input) (Result, error) {
	k := env.Config.Backbend
	rolls := in.Rolls
	if rolls == 0 {
		rolls = env.Config.Defaults.Straightener.Rolls
	}
	if err := calc.CheckZero(map[string]float64{
		"thickness":      in.Thickness,
		"width":          in.Width,
		"yield_strength": in.YieldStrength,
	}); err != nil {
		return Result{}, err
	}
	if err := calc.Validate(in); err != nil {
		return Result{}, err
	}
	strain, ok := k.FirstRollStrains[rolls]
	if !ok || rolls < 5 || rolls%2 == 0 {
		return Result{}, &lookup.UnknownKeyError{Table: "first_roll_strains", Key: strconv.Itoa(rolls)}
	}
	st, err := env.Tables.Straightener(in.StraightenerModel)
	if err != nil {
		return Result{}, err
	}
	mat, err := env.Tables.Material(in.MaterialType)
	if err != nil {
		return Result{}, err
	}

	t, w, yield, E := in.Thickness, in.Width, in.YieldStrength, mat.Modulus
	s := section{
		t:        t,
		ky:       2 * yield / (E * t),
		my:       w * t * t * yield / 6,
		ei:       E * w * t * t * t / 12,
		c:        st.CenterDistance,
		maxDepth: st.MaxRollDepth,
	}

	// Coil set relaxes after leaving the reel
	radiusAfterCreep := k.RadiusOffCoil / (1 - k.CreepFactor)
	kin := 1 / radiusAfterCreep

	// Bend magnitudes decay geometrically from the first roller down to yield at the last
	stages := (rolls-5)/2 + 2
	k1 := strain * s.ky
	rho := math.Pow(s.ky/k1, 1/float64(stages-1))

	capacity := st.JackForce / k.JackCount
	var (
		rollers  []Roller
		total    float64
		tooDeep  bool
		forcesOK = true
	)
	for j := 0; j < stages; j++ {
		mag := k1 * math.Pow(rho, float64(j))
		up, kres, deepUp := s.bend(kin, mag)
		down, kres2, deepDown := s.bend(kres, -mag*math.Sqrt(rho))
		kin = kres2
		tooDeep = tooDeep || deepUp || deepDown
		forcesOK = forcesOK && up.ForceRequired <= capacity && down.ForceRequired <= capacity
		total += up.ForceRequired
		rollers = append(rollers, Roller{Name: rollerName(j, stages), Up: up, Down: down})
	}

	percentYield := 1 - s.ky/math.Abs(k1-1/radiusAfterCreep)
	checks := map[string]string{
		CheckDepth:        calc.OK,
		CheckForce:        calc.OKNotOK(forcesOK && total <= st.JackForce),
		CheckPercentYield: calc.OK,
		CheckFirstUp:      calc.OKNotOK(rollers[0].Up.ForceRequired <= capacity),
		CheckLast:         calc.OKNotOK(rollers[len(rollers)-1].Up.ForceRequired <= capacity),
	}
	if tooDeep {
		checks[CheckDepth] = calc.TooDeep
	}
	switch {
	case percentYield < k.YieldMin || percentYield > k.YieldMax:
		checks[CheckPercentYield] = YieldNotOK
	case percentYield <= k.YieldConfirm && !in.ConfirmedYield:
		checks[CheckPercentYield] = YieldNotConfirmed
	}

	res := Result{
		StraightenerModel: strings.ToUpper(strings.TrimSpace(in.StraightenerModel)),
		Rolls:             rolls,
		Modulus:           E,
		YieldCurvature:    s.ky,
		My:                s.my,
		RadiusOffCoil:     k.RadiusOffCoil,
		RadiusAfterCreep:  radiusAfterCreep,
		FirstUpStrain:     strain,
		PercentYield:      percentYield,
		Rollers:           rollers,
		TotalForce:        total,
		JackForce:         st.JackForce,
		RollCapacity:      capacity,
		MaxRollDepth:      st.MaxRollDepth,
		Checks:            checks,
		Status:            Aggregate(checks),
	}
	if tooDeep {
		return res, ErrTooDeep
	}
	return res, nil
}

// Aggregate is OK only when every check is OK.
func Aggregate(checks map[string]string) string {
	return calc.OKNotOK(calc.AllOK(checks, CheckDepth, CheckForce, CheckPercentYield, CheckFirstUp, CheckLast))
}
