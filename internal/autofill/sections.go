package autofill

import (
	"fmt"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/calc/backbend"
	"github.com/CoePress/coesco-web/internal/calc/feed"
	"github.com/CoePress/coesco-web/internal/calc/material"
	"github.com/CoePress/coesco-web/internal/calc/reeldrive"
	"github.com/CoePress/coesco-web/internal/calc/rfq"
	"github.com/CoePress/coesco-web/internal/calc/shear"
	"github.com/CoePress/coesco-web/internal/calc/strutility"
	"github.com/CoePress/coesco-web/internal/calc/tddbhd"
	"github.com/CoePress/coesco-web/internal/config"
	"github.com/rs/zerolog"
)

// Shared leaves of the performance sheet.
const (
	PathMaterialType = "material.materialType"
	PathThickness    = "material.materialThickness"
	PathWidth        = "material.coilWidth"
	PathYield        = "material.maxYieldStrength"
	PathTensile      = "material.maxTensileStrength"
	PathCoilID       = "coil.coilID"
	PathCoilOD       = "coil.maxCoilOD"
	PathCoilWeight   = "coil.maxCoilWeight"
	PathLineType     = "feed.typeOfLine"
	PathReelModel    = "reel.model"
	PathStrModel     = "straightener.model"
	PathStrRolls     = "straightener.numberOfRolls"
)

// Section names, in run order.
const (
	SectionRFQ       = "rfq"
	SectionMaterial  = "material-specs"
	SectionTDDBHD    = "tddbhd"
	SectionReelDrive = "reel-drive"
	SectionStrUtil   = "str-utility"
	SectionBackbend  = "roll-str-backbend"
	SectionFeed      = "feed"
	SectionShear     = "shear"
)

var namespaces = map[string]string{
	SectionTDDBHD:    "tddbhd",
	SectionReelDrive: "reelDrive",
	SectionStrUtil:   "strUtility",
	SectionBackbend:  "rollStrBackbend",
	SectionFeed:      "feed",
	SectionShear:     "shear",
}

// Namespace returns the document key a searched section writes its result under.
// rfq and material-specs write shared leaves and have none.
func Namespace(section string) (string, bool) {
	ns, ok := namespaces[section]
	return ns, ok
}

// request is the state of one autofill run as seen by a section.
type request struct {
	env    calc.Env
	caller Document // exactly what the caller sent
	doc    Document // caller merged over everything generated so far
	log    zerolog.Logger
}

func (r *request) num(path string, def float64) float64 {
	if f, ok := r.doc.Float(path); ok {
		return f
	}
	return def
}

func (r *request) str(path, def string) string {
	if s, ok := r.doc.String(path); ok {
		return s
	}
	return def
}

func (r *request) lineType() string {
	return r.str(PathLineType, r.env.Config.Defaults.LineType)
}

// lineSpeed is the fastest quoted line speed in fpm.
func (r *request) lineSpeed() float64 {
	if v := r.num("feed.max.fpm", 0); v > 0 {
		return v
	}
	return r.num("feed.average.fpm", 0)
}

func (r *request) supplied(path string) bool {
	v, ok := r.doc.Get(path)
	return ok && Supplied(v)
}

func (r *request) space(name string) (config.SearchSpace, error) {
	s, ok := r.env.Config.Search[name]
	if !ok {
		return config.SearchSpace{}, fmt.Errorf("no search space configured for %s", name)
	}
	return s, nil
}

// pinned collects the parameters the caller already answered, at their write
// path or at one of their aliases.
func (r *request) pinned(space config.SearchSpace) map[string]any {
	out := map[string]any{}
	for _, p := range space.Params {
		for _, path := range append([]string{p.Path}, p.Aliases...) {
			if v, ok := r.caller.Get(path); ok && Supplied(v) {
				out[p.Name] = v
				break
			}
		}
	}
	return out
}

// reelModel returns the caller's reel, or the smallest reel rated for the coil.
func (r *request) reelModel() (model string, selected bool, err error) {
	if m, ok := r.doc.String(PathReelModel); ok {
		return m, false, nil
	}
	weight := r.num(PathCoilWeight, r.num("coil.coilWeight", 0))
	m, err := r.env.Tables.SelectReel(weight, r.num(PathWidth, 0))
	return m, true, err
}

// usesStraightener is true unless the line type is known to run without one.
func (r *request) usesStraightener() bool {
	lt, err := r.env.Tables.LineType(r.lineType())
	return err != nil || lt.StrUsed
}

type contribution struct {
	values     Document
	iterations int
	satisfied  bool
	status     string
}

// Section is one subsystem the autofill fills in.
type Section struct {
	Name    string
	applies func(*request) bool
	run     func(*request) (contribution, error)
}

// Sections lists every section in run order. Earlier sections derive leaves
// that later ones read.
func Sections() []Section {
	hasMaterial := func(r *request) bool { return r.supplied(PathThickness) }
	return []Section{
		{Name: SectionRFQ, applies: func(r *request) bool { return r.supplied("feed.average.length") }, run: runRFQ},
		{Name: SectionMaterial, applies: hasMaterial, run: runMaterial},
		{Name: SectionTDDBHD, applies: hasMaterial, run: runTDDBHD},
		{Name: SectionReelDrive, applies: func(r *request) bool { return hasMaterial(r) && r.lineSpeed() > 0 }, run: runReelDrive},
		{Name: SectionStrUtil, applies: func(r *request) bool { return hasMaterial(r) && r.usesStraightener() }, run: runStrUtility},
		{Name: SectionBackbend, applies: func(r *request) bool { return hasMaterial(r) && r.usesStraightener() }, run: runBackbend},
		{Name: SectionFeed, applies: func(r *request) bool { return hasMaterial(r) && r.supplied("feed.average.length") }, run: runFeed},
		{Name: SectionShear, applies: func(r *request) bool { return hasMaterial(r) && r.supplied(PathTensile) }, run: runShear},
	}
}

// Only keeps the named sections, in run order.
func Only(names ...string) ([]Section, error) {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []Section
	for _, s := range Sections() {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("unknown section %q", n)
	}
	return out, nil
}

func accepts(statuses ...string) func(string) bool {
	return func(s string) bool {
		for _, ok := range statuses {
			if s == ok {
				return true
			}
		}
		return false
	}
}

// emit writes a search outcome under its namespace: the chosen parameters at
// their paths, then the result, its checks and status.
func emit[R any](ns string, space config.SearchSpace, out Outcome[R]) (contribution, error) {
	c := Document{}
	for _, p := range space.Params {
		c.Set(p.Path, optionValue(out.Point[p.Name]))
	}
	res, err := toDocument(out.Result)
	if err != nil {
		return contribution{}, fmt.Errorf("encode %s result: %w", ns, err)
	}
	if checks, ok := res["checks"]; ok {
		c.Set(ns+".checks", checks)
	}
	delete(res, "checks")
	delete(res, "status")
	c.Set(ns+".result", map[string]any(res))
	c.Set(ns+".status", out.Status)
	c.Set(ns+".search", map[string]any{"iterations": out.Iterations, "satisfied": out.Satisfied})
	return contribution{values: c, iterations: out.Iterations, satisfied: out.Satisfied, status: out.Status}, nil
}

func runRFQ(r *request) (contribution, error) {
	read := func(name string) rfq.FeedRate {
		return rfq.FeedRate{
			Length: r.num("feed."+name+".length", 0),
			SPM:    r.num("feed."+name+".spm", 0),
		}
	}
	res, err := rfq.Calculate(r.env, rfq.Input{Average: read("average"), Min: read("min"), Max: read("max")})
	if err != nil {
		return contribution{}, err
	}
	c := Document{}
	for name, f := range map[string]rfq.FeedRate{"average": res.Average, "min": res.Min, "max": res.Max} {
		if f.FPM > 0 {
			c.Set("feed."+name+".fpm", f.FPM)
		}
	}
	return contribution{values: c, satisfied: true, status: calc.OK}, nil
}

func runMaterial(r *request) (contribution, error) {
	res, err := material.Calculate(r.env, material.Input{
		MaterialType:  r.str(PathMaterialType, ""),
		Thickness:     r.num(PathThickness, 0),
		Width:         r.num(PathWidth, 0),
		YieldStrength: r.num(PathYield, 0),
		CoilID:        r.num(PathCoilID, 0),
		CoilOD:        r.num(PathCoilOD, r.env.Config.Defaults.CoilOD),
		CoilWeight:    r.num(PathCoilWeight, 0),
	})
	if err != nil {
		return contribution{}, err
	}
	c := Document{}
	c.Set("material.materialDensity", res.Density)
	c.Set("material.modulus", res.Modulus)
	c.Set("material.minBendRadius", res.MinBendRadius)
	c.Set("material.minLoopLength", res.MinLoopLength)
	c.Set("material.weightPerFoot", res.WeightPerFoot)
	c.Set("coil.calculatedCoilOD", res.CalculatedCoilOD)
	c.Set("coil.coilWeight", res.CoilWeight)
	return contribution{values: c, satisfied: true, status: calc.OK}, nil
}

func runTDDBHD(r *request) (contribution, error) {
	space, err := r.space(SectionTDDBHD)
	if err != nil {
		return contribution{}, err
	}
	reel, selected, err := r.reelModel()
	if err != nil {
		return contribution{}, err
	}
	def := r.env.Config.Defaults
	base := tddbhd.Input{
		MaterialType:      r.str(PathMaterialType, ""),
		Thickness:         r.num(PathThickness, 0),
		Width:             r.num(PathWidth, 0),
		YieldStrength:     r.num(PathYield, 0),
		CoilID:            r.num(PathCoilID, 0),
		CoilOD:            r.num(PathCoilOD, def.CoilOD),
		CoilWeight:        r.num(PathCoilWeight, 0),
		ReelModel:         reel,
		TypeOfLine:        r.lineType(),
		AirClutch:         r.str("reel.airClutch", def.TDDBHD.AirClutch),
		HydThreadingDrive: r.str("reel.hydThreadingDrive", def.TDDBHD.HydThreadingDrive),
		Decel:             r.num("tddbhd.decel", def.TDDBHD.Decel),
		ConfirmedMinWidth: r.doc.Bool("tddbhd.confirmedMinWidth"),
	}
	eval := func(p Point) (tddbhd.Result, error) {
		in := base
		in.BrakeModel = p.Str("brakeModel")
		in.BrakeQuantity = int(p.Num("brakeQuantity"))
		in.Friction = p.Num("friction")
		in.AirPressure = p.Num("airPressure")
		in.HolddownAssy = p.Str("holddownAssy")
		in.HolddownCylinder = p.Str("holddownCylinder")
		return tddbhd.Calculate(r.env, in)
	}
	pins := r.pinned(space)
	out, err := Search(space, pins, eval,
		func(res tddbhd.Result) string { return res.Status },
		accepts(calc.OK, calc.UseMotorized), r.log)
	if err != nil {
		return contribution{}, err
	}
	c, err := emit(namespaces[SectionTDDBHD], space, out)
	if err != nil {
		return contribution{}, err
	}
	// a cylinder the reel's hold-down has no entry for resolves to another one;
	// report the cylinder the forces were computed with
	if _, ok := pins["holddownCylinder"]; !ok && out.Result.HolddownCylinder != "" {
		if path, ok := space.Path("holddownCylinder"); ok {
			c.values.Set(path, out.Result.HolddownCylinder)
		}
	}
	if selected {
		c.values.Set(PathReelModel, reel)
	}
	return c, nil
}

func runReelDrive(r *request) (contribution, error) {
	space, err := r.space(SectionReelDrive)
	if err != nil {
		return contribution{}, err
	}
	reel, _, err := r.reelModel()
	if err != nil {
		return contribution{}, err
	}
	base := reeldrive.Input{
		ReelModel:         reel,
		MaterialType:      r.str(PathMaterialType, ""),
		Width:             r.num(PathWidth, 0),
		CoilID:            r.num(PathCoilID, 0),
		CoilOD:            r.num(PathCoilOD, r.env.Config.Defaults.CoilOD),
		CoilWeight:        r.num(PathCoilWeight, 0),
		BackplateDiameter: r.num("reel.backplateDiameter", r.env.Config.Defaults.ReelDrive.BackplateDiameter),
		Speed:             r.lineSpeed(),
		Accel:             r.num("reel.accel", 0),
		TypeOfLine:        r.lineType(),
	}
	eval := func(p Point) (reeldrive.Result, error) {
		in := base
		in.MotorHP = p.Num("motorHP")
		in.ReducerRatio = p.Num("reducerRatio")
		return reeldrive.Calculate(r.env, in)
	}
	out, err := Search(space, r.pinned(space), eval,
		func(res reeldrive.Result) string { return res.Status },
		accepts(calc.OK, calc.UsePullOff), r.log)
	if err != nil {
		return contribution{}, err
	}
	return emit(namespaces[SectionReelDrive], space, out)
}

func runStrUtility(r *request) (contribution, error) {
	space, err := r.space(SectionStrUtil)
	if err != nil {
		return contribution{}, err
	}
	pins := r.pinned(space)
	// a quoted line speed sets the feed rate
	if _, ok := pins["feedRate"]; !ok && r.lineSpeed() > 0 {
		space = space.Without("feedRate")
	}
	def := r.env.Config.Defaults.Straightener
	base := strutility.Input{
		Rolls:                 int(r.num(PathStrRolls, 0)),
		MaterialType:          r.str(PathMaterialType, ""),
		Thickness:             r.num(PathThickness, 0),
		Width:                 r.num(PathWidth, 0),
		YieldStrength:         r.num(PathYield, 0),
		CoilWeight:            r.num(PathCoilWeight, r.num("coil.coilWeight", 0)),
		CoilID:                r.num(PathCoilID, 0),
		CoilOD:                r.num(PathCoilOD, r.env.Config.Defaults.CoilOD),
		RequiredFPM:           r.lineSpeed(),
		Acceleration:          r.num("straightener.acceleration", def.Acceleration),
		AutoBrakeCompensation: def.AutoBrakeCompensation || r.doc.Bool("straightener.autoBrakeCompensation"),
	}
	eval := func(p Point) (strutility.Result, error) {
		in := base
		in.StraightenerModel = p.Str("model")
		in.Horsepower = p.Num("horsepower")
		in.FeedRate = p.Num("feedRate")
		return strutility.Calculate(r.env, in)
	}
	out, err := Search(space, pins, eval,
		func(res strutility.Result) string { return res.Status },
		accepts(calc.OK), r.log)
	if err != nil {
		return contribution{}, err
	}
	return emit(namespaces[SectionStrUtil], space, out)
}

func runBackbend(r *request) (contribution, error) {
	space, err := r.space(SectionBackbend)
	if err != nil {
		return contribution{}, err
	}
	base := backbend.Input{
		MaterialType:   r.str(PathMaterialType, ""),
		Thickness:      r.num(PathThickness, 0),
		Width:          r.num(PathWidth, 0),
		YieldStrength:  r.num(PathYield, 0),
		ConfirmedYield: r.doc.Bool("rollStrBackbend.confirmedYield"),
	}
	eval := func(p Point) (backbend.Result, error) {
		in := base
		in.StraightenerModel = p.Str("model")
		in.Rolls = int(p.Num("rolls"))
		return backbend.Calculate(r.env, in)
	}
	out, err := Search(space, r.pinned(space), eval,
		func(res backbend.Result) string { return res.Status },
		accepts(calc.OK), r.log)
	if err != nil {
		return contribution{}, err
	}
	return emit(namespaces[SectionBackbend], space, out)
}

// feedTable picks the servo table: pull-through lines drag the strip through
// the straightener with the feed.
func (r *request) feedTable() string {
	if t, ok := r.doc.String("feed.table"); ok {
		return t
	}
	if r.lineType() == "Pull Through" {
		return feed.TableSigmaFivePT
	}
	return r.env.Config.Defaults.Feed.Table
}

func runFeed(r *request) (contribution, error) {
	table := r.feedTable()
	space, err := r.space("feed:" + table)
	if err != nil {
		return contribution{}, err
	}
	base := feed.Input{
		Table:          table,
		FeedLength:     r.num("feed.average.length", 0),
		SPM:            r.num("feed.average.spm", 0),
		MaterialType:   r.str(PathMaterialType, ""),
		Thickness:      r.num(PathThickness, 0),
		Width:          r.num(PathWidth, 0),
		YieldStrength:  r.num(PathYield, 0),
		PressBedLength: r.num("feed.pressBedLength", 0),
		MaterialInLoop: r.num("feed.materialInLoop", 0),
		FrictionInDie:  r.num("feed.frictionInDie", 0),
		FeedAngle1:     r.num("feed.feedAngle1", 0),
		FeedAngle2:     r.num("feed.feedAngle2", 0),
		StrRolls:       int(r.num(PathStrRolls, 0)),
	}
	eval := func(p Point) (feed.Result, error) {
		in := base
		in.Model = p.Str("model")
		in.AccelerationRate = p.Num("accelerationRate")
		return feed.Calculate(r.env, in)
	}
	out, err := Search(space, r.pinned(space), eval,
		func(res feed.Result) string { return res.Status },
		accepts(calc.OK), r.log)
	if err != nil {
		return contribution{}, err
	}
	c, err := emit(namespaces[SectionFeed], space, out)
	if err != nil {
		return contribution{}, err
	}
	c.values.Set("feed.table", table)
	return c, nil
}

func runShear(r *request) (contribution, error) {
	space, err := r.space(SectionShear)
	if err != nil {
		return contribution{}, err
	}
	base := shear.Input{
		Thickness:            r.num(PathThickness, 0),
		Width:                r.num(PathWidth, 0),
		TensileStrength:      r.num(PathTensile, 0),
		Overlap:              r.num("shear.blade.overlap", 0),
		BladeOpening:         r.num("shear.blade.bladeOpening", 0),
		PercentOfPenetration: r.num("shear.blade.percentOfPenetration", 0),
		RodDiameter:          r.num("shear.cylinder.rodDiameter", 0),
		TimeForDownStroke:    r.num("shear.time.forDownwardStroke", 0),
	}
	if v, ok := r.doc.Float("shear.time.dwellTime"); ok {
		base.DwellTime = &v
	}
	eval := func(p Point) (shear.Result, error) {
		in := base
		in.Type = p.Str("type")
		in.BoreSize = p.Num("boreSize")
		in.Pressure = p.Num("pressure")
		in.Stroke = p.Num("stroke")
		in.RakeOfBladePerFoot = p.Num("rakeOfBladePerFoot")
		return shear.Calculate(r.env, in)
	}
	out, err := Search(space, r.pinned(space), eval,
		func(res shear.Result) string { return res.Status },
		accepts(calc.OK), r.log)
	if err != nil {
		return contribution{}, err
	}
	return emit(namespaces[SectionShear], space, out)
}
