// Package lookup resolves engineering constants for materials and equipment
// from a static keyed dataset.
package lookup

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed tables.json
var tablesJSON []byte

// Table names accepted by Resolve.
const (
	TableMaterials      = "materials"
	TableReels          = "reels"
	TableHolddownSort   = "holddown_sort"
	TableHolddownMatrix = "holddown_matrix"
	TableBrakes         = "brakes"
	TableDrives         = "drives"
	TableLineTypes      = "line_types"
	TableMotors         = "motors"
	TableStraighteners  = "straighteners"
	TableLewis          = "lewis"
	TableFeeds          = "feeds"
)

// UnknownKeyError reports a key that is absent from a table.
type UnknownKeyError struct {
	Table string
	Key   string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown %s key %q", e.Table, e.Key)
}

type Material struct {
	Density float64 `json:"density"` // lb/in^3
	Modulus float64 `json:"modulus"` // psi
}

type Reel struct {
	Size               string  `json:"size"`
	MaxWidth           float64 `json:"max_width"`
	MaxWeight          float64 `json:"max_weight"`
	MandrelDiameter    float64 `json:"mandrel_diameter"`
	MandrelLength      float64 `json:"mandrel_length"`
	BackplateThickness float64 `json:"backplate_thickness"`
	BearingDistance    float64 `json:"bearing_distance"`
	FrontBearingDia    float64 `json:"front_bearing_dia"`
	RearBearingDia     float64 `json:"rear_bearing_dia"`
	HolddownFamily     string  `json:"holddown_family"`
	DriveFamily        string  `json:"drive_family"`
}

type HolddownEntry struct {
	PressureLabel string  `json:"pressure_label"`
	MaxPSI        float64 `json:"max_psi"`
	PSI           float64 `json:"psi"`
	ForceFactor   float64 `json:"force_factor"`
	MinWidth      float64 `json:"min_width"`
}

type Brake struct {
	Stages       int     `json:"stages"`
	CylinderBore float64 `json:"cylinder_bore"`
	Failsafe     bool    `json:"failsafe"`
	ReleasePSI   float64 `json:"release_psi"`
	HoldingForce float64 `json:"holding_force"`
}

type LineType struct {
	ReelType string `json:"reel_type"`
	StrUsed  bool   `json:"str_used"`
}

// Reel types of a line.
const (
	ReelPullOff   = "PULLOFF"
	ReelMotorized = "MOTORIZED"
)

type Motor struct {
	Inertia float64 `json:"inertia"` // lb-in-s^2
}

type Straightener struct {
	RollDiameter      float64 `json:"roll_diameter"`
	CenterDistance    float64 `json:"center_distance"`
	JackForce         float64 `json:"jack_force"`
	MaxRollDepth      float64 `json:"max_roll_depth"`
	PinchRollDiameter float64 `json:"pinch_roll_diameter"`
	StrRollTeeth      int     `json:"str_roll_teeth"`
	PinchRollTeeth    int     `json:"pinch_roll_teeth"`
	StrRollDP         float64 `json:"str_roll_dp"`
	PinchRollDP       float64 `json:"pinch_roll_dp"`
	FaceWidth         float64 `json:"face_width"`
	MaxFeedRate       float64 `json:"max_feed_rate"`
	MaxWidth          float64 `json:"max_width"`
	BackupRolls       bool    `json:"backup_rolls"`
}

type Feed struct {
	MaxVelocity    float64 `json:"max_velocity"` // fpm
	PeakTorque     float64 `json:"peak_torque"`  // in-lb
	RMSTorque      float64 `json:"rms_torque"`   // in-lb
	MotorInertia   float64 `json:"motor_inertia"`
	Ratio          float64 `json:"ratio"`
	RollDiameter   float64 `json:"roll_diameter"`
	RollInertia    float64 `json:"roll_inertia"`
	SettleTime     float64 `json:"settle_time"` // s
	MaxWidth       float64 `json:"max_width"`
	RegenCapacity  float64 `json:"regen_capacity"` // W
	MaxMotorRPM    float64 `json:"max_motor_rpm"`
	StrRolls       int     `json:"str_rolls"`
	CenterDistance float64 `json:"center_distance"`
	KConst         float64 `json:"k_const"`
}

type sortEntry struct {
	Sort int `json:"sort"`
}

type driveEntry struct {
	Torque float64 `json:"torque"`
}

type dataset struct {
	Materials      map[string]Material        `json:"materials"`
	Reels          map[string]Reel            `json:"reels"`
	HolddownSort   map[string]sortEntry       `json:"holddown_sort"`
	HolddownMatrix map[string]HolddownEntry   `json:"holddown_matrix"`
	Brakes         map[string]Brake           `json:"brakes"`
	Drives         map[string]driveEntry      `json:"drives"`
	LineTypes      map[string]LineType        `json:"line_types"`
	Motors         map[string]Motor           `json:"motors"`
	Straighteners  map[string]Straightener    `json:"straighteners"`
	Lewis          map[string]float64         `json:"lewis"`
	Feeds          map[string]map[string]Feed `json:"feeds"`
}

// Tables is the immutable, parsed dataset. All methods are safe for concurrent use.
type Tables struct {
	d dataset
}

var loadDefault = sync.OnceValues(func() (*Tables, error) {
	return Parse(tablesJSON)
})

// Default returns the embedded dataset, parsed once per process.
func Default() (*Tables, error) {
	return loadDefault()
}

// Parse builds Tables from a JSON document with the embedded dataset's shape.
func Parse(data []byte) (*Tables, error) {
	var d dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse lookup tables: %w", err)
	}
	return &Tables{d: d}, nil
}

func normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Resolve returns the record stored under key in the named table.
func (t *Tables) Resolve(table, key string) (any, error) {
	switch table {
	case TableMaterials:
		return t.Material(key)
	case TableReels:
		return t.Reel(key)
	case TableHolddownSort:
		return t.HolddownSort(key)
	case TableHolddownMatrix:
		e, ok := t.d.HolddownMatrix[key]
		if !ok {
			return nil, &UnknownKeyError{Table: table, Key: key}
		}
		return e, nil
	case TableBrakes:
		return t.Brake(key)
	case TableDrives:
		e, ok := t.d.Drives[key]
		if !ok {
			return nil, &UnknownKeyError{Table: table, Key: key}
		}
		return e.Torque, nil
	case TableLineTypes:
		return t.LineType(key)
	case TableMotors:
		hp, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return nil, &UnknownKeyError{Table: table, Key: key}
		}
		return t.Motor(hp)
	case TableStraighteners:
		return t.Straightener(key)
	case TableLewis:
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, &UnknownKeyError{Table: table, Key: key}
		}
		return t.LewisFactor(n)
	case TableFeeds:
		// key is "{table}/{model}"
		tbl, model, _ := strings.Cut(key, "/")
		return t.Feed(tbl, model)
	}
	return nil, &UnknownKeyError{Table: "tables", Key: table}
}

func (t *Tables) Material(materialType string) (Material, error) {
	m, ok := t.d.Materials[normalize(materialType)]
	if !ok {
		return Material{}, &UnknownKeyError{Table: TableMaterials, Key: materialType}
	}
	return m, nil
}

func (t *Tables) Reel(model string) (Reel, error) {
	r, ok := t.d.Reels[normalize(model)]
	if !ok {
		return Reel{}, &UnknownKeyError{Table: TableReels, Key: model}
	}
	return r, nil
}

// ReelModels lists reel models from the smallest rated weight to the largest.
func (t *Tables) ReelModels() []string {
	models := make([]string, 0, len(t.d.Reels))
	for m := range t.d.Reels {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		a, b := t.d.Reels[models[i]], t.d.Reels[models[j]]
		if a.MaxWeight != b.MaxWeight {
			return a.MaxWeight < b.MaxWeight
		}
		return models[i] < models[j]
	})
	return models
}

// SelectReel picks the smallest reel rated for the coil weight and width. A coil
// heavier than every rating gets the highest rated reel wide enough for it; the
// engines cap the coil weight at that reel's rating.
func (t *Tables) SelectReel(weight, width float64) (string, error) {
	heaviest := ""
	for _, m := range t.ReelModels() {
		r := t.d.Reels[m]
		if r.MaxWidth < width {
			continue
		}
		if r.MaxWeight >= weight {
			return m, nil
		}
		heaviest = m
	}
	if heaviest == "" {
		return "", fmt.Errorf("no reel wide enough for a %.3f in coil", width)
	}
	return heaviest, nil
}

func (t *Tables) HolddownSort(assembly string) (int, error) {
	s, ok := t.d.HolddownSort[strings.TrimSpace(assembly)]
	if !ok {
		return 0, &UnknownKeyError{Table: TableHolddownSort, Key: assembly}
	}
	return s.Sort, nil
}

func (t *Tables) Brake(model string) (Brake, error) {
	b, ok := t.d.Brakes[strings.TrimSpace(model)]
	if !ok {
		return Brake{}, &UnknownKeyError{Table: TableBrakes, Key: model}
	}
	return b, nil
}

// Displacement returns the threading drive motor displacement (cu in) named by the
// option's leading integer, or 0 for "None".
func Displacement(hydThreadingDrive string) float64 {
	n := leadingInt(hydThreadingDrive)
	if n == 22 {
		return 22.6
	}
	return float64(n)
}

func hydLabel(hydThreadingDrive string) string {
	if n := leadingInt(hydThreadingDrive); n > 0 {
		return strconv.Itoa(n)
	}
	return "None"
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// DriveKey builds the drive torque key "{drive_family}+{air_clutch}+{hyd_threading_drive}".
func DriveKey(family, airClutch, hydThreadingDrive string) string {
	return family + "+" + airClutch + "+" + hydLabel(hydThreadingDrive)
}

// DriveTorque returns the threading drive torque at the mandrel for a reel.
// A reel without the air clutch option for its drive is rated as the clutchless drive.
func (t *Tables) DriveTorque(model, airClutch, hydThreadingDrive string) (float64, error) {
	r, err := t.Reel(model)
	if err != nil {
		return 0, err
	}
	key := DriveKey(r.DriveFamily, airClutch, hydThreadingDrive)
	if e, ok := t.d.Drives[key]; ok {
		return e.Torque, nil
	}
	if airClutch == "Yes" {
		if e, ok := t.d.Drives[DriveKey(r.DriveFamily, "No", hydThreadingDrive)]; ok {
			return e.Torque, nil
		}
	}
	return 0, &UnknownKeyError{Table: TableDrives, Key: key}
}

func (t *Tables) LineType(name string) (LineType, error) {
	l, ok := t.d.LineTypes[strings.TrimSpace(name)]
	if !ok {
		return LineType{}, &UnknownKeyError{Table: TableLineTypes, Key: name}
	}
	return l, nil
}

func (t *Tables) Motor(hp float64) (Motor, error) {
	key := strconv.FormatFloat(hp, 'f', -1, 64)
	m, ok := t.d.Motors[key]
	if !ok {
		return Motor{}, &UnknownKeyError{Table: TableMotors, Key: key}
	}
	return m, nil
}

func (t *Tables) Straightener(model string) (Straightener, error) {
	s, ok := t.d.Straighteners[normalize(model)]
	if !ok {
		return Straightener{}, &UnknownKeyError{Table: TableStraighteners, Key: model}
	}
	return s, nil
}

// LewisFactor returns the Lewis form factor for a gear tooth count.
func (t *Tables) LewisFactor(teeth int) (float64, error) {
	y, ok := t.d.Lewis[strconv.Itoa(teeth)]
	if !ok {
		return 0, &UnknownKeyError{Table: TableLewis, Key: strconv.Itoa(teeth)}
	}
	return y, nil
}

// Feed returns a feed model from one of the feed tables (sigma-five, sigma-five-pt, allen-bradley).
func (t *Tables) Feed(table, model string) (Feed, error) {
	tbl, ok := t.d.Feeds[table]
	if !ok {
		return Feed{}, &UnknownKeyError{Table: TableFeeds, Key: table}
	}
	f, ok := tbl[strings.TrimSpace(model)]
	if !ok {
		return Feed{}, &UnknownKeyError{Table: TableFeeds + "/" + table, Key: model}
	}
	return f, nil
}
