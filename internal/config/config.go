package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Engine is the configuration handed to every calculation and search.
// It is loaded once and treated as read-only afterwards.
type Engine struct {
	Physics      Physics                `yaml:"physics"`
	TDDBHD       TDDBHD                 `yaml:"tddbhd"`
	ReelDrive    ReelDrive              `yaml:"reel_drive"`
	Straightener Straightener           `yaml:"straightener"`
	Backbend     Backbend               `yaml:"backbend"`
	Feed         Feed                   `yaml:"feed"`
	Shear        Shear                  `yaml:"shear"`
	Defaults     Defaults               `yaml:"defaults"`
	Search       map[string]SearchSpace `yaml:"search"`
}

type Physics struct {
	Gravity      float64 `yaml:"gravity"`       // in/s^2
	SteelDensity float64 `yaml:"steel_density"` // lb/in^3
	HPConstant   float64 `yaml:"hp_constant"`   // in-lb * rpm per hp
}

type TDDBHD struct {
	BrakePads       float64 `yaml:"brake_pads"`
	BrakeDistance   float64 `yaml:"brake_distance"`
	CylinderRod     float64 `yaml:"cylinder_rod"`
	StaticFriction  float64 `yaml:"static_friction"`
	MaxAirPressure  float64 `yaml:"max_air_pressure"`
	MaxCoilOD       float64 `yaml:"max_coil_od"`
	EmptyReelTorque float64 `yaml:"empty_reel_torque"`
	TensionDivisor  float64 `yaml:"tension_divisor"`
}

type ReelDrive struct {
	ChainRatio             float64 `yaml:"chain_ratio"`
	ChainSprocketOD        float64 `yaml:"chain_sprocket_od"`
	ChainSprocketThickness float64 `yaml:"chain_sprocket_thickness"`
	ReducerDriving         float64 `yaml:"reducer_driving"`
	ReducerBackdriving     float64 `yaml:"reducer_backdriving"`
	ReducerInertia         float64 `yaml:"reducer_inertia"`
	MotorBaseRPM           float64 `yaml:"motor_base_rpm"`
	BearingFriction        float64 `yaml:"bearing_friction"`
	AccelRate              float64 `yaml:"accel_rate"`
	RegenFraction          float64 `yaml:"regen_fraction"`
}

type Straightener struct {
	MotorRPM            float64 `yaml:"motor_rpm"`
	Efficiency          float64 `yaml:"efficiency"`
	PinchRollQty        float64 `yaml:"pinch_roll_qty"`
	FPMBuffer           float64 `yaml:"fpm_buffer"`
	GearAllowableStress float64 `yaml:"gear_allowable_stress"`
	BackupRollWidth     float64 `yaml:"backup_roll_width"`
}

type Backbend struct {
	RadiusOffCoil    float64         `yaml:"radius_off_coil"`
	CreepFactor      float64         `yaml:"creep_factor"`
	YieldMin         float64         `yaml:"yield_min"`
	YieldMax         float64         `yaml:"yield_max"`
	YieldConfirm     float64         `yaml:"yield_confirm"`
	JackCount        float64         `yaml:"jack_count"`
	FirstRollStrains map[int]float64 `yaml:"first_roll_strains"`
}

type Feed struct {
	MaxInertiaMatch float64 `yaml:"max_inertia_match"`
}

type Shear struct {
	ShearStrengthRatio float64 `yaml:"shear_strength_ratio"`
	MinSafetyFactor    float64 `yaml:"min_safety_factor"`
	HoseDiameter       float64 `yaml:"hose_diameter"`
}

// Defaults are the operating parameters used when a request leaves them empty.
// Equipment identifiers never appear here; those are searched or selected.
type Defaults struct {
	LineType string  `yaml:"line_type"`
	CoilOD   float64 `yaml:"coil_od"`
	TDDBHD   struct {
		Decel             float64 `yaml:"decel"`
		AirClutch         string  `yaml:"air_clutch"`
		HydThreadingDrive string  `yaml:"hyd_threading_drive"`
	} `yaml:"tddbhd"`
	ReelDrive struct {
		BackplateDiameter float64 `yaml:"backplate_diameter"`
	} `yaml:"reel_drive"`
	Straightener struct {
		Rolls                 int     `yaml:"rolls"`
		Acceleration          float64 `yaml:"acceleration"`
		AutoBrakeCompensation bool    `yaml:"auto_brake_compensation"`
	} `yaml:"straightener"`
	Feed struct {
		Table          string  `yaml:"table"`
		PressBedLength float64 `yaml:"press_bed_length"`
		MaterialInLoop float64 `yaml:"material_in_loop"`
		FrictionInDie  float64 `yaml:"friction_in_die"`
		FeedAngle1     float64 `yaml:"feed_angle_1"`
		FeedAngle2     float64 `yaml:"feed_angle_2"`
	} `yaml:"feed"`
	Shear struct {
		Overlap              float64 `yaml:"overlap"`
		BladeOpening         float64 `yaml:"blade_opening"`
		PercentOfPenetration float64 `yaml:"percent_of_penetration"`
		RodDiameter          float64 `yaml:"rod_diameter"`
		TimeForDownStroke    float64 `yaml:"time_for_down_stroke"`
		DwellTime            float64 `yaml:"dwell_time"`
	} `yaml:"shear"`
}

// SearchSpace describes the ordered parameters one autofill section may vary.
type SearchSpace struct {
	MaxIterations int           `yaml:"max_iterations"`
	Params        []SearchParam `yaml:"params"`
}

// Without returns a copy of the space minus the named parameters.
func (s SearchSpace) Without(names ...string) SearchSpace {
	out := SearchSpace{MaxIterations: s.MaxIterations}
	for _, p := range s.Params {
		if !slices.Contains(names, p.Name) {
			out.Params = append(out.Params, p)
		}
	}
	return out
}

// Path returns where the named parameter is written.
func (s SearchSpace) Path(name string) (string, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p.Path, true
		}
	}
	return "", false
}

// SearchParam is either categorical (Options, smallest first) or continuous (Start, Step, Max).
// Path is where a caller may pin the value and where the chosen value is written;
// Aliases are extra read-only locations for a caller-supplied value.
type SearchParam struct {
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Aliases []string `yaml:"aliases"`
	Options []string `yaml:"options"`
	Start   float64  `yaml:"start"`
	Step    float64  `yaml:"step"`
	Max     float64  `yaml:"max"`
}

// Default returns the embedded engine configuration.
func Default() (Engine, error) {
	var e Engine
	if err := yaml.Unmarshal(defaultsYAML, &e); err != nil {
		return Engine{}, fmt.Errorf("parse embedded defaults: %w", err)
	}
	return e, nil
}

// LoadEngine returns the embedded configuration with an optional YAML overlay applied on top.
func LoadEngine(overlay string) (Engine, error) {
	e, err := Default()
	if err != nil {
		return Engine{}, err
	}
	if overlay == "" {
		return e, nil
	}
	data, err := os.ReadFile(overlay)
	if err != nil {
		return Engine{}, fmt.Errorf("read engine config %s: %w", overlay, err)
	}
	if err := yaml.Unmarshal(data, &e); err != nil {
		return Engine{}, fmt.Errorf("parse engine config %s: %w", overlay, err)
	}
	return e, nil
}

// Settings is the process environment of the server and CLI.
type Settings struct {
	Port         string
	DatabaseURL  string
	Store        string
	SQLitePath   string
	TokenKey     string
	APIKeyHash   string
	LogLevel     string
	LogFormat    string
	EngineConfig string
	RateLimit    float64
	RateBurst    int
}

// FromEnv loads .env when it exists and reads the settings from the environment.
func FromEnv() (Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}
	s := Settings{
		Port:         getenv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Store:        getenv("STORE", "sqlite"),
		SQLitePath:   getenv("SQLITE_PATH", "perfsheet.db"),
		TokenKey:     os.Getenv("TOKEN_KEY"),
		APIKeyHash:   os.Getenv("API_KEY_HASH"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "json"),
		EngineConfig: os.Getenv("ENGINE_CONFIG"),
		RateLimit:    5,
		RateBurst:    10,
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Settings{}, fmt.Errorf("RATE_LIMIT: %w", err)
		}
		s.RateLimit = f
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("RATE_BURST: %w", err)
		}
		s.RateBurst = n
	}
	return s, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
