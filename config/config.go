// Package config provides configuration loading and access for the planner
// harness.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/gridnav/geom"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all harness configuration parameters.
type Config struct {
	Field     FieldConfig     `yaml:"field"`
	Robot     RobotConfig     `yaml:"robot"`
	Planner   PlannerConfig   `yaml:"planner"`
	Arena     ArenaConfig     `yaml:"arena"`
	Screen    ScreenConfig    `yaml:"screen"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// FieldConfig holds the arena extent and grid resolution, in centimetres.
type FieldConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	CellSize float64 `yaml:"cell_size"`
}

// RobotConfig holds the robot footprint and drive tuning.
type RobotConfig struct {
	Length           float64 `yaml:"length"`            // cm
	Width            float64 `yaml:"width"`             // cm
	MaxSpeed         float64 `yaml:"max_speed"`         // cm per second
	PIDKp            float64 `yaml:"pid_kp"`            // speed = kp * distance to goal, clamped
	ArrivalTolerance float64 `yaml:"arrival_tolerance"` // cm; 0 uses one cell
}

// PlannerConfig holds the cost propagation tuning.
type PlannerConfig struct {
	CostThreshold    float64 `yaml:"cost_threshold"`    // in cell steps
	MaxRelaxations   int     `yaml:"max_relaxations"`   // per box before it freezes
	RefreshInterval  int     `yaml:"refresh_interval"`  // cycles between full propagations
	RelaxationBudget int     `yaml:"relaxation_budget"` // per cycle, 0 = unlimited
	Inflation        string  `yaml:"inflation"`         // "buffer" or "scale"
	StallCycles      int     `yaml:"stall_cycles"`
	DirectApproach   bool    `yaml:"direct_approach"`
}

// ArenaConfig holds the simulated arena contents.
type ArenaConfig struct {
	ControlHz       float64          `yaml:"control_hz"`
	MovingObstacles int              `yaml:"moving_obstacles"`
	ObstacleSpeed   float64          `yaml:"obstacle_speed"`  // cm per second
	ObstacleRadius  float64          `yaml:"obstacle_radius"` // cm
	Start           PoseConfig       `yaml:"start"`
	Goals           []PoseConfig     `yaml:"goals"`
	Stationary      []ObstacleConfig `yaml:"stationary"`
}

// PoseConfig is a field position in cm and a heading in degrees.
type PoseConfig struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
}

// Position returns the pose position as a vector.
func (p PoseConfig) Position() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// HeadingRad returns the heading in radians.
func (p PoseConfig) HeadingRad() float64 { return p.Heading * math.Pi / 180 }

// ObstacleConfig describes one stationary obstacle.
// Kind is "rect" (X, Y, W, H), "circle" (X, Y, Radius) or "polygon" (Points).
type ObstacleConfig struct {
	Name   string       `yaml:"name,omitempty"`
	Kind   string       `yaml:"kind"`
	X      float64      `yaml:"x,omitempty"`
	Y      float64      `yaml:"y,omitempty"`
	W      float64      `yaml:"w,omitempty"`
	H      float64      `yaml:"h,omitempty"`
	Radius float64      `yaml:"radius,omitempty"`
	Points [][2]float64 `yaml:"points,omitempty"`
}

// Shape builds the geometry for the obstacle.
func (o ObstacleConfig) Shape() (geom.Shape, error) {
	switch o.Kind {
	case "rect":
		return geom.NewRect(o.X, o.Y, o.W, o.H), nil
	case "circle":
		return geom.Circle{Center: r2.Vec{X: o.X, Y: o.Y}, Radius: o.Radius}, nil
	case "polygon":
		if len(o.Points) < 3 {
			return nil, fmt.Errorf("obstacle %q: polygon needs at least 3 points, got %d", o.Name, len(o.Points))
		}
		verts := make([]r2.Vec, len(o.Points))
		for i, p := range o.Points {
			verts[i] = r2.Vec{X: p[0], Y: p[1]}
		}
		return geom.NewPolygon(verts...), nil
	}
	return nil, fmt.Errorf("obstacle %q: unknown kind %q", o.Name, o.Kind)
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // seconds of simulated time per summary
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"` // stats windows compared against
	Snapshots           bool    `yaml:"snapshots"`             // save a snapshot per bookmark
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Cols          int           // grid columns
	Rows          int           // grid rows
	RobotRadius   float64       // half the footprint diagonal, cm
	CycleDT       float64       // seconds per control cycle
	CycleDuration time.Duration // CycleDT as a duration
	StatsCycles   int           // control cycles per telemetry window
	ScreenW32     float32       // Screen.Width as float32
	ScreenH32     float32       // Screen.Height as float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate reports every nonsensical value, joined.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}

	positive("field.width", c.Field.Width)
	positive("field.height", c.Field.Height)
	positive("field.cell_size", c.Field.CellSize)
	if c.Field.CellSize > 0 && (c.Field.CellSize > c.Field.Width || c.Field.CellSize > c.Field.Height) {
		errs = append(errs, fmt.Errorf("field.cell_size %v larger than the field", c.Field.CellSize))
	}

	positive("robot.length", c.Robot.Length)
	positive("robot.width", c.Robot.Width)
	positive("robot.max_speed", c.Robot.MaxSpeed)
	positive("robot.pid_kp", c.Robot.PIDKp)
	if c.Robot.ArrivalTolerance < 0 {
		errs = append(errs, fmt.Errorf("robot.arrival_tolerance must not be negative, got %v", c.Robot.ArrivalTolerance))
	}

	positive("planner.cost_threshold", c.Planner.CostThreshold)
	if c.Planner.MaxRelaxations < 1 {
		errs = append(errs, fmt.Errorf("planner.max_relaxations must be at least 1, got %d", c.Planner.MaxRelaxations))
	}
	if c.Planner.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("planner.refresh_interval must not be negative, got %d", c.Planner.RefreshInterval))
	}
	if c.Planner.RelaxationBudget < 0 {
		errs = append(errs, fmt.Errorf("planner.relaxation_budget must not be negative, got %d", c.Planner.RelaxationBudget))
	}
	if c.Planner.StallCycles < 0 {
		errs = append(errs, fmt.Errorf("planner.stall_cycles must not be negative, got %d", c.Planner.StallCycles))
	}
	switch c.Planner.Inflation {
	case "", "buffer", "scale":
	default:
		errs = append(errs, fmt.Errorf("planner.inflation must be buffer or scale, got %q", c.Planner.Inflation))
	}

	positive("arena.control_hz", c.Arena.ControlHz)
	if c.Arena.MovingObstacles < 0 {
		errs = append(errs, fmt.Errorf("arena.moving_obstacles must not be negative, got %d", c.Arena.MovingObstacles))
	}
	if c.Arena.MovingObstacles > 0 {
		positive("arena.obstacle_radius", c.Arena.ObstacleRadius)
	}
	if len(c.Arena.Goals) == 0 {
		errs = append(errs, errors.New("arena.goals must list at least one goal"))
	}
	inField := func(name string, p PoseConfig) {
		if p.X < 0 || p.Y < 0 || p.X >= c.Field.Width || p.Y >= c.Field.Height {
			errs = append(errs, fmt.Errorf("%s (%v, %v) outside the %vx%v field", name, p.X, p.Y, c.Field.Width, c.Field.Height))
		}
	}
	inField("arena.start", c.Arena.Start)
	for i, g := range c.Arena.Goals {
		inField(fmt.Sprintf("arena.goals[%d]", i), g)
	}
	for i, o := range c.Arena.Stationary {
		if _, err := o.Shape(); err != nil {
			errs = append(errs, fmt.Errorf("arena.stationary[%d]: %w", i, err))
		}
	}

	if c.Telemetry.StatsWindow < 0 {
		errs = append(errs, fmt.Errorf("telemetry.stats_window must not be negative, got %v", c.Telemetry.StatsWindow))
	}

	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Cols = int(math.Ceil(c.Field.Width / c.Field.CellSize))
	c.Derived.Rows = int(math.Ceil(c.Field.Height / c.Field.CellSize))
	c.Derived.RobotRadius = math.Hypot(c.Robot.Length, c.Robot.Width) / 2
	c.Derived.CycleDT = 1 / c.Arena.ControlHz
	c.Derived.CycleDuration = time.Duration(math.Round(c.Derived.CycleDT * float64(time.Second)))
	c.Derived.StatsCycles = max(int(math.Round(c.Telemetry.StatsWindow*c.Arena.ControlHz)), 1)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	if c.Robot.ArrivalTolerance == 0 {
		c.Robot.ArrivalTolerance = c.Field.CellSize
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
