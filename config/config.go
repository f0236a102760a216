// Package config provides configuration loading and access for the fluid effect.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Theme modes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Backends.
const (
	BackendRaylib = "raylib"
	BackendSoft   = "soft"
)

// Config holds all configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Fluid      FluidConfig      `yaml:"fluid"`
	Theme      ThemeConfig      `yaml:"theme"`
	Background BackgroundConfig `yaml:"background"`
	Input      InputConfig      `yaml:"input"`
	GPU        GPUConfig        `yaml:"gpu"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// FluidConfig holds the simulation parameters. The engine reads a copy at
// the start of each tick, so a change never lands mid-step.
type FluidConfig struct {
	SimResolution       int     `yaml:"sim_resolution"`       // Short side of velocity/pressure grids
	DyeResolution       int     `yaml:"dye_resolution"`       // Short side of the dye grid
	DensityDissipation  float64 `yaml:"density_dissipation"`  // Dye decay rate
	VelocityDissipation float64 `yaml:"velocity_dissipation"` // Velocity decay rate
	Pressure            float64 `yaml:"pressure"`             // Warm-start scale for last frame's pressure
	PressureIterations  int     `yaml:"pressure_iterations"`  // Jacobi iterations per step
	Curl                float64 `yaml:"curl"`                 // Vorticity confinement strength
	SplatRadius         float64 `yaml:"splat_radius"`         // Divided by 100 before use
	SplatForce          float64 `yaml:"splat_force"`          // Pointer delta to velocity scale
	Shading             bool    `yaml:"shading"`
	Colorful            bool    `yaml:"colorful"`           // Cycle pointer colors over time
	ColorUpdateSpeed    float64 `yaml:"color_update_speed"` // Color cycles per second
	DyeGain             float64 `yaml:"dye_gain"`           // Pointer speed at which a drag deposits full color
	MaxDyeNoLinear      int     `yaml:"max_dye_no_linear"`  // Dye cap without linear float filtering
	MaxDT               float64 `yaml:"max_dt"`             // Upper bound on the step size in seconds
}

// ThemeConfig selects the palette used by the active UI theme.
type ThemeConfig struct {
	Mode  string        `yaml:"mode"`
	Dark  PaletteConfig `yaml:"dark"`
	Light PaletteConfig `yaml:"light"`
}

// PaletteConfig holds theme-dependent intensities.
type PaletteConfig struct {
	ClickIntensity      float64 `yaml:"click_intensity"`      // Color multiplier for click splats
	ColorIntensity      float64 `yaml:"color_intensity"`      // Base splat color brightness
	BackgroundLightness float64 `yaml:"background_lightness"` // HSV value of the background
}

// BackgroundConfig holds the evolving background color.
type BackgroundConfig struct {
	HueSpeed   float64 `yaml:"hue_speed"` // Degrees per second
	Saturation float64 `yaml:"saturation"`
}

// InputConfig holds input settings.
type InputConfig struct {
	Touch bool `yaml:"touch"` // Feed multi-touch contacts as separate pointers
}

// GPUConfig selects and tunes the device backend.
type GPUConfig struct {
	Backend         string `yaml:"backend"`
	SoftWorkers     int    `yaml:"soft_workers"`
	SoftHalfFloat   bool   `yaml:"soft_half_float"`
	SoftLinearFloat bool   `yaml:"soft_linear_float"`
}

// TelemetryConfig holds perf logging settings.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds between stats logs
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks in the rolling perf window
}

// MetricsConfig holds the prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Empty disables the endpoint
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SplatRadius float64 // Fluid.SplatRadius / 100
	Palette     PaletteConfig
	StatsTicks  int // Telemetry.StatsWindow at the target frame rate
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

// Set replaces the global configuration, e.g. after a reload.
func Set(cfg *Config) {
	global = cfg
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
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.Fluid.Validate(); err != nil {
		return err
	}
	if c.Theme.Mode != ThemeDark && c.Theme.Mode != ThemeLight {
		return fmt.Errorf("%w: theme.mode %q", ErrInvalid, c.Theme.Mode)
	}
	if c.GPU.Backend != BackendRaylib && c.GPU.Backend != BackendSoft {
		return fmt.Errorf("%w: gpu.backend %q", ErrInvalid, c.GPU.Backend)
	}
	return nil
}

// Validate checks the simulation parameters.
func (f FluidConfig) Validate() error {
	switch {
	case f.SimResolution <= 0:
		return fmt.Errorf("%w: fluid.sim_resolution must be positive", ErrInvalid)
	case f.DyeResolution <= 0:
		return fmt.Errorf("%w: fluid.dye_resolution must be positive", ErrInvalid)
	case f.PressureIterations < 0:
		return fmt.Errorf("%w: fluid.pressure_iterations must not be negative", ErrInvalid)
	case f.DensityDissipation < 0 || f.VelocityDissipation < 0:
		return fmt.Errorf("%w: dissipation must not be negative", ErrInvalid)
	case f.SplatRadius <= 0:
		return fmt.Errorf("%w: fluid.splat_radius must be positive", ErrInvalid)
	case f.MaxDT <= 0:
		return fmt.Errorf("%w: fluid.max_dt must be positive", ErrInvalid)
	case f.MaxDyeNoLinear <= 0:
		return fmt.Errorf("%w: fluid.max_dye_no_linear must be positive", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.SplatRadius = c.Fluid.SplatRadius / 100
	c.Derived.Palette = c.Theme.Palette(c.Theme.Mode)

	fps := c.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.StatsTicks = max(1, int(c.Telemetry.StatsWindow*float64(fps)))
}

// Palette returns the palette for a theme mode, falling back to dark.
func (t ThemeConfig) Palette(mode string) PaletteConfig {
	if mode == ThemeLight {
		return t.Light
	}
	return t.Dark
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
