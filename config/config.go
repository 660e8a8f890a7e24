// Package config provides configuration loading for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// Topologies accepted in physics.topology.
const (
	TopologyPeriodic   = "periodic"
	TopologyReflecting = "reflecting"
	TopologyOpen       = "open"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig  `yaml:"simulation" toml:"simulation"`
	Physics    PhysicsConfig     `yaml:"physics" toml:"physics"`
	Drift      DriftConfig       `yaml:"drift" toml:"drift"`
	Render     RenderConfig      `yaml:"render" toml:"render"`
	Output     OutputConfig      `yaml:"output" toml:"output"`
	Screen     ScreenConfig      `yaml:"screen" toml:"screen"`
	Archetypes []ArchetypeConfig `yaml:"archetypes" toml:"archetypes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" toml:"-"`
}

// SimulationConfig holds run length, time step and box size.
type SimulationConfig struct {
	DT            float64   `yaml:"dt" toml:"dt"`
	MaxSteps      int       `yaml:"max_steps" toml:"max_steps"`
	Box           []float64 `yaml:"box" toml:"box"`                       // [width, height]
	WriteInterval int       `yaml:"write_interval" toml:"write_interval"` // Measure every N ticks
	Seed          uint64    `yaml:"seed" toml:"seed"`                     // 0 = time-based
	LogEvery      int       `yaml:"log_every" toml:"log_every"`
	MaxPacking    float64   `yaml:"max_packing" toml:"max_packing"` // Warn above this footprint/area ratio
}

// PhysicsConfig holds the geometry and pair force parameters.
type PhysicsConfig struct {
	Topology      string  `yaml:"topology" toml:"topology"`
	MinDistance   float64 `yaml:"min_distance" toml:"min_distance"` // Distance floor for force/infection
	ForceConstant float64 `yaml:"force_constant" toml:"force_constant"`
	ForceOffset   float64 `yaml:"force_offset" toml:"force_offset"` // Softening added to r
}

// DriftConfig holds the velocity compensation parameters.
type DriftConfig struct {
	Enabled   bool    `yaml:"enabled" toml:"enabled"`
	Slope     float64 `yaml:"slope" toml:"slope"`
	VMax      float64 `yaml:"vmax" toml:"vmax"`
	ClipSpeed float64 `yaml:"clip_speed" toml:"clip_speed"`
}

// RenderConfig holds frame rendering parameters.
type RenderConfig struct {
	Enabled     bool              `yaml:"enabled" toml:"enabled"`
	FrameSize   int               `yaml:"frame_size" toml:"frame_size"` // Pixels along the longer axis
	Margin      float64           `yaml:"margin" toml:"margin"`         // World units drawn around the box
	FillAlpha   float64           `yaml:"fill_alpha" toml:"fill_alpha"`
	TypeColors  map[string]string `yaml:"type_colors" toml:"type_colors"`
	StageColors []string          `yaml:"stage_colors" toml:"stage_colors"`
}

// OutputConfig holds output file names. Relative names resolve inside Dir.
type OutputConfig struct {
	Dir              string `yaml:"dir" toml:"dir"`
	MeasurementsFile string `yaml:"measurements_file" toml:"measurements_file"`
	CensusFile       string `yaml:"census_file" toml:"census_file"`
	SummaryFile      string `yaml:"summary_file" toml:"summary_file"`
	ChartFile        string `yaml:"chart_file" toml:"chart_file"`
	ImageName        string `yaml:"image_name" toml:"image_name"`
	ImageFormat      string `yaml:"image_format" toml:"image_format"`
	VideoName        string `yaml:"video_name" toml:"video_name"`
	VideoFormat      string `yaml:"video_format" toml:"video_format"`
	VideoFPS         int    `yaml:"video_fps" toml:"video_fps"`
	VideoQuality     int    `yaml:"video_quality" toml:"video_quality"` // JPEG quality 1-100
}

// ScreenConfig holds interactive viewer settings.
type ScreenConfig struct {
	Width         int `yaml:"width" toml:"width"`
	Height        int `yaml:"height" toml:"height"`
	TargetFPS     int `yaml:"target_fps" toml:"target_fps"`
	StepsPerFrame int `yaml:"steps_per_frame" toml:"steps_per_frame"`
}

// ArchetypeConfig defines a group of agents created from one template.
type ArchetypeConfig struct {
	Name               string        `yaml:"name" toml:"name"`
	Type               string        `yaml:"type" toml:"type"` // Census label, defaults to Name
	Count              int           `yaml:"count" toml:"count"`
	Stage              string        `yaml:"stage" toml:"stage"`
	Immobile           bool          `yaml:"immobile" toml:"immobile"`
	Transparent        bool          `yaml:"transparent" toml:"transparent"`
	Size               Dist          `yaml:"size" toml:"size"`
	Mass               Dist          `yaml:"mass" toml:"mass"`
	HealthySpeed       Dist          `yaml:"healthy_speed" toml:"healthy_speed"`
	IncubationSpeed    Dist          `yaml:"incubation_speed" toml:"incubation_speed"`
	SicknessSpeed      Dist          `yaml:"sickness_speed" toml:"sickness_speed"`
	RecoverProbability float64       `yaml:"recover_probability" toml:"recover_probability"`
	TimeToIncubate     Dist          `yaml:"time_to_incubate" toml:"time_to_incubate"`
	TimeToRecover      Dist          `yaml:"time_to_recover" toml:"time_to_recover"`
	TimeToDie          Dist          `yaml:"time_to_die" toml:"time_to_die"`
	DiseaseProfile     ProfileConfig `yaml:"disease_profile" toml:"disease_profile"`
	InfectionProfile   ProfileConfig `yaml:"infection_profile" toml:"infection_profile"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	BoxW, BoxH  float64
	TotalAgents int
	Footprint   float64  // Sum of pi*size^2 over all agents, using mean sizes
	Packing     float64  // Footprint / box area
	Types       []string // Distinct type labels in archetype order
}

// Load loads configuration from a YAML or TOML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
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
		// Unmarshal into same struct - only overwrites fields present in file
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			// TOML decodes arrays of tables into the existing slice elements,
			// so the default archetypes must not be visible to the decoder.
			defaults := cfg.Archetypes
			cfg.Archetypes = nil
			md, err := toml.Decode(string(data), cfg)
			if err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
			if !md.IsDefined("archetypes") {
				cfg.Archetypes = defaults
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived fills archetype defaults and calculates derived values.
func (c *Config) computeDerived() {
	if len(c.Simulation.Box) == 2 {
		c.Derived.BoxW, c.Derived.BoxH = c.Simulation.Box[0], c.Simulation.Box[1]
	}

	c.Derived.TotalAgents = 0
	c.Derived.Footprint = 0
	c.Derived.Types = c.Derived.Types[:0]
	seen := make(map[string]bool)
	for i := range c.Archetypes {
		arch := &c.Archetypes[i]
		if arch.Type == "" {
			arch.Type = arch.Name
		}
		if arch.Stage == "" {
			arch.Stage = "susceptible"
		}
		if arch.Size.IsZero() {
			arch.Size = FixedDist(1)
		}
		if arch.Mass.IsZero() {
			arch.Mass = FixedDist(1)
		}
		if !seen[arch.Type] {
			seen[arch.Type] = true
			c.Derived.Types = append(c.Derived.Types, arch.Type)
		}
		c.Derived.TotalAgents += arch.Count
		r := arch.Size.Expected()
		c.Derived.Footprint += float64(arch.Count) * math.Pi * r * r
	}
	if area := c.Derived.BoxW * c.Derived.BoxH; area > 0 {
		c.Derived.Packing = c.Derived.Footprint / area
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := c.Simulation
	check(s.DT > 0, "simulation.dt must be positive, got %v", s.DT)
	check(s.MaxSteps >= 0, "simulation.max_steps must not be negative, got %d", s.MaxSteps)
	check(len(s.Box) == 2, "simulation.box must have two entries, got %d", len(s.Box))
	check(c.Derived.BoxW > 0 && c.Derived.BoxH > 0, "simulation.box must be positive, got %v", s.Box)
	check(s.WriteInterval > 0, "simulation.write_interval must be positive, got %d", s.WriteInterval)

	switch c.Physics.Topology {
	case TopologyPeriodic, TopologyReflecting, TopologyOpen:
	default:
		errs = append(errs, fmt.Errorf("physics.topology %q is not one of periodic, reflecting, open", c.Physics.Topology))
	}
	check(c.Physics.MinDistance >= 0, "physics.min_distance must not be negative")

	if d := c.Drift; d.Enabled {
		check(d.Slope > 0, "drift.slope must be positive, got %v", d.Slope)
		check(d.VMax > 0, "drift.vmax must be positive, got %v", d.VMax)
		check(d.ClipSpeed > 0, "drift.clip_speed must be positive, got %v", d.ClipSpeed)
	}

	if c.Render.Enabled {
		check(c.Render.FrameSize > 0, "render.frame_size must be positive")
		check(len(c.Render.StageColors) == 5, "render.stage_colors needs 5 entries, got %d", len(c.Render.StageColors))
		check(c.Render.FillAlpha >= 0 && c.Render.FillAlpha <= 1, "render.fill_alpha must be in [0, 1]")
	}
	check(c.Output.VideoFPS > 0, "output.video_fps must be positive")

	check(len(c.Archetypes) > 0, "at least one archetype is required")
	for i, arch := range c.Archetypes {
		prefix := fmt.Sprintf("archetypes[%d] (%s)", i, arch.Name)
		check(arch.Count >= 0, "%s: count must not be negative", prefix)
		check(arch.RecoverProbability >= 0 && arch.RecoverProbability <= 1,
			"%s: recover_probability must be in [0, 1]", prefix)
		check(arch.Size.Expected() > 0, "%s: size must be positive", prefix)
		check(arch.Mass.Expected() > 0, "%s: mass must be positive", prefix)
		for name, d := range map[string]Dist{
			"time_to_incubate": arch.TimeToIncubate, "time_to_recover": arch.TimeToRecover, "time_to_die": arch.TimeToDie,
		} {
			check(!d.IsZero(), "%s: %s is required", prefix, name)
		}
		for name, d := range map[string]Dist{
			"size": arch.Size, "mass": arch.Mass,
			"healthy_speed": arch.HealthySpeed, "incubation_speed": arch.IncubationSpeed,
			"sickness_speed": arch.SicknessSpeed, "time_to_incubate": arch.TimeToIncubate,
			"time_to_recover": arch.TimeToRecover, "time_to_die": arch.TimeToDie,
		} {
			if err := d.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %s: %w", prefix, name, err))
			}
		}
		for name, p := range map[string]ProfileConfig{
			"disease_profile": arch.DiseaseProfile, "infection_profile": arch.InfectionProfile,
		} {
			if err := p.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %s: %w", prefix, name, err))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
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
