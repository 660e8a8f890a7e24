package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Distribution kinds.
const (
	DistFixed   = "fixed"
	DistNormal  = "normal"
	DistUniform = "uniform"
)

// Dist is either a fixed value or a distribution to sample per agent.
// A bare scalar in YAML or TOML decodes as a fixed value.
type Dist struct {
	Kind   string  `yaml:"kind" toml:"kind"`
	Value  float64 `yaml:"value,omitempty" toml:"value"`
	Mean   float64 `yaml:"mean,omitempty" toml:"mean"`
	StdDev float64 `yaml:"stddev,omitempty" toml:"stddev"`
	Min    float64 `yaml:"min,omitempty" toml:"min"`
	Max    float64 `yaml:"max,omitempty" toml:"max"`
}

// FixedDist returns a Dist that always yields v.
func FixedDist(v float64) Dist { return Dist{Kind: DistFixed, Value: v} }

// NormalDist returns a normal Dist.
func NormalDist(mean, stddev float64) Dist {
	return Dist{Kind: DistNormal, Mean: mean, StdDev: stddev}
}

// IsZero reports whether the Dist was never set.
func (d Dist) IsZero() bool { return d == Dist{} }

// Expected returns the expected value of d.
func (d Dist) Expected() float64 {
	switch d.Kind {
	case DistNormal:
		return d.Mean
	case DistUniform:
		return (d.Min + d.Max) / 2
	}
	return d.Value
}

// Validate checks the parameters of d.
func (d Dist) Validate() error {
	switch d.Kind {
	case DistFixed, "":
		return nil
	case DistNormal:
		if d.StdDev < 0 {
			return fmt.Errorf("stddev %v must not be negative", d.StdDev)
		}
	case DistUniform:
		if d.Max < d.Min {
			return fmt.Errorf("max %v below min %v", d.Max, d.Min)
		}
	default:
		return fmt.Errorf("unknown distribution kind %q", d.Kind)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Dist) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*d = FixedDist(v)
		return nil
	}
	type plain Dist
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = Dist(p)
	if d.Kind == "" {
		d.Kind = DistFixed
	}
	return nil
}

// MarshalYAML writes fixed values back as bare scalars.
func (d Dist) MarshalYAML() (any, error) {
	if d.Kind == DistFixed || d.Kind == "" {
		return d.Value, nil
	}
	type plain Dist
	return plain(d), nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (d *Dist) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case int64:
		*d = FixedDist(float64(v))
	case float64:
		*d = FixedDist(v)
	case map[string]any:
		*d = Dist{Kind: DistFixed}
		if k, ok := v["kind"].(string); ok {
			d.Kind = k
		}
		for key, dst := range map[string]*float64{
			"value": &d.Value, "mean": &d.Mean, "stddev": &d.StdDev, "min": &d.Min, "max": &d.Max,
		} {
			if err := tomlFloat(v, key, dst); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot decode %T as a distribution", v)
	}
	return nil
}

func tomlFloat(m map[string]any, key string, dst *float64) error {
	switch x := m[key].(type) {
	case nil:
	case int64:
		*dst = float64(x)
	case float64:
		*dst = x
	default:
		return fmt.Errorf("%s: expected a number, got %T", key, x)
	}
	return nil
}

// Profile kinds.
const (
	ProfileStep     = "step"
	ProfileLinear   = "linear"
	ProfileConstant = "constant"
)

// ProfileConfig describes a distance-to-probability profile.
type ProfileConfig struct {
	Kind        string  `yaml:"kind" toml:"kind"`
	Radius      float64 `yaml:"radius,omitempty" toml:"radius"`
	Probability float64 `yaml:"probability" toml:"probability"`
}

// Validate checks the parameters of p.
func (p ProfileConfig) Validate() error {
	var errs []error
	switch p.Kind {
	case ProfileStep, ProfileLinear:
		if p.Radius < 0 {
			errs = append(errs, fmt.Errorf("radius %v must not be negative", p.Radius))
		}
	case ProfileConstant:
	default:
		errs = append(errs, fmt.Errorf("unknown profile kind %q", p.Kind))
	}
	if p.Probability < 0 || p.Probability > 1 {
		errs = append(errs, fmt.Errorf("probability %v outside [0, 1]", p.Probability))
	}
	return errors.Join(errs...)
}
