// Package main provides CMA-ES calibration of transmission parameters
// against a target attack rate.
package main

import (
	"slices"

	"github.com/pthm-cable/contagion/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// Indices into a parameter vector.
const (
	paramTransmission = iota
	paramInfection
	paramRadius
)

// NewParamVector creates the calibration parameters. The contact radius
// starts from the first distance-dependent profile in base.
func NewParamVector(base *config.Config) *ParamVector {
	radius := 4.0
	for _, a := range base.Archetypes {
		if a.DiseaseProfile.Kind != config.ProfileConstant && a.DiseaseProfile.Radius > 0 {
			radius = a.DiseaseProfile.Radius
			break
		}
	}
	return &ParamVector{
		Specs: []ParamSpec{
			// Multiplies every disease profile
			{Name: "transmission_scale", Path: "archetypes[].disease_profile.probability", Min: 0, Max: 2, Default: 1},
			// Multiplies every infection profile
			{Name: "infection_scale", Path: "archetypes[].infection_profile.probability", Min: 0, Max: 2, Default: 1},
			{Name: "contact_radius", Path: "archetypes[].*_profile.radius", Min: 0.5, Max: 3 * radius, Default: radius},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// cloneConfig copies cfg deeply enough for the profile fields to be
// changed without touching cfg.
func cloneConfig(cfg *config.Config) *config.Config {
	c := *cfg
	c.Archetypes = slices.Clone(cfg.Archetypes)
	c.Simulation.Box = slices.Clone(cfg.Simulation.Box)
	return &c
}

// applyRadius sets the radius of every distance-dependent profile.
func applyRadius(cfg *config.Config, radius float64) {
	for i := range cfg.Archetypes {
		a := &cfg.Archetypes[i]
		for _, p := range []*config.ProfileConfig{&a.DiseaseProfile, &a.InfectionProfile} {
			if p.Kind != config.ProfileConstant {
				p.Radius = radius
			}
		}
	}
}

// ApplyToConfig writes the parameters into cfg. The scales are folded into
// the profile probabilities, clamped to 1.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	v := pv.Clamp(values)
	applyRadius(cfg, v[paramRadius])
	for i := range cfg.Archetypes {
		a := &cfg.Archetypes[i]
		a.DiseaseProfile.Probability = min(a.DiseaseProfile.Probability*v[paramTransmission], 1)
		a.InfectionProfile.Probability = min(a.InfectionProfile.Probability*v[paramInfection], 1)
	}
}
