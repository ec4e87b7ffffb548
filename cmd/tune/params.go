package main

import (
	"math"

	"github.com/pthm-cable/gridnav/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Integer bool    // rounded before use
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the planner tuning parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "cost_threshold", Path: "planner.cost_threshold", Min: 5, Max: 250},
			{Name: "max_relaxations", Path: "planner.max_relaxations", Min: 1, Max: 8, Integer: true},
			{Name: "refresh_interval", Path: "planner.refresh_interval", Min: 0, Max: 25, Integer: true},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
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

// Clamp bounds every value and rounds integer parameters.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := math.Min(math.Max(v[i], spec.Min), spec.Max)
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Planner.CostThreshold = clamped[0]
	cfg.Planner.MaxRelaxations = int(clamped[1])
	cfg.Planner.RefreshInterval = int(clamped[2])
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Planner.CostThreshold,
		float64(cfg.Planner.MaxRelaxations),
		float64(cfg.Planner.RefreshInterval),
	}
}
