package ranking

import (
	"fmt"
	"math"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
)

// HeuristicWeights are the five tunable multipliers, one per factor. They are
// kept within [MinWeight, MaxWeight] of the learner configuration.
type HeuristicWeights struct {
	Blocking        float64 `json:"blocking" mapstructure:"blocking" yaml:"blocking"`
	CrossProject    float64 `json:"cross_project" mapstructure:"cross_project" yaml:"cross_project"`
	TimeSensitivity float64 `json:"time_sensitivity" mapstructure:"time_sensitivity" yaml:"time_sensitivity"`
	EffortValue     float64 `json:"effort_value" mapstructure:"effort_value" yaml:"effort_value"`
	DependencyDepth float64 `json:"dependency_depth" mapstructure:"dependency_depth" yaml:"dependency_depth"`
}

// DefaultWeights returns the weights a fresh engine starts from.
func DefaultWeights() HeuristicWeights {
	return HeuristicWeights{
		Blocking:        10,
		CrossProject:    5,
		TimeSensitivity: 2,
		EffortValue:     1,
		DependencyDepth: 3,
	}
}

func (w HeuristicWeights) vector() [factorCount]float64 {
	return [factorCount]float64{
		w.Blocking,
		w.CrossProject,
		w.TimeSensitivity,
		w.EffortValue,
		w.DependencyDepth,
	}
}

func weightsFromVector(v [factorCount]float64) HeuristicWeights {
	return HeuristicWeights{
		Blocking:        v[0],
		CrossProject:    v[1],
		TimeSensitivity: v[2],
		EffortValue:     v[3],
		DependencyDepth: v[4],
	}
}

// Clamp returns w with every component forced into [minWeight, maxWeight].
func (w HeuristicWeights) Clamp(minWeight, maxWeight float64) HeuristicWeights {
	v := w.vector()
	for i := range v {
		v[i] = clamp(v[i], minWeight, maxWeight)
	}
	return weightsFromVector(v)
}

// Validate checks every component is a finite number within bounds.
func (w HeuristicWeights) Validate(minWeight, maxWeight float64) error {
	names := [factorCount]string{"blocking", "cross_project", "time_sensitivity", "effort_value", "dependency_depth"}
	for i, v := range w.vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < minWeight || v > maxWeight {
			return fmt.Errorf("%w: weight %s=%v outside [%v, %v]",
				ErrInvalidConfig, names[i], v, minWeight, maxWeight)
		}
	}
	return nil
}

// WeightsUpdate is a partial edit of HeuristicWeights. Nil fields keep their
// current value.
type WeightsUpdate struct {
	Blocking        *float64 `json:"blocking,omitempty"`
	CrossProject    *float64 `json:"cross_project,omitempty"`
	TimeSensitivity *float64 `json:"time_sensitivity,omitempty"`
	EffortValue     *float64 `json:"effort_value,omitempty"`
	DependencyDepth *float64 `json:"dependency_depth,omitempty"`
}

// ApplyTo returns w with the update's non-nil fields applied.
func (u WeightsUpdate) ApplyTo(w HeuristicWeights) HeuristicWeights {
	if u.Blocking != nil {
		w.Blocking = *u.Blocking
	}
	if u.CrossProject != nil {
		w.CrossProject = *u.CrossProject
	}
	if u.TimeSensitivity != nil {
		w.TimeSensitivity = *u.TimeSensitivity
	}
	if u.EffortValue != nil {
		w.EffortValue = *u.EffortValue
	}
	if u.DependencyDepth != nil {
		w.DependencyDepth = *u.DependencyDepth
	}
	return w
}

// ComputeScore returns base(priority) − Σ weight×factor. Lower is more urgent.
//
// The base bands are 100 apart so that under default weights the label
// dominates, but the adjustment is unbounded and extreme weights can still
// move a task across bands.
func ComputeScore(f TaskFactors, priority domain.Priority, w HeuristicWeights) float64 {
	return priority.BaseScore() - adjustment(f, w)
}

func adjustment(f TaskFactors, w HeuristicWeights) float64 {
	fv, wv := f.vector(), w.vector()
	var sum float64
	for i := range fv {
		sum += wv[i] * fv[i]
	}
	return sum
}

// FactorContributions is the per-factor share of the adjustment (weight×factor).
type FactorContributions struct {
	Blocking        float64 `json:"blocking"`
	CrossProject    float64 `json:"cross_project"`
	TimeSensitivity float64 `json:"time_sensitivity"`
	EffortValue     float64 `json:"effort_value"`
	DependencyDepth float64 `json:"dependency_depth"`
}

// ScoreBreakdown explains how a score was reached.
type ScoreBreakdown struct {
	Base          float64             `json:"base"`
	Contributions FactorContributions `json:"contributions"`
	Adjustment    float64             `json:"adjustment"`
	Total         float64             `json:"total"`
}

// Explain returns the score of f together with its breakdown.
func Explain(f TaskFactors, priority domain.Priority, w HeuristicWeights) ScoreBreakdown {
	adj := adjustment(f, w)
	base := priority.BaseScore()
	return ScoreBreakdown{
		Base: base,
		Contributions: FactorContributions{
			Blocking:        w.Blocking * f.BlockingCount,
			CrossProject:    w.CrossProject * f.CrossProjectImpact,
			TimeSensitivity: w.TimeSensitivity * f.TimeSensitivity,
			EffortValue:     w.EffortValue * f.EffortValueRatio,
			DependencyDepth: w.DependencyDepth * f.DependencyDepth,
		},
		Adjustment: -adj,
		Total:      base - adj,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
