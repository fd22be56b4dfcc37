package ranking

import (
	"fmt"
	"math"
)

// Learner constants
const (
	// hingeMargin is the score gap by which a preferred task should beat a
	// demoted one before the pair stops contributing loss.
	hingeMargin = 1.0

	// deltaEpsilon is the smallest applied weight change worth a rescore.
	deltaEpsilon = 0.001
)

// LearnerConfig holds the tunable parameters of the online learner.
type LearnerConfig struct {
	Enabled         bool    `json:"enabled" mapstructure:"enabled"`
	LearningRate    float64 `json:"learning_rate" mapstructure:"learning_rate"`
	Momentum        float64 `json:"momentum" mapstructure:"momentum"`
	MaxWeightChange float64 `json:"max_weight_change" mapstructure:"max_weight_change"`
	MinWeight       float64 `json:"min_weight" mapstructure:"min_weight"`
	MaxWeight       float64 `json:"max_weight" mapstructure:"max_weight"`
}

// DefaultLearnerConfig returns the configuration a fresh learner starts with.
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		Enabled:         true,
		LearningRate:    0.05,
		Momentum:        0.9,
		MaxWeightChange: 1.0,
		MinWeight:       0.1,
		MaxWeight:       50.0,
	}
}

// Validate checks the configuration is usable.
func (c LearnerConfig) Validate() error {
	switch {
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0):
		return fmt.Errorf("%w: learning_rate must be positive, got %v", ErrInvalidConfig, c.LearningRate)
	case !(c.Momentum >= 0 && c.Momentum < 1):
		return fmt.Errorf("%w: momentum must be in [0, 1), got %v", ErrInvalidConfig, c.Momentum)
	case !(c.MaxWeightChange > 0) || math.IsInf(c.MaxWeightChange, 0):
		return fmt.Errorf("%w: max_weight_change must be positive, got %v", ErrInvalidConfig, c.MaxWeightChange)
	case !(c.MinWeight >= 0):
		return fmt.Errorf("%w: min_weight must be non-negative, got %v", ErrInvalidConfig, c.MinWeight)
	case !(c.MaxWeight > c.MinWeight) || math.IsInf(c.MaxWeight, 0):
		return fmt.Errorf("%w: max_weight must exceed min_weight, got [%v, %v]",
			ErrInvalidConfig, c.MinWeight, c.MaxWeight)
	}
	return nil
}

// LearnerConfigUpdate is a partial edit of LearnerConfig. Nil fields keep
// their current value.
type LearnerConfigUpdate struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	LearningRate    *float64 `json:"learning_rate,omitempty"`
	Momentum        *float64 `json:"momentum,omitempty"`
	MaxWeightChange *float64 `json:"max_weight_change,omitempty"`
	MinWeight       *float64 `json:"min_weight,omitempty"`
	MaxWeight       *float64 `json:"max_weight,omitempty"`
}

// ApplyTo returns c with the update's non-nil fields applied.
func (u LearnerConfigUpdate) ApplyTo(c LearnerConfig) LearnerConfig {
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	if u.LearningRate != nil {
		c.LearningRate = *u.LearningRate
	}
	if u.Momentum != nil {
		c.Momentum = *u.Momentum
	}
	if u.MaxWeightChange != nil {
		c.MaxWeightChange = *u.MaxWeightChange
	}
	if u.MinWeight != nil {
		c.MinWeight = *u.MinWeight
	}
	if u.MaxWeight != nil {
		c.MaxWeight = *u.MaxWeight
	}
	return c
}

// LearnerMetrics are running counters. They accumulate whether or not
// learning is enabled.
type LearnerMetrics struct {
	CumulativeLoss     float64 `json:"cumulative_loss"`
	CorrectPredictions int     `json:"correct_predictions"`
	TotalPairs         int     `json:"total_pairs"`
	TotalUpdates       int     `json:"total_updates"`
}

// Accuracy is the share of observed pairs the scoring already agreed with.
func (m LearnerMetrics) Accuracy() float64 {
	if m.TotalPairs == 0 {
		return 0
	}
	return float64(m.CorrectPredictions) / float64(m.TotalPairs)
}

// LearnerState is a read-only snapshot of the learner.
type LearnerState struct {
	Config LearnerConfig `json:"config"`
	// MomentumBuffer holds one smoothed gradient component per weight.
	MomentumBuffer HeuristicWeights `json:"momentum_buffer"`
	Metrics        LearnerMetrics   `json:"metrics"`
	Accuracy       float64          `json:"accuracy"`
}

// Direction of a manual reorder.
type Direction string

// Reorder directions
const (
	DirectionPromoted Direction = "promoted"
	DirectionDemoted  Direction = "demoted"
)

// ScoredTask is one row of a ranked view as the learner sees it.
type ScoredTask struct {
	ID      string
	Score   float64
	Factors TaskFactors
}

// PairwisePreference says PreferredID should rank above DemotedID. ScoreDiff
// is score(preferred) − score(demoted) when the reorder was observed; a
// negative value means the scoring already agreed.
type PairwisePreference struct {
	PreferredID string  `json:"preferred_id"`
	DemotedID   string  `json:"demoted_id"`
	ScoreDiff   float64 `json:"score_diff"`

	preferred TaskFactors
	demoted   TaskFactors
}

// GeneratePairs turns a move of the task at fromRank to toRank (1-based) into
// pairwise preferences against every task it passed. Passed tasks are the
// ranks between the two, including the destination and excluding the origin.
func GeneratePairs(view []ScoredTask, fromRank, toRank int) ([]PairwisePreference, Direction, error) {
	n := len(view)
	if fromRank < 1 || fromRank > n || toRank < 1 || toRank > n {
		return nil, "", fmt.Errorf("%w: from_rank=%d to_rank=%d with %d ranked tasks",
			ErrInvalidRange, fromRank, toRank, n)
	}

	moved := view[fromRank-1]
	direction := DirectionDemoted
	lo, hi := fromRank+1, toRank
	if toRank < fromRank {
		direction = DirectionPromoted
		lo, hi = toRank, fromRank-1
	}

	pairs := make([]PairwisePreference, 0, max(hi-lo+1, 0))
	for rank := lo; rank <= hi; rank++ {
		passed := view[rank-1]
		preferred, demoted := passed, moved
		if direction == DirectionPromoted {
			preferred, demoted = moved, passed
		}
		pairs = append(pairs, PairwisePreference{
			PreferredID: preferred.ID,
			DemotedID:   demoted.ID,
			ScoreDiff:   preferred.Score - demoted.Score,
			preferred:   preferred.Factors,
			demoted:     demoted.Factors,
		})
	}
	return pairs, direction, nil
}

// LearnOutcome reports what one learning step did.
type LearnOutcome struct {
	Pairs   int
	Correct int
	Loss    float64
	// Applied is true when at least one weight moved by more than epsilon.
	Applied bool
	// Delta is the change actually applied to each weight.
	Delta   HeuristicWeights
	Weights HeuristicWeights
}

// OnlineLearner nudges heuristic weights toward observed user preferences
// using pairwise hinge loss and momentum. The momentum buffer persists for the
// lifetime of the learner.
type OnlineLearner struct {
	config  LearnerConfig
	buffer  [factorCount]float64
	metrics LearnerMetrics
}

// NewOnlineLearner creates a learner with the given configuration.
func NewOnlineLearner(config LearnerConfig) (*OnlineLearner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OnlineLearner{config: config}, nil
}

// NewDefaultOnlineLearner creates a learner with DefaultLearnerConfig.
func NewDefaultOnlineLearner() *OnlineLearner {
	return &OnlineLearner{config: DefaultLearnerConfig()}
}

// Config returns the current configuration.
func (l *OnlineLearner) Config() LearnerConfig {
	return l.config
}

// State returns a snapshot of configuration, momentum buffer and metrics.
func (l *OnlineLearner) State() LearnerState {
	return LearnerState{
		Config:         l.config,
		MomentumBuffer: weightsFromVector(l.buffer),
		Metrics:        l.metrics,
		Accuracy:       l.metrics.Accuracy(),
	}
}

// UpdateConfig applies a partial configuration edit. An invalid result is
// rejected and leaves the learner untouched.
func (l *OnlineLearner) UpdateConfig(update LearnerConfigUpdate) (LearnerState, error) {
	next := update.ApplyTo(l.config)
	if err := next.Validate(); err != nil {
		return l.State(), err
	}
	l.config = next
	return l.State(), nil
}

// Learn consumes the pairs of one reorder event and returns the weights that
// should replace current. Metrics are always updated; weights only move when
// learning is enabled, some pair has positive loss and the applied change is
// larger than epsilon for at least one weight.
func (l *OnlineLearner) Learn(pairs []PairwisePreference, current HeuristicWeights) LearnOutcome {
	out := LearnOutcome{Pairs: len(pairs), Weights: current}

	l.metrics.TotalUpdates++
	l.metrics.TotalPairs += len(pairs)
	if len(pairs) == 0 {
		return out
	}

	var gradient [factorCount]float64
	violating := 0
	for _, p := range pairs {
		if p.ScoreDiff < 0 {
			out.Correct++
		}
		loss := math.Max(0, hingeMargin+p.ScoreDiff)
		if loss == 0 {
			continue
		}
		out.Loss += loss
		violating++

		// Raising weights of factors where preferred exceeds demoted lowers
		// the preferred score relative to the demoted one.
		pv, dv := p.preferred.vector(), p.demoted.vector()
		for i := range gradient {
			gradient[i] += pv[i] - dv[i]
		}
	}
	l.metrics.CorrectPredictions += out.Correct
	l.metrics.CumulativeLoss += out.Loss

	if !l.config.Enabled || violating == 0 {
		return out
	}

	n := float64(len(pairs))
	cur := current.vector()
	var next, applied [factorCount]float64
	changed := false
	for i := range gradient {
		l.buffer[i] = l.config.Momentum*l.buffer[i] + gradient[i]/n

		delta := clamp(l.config.LearningRate*l.buffer[i], -l.config.MaxWeightChange, l.config.MaxWeightChange)
		next[i] = clamp(cur[i]+delta, l.config.MinWeight, l.config.MaxWeight)
		applied[i] = next[i] - cur[i]
		if math.Abs(applied[i]) >= deltaEpsilon {
			changed = true
		}
	}

	if !changed {
		return out
	}

	out.Applied = true
	out.Delta = weightsFromVector(applied)
	out.Weights = weightsFromVector(next)
	return out
}
