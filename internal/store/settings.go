package store

import (
	"context"
	"database/sql"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
)

// SettingsStore persists the process-wide ranking state that must survive a
// restart: the heuristic weights and the learner configuration.
type SettingsStore interface {
	// LoadWeights returns ErrSettingNotFound when no weights were saved yet.
	LoadWeights(ctx context.Context) (ranking.HeuristicWeights, error)
	SaveWeights(ctx context.Context, weights ranking.HeuristicWeights) error

	// LoadLearnerConfig returns ErrSettingNotFound when nothing was saved yet.
	LoadLearnerConfig(ctx context.Context) (ranking.LearnerConfig, error)
	SaveLearnerConfig(ctx context.Context, cfg ranking.LearnerConfig) error

	// WithTx returns a SettingsStore bound to tx.
	WithTx(tx *sql.Tx) SettingsStore
}
