package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// Keys of the ranking_settings table
const (
	weightsKey = "heuristic_weights"
	learnerKey = "learner_config"
)

// SettingsStore implements store.SettingsStore as JSON values in a
// key/value table.
type SettingsStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates a SettingsStore over db.
func NewSettingsStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *SettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "settings_store")),
		now:     time.Now,
	}
}

// WithTx implements store.SettingsStore.
func (s *SettingsStore) WithTx(tx *sql.Tx) store.SettingsStore {
	return &SettingsStore{db: tx, dialect: s.dialect, logger: s.logger, now: s.now}
}

// LoadWeights implements store.SettingsStore.
func (s *SettingsStore) LoadWeights(ctx context.Context) (ranking.HeuristicWeights, error) {
	var w ranking.HeuristicWeights
	err := s.load(ctx, weightsKey, &w)
	return w, err
}

// SaveWeights implements store.SettingsStore.
func (s *SettingsStore) SaveWeights(ctx context.Context, weights ranking.HeuristicWeights) error {
	return s.save(ctx, weightsKey, weights)
}

// LoadLearnerConfig implements store.SettingsStore.
func (s *SettingsStore) LoadLearnerConfig(ctx context.Context) (ranking.LearnerConfig, error) {
	var c ranking.LearnerConfig
	err := s.load(ctx, learnerKey, &c)
	return c, err
}

// SaveLearnerConfig implements store.SettingsStore.
func (s *SettingsStore) SaveLearnerConfig(ctx context.Context, cfg ranking.LearnerConfig) error {
	return s.save(ctx, learnerKey, cfg)
}

func (s *SettingsStore) load(ctx context.Context, key string, dest any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var raw string
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT value FROM ranking_settings WHERE name = ?`), key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", store.ErrSettingNotFound, key)
		}
		log.Error("failed to load setting", slog.String("key", key), slog.String("error", err.Error()))
		return store.NewStoreError("setting", "load", key, s.dialect.mapError(err))
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return store.NewStoreError("setting", "load", "decode "+key, err)
	}
	return nil
}

func (s *SettingsStore) save(ctx context.Context, key string, value any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	raw, err := json.Marshal(value)
	if err != nil {
		return store.NewStoreError("setting", "save", "encode "+key, err)
	}

	query := s.dialect.Rebind(`INSERT INTO ranking_settings (name, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, key, string(raw), s.now().UTC()); err != nil {
		log.Error("failed to save setting", slog.String("key", key), slog.String("error", err.Error()))
		return store.NewStoreError("setting", "save", key, s.dialect.mapError(err))
	}

	log.Debug("setting saved", slog.String("key", key))
	return nil
}
