package store

import (
	"fmt"

	"linkprobe/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence collaborator for decoded configs and probe
// results. It is injected wherever persistence is needed so the pipeline
// never touches a process-wide handle.
type Store interface {
	// ReplaceConfigs wipes the config table and inserts the given batch.
	ReplaceConfigs(configs []model.Config) error
	// Configs returns every stored config.
	Configs() ([]model.Config, error)
	// UpsertResult stores a probe result, overwriting any prior result
	// for the same config id.
	UpsertResult(res model.Result) error
	// ResultsByLatency returns successful results sorted by ascending
	// latency, capped at limit.
	ResultsByLatency(limit int) ([]model.Result, error)
	// Clear removes all configs and results.
	Clear() error
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ReplaceConfigs(configs []model.Config) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Config{}).Error; err != nil {
			return fmt.Errorf("failed to clear configs: %w", err)
		}
		if len(configs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(configs, 500).Error; err != nil {
			return fmt.Errorf("failed to insert configs: %w", err)
		}
		return nil
	})
}

func (s *gormStore) Configs() ([]model.Config, error) {
	var configs []model.Config
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *gormStore) UpsertResult(res model.Result) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_id"}},
		UpdateAll: true,
	}).Create(&res).Error
}

func (s *gormStore) ResultsByLatency(limit int) ([]model.Result, error) {
	if limit <= 0 {
		limit = 1000
	}
	var results []model.Result
	err := s.db.Where("success = ?", true).
		Order("latency_ms ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *gormStore) Clear() error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Config{}).Error; err != nil {
		return err
	}
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Result{}).Error
}
