package database

import (
	"errors"
	"time"

	"github.com/tripweave/tripweave/backend/internal/itinerary"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNormalizeUnscheduledDays = "2026-07-14_normalize_unscheduled_days"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeUnscheduledDays, apply: normalizeUnscheduledDays},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Rows written before the schedule treated day zero as unscheduled still
// carry non-positive day numbers; fold them into the NULL form the grouping
// logic expects.
func normalizeUnscheduledDays(db *gorm.DB) error {
	return db.Model(&itinerary.Item{}).
		Where("day_number IS NOT NULL AND day_number <= 0").
		Update("day_number", nil).Error
}
