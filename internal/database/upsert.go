package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qrent/server/internal/models"
)

// UpsertProperties inserts or updates a batch of ingested properties inside
// the given transaction. Commute rows attached to a property are upserted by
// their (property, school) pair. Associations are written explicitly so the
// batch stays a single predictable statement per table.
func UpsertProperties(tx *gorm.DB, batch []*models.Property) error {
	if len(batch) == 0 {
		return nil
	}

	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert properties: %w", err)
	}

	var commutes []models.PropertySchool
	for _, property := range batch {
		commutes = append(commutes, property.Commutes...)
	}
	if len(commutes) == 0 {
		return nil
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}, {Name: "school_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"commute_time"}),
	}).Create(&commutes).Error
	if err != nil {
		return fmt.Errorf("failed to upsert commute rows: %w", err)
	}

	return nil
}
