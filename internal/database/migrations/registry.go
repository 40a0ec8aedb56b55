package migrations

import (
	"github.com/jmylchreest/dashgate/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns every migration dashgate ships, in registration
// order (Up sorts by Version before applying, so order here is cosmetic).
func AllMigrations() []Migration {
	return []Migration{
		migration001ActivityEvents(),
	}
}

// migration001ActivityEvents creates the append-only activity_events table.
func migration001ActivityEvents() Migration {
	return Migration{
		Version:     "001",
		Description: "create activity_events table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.ActivityEvent{})
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&models.ActivityEvent{})
		},
	}
}
