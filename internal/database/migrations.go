package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/models"
)

// Models lists every persisted dbpanel model in migration order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Connection{},
		&models.Group{},
		&models.Permission{},
		&models.AuditLog{},
	}
}

// AutoMigrate creates or updates the schema, including the user_groups join table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
