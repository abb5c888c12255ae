package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a mutation of access-control state.
type AuditLog struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       *string        `gorm:"type:uuid;index" json:"userId"`
	Email        string         `json:"email"`
	Action       string         `gorm:"not null;index" json:"action"`
	Resource     string         `gorm:"index" json:"resource"`
	ConnectionID *string        `gorm:"type:uuid;index" json:"connectionId"`
	Result       string         `gorm:"not null" json:"result"`
	IPAddress    string         `json:"ipAddress"`
	UserAgent    string         `json:"userAgent"`
	Metadata     datatypes.JSON `json:"metadata"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
