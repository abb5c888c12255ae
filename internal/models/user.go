package models

// User is a platform account. Users are referenced by groups, never owned by them.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `json:"name"`
	Password string `gorm:"not null" json:"-"`
	IsActive bool   `gorm:"default:true" json:"isActive"`

	Groups []Group `gorm:"many2many:user_groups;" json:"-"`
}
