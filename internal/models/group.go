package models

// MainGroupTitle is the title given to the immutable group created with every connection.
const MainGroupTitle = "Admin"

// Group binds a set of users to a set of permissions on exactly one connection.
type Group struct {
	BaseModel

	Title        string `gorm:"not null;uniqueIndex:idx_groups_connection_title,priority:2" json:"title"`
	IsMain       bool   `gorm:"default:false" json:"isMain"`
	ConnectionID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_groups_connection_title,priority:1" json:"connectionId"`

	Users       []User       `gorm:"many2many:user_groups;" json:"users,omitempty"`
	Permissions []Permission `gorm:"foreignKey:GroupID" json:"permissions,omitempty"`
}

// HasMember reports whether the preloaded Users slice contains userID.
func (g *Group) HasMember(userID string) bool {
	if g == nil {
		return false
	}
	for _, user := range g.Users {
		if user.ID == userID {
			return true
		}
	}
	return false
}

// TableName avoids GROUPS, a reserved word on MySQL 8.
func (Group) TableName() string { return "connection_groups" }
