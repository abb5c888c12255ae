package models

// PermissionType is the granularity a permission row applies to.
type PermissionType string

const (
	PermissionTypeConnection PermissionType = "connection"
	PermissionTypeGroup      PermissionType = "group"
	PermissionTypeTable      PermissionType = "table"
)

// Permission is a single grant held by a group. Connection and group rows carry one of
// none|readonly|edit; table rows carry one of add|delete|edit|readonly|visibility and a
// non-empty table name.
type Permission struct {
	BaseModel

	Type        PermissionType `gorm:"not null;uniqueIndex:idx_permissions_slot,priority:2" json:"type"`
	AccessLevel string         `gorm:"not null;uniqueIndex:idx_permissions_slot,priority:3" json:"accessLevel"`
	Table       string         `gorm:"column:table_name;not null;default:'';uniqueIndex:idx_permissions_slot,priority:4" json:"tableName"`
	GroupID     string         `gorm:"type:uuid;not null;index;uniqueIndex:idx_permissions_slot,priority:1" json:"groupId"`
}
