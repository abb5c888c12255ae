package permissions

import (
	"strings"

	"github.com/charlesng35/dbpanel/internal/models"
)

// AccessLevel is the connection or group grant, ordered none < readonly < edit.
type AccessLevel string

const (
	AccessNone     AccessLevel = "none"
	AccessReadonly AccessLevel = "readonly"
	AccessEdit     AccessLevel = "edit"
)

// ParseAccessLevel validates a connection/group access level.
func ParseAccessLevel(value string) (AccessLevel, bool) {
	level := AccessLevel(strings.ToLower(strings.TrimSpace(value)))
	switch level {
	case AccessNone, AccessReadonly, AccessEdit:
		return level, true
	default:
		return "", false
	}
}

func (l AccessLevel) rank() int {
	switch l {
	case AccessReadonly:
		return 1
	case AccessEdit:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether l grants everything required does.
func (l AccessLevel) AtLeast(required AccessLevel) bool {
	return l.rank() >= required.rank()
}

// MaxAccess returns the strongest level; no levels yields none.
func MaxAccess(levels ...AccessLevel) AccessLevel {
	best := AccessNone
	for _, level := range levels {
		if level.rank() > best.rank() {
			best = level
		}
	}
	return best
}

// TableAccessLevel names one of the five independent table capabilities.
type TableAccessLevel string

const (
	TableAdd        TableAccessLevel = "add"
	TableDelete     TableAccessLevel = "delete"
	TableEdit       TableAccessLevel = "edit"
	TableReadonly   TableAccessLevel = "readonly"
	TableVisibility TableAccessLevel = "visibility"
)

// AllTableAccessLevels lists the table capabilities in their canonical order.
var AllTableAccessLevels = []TableAccessLevel{TableAdd, TableDelete, TableEdit, TableReadonly, TableVisibility}

// ParseTableAccessLevel validates a table access level.
func ParseTableAccessLevel(value string) (TableAccessLevel, bool) {
	level := TableAccessLevel(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AllTableAccessLevels {
		if level == known {
			return level, true
		}
	}
	return "", false
}

// TableAccessLevels is the five-flag view of a table grant.
type TableAccessLevels struct {
	Add        bool `json:"add"`
	Delete     bool `json:"delete"`
	Edit       bool `json:"edit"`
	Readonly   bool `json:"readonly"`
	Visibility bool `json:"visibility"`
}

// FullTableAccess has every flag set.
func FullTableAccess() TableAccessLevels {
	return TableAccessLevels{Add: true, Delete: true, Edit: true, Readonly: true, Visibility: true}
}

// Has returns the flag for level.
func (t TableAccessLevels) Has(level TableAccessLevel) bool {
	switch level {
	case TableAdd:
		return t.Add
	case TableDelete:
		return t.Delete
	case TableEdit:
		return t.Edit
	case TableReadonly:
		return t.Readonly
	case TableVisibility:
		return t.Visibility
	default:
		return false
	}
}

// With returns a copy with the flag for level set to value.
func (t TableAccessLevels) With(level TableAccessLevel, value bool) TableAccessLevels {
	switch level {
	case TableAdd:
		t.Add = value
	case TableDelete:
		t.Delete = value
	case TableEdit:
		t.Edit = value
	case TableReadonly:
		t.Readonly = value
	case TableVisibility:
		t.Visibility = value
	}
	return t
}

// Union ORs every flag.
func (t TableAccessLevels) Union(other TableAccessLevels) TableAccessLevels {
	return TableAccessLevels{
		Add:        t.Add || other.Add,
		Delete:     t.Delete || other.Delete,
		Edit:       t.Edit || other.Edit,
		Readonly:   t.Readonly || other.Readonly,
		Visibility: t.Visibility || other.Visibility,
	}
}

// Any reports whether at least one flag is set.
func (t TableAccessLevels) Any() bool {
	return t.Add || t.Delete || t.Edit || t.Readonly || t.Visibility
}

// CanRead is satisfied by visibility, readonly or any write flag.
func (t TableAccessLevels) CanRead() bool {
	return t.Any()
}

// frozen strips the mutating flags.
func (t TableAccessLevels) frozen() TableAccessLevels {
	t.Add, t.Edit, t.Delete = false, false, false
	return t
}

// ConnectionAccessFromGroups folds the connection permissions of groups with max semantics.
func ConnectionAccessFromGroups(groups []models.Group) AccessLevel {
	return maxOfType(groups, models.PermissionTypeConnection)
}

// GroupAccessFromGroups folds the group-management permissions of groups with max semantics.
func GroupAccessFromGroups(groups []models.Group) AccessLevel {
	return maxOfType(groups, models.PermissionTypeGroup)
}

func maxOfType(groups []models.Group, typ models.PermissionType) AccessLevel {
	best := AccessNone
	for _, group := range groups {
		for _, perm := range group.Permissions {
			if perm.Type != typ {
				continue
			}
			if level, ok := ParseAccessLevel(perm.AccessLevel); ok {
				best = MaxAccess(best, level)
			}
		}
	}
	return best
}

// TableAccessFromGroups ORs the table permissions for tableName across groups.
func TableAccessFromGroups(groups []models.Group, tableName string) TableAccessLevels {
	var flags TableAccessLevels
	for _, group := range groups {
		for _, perm := range group.Permissions {
			if perm.Type != models.PermissionTypeTable || perm.Table != tableName {
				continue
			}
			if level, ok := ParseTableAccessLevel(perm.AccessLevel); ok {
				flags = flags.With(level, true)
			}
		}
	}
	return flags
}
