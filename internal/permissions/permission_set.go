package permissions

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/charlesng35/dbpanel/internal/models"
	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
)

// ConnectionGrant is the connection slot of a permission set.
type ConnectionGrant struct {
	ConnectionID string      `json:"connectionId"`
	AccessLevel  AccessLevel `json:"accessLevel"`
}

// GroupGrant is the group-management slot of a permission set.
type GroupGrant struct {
	GroupID     string      `json:"groupId"`
	AccessLevel AccessLevel `json:"accessLevel"`
}

// TableGrant carries the five table flags for one table.
type TableGrant struct {
	TableName   string            `json:"tableName"`
	AccessLevel TableAccessLevels `json:"accessLevel"`
}

// PermissionSet is the complete grant of a group: the submitted shape for
// reconciliation and the shape reported back.
type PermissionSet struct {
	Connection ConnectionGrant `json:"connection"`
	Group      GroupGrant      `json:"group"`
	Tables     []TableGrant    `json:"tables"`
}

// Validate checks access levels and table names. Every problem is reported.
func (s PermissionSet) Validate() error {
	var errs error
	if _, ok := ParseAccessLevel(string(s.Connection.AccessLevel)); !ok {
		errs = multierr.Append(errs, appErrors.NewBadRequest("connection.accessLevel must be one of none, readonly, edit"))
	}
	if _, ok := ParseAccessLevel(string(s.Group.AccessLevel)); !ok {
		errs = multierr.Append(errs, appErrors.NewBadRequest("group.accessLevel must be one of none, readonly, edit"))
	}

	seen := make(map[string]struct{}, len(s.Tables))
	for i, table := range s.Tables {
		name := strings.TrimSpace(table.TableName)
		if name == "" {
			errs = multierr.Append(errs, appErrors.NewBadRequest(fmt.Sprintf("tables[%d].tableName is required", i)))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = multierr.Append(errs, appErrors.NewBadRequest(fmt.Sprintf("table %q is listed more than once", name)))
		}
		seen[name] = struct{}{}
	}
	return errs
}

// validationError folds multiple validation failures into one BAD_REQUEST.
func validationError(err error) error {
	all := multierr.Errors(err)
	if len(all) == 0 {
		return nil
	}
	if len(all) == 1 {
		return all[0]
	}
	messages := make([]string, 0, len(all))
	for _, e := range all {
		messages = append(messages, appErrors.FromError(e).Message)
	}
	return appErrors.NewBadRequest(strings.Join(messages, "; "))
}

// buildPermissionSet regroups stored rows into the five-flag shape, tables sorted by name.
func buildPermissionSet(connectionID, groupID string, rows []models.Permission) PermissionSet {
	set := PermissionSet{
		Connection: ConnectionGrant{ConnectionID: connectionID, AccessLevel: AccessNone},
		Group:      GroupGrant{GroupID: groupID, AccessLevel: AccessNone},
	}

	tables := map[string]TableAccessLevels{}
	for _, row := range rows {
		switch row.Type {
		case models.PermissionTypeConnection:
			if level, ok := ParseAccessLevel(row.AccessLevel); ok {
				set.Connection.AccessLevel = level
			}
		case models.PermissionTypeGroup:
			if level, ok := ParseAccessLevel(row.AccessLevel); ok {
				set.Group.AccessLevel = level
			}
		case models.PermissionTypeTable:
			if level, ok := ParseTableAccessLevel(row.AccessLevel); ok {
				tables[row.Table] = tables[row.Table].With(level, true)
			}
		}
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	set.Tables = make([]TableGrant, 0, len(names))
	for _, name := range names {
		set.Tables = append(set.Tables, TableGrant{TableName: name, AccessLevel: tables[name]})
	}
	return set
}

