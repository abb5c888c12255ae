package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dbpanel/internal/models"
)

func TestMaxAccessOrdering(t *testing.T) {
	require.Equal(t, AccessNone, MaxAccess())
	require.Equal(t, AccessReadonly, MaxAccess(AccessNone, AccessReadonly))
	require.Equal(t, AccessEdit, MaxAccess(AccessReadonly, AccessEdit, AccessNone))
	require.True(t, AccessEdit.AtLeast(AccessReadonly))
	require.False(t, AccessReadonly.AtLeast(AccessEdit))
	require.True(t, AccessNone.AtLeast(AccessNone))
}

func TestParseLevels(t *testing.T) {
	level, ok := ParseAccessLevel(" Edit ")
	require.True(t, ok)
	require.Equal(t, AccessEdit, level)

	_, ok = ParseAccessLevel("owner")
	require.False(t, ok)

	tl, ok := ParseTableAccessLevel("visibility")
	require.True(t, ok)
	require.Equal(t, TableVisibility, tl)

	_, ok = ParseTableAccessLevel("drop")
	require.False(t, ok)
}

func TestTableAccessLevelsWithAndHas(t *testing.T) {
	var flags TableAccessLevels
	for _, level := range AllTableAccessLevels {
		require.False(t, flags.Has(level))
		flags = flags.With(level, true)
		require.True(t, flags.Has(level))
	}
	require.Equal(t, FullTableAccess(), flags)
	require.False(t, flags.frozen().Add)
	require.True(t, flags.frozen().Readonly)
}

func groupWith(connectionID string, perms ...models.Permission) models.Group {
	return models.Group{ConnectionID: connectionID, Permissions: perms}
}

func perm(typ models.PermissionType, level string, table ...string) models.Permission {
	p := models.Permission{Type: typ, AccessLevel: level}
	if len(table) > 0 {
		p.Table = table[0]
	}
	return p
}

func TestConnectionAccessFromGroupsIsMaxAndMonotonic(t *testing.T) {
	readonly := groupWith("c", perm(models.PermissionTypeConnection, "readonly"))
	edit := groupWith("c", perm(models.PermissionTypeConnection, "edit"))
	none := groupWith("c", perm(models.PermissionTypeConnection, "none"))
	empty := groupWith("c")

	require.Equal(t, AccessNone, ConnectionAccessFromGroups(nil))
	require.Equal(t, AccessReadonly, ConnectionAccessFromGroups([]models.Group{readonly, none}))
	require.Equal(t, AccessEdit, ConnectionAccessFromGroups([]models.Group{readonly, edit}))

	base := []models.Group{readonly}
	before := ConnectionAccessFromGroups(base)
	for _, extra := range []models.Group{readonly, edit, none, empty} {
		after := ConnectionAccessFromGroups(append(append([]models.Group{}, base...), extra))
		require.True(t, after.AtLeast(before), "adding a group lowered access")
	}
}

func TestGroupAccessIgnoresConnectionRows(t *testing.T) {
	g := groupWith("c",
		perm(models.PermissionTypeConnection, "edit"),
		perm(models.PermissionTypeGroup, "readonly"),
	)
	require.Equal(t, AccessReadonly, GroupAccessFromGroups([]models.Group{g}))
}

func TestTableAccessFromGroupsIsLogicalOr(t *testing.T) {
	a := groupWith("c",
		perm(models.PermissionTypeTable, "readonly", "orders"),
		perm(models.PermissionTypeTable, "add", "customers"),
	)
	b := groupWith("c",
		perm(models.PermissionTypeTable, "delete", "orders"),
	)

	flags := TableAccessFromGroups([]models.Group{a, b}, "orders")
	require.Equal(t, TableAccessLevels{Readonly: true, Delete: true}, flags)

	require.Equal(t, TableAccessLevels{}, TableAccessFromGroups([]models.Group{a, b}, "missing"))
}
