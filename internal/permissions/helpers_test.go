package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dbpanel/internal/database/testutil"
	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/repository"
)

type world struct {
	t     *testing.T
	ctx   context.Context
	store *repository.Store
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := repository.NewStore(db)
	require.NoError(t, err)
	return &world{t: t, ctx: context.Background(), store: store}
}

func (w *world) user(email string) *models.User {
	w.t.Helper()
	user := &models.User{Email: email, Name: email, Password: "x"}
	require.NoError(w.t, w.store.Users().Save(w.ctx, user))
	return user
}

func (w *world) connection(title string, mutate ...func(*models.Connection)) *models.Connection {
	w.t.Helper()
	conn := &models.Connection{Title: title, Type: models.ConnectionTypePostgres, Database: title, Password: "secret"}
	for _, fn := range mutate {
		fn(conn)
	}
	require.NoError(w.t, w.store.Connections().SaveNew(w.ctx, conn))
	return conn
}

func (w *world) group(conn *models.Connection, title string, isMain bool, members ...*models.User) *models.Group {
	w.t.Helper()
	group := &models.Group{Title: title, IsMain: isMain, ConnectionID: conn.ID}
	require.NoError(w.t, w.store.Groups().SaveNewOrUpdated(w.ctx, group))
	for _, member := range members {
		require.NoError(w.t, w.store.Groups().AddMember(w.ctx, group.ID, member.ID))
	}
	return group
}

func (w *world) grant(group *models.Group, typ models.PermissionType, level string, table ...string) {
	w.t.Helper()
	perm := &models.Permission{Type: typ, AccessLevel: level, GroupID: group.ID}
	if len(table) > 0 {
		perm.Table = table[0]
	}
	require.NoError(w.t, w.store.Permissions().SaveNewOrUpdated(w.ctx, perm))
}

func (w *world) resolver(opts ...Option) *Resolver {
	w.t.Helper()
	r, err := NewResolverFromStore(w.store, opts...)
	require.NoError(w.t, err)
	return r
}

func (w *world) reconciler(opts ...Option) *Reconciler {
	w.t.Helper()
	r, err := NewReconciler(w.store, opts...)
	require.NoError(w.t, err)
	return r
}

func (w *world) permissionCount(groupID string) int64 {
	w.t.Helper()
	var count int64
	require.NoError(w.t, w.store.DB().Model(&models.Permission{}).Where("group_id = ?", groupID).Count(&count).Error)
	return count
}
