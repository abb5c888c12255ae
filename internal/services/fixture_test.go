package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/database/testutil"
	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/pkg/crypto"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, connectionID)
	return nil
}

func (r *recordingInvalidator) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type serviceFixture struct {
	t          *testing.T
	ctx        context.Context
	db         *gorm.DB
	store      *repository.Store
	audit      *AuditService
	resolver   *permissions.Resolver
	reconciler *permissions.Reconciler
	cache      *recordingInvalidator
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := repository.NewStore(db)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	resolver, err := permissions.NewResolverFromStore(store)
	require.NoError(t, err)
	reconciler, err := permissions.NewReconciler(store)
	require.NoError(t, err)

	return &serviceFixture{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		store:      store,
		audit:      audit,
		resolver:   resolver,
		reconciler: reconciler,
		cache:      &recordingInvalidator{},
	}
}

func (f *serviceFixture) user(email string) *models.User {
	f.t.Helper()
	hashed, err := crypto.HashPasswordWithCost("password123", bcrypt.MinCost)
	require.NoError(f.t, err)
	user := &models.User{Email: email, Name: email, Password: hashed}
	require.NoError(f.t, f.store.Users().Save(f.ctx, user))
	return user
}

func (f *serviceFixture) connectionService(opts ...ConnectionOption) *ConnectionService {
	f.t.Helper()
	svc, err := NewConnectionService(f.store, f.resolver, f.resolver, f.audit, opts...)
	require.NoError(f.t, err)
	return svc
}

func (f *serviceFixture) groupService() *GroupService {
	f.t.Helper()
	svc, err := NewGroupService(f.store, f.resolver, f.audit, f.cache)
	require.NoError(f.t, err)
	return svc
}

func (f *serviceFixture) permissionService() *PermissionService {
	f.t.Helper()
	svc, err := NewPermissionService(f.reconciler, f.resolver, f.audit, f.cache)
	require.NoError(f.t, err)
	return svc
}

// ownedConnection creates a connection through the service so it carries an Admin group.
func (f *serviceFixture) ownedConnection(owner *models.User, title string) *models.Connection {
	f.t.Helper()
	conn, err := f.connectionService().Create(f.ctx, owner.ID, CreateConnectionInput{
		Title:    title,
		Type:     "postgres",
		Host:     "db.internal",
		Port:     5432,
		Database: title,
		Username: "app",
		Password: "secret",
	})
	require.NoError(f.t, err)
	return conn
}

func (f *serviceFixture) auditActions() []string {
	f.t.Helper()
	var actions []string
	require.NoError(f.t, f.db.Model(&models.AuditLog{}).Order("created_at ASC").Pluck("action", &actions).Error)
	return actions
}
