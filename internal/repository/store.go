package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/models"
)

// UserStore persists platform users.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	LockByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// ConnectionStore persists managed connections.
type ConnectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Connection, error)
	FindByGroupID(ctx context.Context, groupID string) (*models.Connection, error)
	SaveNew(ctx context.Context, conn *models.Connection) error
	ListForUser(ctx context.Context, userID string) ([]models.Connection, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// GroupStore persists groups and their memberships.
type GroupStore interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindWithPermissionsByID(ctx context.Context, id string) (*models.Group, error)
	FindWithUsersByID(ctx context.Context, id string) (*models.Group, error)
	FindForUserInConnection(ctx context.Context, userID, connectionID string) ([]models.Group, error)
	FindAllForUser(ctx context.Context, userID string) ([]models.Group, error)
	FindMain(ctx context.Context, connectionID string) (*models.Group, error)
	ListByConnection(ctx context.Context, connectionID string) ([]models.Group, error)
	SaveNewOrUpdated(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	CountMembers(ctx context.Context, groupID string) (int64, error)
}

// PermissionStore persists permission rows owned by groups.
type PermissionStore interface {
	GetForConnection(ctx context.Context, groupID string) (*models.Permission, error)
	GetForGroup(ctx context.Context, groupID string) (*models.Permission, error)
	GetAllTablePermissionsInGroup(ctx context.Context, groupID string) ([]models.Permission, error)
	SaveNewOrUpdated(ctx context.Context, perm *models.Permission) error
	Remove(ctx context.Context, perms ...models.Permission) error
}

// Repositories groups every store bound to the same database handle.
type Repositories interface {
	Users() UserStore
	Connections() ConnectionStore
	Groups() GroupStore
	Permissions() PermissionStore
}

// Store is the gorm backed Repositories implementation.
type Store struct {
	db          *gorm.DB
	users       *UserRepository
	connections *ConnectionRepository
	groups      *GroupRepository
	permissions *PermissionRepository
}

// NewStore constructs a Store using the provided database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("repository: db is required")
	}
	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		users:       NewUserRepository(db),
		connections: NewConnectionRepository(db),
		groups:      NewGroupRepository(db),
		permissions: NewPermissionRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Users() UserStore             { return s.users }
func (s *Store) Connections() ConnectionStore { return s.connections }
func (s *Store) Groups() GroupStore           { return s.groups }
func (s *Store) Permissions() PermissionStore { return s.permissions }

// Transaction runs fn against repositories bound to a single database transaction.
// A non-nil error from fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx))
	})
}
