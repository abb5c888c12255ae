package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/charlesng35/dbpanel/internal/models"
	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
)

// GuardKind names the access check a route requires.
type GuardKind string

const (
	GuardConnectionRead GuardKind = "connection-read"
	GuardConnectionEdit GuardKind = "connection-edit"
	GuardGroupRead      GuardKind = "group-read"
	GuardGroupEdit      GuardKind = "group-edit"
	GuardTableRead      GuardKind = "table-read"
	GuardTableAdd       GuardKind = "table-add"
	GuardTableEdit      GuardKind = "table-edit"
	GuardTableDelete    GuardKind = "table-delete"
)

func (k GuardKind) IsTable() bool {
	switch k {
	case GuardTableRead, GuardTableAdd, GuardTableEdit, GuardTableDelete:
		return true
	default:
		return false
	}
}

// GuardRequest carries everything a guard decision depends on.
type GuardRequest struct {
	Kind           GuardKind
	SubjectID      string
	TargetID       string
	TableName      string
	MasterPassword string
}

// Decryptor validates a master password against a connection's stored hash.
type Decryptor interface {
	ValidateMasterPassword(conn *models.Connection, candidate string) bool
}

// TableCatalog reports whether a table exists on a managed connection.
type TableCatalog interface {
	TableExists(ctx context.Context, conn *models.Connection, masterPassword, table string) (bool, error)
}

// Guard decides whether a request may proceed. Decide returns true to allow, false
// to deny, or an error. Errors are either AppErrors describing a malformed request or
// store failures, which must never be reported as a denial.
type Guard struct {
	resolver    AccessResolver
	connections ConnectionLoader
	decryptor   Decryptor
	catalog     TableCatalog
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithDecryptor enables master-password checks for encrypted connections.
func WithDecryptor(d Decryptor) GuardOption {
	return func(g *Guard) { g.decryptor = d }
}

// WithTableCatalog enables the table existence check after an allow decision.
func WithTableCatalog(c TableCatalog) GuardOption {
	return func(g *Guard) { g.catalog = c }
}

// NewGuard constructs a Guard.
func NewGuard(resolver AccessResolver, connections ConnectionLoader, opts ...GuardOption) (*Guard, error) {
	if resolver == nil || connections == nil {
		return nil, errors.New("access guard: resolver and connection store are required")
	}
	g := &Guard{resolver: resolver, connections: connections}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Decide evaluates req. It performs no writes.
func (g *Guard) Decide(ctx context.Context, req GuardRequest) (bool, error) {
	if strings.TrimSpace(req.SubjectID) == "" {
		return false, appErrors.ErrUnauthorized
	}
	if err := validateTarget(req); err != nil {
		return false, err
	}

	switch req.Kind {
	case GuardConnectionRead, GuardConnectionEdit:
		level, err := g.resolver.ResolveConnectionAccess(ctx, req.SubjectID, req.TargetID)
		if err != nil {
			return false, err
		}
		return level.AtLeast(requiredLevel(req.Kind)), nil
	case GuardGroupRead, GuardGroupEdit:
		level, err := g.resolver.ResolveGroupAccess(ctx, req.SubjectID, req.TargetID)
		if err != nil {
			return false, err
		}
		return level.AtLeast(requiredLevel(req.Kind)), nil
	case GuardTableRead, GuardTableAdd, GuardTableEdit, GuardTableDelete:
		return g.decideTable(ctx, req)
	default:
		return false, fmt.Errorf("access guard: unknown guard kind %q", req.Kind)
	}
}

func (g *Guard) decideTable(ctx context.Context, req GuardRequest) (bool, error) {
	conn, err := g.connections.FindByID(ctx, req.TargetID)
	if err != nil {
		return false, fmt.Errorf("access guard: load connection: %w", err)
	}
	if conn == nil {
		return false, nil
	}
	if conn.MasterEncryption {
		if g.decryptor == nil || !g.decryptor.ValidateMasterPassword(conn, req.MasterPassword) {
			return false, ErrMasterPasswordInvalid
		}
	}

	flags, err := g.resolver.ResolveTableAccess(ctx, req.SubjectID, req.TargetID, req.TableName)
	if err != nil {
		return false, err
	}

	var allowed bool
	switch req.Kind {
	case GuardTableRead:
		allowed = flags.CanRead()
	case GuardTableAdd:
		allowed = flags.Add
	case GuardTableEdit:
		allowed = flags.Edit
	case GuardTableDelete:
		allowed = flags.Delete
	}
	if !allowed || g.catalog == nil {
		return allowed, nil
	}

	exists, err := g.catalog.TableExists(ctx, conn, req.MasterPassword, req.TableName)
	if err != nil {
		return false, fmt.Errorf("access guard: table catalog: %w", err)
	}
	if !exists {
		return false, ErrTableNotFound
	}
	return true, nil
}

func validateTarget(req GuardRequest) error {
	target := strings.TrimSpace(req.TargetID)
	if target == "" {
		return ErrMissingIdentifier
	}
	if _, err := uuid.Parse(target); err != nil {
		return ErrInvalidIdentifier
	}
	if req.Kind.IsTable() && strings.TrimSpace(req.TableName) == "" {
		return ErrMissingIdentifier.WithMessage("tableName is required")
	}
	return nil
}

func requiredLevel(kind GuardKind) AccessLevel {
	switch kind {
	case GuardConnectionEdit, GuardGroupEdit:
		return AccessEdit
	default:
		return AccessReadonly
	}
}
