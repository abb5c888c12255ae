package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/repository"
	apperrors "github.com/charlesng35/dbpanel/pkg/errors"
	"github.com/charlesng35/dbpanel/pkg/validator"
)

// ConnectionAccess pairs a (possibly redacted) connection view with the caller's access.
type ConnectionAccess struct {
	Connection  permissions.ConnectionView `json:"connection"`
	AccessLevel permissions.AccessLevel    `json:"accessLevel"`
}

// CreateConnectionInput describes the fields accepted when registering a connection.
type CreateConnectionInput struct {
	Title          string         `json:"title" validate:"required,max=255"`
	Type           string         `json:"type" validate:"required"`
	Host           string         `json:"host" validate:"max=255"`
	Port           int            `json:"port" validate:"gte=0,lte=65535"`
	Username       string         `json:"username" validate:"max=255"`
	Password       string         `json:"password"`
	Database       string         `json:"database" validate:"max=255"`
	Schema         string         `json:"schema" validate:"max=255"`
	SID            string         `json:"sid" validate:"max=255"`
	SSL            bool           `json:"ssl"`
	Cert           string         `json:"cert"`
	SSH            bool           `json:"ssh"`
	SSHHost        string         `json:"sshHost" validate:"max=255"`
	SSHPort        int            `json:"sshPort" validate:"gte=0,lte=65535"`
	SSHUsername    string         `json:"sshUsername" validate:"max=255"`
	PrivateSSHKey  string         `json:"privateSshKey"`
	MasterPassword string         `json:"masterPassword"`
	Settings       map[string]any `json:"settings"`
}

// BulkAccessResolver resolves the caller's access on many connections at once.
type BulkAccessResolver interface {
	ResolveConnectionAccessForAll(ctx context.Context, userID string, conns []models.Connection) (map[string]permissions.AccessLevel, error)
}

// MasterPasswordSealer stores a master-password hash on a connection.
type MasterPasswordSealer interface {
	Seal(conn *models.Connection, password string) error
}

// ConnectionOption customises a ConnectionService.
type ConnectionOption func(*ConnectionService)

// WithBootstrapper provisions demo connections for users listing an empty inventory.
func WithBootstrapper(b *Bootstrapper) ConnectionOption {
	return func(s *ConnectionService) { s.bootstrapper = b }
}

// WithMasterPasswordSealer enables master encryption on create.
func WithMasterPasswordSealer(sealer MasterPasswordSealer) ConnectionOption {
	return func(s *ConnectionService) { s.sealer = sealer }
}

// WithConnectionInvalidator drops cached access when a connection is deleted.
func WithConnectionInvalidator(cache AccessInvalidator) ConnectionOption {
	return func(s *ConnectionService) { s.cache = cache }
}

// ConnectionService lists, creates and deletes managed connections.
type ConnectionService struct {
	store        Store
	resolver     permissions.AccessResolver
	bulk         BulkAccessResolver
	auditService *AuditService
	bootstrapper *Bootstrapper
	sealer       MasterPasswordSealer
	cache        AccessInvalidator
}

// NewConnectionService constructs a ConnectionService.
func NewConnectionService(store Store, resolver permissions.AccessResolver, bulk BulkAccessResolver, auditService *AuditService, opts ...ConnectionOption) (*ConnectionService, error) {
	if store == nil {
		return nil, errors.New("connection service: store is required")
	}
	if resolver == nil || bulk == nil {
		return nil, errors.New("connection service: resolver is required")
	}
	svc := &ConnectionService{store: store, resolver: resolver, bulk: bulk, auditService: auditService}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// List returns every connection the user holds a membership on, redacted where the
// resolved access is none. Users without any connection are bootstrapped first.
func (s *ConnectionService) List(ctx context.Context, userID string) ([]ConnectionAccess, error) {
	ctx = ensureContext(ctx)

	if s.bootstrapper != nil {
		count, err := s.store.Connections().CountForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("connection service: count connections: %w", err)
		}
		if count == 0 {
			if _, err := s.bootstrapper.Provision(ctx, userID); err != nil {
				return nil, fmt.Errorf("connection service: bootstrap: %w", err)
			}
		}
	}

	conns, err := s.store.Connections().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("connection service: list connections: %w", err)
	}

	levels, err := s.bulk.ResolveConnectionAccessForAll(ctx, userID, conns)
	if err != nil {
		return nil, err
	}

	items := make([]ConnectionAccess, 0, len(conns))
	for i := range conns {
		level := levels[conns[i].ID]
		items = append(items, ConnectionAccess{
			Connection:  permissions.Redact(permissions.NewConnectionView(&conns[i]), level),
			AccessLevel: level,
		})
	}
	return items, nil
}

// Get returns one connection redacted to the caller's access. Callers holding no
// membership on the connection are denied; members resolved to none see the redacted view.
func (s *ConnectionService) Get(ctx context.Context, userID, connectionID string) (*ConnectionAccess, error) {
	ctx = ensureContext(ctx)

	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, permissions.ErrMissingIdentifier
	}
	if !isUUID(connectionID) {
		return nil, permissions.ErrInvalidIdentifier
	}

	groups, err := s.store.Groups().FindForUserInConnection(ctx, userID, connectionID)
	if err != nil {
		return nil, fmt.Errorf("connection service: load memberships: %w", err)
	}
	if len(groups) == 0 {
		return nil, permissions.ErrAccessDenied
	}

	conn, err := s.store.Connections().FindByID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("connection service: load connection: %w", err)
	}
	if conn == nil {
		return nil, apperrors.ErrNotFound
	}

	level, err := s.resolver.ResolveConnectionAccess(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}
	return &ConnectionAccess{
		Connection:  permissions.Redact(permissions.NewConnectionView(conn), level),
		AccessLevel: level,
	}, nil
}

// Access reports the caller's resolved level on a connection.
func (s *ConnectionService) Access(ctx context.Context, userID, connectionID string) (permissions.AccessLevel, error) {
	ctx = ensureContext(ctx)
	if !isUUID(connectionID) {
		return permissions.AccessNone, permissions.ErrInvalidIdentifier
	}
	return s.resolver.ResolveConnectionAccess(ctx, userID, connectionID)
}

// Create registers a connection authored by userID together with its Admin group.
func (s *ConnectionService) Create(ctx context.Context, userID string, input CreateConnectionInput) (*models.Connection, error) {
	ctx = ensureContext(ctx)

	input.Title = strings.TrimSpace(input.Title)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}
	typ, ok := models.ParseConnectionType(input.Type)
	if !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unsupported connection type %q", input.Type))
	}

	author := userID
	conn := &models.Connection{
		Title:         input.Title,
		Type:          typ,
		Host:          strings.TrimSpace(input.Host),
		Port:          input.Port,
		Username:      input.Username,
		Password:      input.Password,
		Database:      strings.TrimSpace(input.Database),
		Schema:        strings.TrimSpace(input.Schema),
		SID:           strings.TrimSpace(input.SID),
		SSL:           input.SSL,
		Cert:          input.Cert,
		SSH:           input.SSH,
		SSHHost:       strings.TrimSpace(input.SSHHost),
		SSHPort:       input.SSHPort,
		SSHUsername:   input.SSHUsername,
		PrivateSSHKey: input.PrivateSSHKey,
		AuthorID:      &author,
	}
	if input.Settings != nil {
		encoded, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, apperrors.NewBadRequest("settings must be a JSON object")
		}
		conn.Settings = datatypes.JSON(encoded)
	}
	if input.MasterPassword != "" {
		if s.sealer == nil {
			return nil, apperrors.NewBadRequest("master encryption is not available")
		}
		if err := s.sealer.Seal(conn, input.MasterPassword); err != nil {
			return nil, fmt.Errorf("connection service: seal master password: %w", err)
		}
	}

	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		if err := tx.Connections().SaveNew(ctx, conn); err != nil {
			return fmt.Errorf("connection service: create connection: %w", err)
		}
		_, err := ensureAdminGroup(ctx, tx, conn.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "connection.create",
		Resource:     conn.ID,
		ConnectionID: conn.ID,
		Result:       "success",
		Metadata:     map[string]any{"title": conn.Title, "type": string(conn.Type)},
	})

	return conn, nil
}

// Delete removes a connection with its groups, permissions and memberships.
func (s *ConnectionService) Delete(ctx context.Context, connectionID string) error {
	ctx = ensureContext(ctx)

	conn, err := s.store.Connections().FindByID(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("connection service: load connection: %w", err)
	}
	if conn == nil {
		return apperrors.ErrNotFound
	}

	if err := s.store.Connections().Delete(ctx, connectionID); err != nil {
		return fmt.Errorf("connection service: delete connection: %w", err)
	}
	invalidate(ctx, s.cache, connectionID)

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "connection.delete",
		Resource:     connectionID,
		ConnectionID: connectionID,
		Result:       "success",
		Metadata:     map[string]any{"title": conn.Title},
	})
	return nil
}
