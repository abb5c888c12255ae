package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/pkg/logger"
)

// TestConnection is a demo connection template provisioned for users without connections.
type TestConnection struct {
	Title    string
	Type     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
}

// Bootstrapper provisions the configured demo connections on a user's first login.
type Bootstrapper struct {
	store     Store
	templates []TestConnection
	audit     *AuditService
}

// NewBootstrapper constructs a Bootstrapper. An empty template list makes Provision a no-op.
func NewBootstrapper(store Store, templates []TestConnection, audit *AuditService) (*Bootstrapper, error) {
	if store == nil {
		return nil, errors.New("bootstrapper: store is required")
	}
	return &Bootstrapper{store: store, templates: append([]TestConnection(nil), templates...), audit: audit}, nil
}

// Provision creates one user-owned test connection per template, each with an Admin group
// holding the user. A user who already has a connection is left alone. It returns the
// number of connections created.
func (b *Bootstrapper) Provision(ctx context.Context, userID string) (int, error) {
	ctx = ensureContext(ctx)
	if len(b.templates) == 0 {
		return 0, nil
	}

	log := logger.WithModule("bootstrap")
	created := 0
	err := b.store.Transaction(ctx, func(tx repository.Repositories) error {
		// Serialise concurrent first logins of the same user on the user row, then
		// re-check under the lock so only one of them provisions.
		user, err := tx.Users().LockByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("bootstrapper: lock user: %w", err)
		}
		if user == nil {
			return ErrUserNotFound
		}
		count, err := tx.Connections().CountForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("bootstrapper: count connections: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, tpl := range b.templates {
			typ, ok := models.ParseConnectionType(tpl.Type)
			if !ok || strings.TrimSpace(tpl.Title) == "" {
				log.Warn("skipping invalid test connection template",
					zap.String("title", tpl.Title),
					zap.String("type", tpl.Type),
				)
				continue
			}

			author := userID
			conn := &models.Connection{
				Title:            strings.TrimSpace(tpl.Title),
				Type:             typ,
				Host:             tpl.Host,
				Port:             tpl.Port,
				Database:         tpl.Database,
				Username:         tpl.Username,
				Password:         tpl.Password,
				Schema:           tpl.Schema,
				IsTestConnection: true,
				AuthorID:         &author,
			}
			if err := tx.Connections().SaveNew(ctx, conn); err != nil {
				return fmt.Errorf("bootstrapper: create connection: %w", err)
			}
			if _, err := ensureAdminGroup(ctx, tx, conn.ID, userID); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		log.Info("provisioned test connections", zap.String("user_id", userID), zap.Int("count", created))
		recordAudit(b.audit, ctx, AuditEntry{
			Action:   "connection.bootstrap",
			Resource: userID,
			Result:   "success",
			Metadata: map[string]any{"count": created},
		})
	}
	return created, nil
}

// ensureAdminGroup creates the Admin group of a connection with userID as its member and
// the full connection and group grants. A connection that already has one is left alone.
func ensureAdminGroup(ctx context.Context, tx repository.Repositories, connectionID, userID string) (*models.Group, error) {
	existing, err := tx.Groups().FindMain(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("load admin group: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	group := &models.Group{Title: models.MainGroupTitle, IsMain: true, ConnectionID: connectionID}
	if err := tx.Groups().SaveNewOrUpdated(ctx, group); err != nil {
		return nil, fmt.Errorf("create admin group: %w", err)
	}
	if err := tx.Groups().AddMember(ctx, group.ID, userID); err != nil {
		return nil, fmt.Errorf("add admin member: %w", err)
	}

	for _, typ := range []models.PermissionType{models.PermissionTypeConnection, models.PermissionTypeGroup} {
		perm := &models.Permission{Type: typ, AccessLevel: string(permissions.AccessEdit), GroupID: group.ID}
		if err := tx.Permissions().SaveNewOrUpdated(ctx, perm); err != nil {
			return nil, fmt.Errorf("grant admin %s access: %w", typ, err)
		}
	}
	return group, nil
}
