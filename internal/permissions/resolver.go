package permissions

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/repository"
)

// AccessResolver computes effective access for a subject at request time.
type AccessResolver interface {
	ResolveConnectionAccess(ctx context.Context, userID, connectionID string) (AccessLevel, error)
	ResolveGroupAccess(ctx context.Context, userID, groupID string) (AccessLevel, error)
	ResolveTableAccess(ctx context.Context, userID, connectionID, tableName string) (TableAccessLevels, error)
}

// GroupLoader is the part of the group store the resolver reads.
type GroupLoader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindForUserInConnection(ctx context.Context, userID, connectionID string) ([]models.Group, error)
	FindAllForUser(ctx context.Context, userID string) ([]models.Group, error)
}

// ConnectionLoader loads a connection by id, returning nil when it does not exist.
type ConnectionLoader interface {
	FindByID(ctx context.Context, id string) (*models.Connection, error)
}

// Option customises a Resolver or Reconciler.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolver unions the permissions of every group a user belongs to on a connection.
// It never writes. Missing membership resolves to none, never to an error.
type Resolver struct {
	groups      GroupLoader
	connections ConnectionLoader
	tracer      trace.Tracer
}

// NewResolver constructs a Resolver reading from the supplied stores.
func NewResolver(groups GroupLoader, connections ConnectionLoader, opts ...Option) (*Resolver, error) {
	if groups == nil || connections == nil {
		return nil, errors.New("permission resolver: group and connection stores are required")
	}
	o := applyOptions(opts)
	return &Resolver{groups: groups, connections: connections, tracer: tracerFrom(o.tracerProvider)}, nil
}

// NewResolverFromStore wires a Resolver to a repository bundle.
func NewResolverFromStore(store repository.Repositories, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("permission resolver: store is required")
	}
	return NewResolver(store.Groups(), store.Connections(), opts...)
}

// ResolveConnectionAccess returns the max connection grant over the user's groups.
// Frozen connections are capped at readonly.
func (r *Resolver) ResolveConnectionAccess(ctx context.Context, userID, connectionID string) (level AccessLevel, err error) {
	ctx, span := r.tracer.Start(ctx, "permissions.ResolveConnectionAccess", trace.WithAttributes(
		attribute.String("connection.id", connectionID),
	))
	defer func() {
		span.SetAttributes(attribute.String("access.level", string(level)))
		endSpan(span, err)
	}()

	groups, err := r.groups.FindForUserInConnection(ctx, userID, connectionID)
	if err != nil {
		return AccessNone, fmt.Errorf("permission resolver: load groups: %w", err)
	}
	level = ConnectionAccessFromGroups(groups)
	if level == AccessNone {
		return level, nil
	}

	conn, err := r.connections.FindByID(ctx, connectionID)
	if err != nil {
		return AccessNone, fmt.Errorf("permission resolver: load connection: %w", err)
	}
	return capConnectionAccess(conn, level), nil
}

// ResolveGroupAccess returns the max group-management grant the user holds on the
// connection the target group belongs to. Unknown groups resolve to none.
func (r *Resolver) ResolveGroupAccess(ctx context.Context, userID, groupID string) (level AccessLevel, err error) {
	ctx, span := r.tracer.Start(ctx, "permissions.ResolveGroupAccess", trace.WithAttributes(
		attribute.String("group.id", groupID),
	))
	defer func() {
		span.SetAttributes(attribute.String("access.level", string(level)))
		endSpan(span, err)
	}()

	target, err := r.groups.FindByID(ctx, groupID)
	if err != nil {
		return AccessNone, fmt.Errorf("permission resolver: load group: %w", err)
	}
	if target == nil {
		return AccessNone, nil
	}

	groups, err := r.groups.FindForUserInConnection(ctx, userID, target.ConnectionID)
	if err != nil {
		return AccessNone, fmt.Errorf("permission resolver: load groups: %w", err)
	}
	return GroupAccessFromGroups(groups), nil
}

// ResolveTableAccess ORs the table grants for tableName over the user's groups. A
// connection-level edit grant implies every table flag. Frozen connections drop the
// add, edit and delete flags.
func (r *Resolver) ResolveTableAccess(ctx context.Context, userID, connectionID, tableName string) (flags TableAccessLevels, err error) {
	ctx, span := r.tracer.Start(ctx, "permissions.ResolveTableAccess", trace.WithAttributes(
		attribute.String("connection.id", connectionID),
		attribute.String("table.name", tableName),
	))
	defer func() { endSpan(span, err) }()

	groups, err := r.groups.FindForUserInConnection(ctx, userID, connectionID)
	if err != nil {
		return TableAccessLevels{}, fmt.Errorf("permission resolver: load groups: %w", err)
	}
	if len(groups) == 0 {
		return TableAccessLevels{}, nil
	}

	flags = TableAccessFromGroups(groups, tableName)
	if ConnectionAccessFromGroups(groups) == AccessEdit {
		flags = FullTableAccess()
	}
	if !flags.Any() {
		return flags, nil
	}

	conn, err := r.connections.FindByID(ctx, connectionID)
	if err != nil {
		return TableAccessLevels{}, fmt.Errorf("permission resolver: load connection: %w", err)
	}
	if conn != nil && conn.IsFrozen {
		flags = flags.frozen()
	}
	return flags, nil
}

// ResolveConnectionAccessForAll resolves the user's access on every connection they hold
// a membership on, using a single group query. The frozen cap is applied from conns.
func (r *Resolver) ResolveConnectionAccessForAll(ctx context.Context, userID string, conns []models.Connection) (levels map[string]AccessLevel, err error) {
	ctx, span := r.tracer.Start(ctx, "permissions.ResolveConnectionAccessForAll", trace.WithAttributes(
		attribute.Int("connection.count", len(conns)),
	))
	defer func() { endSpan(span, err) }()

	groups, err := r.groups.FindAllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("permission resolver: load groups: %w", err)
	}

	byConnection := make(map[string][]models.Group, len(conns))
	for _, group := range groups {
		byConnection[group.ConnectionID] = append(byConnection[group.ConnectionID], group)
	}

	levels = make(map[string]AccessLevel, len(conns))
	for i := range conns {
		conn := &conns[i]
		levels[conn.ID] = capConnectionAccess(conn, ConnectionAccessFromGroups(byConnection[conn.ID]))
	}
	return levels, nil
}

func capConnectionAccess(conn *models.Connection, level AccessLevel) AccessLevel {
	if conn == nil {
		return AccessNone
	}
	if conn.IsFrozen && level == AccessEdit {
		return AccessReadonly
	}
	return level
}
