package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/pkg/logger"
	"github.com/charlesng35/dbpanel/pkg/metrics"
)

// Transactor runs a unit of work against repositories bound to one transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx repository.Repositories) error) error
}

// ReconcileResult is the converged permission set plus the rows written to reach it.
type ReconcileResult struct {
	Permissions PermissionSet `json:"permissions"`
	Created     int           `json:"created"`
	Deleted     int           `json:"deleted"`
	Replaced    int           `json:"replaced"`
}

// Reconciler converges a group's stored permissions to a submitted permission set.
type Reconciler struct {
	store  Transactor
	tracer trace.Tracer
}

// NewReconciler constructs a Reconciler writing through store.
func NewReconciler(store Transactor, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("permission reconciler: store is required")
	}
	o := applyOptions(opts)
	return &Reconciler{store: store, tracer: tracerFrom(o.tracerProvider)}, nil
}

// Reconcile replaces the connection and group slots and diffs the table slots of
// groupID against desired. The target checks (tenant, existence, Admin group) run
// before payload validation, and both run before any write. Every write shares one
// transaction, so a failure leaves storage untouched.
func (r *Reconciler) Reconcile(ctx context.Context, groupID, connectionID string, desired PermissionSet) (result *ReconcileResult, err error) {
	ctx, span := r.tracer.Start(ctx, "permissions.Reconcile", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("connection.id", connectionID),
		attribute.Int("tables.desired", len(desired.Tables)),
	))
	defer func() { endSpan(span, err) }()

	result = &ReconcileResult{}
	err = r.store.Transaction(ctx, func(tx repository.Repositories) error {
		if err := checkReconcileTarget(ctx, tx, groupID, connectionID); err != nil {
			return err
		}
		if err := validationError(desired.Validate()); err != nil {
			return err
		}
		connLevel, _ := ParseAccessLevel(string(desired.Connection.AccessLevel))
		groupLevel, _ := ParseAccessLevel(string(desired.Group.AccessLevel))

		connRow, err := replaceSlot(ctx, tx, groupID, models.PermissionTypeConnection, connLevel, result)
		if err != nil {
			return err
		}
		groupRow, err := replaceSlot(ctx, tx, groupID, models.PermissionTypeGroup, groupLevel, result)
		if err != nil {
			return err
		}

		tableRows, err := diffTables(ctx, tx, groupID, desired.Tables, result)
		if err != nil {
			return err
		}

		rows := make([]models.Permission, 0, len(tableRows)+2)
		rows = append(rows, connRow, groupRow)
		rows = append(rows, tableRows...)
		result.Permissions = buildPermissionSet(connectionID, groupID, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReconcileRows.WithLabelValues("created").Add(float64(result.Created))
	metrics.ReconcileRows.WithLabelValues("deleted").Add(float64(result.Deleted))
	metrics.ReconcileRows.WithLabelValues("replaced").Add(float64(result.Replaced))
	logger.WithModule("permissions").Info("permissions reconciled",
		zap.String("group_id", groupID),
		zap.String("connection_id", connectionID),
		zap.Int("created", result.Created),
		zap.Int("deleted", result.Deleted),
		zap.Int("replaced", result.Replaced),
	)
	return result, nil
}

// Describe reports the stored permission set of a group in the reconcile shape.
func (r *Reconciler) Describe(ctx context.Context, groupID string) (set PermissionSet, err error) {
	ctx, span := r.tracer.Start(ctx, "permissions.Describe", trace.WithAttributes(
		attribute.String("group.id", groupID),
	))
	defer func() { endSpan(span, err) }()

	err = r.store.Transaction(ctx, func(tx repository.Repositories) error {
		group, err := tx.Groups().FindWithPermissionsByID(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		set = buildPermissionSet(group.ConnectionID, group.ID, group.Permissions)
		return nil
	})
	return set, err
}

func checkReconcileTarget(ctx context.Context, tx repository.Repositories, groupID, connectionID string) error {
	bound, err := tx.Connections().FindByGroupID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("permission reconciler: load group connection: %w", err)
	}
	if bound != nil && bound.ID != connectionID {
		return ErrCrossTenant
	}

	group, err := tx.Groups().FindByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("permission reconciler: load group: %w", err)
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if group.IsMain {
		return ErrImmutableGroup
	}
	return nil
}

// replaceSlot writes the single connection or group row of a group. An existing row is
// replaced by a freshly built value carrying the same id.
func replaceSlot(ctx context.Context, tx repository.Repositories, groupID string, typ models.PermissionType, level AccessLevel, result *ReconcileResult) (models.Permission, error) {
	var (
		existing *models.Permission
		err      error
	)
	if typ == models.PermissionTypeConnection {
		existing, err = tx.Permissions().GetForConnection(ctx, groupID)
	} else {
		existing, err = tx.Permissions().GetForGroup(ctx, groupID)
	}
	if err != nil {
		return models.Permission{}, fmt.Errorf("permission reconciler: load %s permission: %w", typ, err)
	}

	next := models.Permission{
		Type:        typ,
		AccessLevel: string(level),
		GroupID:     groupID,
	}
	if existing != nil {
		if existing.AccessLevel == next.AccessLevel && existing.Table == "" {
			return *existing, nil
		}
		next.ID = existing.ID
	}

	if err := tx.Permissions().SaveNewOrUpdated(ctx, &next); err != nil {
		return models.Permission{}, fmt.Errorf("permission reconciler: save %s permission: %w", typ, err)
	}
	if existing != nil {
		result.Replaced++
	} else {
		result.Created++
	}
	return next, nil
}

// diffTables deletes rows whose flag is now false before creating rows whose flag is now
// true, and returns the resulting full table row set without re-reading storage.
func diffTables(ctx context.Context, tx repository.Repositories, groupID string, desired []TableGrant, result *ReconcileResult) ([]models.Permission, error) {
	current, err := tx.Permissions().GetAllTablePermissionsInGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("permission reconciler: load table permissions: %w", err)
	}

	type slot struct {
		table string
		level TableAccessLevel
	}
	index := make(map[slot]models.Permission, len(current))
	for _, row := range current {
		index[slot{row.Table, TableAccessLevel(row.AccessLevel)}] = row
	}

	var (
		toDelete []models.Permission
		toCreate []models.Permission
	)
	for _, grant := range desired {
		name := strings.TrimSpace(grant.TableName)
		for _, level := range AllTableAccessLevels {
			row, exists := index[slot{name, level}]
			switch want := grant.AccessLevel.Has(level); {
			case want && !exists:
				toCreate = append(toCreate, models.Permission{
					Type:        models.PermissionTypeTable,
					AccessLevel: string(level),
					Table:       name,
					GroupID:     groupID,
				})
			case !want && exists:
				toDelete = append(toDelete, row)
			}
		}
	}

	if err := tx.Permissions().Remove(ctx, toDelete...); err != nil {
		return nil, fmt.Errorf("permission reconciler: delete table permissions: %w", err)
	}
	for i := range toCreate {
		if err := tx.Permissions().SaveNewOrUpdated(ctx, &toCreate[i]); err != nil {
			return nil, fmt.Errorf("permission reconciler: create table permission: %w", err)
		}
	}
	result.Deleted += len(toDelete)
	result.Created += len(toCreate)

	deleted := make(map[string]struct{}, len(toDelete))
	for _, row := range toDelete {
		deleted[row.ID] = struct{}{}
	}
	final := make([]models.Permission, 0, len(current)-len(toDelete)+len(toCreate))
	for _, row := range current {
		if _, gone := deleted[row.ID]; !gone {
			final = append(final, row)
		}
	}
	return append(final, toCreate...), nil
}
