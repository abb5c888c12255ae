package services

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/dbpanel/internal/permissions"
)

// PermissionReconciler converges and reports group permission sets.
type PermissionReconciler interface {
	Reconcile(ctx context.Context, groupID, connectionID string, desired permissions.PermissionSet) (*permissions.ReconcileResult, error)
	Describe(ctx context.Context, groupID string) (permissions.PermissionSet, error)
}

// PermissionService exposes permission reconciliation and resolved table access.
type PermissionService struct {
	reconciler   PermissionReconciler
	resolver     permissions.AccessResolver
	auditService *AuditService
	cache        AccessInvalidator
}

// NewPermissionService constructs a PermissionService. cache may be nil.
func NewPermissionService(reconciler PermissionReconciler, resolver permissions.AccessResolver, auditService *AuditService, cache AccessInvalidator) (*PermissionService, error) {
	if reconciler == nil {
		return nil, errors.New("permission service: reconciler is required")
	}
	if resolver == nil {
		return nil, errors.New("permission service: resolver is required")
	}
	return &PermissionService{reconciler: reconciler, resolver: resolver, auditService: auditService, cache: cache}, nil
}

// Describe returns the stored permission set of a group.
func (s *PermissionService) Describe(ctx context.Context, groupID string) (permissions.PermissionSet, error) {
	return s.reconciler.Describe(ensureContext(ctx), groupID)
}

// Reconcile replaces the permissions of groupID with desired. The target connection is
// taken from desired.Connection.ConnectionID.
func (s *PermissionService) Reconcile(ctx context.Context, groupID string, desired permissions.PermissionSet) (*permissions.ReconcileResult, error) {
	ctx = ensureContext(ctx)

	connectionID := strings.TrimSpace(desired.Connection.ConnectionID)
	if connectionID == "" {
		return nil, permissions.ErrMissingIdentifier
	}
	if !isUUID(connectionID) {
		return nil, permissions.ErrInvalidIdentifier
	}
	desired.Connection.ConnectionID = connectionID

	result, err := s.reconciler.Reconcile(ctx, groupID, connectionID, desired)
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, connectionID)

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "permission.reconcile",
		Resource:     groupID,
		ConnectionID: connectionID,
		Result:       "success",
		Metadata: map[string]any{
			"created":  result.Created,
			"deleted":  result.Deleted,
			"replaced": result.Replaced,
		},
	})
	return result, nil
}

// TableAccess reports the caller's resolved flags on one table.
func (s *PermissionService) TableAccess(ctx context.Context, userID, connectionID, tableName string) (permissions.TableAccessLevels, error) {
	return s.resolver.ResolveTableAccess(ensureContext(ctx), userID, connectionID, strings.TrimSpace(tableName))
}
