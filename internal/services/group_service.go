package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/pkg/validator"
)

// CreateGroupInput describes a new group on a connection.
type CreateGroupInput struct {
	Title string `json:"title" validate:"required,max=100"`
}

// AddMemberInput identifies the user to add to a group.
type AddMemberInput struct {
	Email string `json:"email" validate:"required,email"`
}

// GroupListing is the set of groups on a connection plus the caller's group access there.
type GroupListing struct {
	Groups      []models.Group          `json:"groups"`
	AccessLevel permissions.AccessLevel `json:"accessLevel"`
}

// GroupService manages groups and their memberships.
type GroupService struct {
	store        Store
	resolver     permissions.AccessResolver
	auditService *AuditService
	cache        AccessInvalidator
}

// NewGroupService constructs a GroupService. cache may be nil.
func NewGroupService(store Store, resolver permissions.AccessResolver, auditService *AuditService, cache AccessInvalidator) (*GroupService, error) {
	if store == nil {
		return nil, errors.New("group service: store is required")
	}
	if resolver == nil {
		return nil, errors.New("group service: resolver is required")
	}
	return &GroupService{store: store, resolver: resolver, auditService: auditService, cache: cache}, nil
}

// ListForConnection returns the groups of a connection ordered by title.
func (s *GroupService) ListForConnection(ctx context.Context, userID, connectionID string) (*GroupListing, error) {
	ctx = ensureContext(ctx)

	groups, err := s.store.Groups().ListByConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("group service: list groups: %w", err)
	}

	listing := &GroupListing{Groups: groups, AccessLevel: permissions.AccessNone}
	if len(groups) > 0 {
		level, err := s.resolver.ResolveGroupAccess(ctx, userID, groups[0].ID)
		if err != nil {
			return nil, err
		}
		listing.AccessLevel = level
	}
	return listing, nil
}

// Create adds a group without permissions to a connection. Titles are unique per
// connection and case-sensitive.
func (s *GroupService) Create(ctx context.Context, connectionID string, input CreateGroupInput) (*models.Group, error) {
	ctx = ensureContext(ctx)

	input.Title = strings.TrimSpace(input.Title)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}

	group := &models.Group{Title: input.Title, ConnectionID: connectionID}
	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		conn, err := tx.Connections().FindByID(ctx, connectionID)
		if err != nil {
			return fmt.Errorf("group service: load connection: %w", err)
		}
		if conn == nil {
			return permissions.ErrConnectionNotFound
		}

		existing, err := tx.Groups().ListByConnection(ctx, connectionID)
		if err != nil {
			return fmt.Errorf("group service: list groups: %w", err)
		}
		for _, other := range existing {
			if other.Title == input.Title {
				return ErrGroupTitleTaken
			}
		}

		if err := tx.Groups().SaveNewOrUpdated(ctx, group); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrGroupTitleTaken
			}
			return fmt.Errorf("group service: create group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "group.create",
		Resource:     group.ID,
		ConnectionID: connectionID,
		Result:       "success",
		Metadata:     map[string]any{"title": group.Title},
	})
	return group, nil
}

// Delete removes a group with its permissions and memberships. The Admin group is protected.
func (s *GroupService) Delete(ctx context.Context, groupID string) error {
	ctx = ensureContext(ctx)

	group, err := s.store.Groups().FindByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("group service: load group: %w", err)
	}
	if group == nil {
		return permissions.ErrGroupNotFound
	}
	if group.IsMain {
		return ErrMainGroupDelete
	}

	if err := s.store.Groups().Delete(ctx, groupID); err != nil {
		return fmt.Errorf("group service: delete group: %w", err)
	}
	invalidate(ctx, s.cache, group.ConnectionID)

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "group.delete",
		Resource:     groupID,
		ConnectionID: group.ConnectionID,
		Result:       "success",
		Metadata:     map[string]any{"title": group.Title},
	})
	return nil
}

// Members returns the users of a group ordered by email.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	group, err := s.store.Groups().FindWithUsersByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group service: load group: %w", err)
	}
	if group == nil {
		return nil, permissions.ErrGroupNotFound
	}
	if group.Users == nil {
		return []models.User{}, nil
	}
	return group.Users, nil
}

// AddMember adds the user registered under input.Email to a group.
func (s *GroupService) AddMember(ctx context.Context, groupID string, input AddMemberInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Email = repository.NormaliseEmail(input.Email)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}

	var (
		user  *models.User
		group *models.Group
	)
	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		var err error
		group, err = tx.Groups().FindByID(ctx, groupID)
		if err != nil {
			return fmt.Errorf("group service: load group: %w", err)
		}
		if group == nil {
			return permissions.ErrGroupNotFound
		}

		user, err = tx.Users().FindByEmail(ctx, input.Email)
		if err != nil {
			return fmt.Errorf("group service: load user: %w", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		member, err := tx.Groups().IsMember(ctx, groupID, user.ID)
		if err != nil {
			return fmt.Errorf("group service: check membership: %w", err)
		}
		if member {
			return ErrMemberExists
		}

		if err := tx.Groups().AddMember(ctx, groupID, user.ID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrMemberExists
			}
			return fmt.Errorf("group service: add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, group.ConnectionID)

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "group.add_member",
		Resource:     groupID,
		ConnectionID: group.ConnectionID,
		Result:       "success",
		Metadata:     map[string]any{"user_id": user.ID, "email": user.Email},
	})
	return user, nil
}

// RemoveMember removes a user from a group. The last member of the Admin group stays.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	ctx = ensureContext(ctx)

	var group *models.Group
	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		var err error
		group, err = tx.Groups().FindByID(ctx, groupID)
		if err != nil {
			return fmt.Errorf("group service: load group: %w", err)
		}
		if group == nil {
			return permissions.ErrGroupNotFound
		}

		member, err := tx.Groups().IsMember(ctx, groupID, userID)
		if err != nil {
			return fmt.Errorf("group service: check membership: %w", err)
		}
		if !member {
			return ErrMemberNotFound
		}

		if group.IsMain {
			count, err := tx.Groups().CountMembers(ctx, groupID)
			if err != nil {
				return fmt.Errorf("group service: count members: %w", err)
			}
			if count <= 1 {
				return ErrLastAdminMember
			}
		}

		if _, err := tx.Groups().RemoveMember(ctx, groupID, userID); err != nil {
			return fmt.Errorf("group service: remove member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	invalidate(ctx, s.cache, group.ConnectionID)

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:       "group.remove_member",
		Resource:     groupID,
		ConnectionID: group.ConnectionID,
		Result:       "success",
		Metadata:     map[string]any{"user_id": userID},
	})
	return nil
}
