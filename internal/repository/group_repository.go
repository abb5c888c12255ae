package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/models"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID returns nil without error when the group does not exist.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindWithPermissionsByID loads the group with its permission rows.
func (r *GroupRepository) FindWithPermissionsByID(ctx context.Context, id string) (*models.Group, error) {
	return r.first(r.db.WithContext(ctx).Preload("Permissions"), id)
}

// FindWithUsersByID loads the group with its members.
func (r *GroupRepository) FindWithUsersByID(ctx context.Context, id string) (*models.Group, error) {
	return r.first(r.db.WithContext(ctx).Preload("Users", func(db *gorm.DB) *gorm.DB {
		return db.Order("email ASC")
	}), id)
}

func (r *GroupRepository) first(db *gorm.DB, id string) (*models.Group, error) {
	var group models.Group
	if err := db.First(&group, "connection_groups.id = ?", id).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &group, nil
}

// FindForUserInConnection returns the user's groups on one connection with permissions preloaded.
func (r *GroupRepository) FindForUserInConnection(ctx context.Context, userID, connectionID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.memberOf(ctx, userID).
		Where("connection_groups.connection_id = ?", connectionID).
		Preload("Permissions").
		Find(&groups).Error
	return groups, err
}

// FindAllForUser returns the user's groups across every connection with permissions preloaded.
func (r *GroupRepository) FindAllForUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.memberOf(ctx, userID).
		Preload("Permissions").
		Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) memberOf(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Joins("JOIN user_groups ON user_groups.group_id = connection_groups.id").
		Where("user_groups.user_id = ?", userID)
}

// FindMain returns the connection's Admin group, or nil when none exists.
func (r *GroupRepository) FindMain(ctx context.Context, connectionID string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND is_main = ?", connectionID, true).
		First(&group).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &group, nil
}

// ListByConnection returns every group of a connection with members preloaded.
func (r *GroupRepository) ListByConnection(ctx context.Context, connectionID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Preload("Users").
		Order("is_main DESC, title ASC").
		Find(&groups).Error
	return groups, err
}

// SaveNewOrUpdated writes the group's own columns. Users and Permissions are managed
// through AddMember/RemoveMember and the permission repository.
func (r *GroupRepository) SaveNewOrUpdated(ctx context.Context, group *models.Group) error {
	db := r.db.WithContext(ctx).Omit("Users", "Permissions")
	if group.ID == "" {
		return translateWriteError(db.Create(group).Error)
	}
	return translateWriteError(db.Omit("created_at").Save(group).Error)
}

// Delete removes the group, its permission rows and its memberships.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteGroupRows(tx, []string{id})
	})
}

// AddMember links the user to the group. Linking twice violates the join table key.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	err := r.db.WithContext(ctx).
		Exec("INSERT INTO user_groups (group_id, user_id) VALUES (?, ?)", groupID, userID).Error
	return translateWriteError(err)
}

// RemoveMember unlinks the user and reports whether a membership existed.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Exec("DELETE FROM user_groups WHERE group_id = ? AND user_id = ?", groupID, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_groups").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *GroupRepository) CountMembers(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_groups").
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}
