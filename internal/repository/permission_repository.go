package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/models"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// GetForConnection returns the group's connection-type permission, if any.
func (r *PermissionRepository) GetForConnection(ctx context.Context, groupID string) (*models.Permission, error) {
	return r.single(ctx, groupID, models.PermissionTypeConnection)
}

// GetForGroup returns the group's group-type permission, if any.
func (r *PermissionRepository) GetForGroup(ctx context.Context, groupID string) (*models.Permission, error) {
	return r.single(ctx, groupID, models.PermissionTypeGroup)
}

func (r *PermissionRepository) single(ctx context.Context, groupID string, typ models.PermissionType) (*models.Permission, error) {
	var perm models.Permission
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND type = ?", groupID, typ).
		Order("created_at ASC").
		First(&perm).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &perm, nil
}

// GetAllTablePermissionsInGroup returns every table-type row of the group.
func (r *PermissionRepository) GetAllTablePermissionsInGroup(ctx context.Context, groupID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND type = ?", groupID, models.PermissionTypeTable).
		Order("table_name ASC, access_level ASC").
		Find(&perms).Error
	return perms, err
}

// SaveNewOrUpdated inserts a permission without id or replaces the row with the same id.
// A second connection or group row for one group is refused with ErrDuplicatePermission.
func (r *PermissionRepository) SaveNewOrUpdated(ctx context.Context, perm *models.Permission) error {
	if perm == nil {
		return errors.New("repository: permission is required")
	}
	if perm.Type != models.PermissionTypeTable {
		perm.Table = ""

		query := r.db.WithContext(ctx).
			Model(&models.Permission{}).
			Where("group_id = ? AND type = ?", perm.GroupID, perm.Type)
		if perm.ID != "" {
			query = query.Where("id <> ?", perm.ID)
		}
		var others int64
		if err := query.Count(&others).Error; err != nil {
			return err
		}
		if others > 0 {
			return ErrDuplicatePermission
		}
	}

	db := r.db.WithContext(ctx)
	var err error
	if perm.ID == "" {
		err = db.Create(perm).Error
	} else {
		err = db.Omit("created_at").Save(perm).Error
	}
	if IsUniqueConstraintError(err) {
		return ErrDuplicatePermission.WithInternal(err)
	}
	return err
}

// Remove deletes the supplied rows by id.
func (r *PermissionRepository) Remove(ctx context.Context, perms ...models.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		if perm.ID != "" {
			ids = append(ids, perm.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Permission{}).Error
}

var _ PermissionStore = (*PermissionRepository)(nil)
var _ GroupStore = (*GroupRepository)(nil)
var _ ConnectionStore = (*ConnectionRepository)(nil)
var _ UserStore = (*UserRepository)(nil)
var _ Repositories = (*Store)(nil)

