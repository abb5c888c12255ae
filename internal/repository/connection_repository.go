package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/models"
)

type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// FindByID returns nil without error when the connection does not exist.
func (r *ConnectionRepository) FindByID(ctx context.Context, id string) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &conn, nil
}

// FindByGroupID returns the connection a group is bound to.
func (r *ConnectionRepository) FindByGroupID(ctx context.Context, groupID string) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).
		Joins("JOIN connection_groups ON connection_groups.connection_id = connections.id").
		Where("connection_groups.id = ?", groupID).
		First(&conn).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &conn, nil
}

// SaveNew inserts a connection; associations are written by their own repositories.
func (r *ConnectionRepository) SaveNew(ctx context.Context, conn *models.Connection) error {
	return translateWriteError(r.db.WithContext(ctx).Omit("Groups").Create(conn).Error)
}

// ListForUser returns every connection on which the user belongs to at least one group.
func (r *ConnectionRepository) ListForUser(ctx context.Context, userID string) ([]models.Connection, error) {
	var conns []models.Connection
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.memberConnectionIDs(ctx, userID)).
		Order("created_at ASC").
		Find(&conns).Error
	return conns, err
}

// CountForUser counts the connections ListForUser would return.
func (r *ConnectionRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id IN (?)", r.memberConnectionIDs(ctx, userID)).
		Count(&count).Error
	return count, err
}

func (r *ConnectionRepository) memberConnectionIDs(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("connection_groups").
		Select("connection_groups.connection_id").
		Joins("JOIN user_groups ON user_groups.group_id = connection_groups.id").
		Where("user_groups.user_id = ?", userID)
}

// Delete removes the connection together with its groups, their permissions and memberships.
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var groupIDs []string
		if err := tx.Model(&models.Group{}).Where("connection_id = ?", id).Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		if err := deleteGroupRows(tx, groupIDs); err != nil {
			return err
		}
		return tx.Delete(&models.Connection{}, "id = ?", id).Error
	})
}

func deleteGroupRows(tx *gorm.DB, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	if err := tx.Where("group_id IN ?", groupIDs).Delete(&models.Permission{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM user_groups WHERE group_id IN ?", groupIDs).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", groupIDs).Delete(&models.Group{}).Error
}
