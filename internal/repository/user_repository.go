package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/dbpanel/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns nil without error when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &user, nil
}

// LockByID loads the user with a row lock held until the surrounding transaction ends.
// Drivers without row locks (sqlite) fall back to a plain read.
func (r *UserRepository) LockByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &user, nil
}

// FindByEmail matches the normalised (trimmed, lower-case) address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", NormaliseEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &user, nil
}

// Save creates the user when it has no id yet, otherwise updates its columns.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	user.Email = NormaliseEmail(user.Email)
	db := r.db.WithContext(ctx).Omit("Groups")
	if user.ID == "" {
		return translateWriteError(db.Create(user).Error)
	}
	return translateWriteError(db.Save(user).Error)
}

// NormaliseEmail is the canonical form used for storage and lookup.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
