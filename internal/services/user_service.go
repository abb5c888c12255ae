package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/pkg/crypto"
	"github.com/charlesng35/dbpanel/pkg/validator"
)

// RegisterUserInput describes the fields accepted when registering an account.
type RegisterUserInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserService manages platform accounts.
type UserService struct {
	store        repository.Repositories
	auditService *AuditService
	cost         int
}

// NewUserService constructs a UserService instance.
func NewUserService(store repository.Repositories, auditService *AuditService) (*UserService, error) {
	if store == nil {
		return nil, errors.New("user service: store is required")
	}
	return &UserService{store: store, auditService: auditService}, nil
}

// WithPasswordCost overrides the bcrypt cost used for new accounts.
func (s *UserService) WithPasswordCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Register creates an account with a hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Email = repository.NormaliseEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}

	existing, err := s.store.Users().FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("user service: lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := crypto.HashPasswordWithCost(input.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	name := input.Name
	if name == "" {
		name = input.Email
	}
	user := &models.User{Email: input.Email, Name: name, Password: hashed, IsActive: true}
	if err := s.store.Users().Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	userID := user.ID
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Email:    user.Email,
		Action:   "user.register",
		Resource: user.ID,
		Result:   "success",
	})

	return user, nil
}

// Get returns the user identified by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.store.Users().FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
