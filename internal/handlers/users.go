package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbpanel/internal/middleware"
	"github.com/charlesng35/dbpanel/internal/services"
	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
	"github.com/charlesng35/dbpanel/pkg/response"
)

// UserHandler exposes account registration and the current-user lookup.
type UserHandler struct {
	svc *services.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *services.UserService) (*UserHandler, error) {
	if svc == nil {
		return nil, errors.New("user handler: service is required")
	}
	return &UserHandler{svc: svc}, nil
}

// Register creates an account.
func (h *UserHandler) Register(c *gin.Context) {
	var payload services.RegisterUserInput
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.svc.Register(requestContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.svc.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
