package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/services"
	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
	"github.com/charlesng35/dbpanel/pkg/response"
)

// PermissionHandler exposes permission reconciliation and resolved table access.
type PermissionHandler struct {
	svc *services.PermissionService
}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler(svc *services.PermissionService) (*PermissionHandler, error) {
	if svc == nil {
		return nil, errors.New("permission handler: service is required")
	}
	return &PermissionHandler{svc: svc}, nil
}

// Reconcile replaces a group's permissions with the submitted set.
func (h *PermissionHandler) Reconcile(c *gin.Context) {
	var payload permissions.PermissionSet
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	result, err := h.svc.Reconcile(requestContext(c), c.Param("slug"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// TableAccess reports the caller's flags on the table named by the tableName query.
func (h *PermissionHandler) TableAccess(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	flags, err := h.svc.TableAccess(requestContext(c), userID, c.Param("slug"), c.Query("tableName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, flags)
}

// RowOperation acknowledges a row mutation the table guard has already authorised.
func (h *PermissionHandler) RowOperation(operation permissions.TableAccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"connectionId": c.Param("slug"),
			"tableName":    c.Query("tableName"),
			"operation":    operation,
			"allowed":      true,
		})
	}
}
