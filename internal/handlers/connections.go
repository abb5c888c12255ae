package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/services"
	"github.com/charlesng35/dbpanel/pkg/response"
)

// ConnectionHandler exposes connection APIs.
type ConnectionHandler struct {
	svc *services.ConnectionService
}

// NewConnectionHandler constructs a handler using the provided service.
func NewConnectionHandler(svc *services.ConnectionService) (*ConnectionHandler, error) {
	if svc == nil {
		return nil, errors.New("connection handler: service is required")
	}
	return &ConnectionHandler{svc: svc}, nil
}

// List returns every connection the caller belongs to, redacted per access level.
func (h *ConnectionHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.svc.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
}

// Create registers a connection owned by the caller together with its Admin group.
func (h *ConnectionHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var payload services.CreateConnectionInput
	if !bindAndValidate(c, &payload) {
		return
	}

	ctx := requestContext(c)
	conn, err := h.svc.Create(ctx, userID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, services.ConnectionAccess{
		Connection:  permissions.NewConnectionView(conn),
		AccessLevel: permissions.AccessEdit,
	})
}

// Get returns one connection.
func (h *ConnectionHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	item, err := h.svc.Get(requestContext(c), userID, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Delete removes a connection with its groups and permissions.
func (h *ConnectionHandler) Delete(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}

	connectionID := c.Param("slug")
	if err := h.svc.Delete(requestContext(c), connectionID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "connectionId": connectionID})
}

// Access reports the caller's resolved access level on a connection.
func (h *ConnectionHandler) Access(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	level, err := h.svc.Access(requestContext(c), userID, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"accessLevel": level})
}
