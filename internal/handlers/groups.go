package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbpanel/internal/services"
	"github.com/charlesng35/dbpanel/pkg/response"
)

// GroupHandler exposes group management and membership.
type GroupHandler struct {
	groups      *services.GroupService
	permissions *services.PermissionService
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups *services.GroupService, perms *services.PermissionService) (*GroupHandler, error) {
	if groups == nil {
		return nil, errors.New("group handler: group service is required")
	}
	if perms == nil {
		return nil, errors.New("group handler: permission service is required")
	}
	return &GroupHandler{groups: groups, permissions: perms}, nil
}

// List returns the groups of a connection along with the caller's group access.
func (h *GroupHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	listing, err := h.groups.ListForConnection(requestContext(c), userID, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

// Create adds a group to a connection.
func (h *GroupHandler) Create(c *gin.Context) {
	var payload services.CreateGroupInput
	if !bindAndValidate(c, &payload) {
		return
	}

	group, err := h.groups.Create(requestContext(c), c.Param("slug"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, group)
}

// Delete removes a group. The Admin group cannot be deleted.
func (h *GroupHandler) Delete(c *gin.Context) {
	groupID := c.Param("slug")
	if err := h.groups.Delete(requestContext(c), groupID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "groupId": groupID})
}

// Members lists the users of a group.
func (h *GroupHandler) Members(c *gin.Context) {
	users, err := h.groups.Members(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Total: len(users)})
}

// AddMember adds an existing user to a group by email.
func (h *GroupHandler) AddMember(c *gin.Context) {
	var payload services.AddMemberInput
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.groups.AddMember(requestContext(c), c.Param("slug"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// RemoveMember removes a user from a group.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID := c.Param("slug")
	userID := c.Param("userId")
	if err := h.groups.RemoveMember(requestContext(c), groupID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true, "groupId": groupID, "userId": userID})
}

// Permissions returns the stored permission set of a group in reconcile shape.
func (h *GroupHandler) Permissions(c *gin.Context) {
	set, err := h.permissions.Describe(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, set)
}
