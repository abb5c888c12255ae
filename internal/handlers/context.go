package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbpanel/internal/middleware"
	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
	"github.com/charlesng35/dbpanel/pkg/response"
)

// requestContext carries the actor set by middleware.Auth into the services. Handlers
// invoked without a request (unit tests) get a background context.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// requireUser returns the authenticated subject, rendering 401 when there is none.
func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
