package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/dbpanel/internal/permissions"
	apperrors "github.com/charlesng35/dbpanel/pkg/errors"
	"github.com/charlesng35/dbpanel/pkg/logger"
	"github.com/charlesng35/dbpanel/pkg/metrics"
	"github.com/charlesng35/dbpanel/pkg/response"
)

const (
	// MasterPasswordHeader carries the master password of encrypted connections.
	MasterPasswordHeader = "masterpwd"

	targetParam    = "slug"
	tableNameQuery = "tableName"

	maxPeekBody = 1 << 20
)

// Decider evaluates a single access decision.
type Decider interface {
	Decide(ctx context.Context, req permissions.GuardRequest) (bool, error)
}

// RequireAccess runs the guard of the given kind before the route handler. The target id
// is read from the :slug path parameter, falling back to field in the query string or the
// JSON body.
func RequireAccess(guard Decider, kind permissions.GuardKind, field string) gin.HandlerFunc {
	log := logger.WithModule("guard")
	return func(c *gin.Context) {
		req := permissions.GuardRequest{
			Kind:      kind,
			SubjectID: UserID(c),
			TargetID:  targetID(c, field),
		}
		if kind.IsTable() {
			req.TableName = c.Query(tableNameQuery)
			req.MasterPassword = c.GetHeader(MasterPasswordHeader)
		}

		allowed, err := guard.Decide(c.Request.Context(), req)
		switch {
		case err != nil:
			metrics.GuardDecisions.WithLabelValues(string(kind), "error").Inc()
			if apperrors.FromError(err).StatusCode >= 500 {
				log.Error("guard evaluation failed",
					zap.String("guard", string(kind)),
					zap.String("target_id", req.TargetID),
					zap.Error(err),
				)
			}
			response.Abort(c, err)
		case !allowed:
			metrics.GuardDecisions.WithLabelValues(string(kind), "deny").Inc()
			log.Debug("access denied",
				zap.String("guard", string(kind)),
				zap.String("user_id", req.SubjectID),
				zap.String("target_id", req.TargetID),
			)
			response.Abort(c, permissions.ErrAccessDenied)
		default:
			metrics.GuardDecisions.WithLabelValues(string(kind), "allow").Inc()
			c.Next()
		}
	}
}

// ConnectionRead requires readonly or edit access on the target connection.
func ConnectionRead(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardConnectionRead, "connectionId")
}

// ConnectionEdit requires edit access on the target connection.
func ConnectionEdit(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardConnectionEdit, "connectionId")
}

// GroupRead requires readonly or edit group access on the target group.
func GroupRead(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardGroupRead, "groupId")
}

// GroupEdit requires edit group access on the target group.
func GroupEdit(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardGroupEdit, "groupId")
}

// TableRead requires a visible or readable table named by the tableName query.
func TableRead(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardTableRead, "connectionId")
}

// TableAdd requires the add flag on the table named by the tableName query.
func TableAdd(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardTableAdd, "connectionId")
}

// TableEdit requires the edit flag on the table named by the tableName query.
func TableEdit(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardTableEdit, "connectionId")
}

// TableDelete requires the delete flag on the table named by the tableName query.
func TableDelete(guard Decider) gin.HandlerFunc {
	return RequireAccess(guard, permissions.GuardTableDelete, "connectionId")
}

func targetID(c *gin.Context, field string) string {
	if id := strings.TrimSpace(c.Param(targetParam)); id != "" {
		return id
	}
	if field == "" {
		return ""
	}
	if id := strings.TrimSpace(c.Query(field)); id != "" {
		return id
	}
	return bodyField(c, field)
}

// bodyField reads a top-level string field from a JSON body and restores the body for
// the handler.
func bodyField(c *gin.Context, field string) string {
	if c.Request.Body == nil || !strings.Contains(c.ContentType(), "json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBody))
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}
