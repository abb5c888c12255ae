package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/pkg/response"
	appValidator "github.com/charlesng35/dbpanel/pkg/validator"
)

type samplePayload struct {
	Email string `json:"email" validate:"required,email"`
	Title string `json:"title" validate:"required,max=5"`
}

func performJSON(t *testing.T, handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestBindAndValidate(t *testing.T) {
	handler := func(c *gin.Context) {
		var payload samplePayload
		if !bindAndValidate(c, &payload) {
			return
		}
		response.Success(c, http.StatusOK, payload)
	}

	w := performJSON(t, handler, `{"email":"a@example.com","title":"ok"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, handler, `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid JSON payload")

	w = performJSON(t, handler, `{"email":"nope","title":"far too long"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "BAD_REQUEST", payload.Error.Code)
	require.Contains(t, payload.Error.Message, "must be a valid email address")
	require.Contains(t, payload.Error.Message, "must be at most 5 characters")
}

func TestFormatValidationError(t *testing.T) {
	require.Equal(t, "invalid request payload", formatValidationError(nil))
	require.Equal(t, "invalid request payload", formatValidationError(appValidator.ValidationErrors{}))
	require.Equal(t, "user name is required", formatValidationError(appValidator.ValidationErrors{
		{Field: "User_Name", Tag: "required"},
	}))
	require.Equal(t, "port failed validation: lte=65535", formatValidationError(appValidator.ValidationErrors{
		{Field: "Port", Tag: "lte", Param: "65535"},
	}))
}

func TestRowOperationAcknowledges(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &PermissionHandler{}
	r := gin.New()
	r.DELETE("/row/:slug", h.RowOperation(permissions.TableDelete))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/row/abc?tableName=orders", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"data":{"connectionId":"abc","tableName":"orders","operation":"delete","allowed":true}}`, w.Body.String())
}

func TestHandlerConstructorsRequireServices(t *testing.T) {
	_, err := NewUserHandler(nil)
	require.Error(t, err)
	_, err = NewConnectionHandler(nil)
	require.Error(t, err)
	_, err = NewGroupHandler(nil, nil)
	require.Error(t, err)
	_, err = NewPermissionHandler(nil)
	require.Error(t, err)
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ConnectionHandler{}
	r := gin.New()
	r.GET("/", h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type ctxKey struct{}

func TestRequestContextCarriesRequestValues(t *testing.T) {
	require.NotNil(t, requestContext(nil))
	require.NotNil(t, requestContext(&gin.Context{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "actor"))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	require.Equal(t, "actor", requestContext(c).Value(ctxKey{}))
}
