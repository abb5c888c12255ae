package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/dbpanel/internal/app"
	iauth "github.com/charlesng35/dbpanel/internal/auth"
	"github.com/charlesng35/dbpanel/internal/database/testutil"
	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/monitoring"
	"github.com/charlesng35/dbpanel/internal/monitoring/checks"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/internal/services"
	"github.com/charlesng35/dbpanel/internal/vault"
	"github.com/charlesng35/dbpanel/pkg/response"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	jwt    *iauth.JWTService
	store  *repository.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := repository.NewStore(db)
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	resolver, err := permissions.NewResolverFromStore(store)
	require.NoError(t, err)
	reconciler, err := permissions.NewReconciler(store)
	require.NoError(t, err)
	decryptor := vault.NewMasterPasswordDecryptor(bcrypt.MinCost)
	guard, err := permissions.NewGuard(resolver, store.Connections(), permissions.WithDecryptor(decryptor))
	require.NoError(t, err)

	users, err := services.NewUserService(store, audit)
	require.NoError(t, err)
	conns, err := services.NewConnectionService(store, resolver, resolver, audit, services.WithMasterPasswordSealer(decryptor))
	require.NoError(t, err)
	groups, err := services.NewGroupService(store, resolver, audit, nil)
	require.NoError(t, err)
	perms, err := services.NewPermissionService(reconciler, resolver, audit, nil)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "dbpanel", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	health := monitoring.NewHealthManager(time.Second)
	health.RegisterReadiness(checks.Database(db, time.Second))

	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true

	router, err := NewRouter(Dependencies{
		Config:      cfg,
		Tokens:      jwtSvc,
		Guard:       guard,
		Health:      health,
		Users:       users.WithPasswordCost(bcrypt.MinCost),
		Connections: conns,
		Groups:      groups,
		Permissions: perms,
	})
	require.NoError(t, err)

	return &testServer{t: t, router: router, jwt: jwtSvc, store: store}
}

// do issues a request as userID (anonymous when empty) and returns the recorder.
func (s *testServer) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/users/register", "", map[string]any{
		"email":    email,
		"name":     email,
		"password": "password123",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var user models.User
	decodeData(s.t, w, &user)
	return user.ID
}

func (s *testServer) createConnection(ownerID, title string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/connections", ownerID, map[string]any{
		"title":    title,
		"type":     "postgres",
		"host":     "db.internal",
		"port":     5432,
		"database": title,
		"username": "app",
		"password": "secret",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Connection map[string]any `json:"connection"`
	}
	decodeData(s.t, w, &created)
	return created.Connection["id"].(string)
}

func (s *testServer) createGroup(ownerID, connectionID, title string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/connections/"+connectionID+"/groups", ownerID, map[string]any{"title": title})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var group models.Group
	decodeData(s.t, w, &group)
	return group.ID
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.NotNil(t, payload.Error)
	return payload.Error.Code
}

func TestRouterPublicEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"component":"database"`)

	w = srv.do(http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")

	w = srv.do(http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestRouterRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/users/me", "/api/connections"} {
		w := srv.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}
}

func TestRouterRegisterAndMe(t *testing.T) {
	srv := newTestServer(t)
	userID := srv.register("ada@example.com")

	w := srv.do(http.MethodGet, "/api/users/me", userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decodeData(t, w, &me)
	require.Equal(t, "ada@example.com", me.Email)
	require.NotContains(t, w.Body.String(), "password123")

	w = srv.do(http.MethodPost, "/api/users/register", "", map[string]any{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "EMAIL_TAKEN", errorCode(t, w))

	w = srv.do(http.MethodPost, "/api/users/register", "", map[string]any{"email": "not-an-email", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterConnectionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.register("owner@example.com")
	stranger := srv.register("stranger@example.com")
	connID := srv.createConnection(owner, "orders")

	w := srv.do(http.MethodGet, "/api/connections", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []services.ConnectionAccess
	decodeData(t, w, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, permissions.AccessEdit, listed[0].AccessLevel)
	require.Equal(t, "db.internal", listed[0].Connection["host"])

	w = srv.do(http.MethodGet, "/api/connections/"+connID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/api/connections/"+connID+"/access", stranger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"data":{"accessLevel":"none"}}`, w.Body.String())

	w = srv.do(http.MethodGet, "/api/connections/"+connID, stranger, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = srv.do(http.MethodDelete, "/api/connections/"+connID, stranger, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodGet, "/api/connections/not-a-uuid", owner, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_IDENTIFIER", errorCode(t, w))

	w = srv.do(http.MethodDelete, "/api/connections/"+connID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	conn, err := srv.store.Connections().FindByID(context.Background(), connID)
	require.NoError(t, err)
	require.Nil(t, conn)
}

func TestRouterGetConnectionRedactsForMemberWithoutAccess(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.register("owner@example.com")
	observer := srv.register("observer@example.com")
	connID := srv.createConnection(owner, "ledger")
	groupID := srv.createGroup(owner, connID, "Observers")

	w := srv.do(http.MethodPut, "/api/groups/"+groupID+"/users", owner, map[string]any{"email": "observer@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.do(http.MethodGet, "/api/connections/"+connID, observer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var item struct {
		Connection  map[string]any          `json:"connection"`
		AccessLevel permissions.AccessLevel `json:"accessLevel"`
	}
	decodeData(t, w, &item)
	require.Equal(t, permissions.AccessNone, item.AccessLevel)
	keys := make([]string, 0, len(item.Connection))
	for key := range item.Connection {
		keys = append(keys, key)
	}
	require.ElementsMatch(t, []string{"id", "title", "database", "type"}, keys)
	require.NotContains(t, w.Body.String(), "db.internal")

	w = srv.do(http.MethodGet, "/api/connections/00000000-0000-0000-0000-000000000000", owner, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", errorCode(t, w))
}

func TestRouterGroupPermissionsFlow(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.register("owner@example.com")
	reader := srv.register("reader@example.com")
	connID := srv.createConnection(owner, "billing")
	groupID := srv.createGroup(owner, connID, "Readers")

	w := srv.do(http.MethodPut, "/api/permissions/"+groupID, owner, map[string]any{
		"connection": map[string]any{"connectionId": connID, "accessLevel": "readonly"},
		"group":      map[string]any{"groupId": groupID, "accessLevel": "none"},
		"tables": []map[string]any{{
			"tableName":   "invoices",
			"accessLevel": map[string]bool{"readonly": true, "visibility": true},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result permissions.ReconcileResult
	decodeData(t, w, &result)
	require.Equal(t, 4, result.Created)

	w = srv.do(http.MethodPut, "/api/groups/"+groupID+"/users", owner, map[string]any{"email": "reader@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.do(http.MethodGet, "/api/groups/"+groupID+"/users", reader, nil)
	require.Equal(t, http.StatusForbidden, w.Code, "group access none cannot list members")

	w = srv.do(http.MethodGet, "/api/connections/"+connID, reader, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/api/table/access/"+connID+"?tableName=invoices", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var flags permissions.TableAccessLevels
	decodeData(t, w, &flags)
	require.Equal(t, permissions.TableAccessLevels{Readonly: true, Visibility: true}, flags)

	w = srv.do(http.MethodPost, "/api/table/row/"+connID+"?tableName=invoices", reader, map[string]any{})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodGet, "/api/table/access/"+connID+"?tableName=payroll", reader, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodPut, "/api/table/row/"+connID+"?tableName=payroll", owner, map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"operation":"edit"`)

	w = srv.do(http.MethodPut, "/api/permissions/"+groupID, reader, map[string]any{
		"connection": map[string]any{"connectionId": connID, "accessLevel": "edit"},
		"group":      map[string]any{"groupId": groupID, "accessLevel": "edit"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodGet, "/api/groups/"+groupID+"/permissions", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var described permissions.PermissionSet
	decodeData(t, w, &described)
	require.Equal(t, permissions.AccessReadonly, described.Connection.AccessLevel)
	require.Len(t, described.Tables, 1)

	w = srv.do(http.MethodDelete, "/api/groups/"+groupID+"/users/"+reader, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/api/connections/"+connID, reader, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterAdminGroupIsImmutable(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.register("owner@example.com")
	connID := srv.createConnection(owner, "crm")

	w := srv.do(http.MethodGet, "/api/connections/"+connID+"/groups", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing services.GroupListing
	decodeData(t, w, &listing)
	require.Len(t, listing.Groups, 1)
	require.True(t, listing.Groups[0].IsMain)
	require.Equal(t, permissions.AccessEdit, listing.AccessLevel)
	adminID := listing.Groups[0].ID

	w = srv.do(http.MethodPut, "/api/permissions/"+adminID, owner, map[string]any{
		"connection": map[string]any{"connectionId": connID, "accessLevel": "none"},
		"group":      map[string]any{"groupId": adminID, "accessLevel": "none"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "IMMUTABLE_GROUP", errorCode(t, w))

	w = srv.do(http.MethodDelete, "/api/groups/"+adminID, owner, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "IMMUTABLE_GROUP", errorCode(t, w))

	w = srv.do(http.MethodDelete, "/api/groups/"+adminID+"/users/"+owner, owner, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "LAST_ADMIN_MEMBER", errorCode(t, w))
}

func TestRouterRejectsCrossTenantReconcile(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.register("owner@example.com")
	first := srv.createConnection(owner, "first")
	second := srv.createConnection(owner, "second")
	groupID := srv.createGroup(owner, first, "Analysts")

	w := srv.do(http.MethodPut, "/api/permissions/"+groupID, owner, map[string]any{
		"connection": map[string]any{"connectionId": second, "accessLevel": "edit"},
		"group":      map[string]any{"groupId": groupID, "accessLevel": "edit"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "CROSS_TENANT_MISMATCH", errorCode(t, w))

	w = srv.do(http.MethodPut, "/api/permissions/"+groupID, owner, map[string]any{
		"group": map[string]any{"groupId": groupID, "accessLevel": "edit"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "MISSING_IDENTIFIER", errorCode(t, w))
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	_, err := NewRouter(Dependencies{})
	require.Error(t, err)
}

func TestRouterHealthDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerHealthRoutes(r, &app.Config{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "disabled")
}
