package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/dbpanel/internal/app"
	"github.com/charlesng35/dbpanel/internal/handlers"
	"github.com/charlesng35/dbpanel/internal/middleware"
	"github.com/charlesng35/dbpanel/internal/monitoring"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/services"
)

// Dependencies bundles everything the HTTP surface is built from.
type Dependencies struct {
	Config      *app.Config
	Tokens      middleware.TokenValidator
	Guard       middleware.Decider
	Health      *monitoring.HealthManager
	Users       *services.UserService
	Connections *services.ConnectionService
	Groups      *services.GroupService
	Permissions *services.PermissionService
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("router: config is required")
	case d.Tokens == nil:
		return errors.New("router: token validator is required")
	case d.Guard == nil:
		return errors.New("router: access guard is required")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	userHandler, err := handlers.NewUserHandler(deps.Users)
	if err != nil {
		return nil, err
	}
	connHandler, err := handlers.NewConnectionHandler(deps.Connections)
	if err != nil {
		return nil, err
	}
	groupHandler, err := handlers.NewGroupHandler(deps.Groups, deps.Permissions)
	if err != nil {
		return nil, err
	}
	permHandler, err := handlers.NewPermissionHandler(deps.Permissions)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	registerHealthRoutes(r, deps.Config, deps.Health)

	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(deps.Config.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Public
	r.POST("/api/users/register", userHandler.Register)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Tokens))

	guard := deps.Guard

	api.GET("/users/me", userHandler.Me)

	conns := api.Group("/connections")
	{
		conns.GET("", connHandler.List)
		conns.POST("", connHandler.Create)
		conns.GET("/:slug", connHandler.Get)
		conns.DELETE("/:slug", middleware.ConnectionEdit(guard), connHandler.Delete)
		conns.GET("/:slug/access", connHandler.Access)
		conns.GET("/:slug/groups", middleware.ConnectionRead(guard), groupHandler.List)
		conns.POST("/:slug/groups", middleware.ConnectionEdit(guard), groupHandler.Create)
	}

	groups := api.Group("/groups")
	{
		groups.DELETE("/:slug", middleware.GroupEdit(guard), groupHandler.Delete)
		groups.GET("/:slug/users", middleware.GroupRead(guard), groupHandler.Members)
		groups.PUT("/:slug/users", middleware.GroupEdit(guard), groupHandler.AddMember)
		groups.DELETE("/:slug/users/:userId", middleware.GroupEdit(guard), groupHandler.RemoveMember)
		groups.GET("/:slug/permissions", middleware.GroupRead(guard), groupHandler.Permissions)
	}

	api.PUT("/permissions/:slug", middleware.GroupEdit(guard), permHandler.Reconcile)

	table := api.Group("/table")
	{
		table.GET("/access/:slug", middleware.TableRead(guard), permHandler.TableAccess)
		table.POST("/row/:slug", middleware.TableAdd(guard), permHandler.RowOperation(permissions.TableAdd))
		table.PUT("/row/:slug", middleware.TableEdit(guard), permHandler.RowOperation(permissions.TableEdit))
		table.DELETE("/row/:slug", middleware.TableDelete(guard), permHandler.RowOperation(permissions.TableDelete))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
