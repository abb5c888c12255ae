package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/api"
	"github.com/charlesng35/dbpanel/internal/app"
	"github.com/charlesng35/dbpanel/internal/app/maintenance"
	iauth "github.com/charlesng35/dbpanel/internal/auth"
	"github.com/charlesng35/dbpanel/internal/cache"
	"github.com/charlesng35/dbpanel/internal/database"
	"github.com/charlesng35/dbpanel/internal/monitoring"
	"github.com/charlesng35/dbpanel/internal/monitoring/checks"
	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/internal/services"
	"github.com/charlesng35/dbpanel/internal/vault"
	"github.com/charlesng35/dbpanel/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB              *gorm.DB
	Redis           *cache.RedisStore
	AccessCache     *cache.AccessResolver
	Health          *monitoring.HealthManager
	Cleaner         *maintenance.Cleaner
	Router          *gin.Engine
	shutdownTracing monitoring.ShutdownFunc
}

// bootstrapRuntime initialises the database, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.shutdownTracing, err = monitoring.SetupTracing(ctx, cfg.Monitoring.TracingOptions())
	if err != nil {
		return nil, fmt.Errorf("initialise tracing: %w", err)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store, err := repository.NewStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise repositories: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	resolver, err := permissions.NewResolverFromStore(store)
	if err != nil {
		return nil, fmt.Errorf("initialise resolver: %w", err)
	}
	reconciler, err := permissions.NewReconciler(store)
	if err != nil {
		return nil, fmt.Errorf("initialise reconciler: %w", err)
	}

	var (
		access      permissions.AccessResolver = resolver
		invalidator services.AccessInvalidator
	)
	if cfg.Access.Cache.Enabled {
		stack.AccessCache, err = stack.buildAccessCache(cfg, resolver, log)
		if err != nil {
			return nil, err
		}
		access = stack.AccessCache
		invalidator = stack.AccessCache
	}

	decryptor := vault.NewMasterPasswordDecryptor(cfg.Auth.BcryptCost())
	guard, err := permissions.NewGuard(access, store.Connections(), permissions.WithDecryptor(decryptor))
	if err != nil {
		return nil, fmt.Errorf("initialise access guard: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	userSvc, err := services.NewUserService(store, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	userSvc = userSvc.WithPasswordCost(cfg.Auth.BcryptCost())

	connOpts := []services.ConnectionOption{services.WithMasterPasswordSealer(decryptor)}
	if invalidator != nil {
		connOpts = append(connOpts, services.WithConnectionInvalidator(invalidator))
	}
	if templates := cfg.Bootstrap.Templates(); len(templates) > 0 {
		bootstrapper, err := services.NewBootstrapper(store, templates, auditSvc)
		if err != nil {
			return nil, fmt.Errorf("initialise bootstrapper: %w", err)
		}
		connOpts = append(connOpts, services.WithBootstrapper(bootstrapper))
	}

	connSvc, err := services.NewConnectionService(store, access, resolver, auditSvc, connOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise connection service: %w", err)
	}
	groupSvc, err := services.NewGroupService(store, access, auditSvc, invalidator)
	if err != nil {
		return nil, fmt.Errorf("initialise group service: %w", err)
	}
	permSvc, err := services.NewPermissionService(reconciler, access, auditSvc, invalidator)
	if err != nil {
		return nil, fmt.Errorf("initialise permission service: %w", err)
	}

	stack.Health = monitoring.NewHealthManager(cfg.Monitoring.Health.Timeout)
	stack.Health.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	stack.Health.RegisterReadiness(checks.Database(stack.DB, 0))
	stack.Health.RegisterReadiness(checks.AccessCache(redisPinger(stack.Redis), cfg.Access.Cache.UsesRedis(), 0))

	stack.Cleaner = maintenance.NewCleaner(auditSvc,
		maintenance.WithAuditRetentionDays(cfg.Audit.RetentionDays),
		maintenance.WithAuditSchedule(cfg.Audit.CleanupSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:      cfg,
		Tokens:      jwtSvc,
		Guard:       guard,
		Health:      stack.Health,
		Users:       userSvc,
		Connections: connSvc,
		Groups:      groupSvc,
		Permissions: permSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildAccessCache selects the cache backend. An unreachable redis falls back to the
// in-process store so the server still starts.
func (s *runtimeStack) buildAccessCache(cfg *app.Config, next permissions.AccessResolver, log *zap.Logger) (*cache.AccessResolver, error) {
	var backend cache.Store
	if cfg.Access.Cache.UsesRedis() {
		redisStore, err := cache.NewRedisStore(cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; using in-process access cache", zap.Error(err))
		} else {
			s.Redis = redisStore
			backend = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	if backend == nil {
		backend = cache.NewMemoryStore(cfg.Access.Cache.Size, cfg.Access.Cache.TTL)
	}

	resolver, err := cache.NewAccessResolver(next, backend, cfg.Access.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("initialise access cache: %w", err)
	}
	return resolver, nil
}

// redisPinger avoids handing the health check a typed nil.
func redisPinger(store *cache.RedisStore) checks.RedisPinger {
	if store == nil {
		return nil
	}
	return store
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}

	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
