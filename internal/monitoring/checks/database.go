package checks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/dbpanel/internal/database"
	"github.com/charlesng35/dbpanel/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database returns a readiness probe for the permission store. A reachable database
// whose schema lacks one of the dbpanel tables reports degraded.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		probeCtx, cancel := context.WithTimeout(ctx, orDefault(timeout, defaultDatabaseTimeout))
		defer cancel()

		if err := sqlDB.PingContext(probeCtx); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		migrator := db.WithContext(probeCtx).Migrator()
		for _, model := range database.Models() {
			if !migrator.HasTable(model) {
				return monitoring.ProbeResult{
					Status:   monitoring.StatusDegraded,
					Details:  fmt.Sprintf("schema missing table for %T", model),
					Duration: time.Since(start),
				}
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  db.Dialector.Name(),
			Duration: time.Since(start),
		}
	})
}

func orDefault(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
