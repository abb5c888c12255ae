package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/dbpanel/internal/repository"
	"github.com/charlesng35/dbpanel/pkg/logger"
)

// Store is the repository bundle the services write through.
type Store interface {
	repository.Repositories
	Transaction(ctx context.Context, fn func(tx repository.Repositories) error) error
}

// AccessInvalidator drops cached access resolutions for a connection after a mutation.
type AccessInvalidator interface {
	Invalidate(ctx context.Context, connectionID string) error
}

var _ Store = (*repository.Store)(nil)

func invalidate(ctx context.Context, cache AccessInvalidator, connectionID string) {
	if cache == nil || connectionID == "" {
		return
	}
	if err := cache.Invalidate(ctx, connectionID); err != nil {
		logger.WithModule("cache").Warn("failed to invalidate access cache",
			zap.String("connection_id", connectionID),
			zap.Error(err),
		)
	}
}
