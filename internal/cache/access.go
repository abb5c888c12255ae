package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/dbpanel/internal/permissions"
	"github.com/charlesng35/dbpanel/pkg/logger"
	"github.com/charlesng35/dbpanel/pkg/metrics"
)

const (
	defaultAccessTTL = 30 * time.Second
	generationTTL    = 24 * time.Hour
)

// AccessResolver memoises connection and table access in a Store. Entries are keyed by a
// per-connection generation, so Invalidate drops every cached answer for a connection
// with a single write. Group access is always read through.
type AccessResolver struct {
	next  permissions.AccessResolver
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

var _ permissions.AccessResolver = (*AccessResolver)(nil)

// NewAccessResolver wraps next with a cache backed by store.
func NewAccessResolver(next permissions.AccessResolver, store Store, ttl time.Duration) (*AccessResolver, error) {
	if next == nil {
		return nil, errors.New("access cache: resolver is required")
	}
	if store == nil {
		return nil, errors.New("access cache: store is required")
	}
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	return &AccessResolver{next: next, store: store, ttl: ttl, log: logger.WithModule("cache")}, nil
}

func (r *AccessResolver) ResolveConnectionAccess(ctx context.Context, userID, connectionID string) (permissions.AccessLevel, error) {
	key, ok := r.entryKey(ctx, "conn", connectionID, userID)
	if ok {
		if raw, hit := r.lookup(ctx, key); hit {
			if level, valid := permissions.ParseAccessLevel(string(raw)); valid {
				return level, nil
			}
		}
	}

	level, err := r.next.ResolveConnectionAccess(ctx, userID, connectionID)
	if err != nil {
		return level, err
	}
	if ok {
		r.save(ctx, key, []byte(level))
	}
	return level, nil
}

func (r *AccessResolver) ResolveGroupAccess(ctx context.Context, userID, groupID string) (permissions.AccessLevel, error) {
	return r.next.ResolveGroupAccess(ctx, userID, groupID)
}

func (r *AccessResolver) ResolveTableAccess(ctx context.Context, userID, connectionID, tableName string) (permissions.TableAccessLevels, error) {
	key, ok := r.entryKey(ctx, "table", connectionID, userID, tableName)
	if ok {
		if raw, hit := r.lookup(ctx, key); hit {
			var flags permissions.TableAccessLevels
			if err := json.Unmarshal(raw, &flags); err == nil {
				return flags, nil
			}
		}
	}

	flags, err := r.next.ResolveTableAccess(ctx, userID, connectionID, tableName)
	if err != nil {
		return flags, err
	}
	if ok {
		if raw, err := json.Marshal(flags); err == nil {
			r.save(ctx, key, raw)
		}
	}
	return flags, nil
}

// Invalidate discards every cached answer for the connection.
func (r *AccessResolver) Invalidate(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return nil
	}
	return r.store.Set(ctx, generationKey(connectionID), []byte(uuid.NewString()), generationTTL)
}

func (r *AccessResolver) entryKey(ctx context.Context, kind, connectionID string, parts ...string) (string, bool) {
	gen, err := r.generation(ctx, connectionID)
	if err != nil {
		metrics.AccessCacheLookups.WithLabelValues("error").Inc()
		r.log.Warn("access cache generation unavailable", zap.String("connection_id", connectionID), zap.Error(err))
		return "", false
	}
	key := fmt.Sprintf("access:%s:%s:%s", kind, connectionID, gen)
	for _, part := range parts {
		key += ":" + part
	}
	return key, true
}

func (r *AccessResolver) generation(ctx context.Context, connectionID string) (string, error) {
	key := generationKey(connectionID)
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}
	gen := uuid.NewString()
	if err := r.store.Set(ctx, key, []byte(gen), generationTTL); err != nil {
		return "", err
	}
	return gen, nil
}

func (r *AccessResolver) lookup(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := r.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.AccessCacheLookups.WithLabelValues("error").Inc()
		r.log.Warn("access cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	case !ok:
		metrics.AccessCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.AccessCacheLookups.WithLabelValues("hit").Inc()
		return raw, true
	}
}

func (r *AccessResolver) save(ctx context.Context, key string, value []byte) {
	if err := r.store.Set(ctx, key, value, r.ttl); err != nil {
		r.log.Warn("access cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func generationKey(connectionID string) string {
	return "access:gen:" + connectionID
}
