package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cache"
)

const sessionCacheOperation = "payment-session"

// CachedGateway serves repeated GetSession calls for paid sessions from a
// cache. Sessions that are not paid yet are always fetched again, so a
// polling client sees the status change.
type CachedGateway struct {
	Gateway
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedGateway(inner Gateway, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGateway{Gateway: inner, cache: c, ttl: ttl, logger: logger}
}

func (g *CachedGateway) GetSession(ctx context.Context, sessionID string) (Session, error) {
	key := g.cache.GenerateKey(sessionCacheOperation, sessionID)

	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.WarnContext(ctx, "session cache read failed", "session_id", sessionID, "error", err)
	} else if raw != "" {
		var s Session
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s, nil
		}
		g.logger.WarnContext(ctx, "session cache entry unreadable", "session_id", sessionID)
	}

	s, err := g.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	if s.Paid() {
		if body, err := json.Marshal(s); err == nil {
			if err := g.cache.Set(ctx, key, body, g.ttl); err != nil {
				g.logger.WarnContext(ctx, "session cache write failed", "session_id", sessionID, "error", err)
			}
		}
	}
	return s, nil
}
