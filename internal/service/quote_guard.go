package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Request kinds tracked per checkout session
const (
	KindShipping = "shipping"
	KindVouchers = "vouchers"
)

// GuardStore is the shared sequence store behind RequestGuard
type GuardStore interface {
	IssueRequestID(ctx context.Context, sessionID, field string, ttl time.Duration) (int64, error)
	ApplyIfLatest(ctx context.Context, sessionID, field string, requestID int64, payload []byte, ttl time.Duration) (bool, error)
}

// Ticket identifies one issued request
type Ticket struct {
	Session string
	Kind    string
	ID      int64
	local   bool
}

// RequestGuard makes sure only the response to the most recently issued
// request of a kind is applied to a checkout session. Older responses that
// arrive late are dropped.
type RequestGuard struct {
	store  GuardStore
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	latest map[string]int64
}

// NewRequestGuard creates a guard. store may be nil, in which case sequences
// are kept in process.
func NewRequestGuard(store GuardStore, ttl time.Duration) *RequestGuard {
	return &RequestGuard{
		store:  store,
		ttl:    ttl,
		logger: util.GetLogger(),
		latest: make(map[string]int64),
	}
}

func localKey(session, kind string) string {
	return session + ":" + kind
}

// Issue hands out the next request id for session and kind. An empty session
// yields a zero ticket that is always applied.
func (g *RequestGuard) Issue(ctx context.Context, session, kind string) Ticket {
	if session == "" {
		return Ticket{Kind: kind}
	}

	if g.store != nil {
		id, err := g.store.IssueRequestID(ctx, session, kind, g.ttl)
		if err == nil {
			return Ticket{Session: session, Kind: kind, ID: id}
		}
		g.logger.Warn("Request guard store unavailable, using local sequence",
			zap.String("session", session),
			zap.String("kind", kind),
			zap.Error(err))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[localKey(session, kind)]++
	return Ticket{Session: session, Kind: kind, ID: g.latest[localKey(session, kind)], local: true}
}

// Apply records payload as the session's current value for the ticket's kind
// if the ticket is still the latest issued. It reports whether it was.
func (g *RequestGuard) Apply(ctx context.Context, t Ticket, payload interface{}) bool {
	if t.Session == "" {
		return true
	}

	applied := g.apply(ctx, t, payload)
	if !applied {
		util.CheckoutStaleResponsesTotal.WithLabelValues(t.Kind).Inc()
		g.logger.Debug("Discarding stale response",
			zap.String("session", t.Session),
			zap.String("kind", t.Kind),
			zap.Int64("request_id", t.ID))
	}
	return applied
}

func (g *RequestGuard) apply(ctx context.Context, t Ticket, payload interface{}) bool {
	if !t.local && g.store != nil {
		ok, err := g.applyShared(ctx, t, payload)
		if err == nil {
			return ok
		}
		g.logger.Warn("Request guard apply failed, treating response as current",
			zap.String("session", t.Session),
			zap.String("kind", t.Kind),
			zap.Error(err))
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[localKey(t.Session, t.Kind)] == t.ID
}

func (g *RequestGuard) applyShared(ctx context.Context, t Ticket, payload interface{}) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	return g.store.ApplyIfLatest(ctx, t.Session, t.Kind, t.ID, raw, g.ttl)
}
