package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeGuardStore struct {
	mu       sync.Mutex
	latest   map[string]int64
	applied  map[string][]byte
	issueErr error
	applyErr error
}

func newFakeGuardStore() *fakeGuardStore {
	return &fakeGuardStore{latest: make(map[string]int64), applied: make(map[string][]byte)}
}

func (s *fakeGuardStore) IssueRequestID(_ context.Context, session, field string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issueErr != nil {
		return 0, s.issueErr
	}
	s.latest[session+field]++
	return s.latest[session+field], nil
}

func (s *fakeGuardStore) ApplyIfLatest(_ context.Context, session, field string, id int64, payload []byte, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return false, s.applyErr
	}
	if s.latest[session+field] != id {
		return false, nil
	}
	s.applied[session+field] = payload
	return true, nil
}

func TestGuardDropsStaleResponse(t *testing.T) {
	ctx := context.Background()
	gs := newFakeGuardStore()
	g := NewRequestGuard(gs, time.Minute)

	first := g.Issue(ctx, "s1", KindShipping)
	second := g.Issue(ctx, "s1", KindShipping)

	assert.True(t, g.Apply(ctx, second, map[string]int{"fee": 30000}))
	assert.False(t, g.Apply(ctx, first, map[string]int{"fee": 25000}))
	assert.JSONEq(t, `{"fee":30000}`, string(gs.applied["s1"+KindShipping]))
}

func TestGuardKindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	g := NewRequestGuard(newFakeGuardStore(), time.Minute)

	shipping := g.Issue(ctx, "s1", KindShipping)
	g.Issue(ctx, "s1", KindVouchers)
	g.Issue(ctx, "s2", KindShipping)

	assert.True(t, g.Apply(ctx, shipping, nil))
}

func TestGuardEmptySessionAlwaysApplies(t *testing.T) {
	ctx := context.Background()
	g := NewRequestGuard(newFakeGuardStore(), time.Minute)

	a := g.Issue(ctx, "", KindVouchers)
	b := g.Issue(ctx, "", KindVouchers)

	assert.True(t, g.Apply(ctx, a, nil))
	assert.True(t, g.Apply(ctx, b, nil))
}

func TestGuardFallsBackToLocalSequence(t *testing.T) {
	ctx := context.Background()
	gs := newFakeGuardStore()
	gs.issueErr = errors.New("redis down")
	g := NewRequestGuard(gs, time.Minute)

	first := g.Issue(ctx, "s1", KindShipping)
	second := g.Issue(ctx, "s1", KindShipping)

	assert.True(t, first.local)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, g.Apply(ctx, first, nil))
	assert.True(t, g.Apply(ctx, second, nil))
}

func TestGuardWithoutStore(t *testing.T) {
	ctx := context.Background()
	g := NewRequestGuard(nil, time.Minute)

	first := g.Issue(ctx, "s1", KindVouchers)
	second := g.Issue(ctx, "s1", KindVouchers)

	assert.False(t, g.Apply(ctx, first, nil))
	assert.True(t, g.Apply(ctx, second, nil))
}

func TestGuardApplyErrorTreatsResponseAsCurrent(t *testing.T) {
	ctx := context.Background()
	gs := newFakeGuardStore()
	g := NewRequestGuard(gs, time.Minute)

	ticket := g.Issue(ctx, "s1", KindShipping)
	gs.applyErr = errors.New("timeout")

	assert.True(t, g.Apply(ctx, ticket, nil))
}
