package scholar

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bbiangul/go-scholar/store"
)

// sessionCache remembers recently seen session IDs so that hot sessions do
// not hit the sessions table on every request.
type sessionCache struct {
	known *lru.Cache[string, struct{}]
}

func newSessionCache(size int) (*sessionCache, error) {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	return &sessionCache{known: c}, nil
}

func (c *sessionCache) add(id string) { c.known.Add(id, struct{}{}) }
func (c *sessionCache) remove(id string) { c.known.Remove(id) }
func (c *sessionCache) contains(id string) bool { return c.known.Contains(id) }

// NewSession creates an empty session and returns its ID.
func (a *assistant) NewSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := a.store.CreateSession(ctx, id); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	a.sessions.add(id)
	return id, nil
}

// Session returns a session's stored state.
func (a *assistant) Session(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := a.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		a.sessions.remove(sessionID)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	a.sessions.add(sessionID)
	return sess, nil
}

// DeleteSession removes a session with everything it holds.
func (a *assistant) DeleteSession(ctx context.Context, sessionID string) error {
	a.sessions.remove(sessionID)
	err := a.store.DeleteSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return err
}

// requireSession fails with ErrSessionNotFound for unknown IDs.
func (a *assistant) requireSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: empty id", ErrSessionNotFound)
	}
	if a.sessions.contains(sessionID) {
		return nil
	}
	_, err := a.Session(ctx, sessionID)
	return err
}
