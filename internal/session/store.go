// Package session keeps the active-session identity and one-shot flash
// results in Redis, keyed by an opaque session id carried in a signed cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Identity is the post-authentication view of an account. It deliberately
// holds only the fields needed between requests; the credential never enters
// the session.
type Identity struct {
	UserID uint   `json:"user_id"`
	Login  string `json:"login"`
	Name   string `json:"name"`
	Photo  string `json:"photo"`
}

// Flash is the ephemeral (success, message) result surfaced after a redirect.
type Flash struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// NewID mints a fresh opaque session id.
func (s *Store) NewID() string { return uuid.New().String() }

func identityKey(sid string) string { return "sess:" + sid + ":identity" }
func flashKey(sid string) string    { return "sess:" + sid + ":flash" }

func (s *Store) SetIdentity(ctx context.Context, sid string, identity Identity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return s.client.Set(ctx, identityKey(sid), payload, s.ttl).Err()
}

// Identity returns the stored identity, or nil when the session is anonymous.
func (s *Store) Identity(ctx context.Context, sid string) (*Identity, error) {
	payload, err := s.client.Get(ctx, identityKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var identity Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	return &identity, nil
}

// Destroy drops all state for the session id.
func (s *Store) Destroy(ctx context.Context, sid string) error {
	return s.client.Del(ctx, identityKey(sid), flashKey(sid)).Err()
}

func (s *Store) SetFlash(ctx context.Context, sid string, flash Flash) error {
	payload, err := json.Marshal(flash)
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}
	return s.client.Set(ctx, flashKey(sid), payload, s.ttl).Err()
}

// PopFlash reads and removes the pending flash result, if any.
func (s *Store) PopFlash(ctx context.Context, sid string) (*Flash, error) {
	payload, err := s.client.GetDel(ctx, flashKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var flash Flash
	if err := json.Unmarshal(payload, &flash); err != nil {
		return nil, fmt.Errorf("unmarshal flash: %w", err)
	}
	return &flash, nil
}

// Ping reports Redis reachability for the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
