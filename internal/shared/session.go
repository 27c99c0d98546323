package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const sessionKeyPrefix = "session:"

// SessionStore resolves opaque session tokens to owner ids. Tokens are never
// stored in clear; Redis keys carry a keyed BLAKE2b digest of the token.
type SessionStore struct {
	client *redis.Client
	key    []byte
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, secret string, ttl time.Duration) *SessionStore {
	key := blake2b.Sum256([]byte(secret))
	return &SessionStore{client: client, key: key[:], ttl: ttl}
}

// Issue creates a new session for owner and returns its token.
func (s *SessionStore) Issue(ctx context.Context, owner uuid.UUID) (string, error) {
	if owner == uuid.Nil {
		return "", errors.New("session: owner required")
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.client.Set(ctx, s.redisKey(token), owner.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session: store: %w", err)
	}
	return token, nil
}

// Resolve returns the owner bound to token and slides its expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, ErrUnauthenticated
	}
	key := s.redisKey(token)
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrUnauthenticated
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("session: load: %w", err)
	}
	owner, err := uuid.Parse(value)
	if err != nil || owner == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, key, s.ttl).Err()
	}
	return owner, nil
}

// Revoke deletes the session bound to token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *SessionStore) redisKey(token string) string {
	h, _ := blake2b.New256(s.key)
	h.Write([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
