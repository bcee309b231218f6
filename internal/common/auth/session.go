// Package auth resolves opaque session tokens to caller identities.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gig-marketplace/internal/common/database"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a token does not map to a live session.
var ErrNoSession = errors.New("session not found or expired")

// SessionStore keeps sessions in Redis under <prefix><sha256(token)>.
// A per-user set indexes the hashes so every session of a user can be revoked at once.
type SessionStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewSessionStore(rdb redis.Cmdable, prefix string, ttl time.Duration, log logger.Logger) *SessionStore {
	return &SessionStore{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "session-store"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *SessionStore) sessionKey(token string) string {
	return s.prefix + hashToken(token)
}

func (s *SessionStore) userIndexKey(userID string) string {
	return fmt.Sprintf("%suser:%s", s.prefix, userID)
}

// Create issues a new token for userID. Token issuance is normally owned by the sign-in flow;
// the API exposes it only to trusted callers and tests.
func (s *SessionStore) Create(ctx context.Context, userID string, role models.Role) (string, *models.Session, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("user id is required")
	}
	if !role.Valid() {
		return "", nil, fmt.Errorf("invalid role %q", role)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := s.now()
	session := &models.Session{
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := database.SetJSON(ctx, s.rdb, s.sessionKey(token), session, s.ttl); err != nil {
		return "", nil, err
	}

	indexKey := s.userIndexKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, indexKey, hashToken(token))
	pipe.Expire(ctx, indexKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("failed to index session", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}

	return token, session, nil
}

// Resolve returns the identity bound to token.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	var session models.Session
	err := database.GetJSON(ctx, s.rdb, s.sessionKey(token), &session)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	if session.IsExpired(s.now()) || session.UserID == "" {
		return nil, ErrNoSession
	}

	return &Identity{UserID: session.UserID, Role: session.Role}, nil
}

// Revoke deletes the session bound to token. Revoking an unknown token is not an error.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	key := s.sessionKey(token)

	var session models.Session
	if err := database.GetJSON(ctx, s.rdb, key, &session); err == nil {
		s.rdb.SRem(ctx, s.userIndexKey(session.UserID), hashToken(token))
	}

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RevokeAll deletes every session of userID and returns how many were removed.
func (s *SessionStore) RevokeAll(ctx context.Context, userID string) (int, error) {
	indexKey := s.userIndexKey(userID)
	hashes, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find sessions: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.prefix+h)
	}

	removed := 0
	if len(keys) > 0 {
		n, err := s.rdb.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to delete sessions: %w", err)
		}
		removed = int(n)
	}
	s.rdb.Del(ctx, indexKey)

	s.logger.Info("All sessions invalidated", map[string]interface{}{
		"userId": userID,
		"count":  removed,
	})
	return removed, nil
}
