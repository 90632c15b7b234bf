package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"docvault/pkg/domain"
)

const (
	sessionIDPrefix    = "docvault:session:id:"
	sessionTokenPrefix = "docvault:session:token:"
)

// RedisSessionStore keeps session records in Redis. Each session is written
// under two keys: id -> record and token -> id. A zero TTL means no expiry.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSession writes both keys for the session in one transaction.
func (s *RedisSessionStore) NewSession(sess domain.Session) error {
	raw, err := json.Marshal(sessionRecord{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Token:     sess.Token,
		CreatedAt: sess.CreatedAt,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionIDPrefix+sess.ID, raw, s.ttl)
	pipe.Set(ctx, sessionTokenPrefix+sess.Token, sess.ID, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSessionByToken resolves a bearer token to its session record.
func (s *RedisSessionStore) GetSessionByToken(token string) (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	id, err := s.client.Get(ctx, sessionTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	sess, ok, err := s.getByID(ctx, id)
	if err != nil || !ok {
		return domain.Session{}, false, err
	}
	// The token key can outlive a deleted id key only transiently; treat a
	// mismatch as an unknown token.
	if sess.Token != token {
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

// GetSessionByID returns a session record by ID.
func (s *RedisSessionStore) GetSessionByID(id string) (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.getByID(ctx, id)
}

func (s *RedisSessionStore) getByID(ctx context.Context, id string) (domain.Session, bool, error) {
	raw, err := s.client.Get(ctx, sessionIDPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Session{}, false, err
	}
	return domain.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Token:     rec.Token,
		CreatedAt: rec.CreatedAt,
	}, true, nil
}

// DeleteSession removes both keys so the paired token stops resolving at once.
// Deleting an absent session is a no-op; callers decide whether that is an error.
func (s *RedisSessionStore) DeleteSession(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sess, ok, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionIDPrefix+id)
	pipe.Del(ctx, sessionTokenPrefix+sess.Token)
	_, err = pipe.Exec(ctx)
	return err
}
