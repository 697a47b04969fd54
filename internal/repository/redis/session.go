// Package redis implements the session store: an opaque token mapped to
// a small user attribute set, TTL-bound to one browser session.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/repository"
)

const keyPrefix = "session:"

type sessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func NewSessionStore(client *redis.Client, ttl time.Duration) repository.SessionStore {
	return &sessionStore{client: client, ttl: ttl}
}

func (s *sessionStore) Create(ctx context.Context, userID int64, rol, email string) (*model.Session, error) {
	sess := &model.Session{
		Token:  uuid.NewString(),
		UserID: userID,
		Rol:    rol,
		Email:  email,
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+sess.Token, payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

func (s *sessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	sess.Token = token
	return &sess, nil
}

func (s *sessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
