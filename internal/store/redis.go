package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/conclave-ai/conclave/internal/errors"
)

// RedisStore persists sessions in redis, one JSON value per session plus a
// set of known IDs for listing.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to redis at redisURL and verifies the connection
// with a ping before returning.
func NewRedisStore(redisURL string, prefix string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.NewValidationError("redis url is empty")
	}
	if prefix == "" {
		prefix = "conclave"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "conclave"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":sessions"
}

func (s *RedisStore) Save(ctx context.Context, session *PersistedSession) error {
	if session == nil || session.ID == "" {
		return errors.NewValidationError("session must have an id")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*PersistedSession, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}
	var session PersistedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &session, nil
}

func (s *RedisStore) List(ctx context.Context) ([]SessionSummary, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}

	summaries := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, errors.ErrSessionNotFound) {
			// Index entry without a value: treat as deleted.
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, session.summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
