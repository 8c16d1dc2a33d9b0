package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"moyobot/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "chat:sess:"

// RedisStore persists sessions as JSON blobs with a TTL, so an orphaned
// session eventually expires even if the reaper never runs. Turn
// serialization still happens through local per-identity locks: a session
// identity is only ever handled by one process at a time (channel webhooks
// are delivered per recipient), so a distributed lock is not needed.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	locks  *keyedMutex
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, locks: newKeyedMutex()}
}

func (s *RedisStore) Acquire(ctx context.Context, id models.Identity) (*models.Session, error) {
	if err := s.locks.Lock(ctx, id.Key()); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, sessionKeyPrefix+id.Key()).Result()
	if err == redis.Nil {
		return models.NewSession(id), nil
	}
	if err != nil {
		s.locks.Unlock(id.Key())
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		// A corrupt blob is unrecoverable; start the conversation over.
		return models.NewSession(id), nil
	}
	if sess.State.CollectedFields == nil {
		sess.State.CollectedFields = map[string]string{}
	}
	return &sess, nil
}

func (s *RedisStore) Commit(ctx context.Context, sess *models.Session) error {
	key := sess.Identity.Key()
	defer s.locks.Unlock(key)

	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Discard(id models.Identity) {
	s.locks.Unlock(id.Key())
}

func (s *RedisStore) Reap(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	reaped := 0

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		redisKey := iter.Val()
		lockKey := redisKey[len(sessionKeyPrefix):]
		if !s.locks.TryLock(lockKey) {
			continue
		}
		data, err := s.client.Get(ctx, redisKey).Result()
		if err == nil {
			var sess models.Session
			if json.Unmarshal([]byte(data), &sess) == nil && sess.LastActivity.Before(cutoff) {
				if s.client.Del(ctx, redisKey).Err() == nil {
					reaped++
				}
			}
		}
		s.locks.Unlock(lockKey)
	}
	if err := iter.Err(); err != nil {
		return reaped, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return reaped, nil
}

// Snapshot returns copies of all stored sessions, most recently active first.
func (s *RedisStore) Snapshot(ctx context.Context) ([]*models.Session, error) {
	var out []*models.Session
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var sess models.Session
		if json.Unmarshal([]byte(data), &sess) == nil {
			out = append(out, &sess)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	sortByActivity(out)
	return out, nil
}

func sortByActivity(sessions []*models.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})
}
