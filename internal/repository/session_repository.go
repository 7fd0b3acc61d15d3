package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"youthportal/api/internal/session"
)

// SessionRepository keeps sessions in Redis as JSON with a TTL that follows
// the session's rolling expiration. A per-user set indexes ids for revoke-all.
type SessionRepository struct {
	client redis.UniversalClient
	prefix string
}

var _ session.Store = (*SessionRepository)(nil)

func NewSessionRepository(client redis.UniversalClient, prefix string) *SessionRepository {
	return &SessionRepository{client: client, prefix: prefix}
}

func (r *SessionRepository) sessionKey(id string) string {
	return r.prefix + "session:" + id
}

func (r *SessionRepository) userKey(userID string) string {
	return r.prefix + "user-sessions:" + userID
}

func (r *SessionRepository) Save(ctx context.Context, sess session.Session, ttl time.Duration) error {
	if sess.ID == "" {
		return errors.New("session id cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(sess.ID), data, ttl)
	if sess.UserID != "" {
		pipe.SAdd(ctx, r.userKey(sess.UserID), sess.ID)
		// The index outlives any member by at most one timeout window.
		pipe.Expire(ctx, r.userKey(sess.UserID), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (session.Session, error) {
	if id == "" {
		return session.Session{}, session.ErrNotFound
	}

	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	sess, err := r.Get(ctx, id)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	if sess.UserID != "" {
		pipe.SRem(ctx, r.userKey(sess.UserID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list user sessions: %w", err)
	}
	return ids, nil
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	ids, err := r.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, r.userKey(userID))

	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete user sessions: %w", err)
	}
	// The index key itself is not a session.
	if n := int(removed) - 1; n > 0 {
		return n, nil
	}
	return 0, nil
}

// PruneIndexes drops ids from per-user sets whose session keys already
// expired. Returns the number of stale ids removed.
func (r *SessionRepository) PruneIndexes(ctx context.Context) (int, error) {
	var (
		cursor uint64
		pruned int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.userKey("*"), 200).Result()
		if err != nil {
			return pruned, fmt.Errorf("redis scan indexes: %w", err)
		}
		for _, key := range keys {
			members, err := r.client.SMembers(ctx, key).Result()
			if err != nil {
				return pruned, fmt.Errorf("redis read index %s: %w", key, err)
			}
			for _, id := range members {
				exists, err := r.client.Exists(ctx, r.sessionKey(id)).Result()
				if err != nil {
					return pruned, fmt.Errorf("redis exists: %w", err)
				}
				if exists == 0 {
					if err := r.client.SRem(ctx, key, id).Err(); err != nil {
						return pruned, fmt.Errorf("redis prune index: %w", err)
					}
					pruned++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return pruned, nil
		}
	}
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
