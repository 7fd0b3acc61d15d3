package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youthportal/api/internal/models"
	"youthportal/api/internal/session"
)

// setupTestRedis connects to TEST_REDIS_ADDR (default localhost:6379) and
// skips the test when nothing answers.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testPrefix(t *testing.T) string {
	return "test:" + t.Name() + ":" + time.Now().Format("150405.000000") + ":"
}

func TestSessionRepository_SaveGetDelete(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSessionRepository(client, testPrefix(t))
	ctx := context.Background()

	sess := session.Session{
		ID:        "s1",
		UserID:    "u1",
		Email:     "u1@example.org",
		Role:      models.UserRoleAdmin,
		IsAdmin:   true,
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, repo.Save(ctx, sess, time.Minute))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Role, got.Role)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	ttl, err := client.TTL(ctx, repo.sessionKey("s1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	ids, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	require.NoError(t, repo.Delete(ctx, "s1"))
	require.NoError(t, repo.Delete(ctx, "s1"))

	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	ids, err = repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionRepository_RejectsBadInput(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSessionRepository(client, testPrefix(t))

	assert.Error(t, repo.Save(context.Background(), session.Session{}, time.Minute))
	assert.Error(t, repo.Save(context.Background(), session.Session{ID: "x"}, 0))
}

func TestSessionRepository_DeleteByUserAndPrune(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSessionRepository(client, testPrefix(t))
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, repo.Save(ctx, session.Session{ID: id, UserID: "u1"}, time.Minute))
	}
	require.NoError(t, repo.Save(ctx, session.Session{ID: "c", UserID: "u2"}, time.Minute))

	n, err := repo.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Simulate TTL expiry of the session key while the index survives.
	require.NoError(t, client.Del(ctx, repo.sessionKey("c")).Err())
	pruned, err := repo.PruneIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	ids, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
