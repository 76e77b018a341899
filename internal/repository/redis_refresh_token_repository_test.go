package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/repository"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

const testPrefix = "test:"

func setupRedisRepositoryTest(t *testing.T) (*repository.RedisRefreshTokenRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return repository.NewRedisRefreshTokenRepository(client, testPrefix), mr
}

func TestRedisRefreshTokenRepository_InsertAndFind(t *testing.T) {
	repo, mr := setupRedisRepositoryTest(t)
	ctx := context.Background()

	record := models.NewRefreshToken(42, "signed.refresh.token", time.Now().Add(time.Hour))
	require.NoError(t, repo.Insert(ctx, record))

	digest := utils.HashToken("signed.refresh.token")
	assert.True(t, mr.Exists(testPrefix+"rt:"+digest))
	assert.False(t, mr.Exists(testPrefix+"rt:signed.refresh.token"), "raw token must not be a key")

	ttl := mr.TTL(testPrefix + "rt:" + digest)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	members, err := mr.SMembers(testPrefix + "user:42")
	require.NoError(t, err)
	assert.Equal(t, []string{digest}, members)

	found, err := repo.Find(ctx, "signed.refresh.token")
	require.NoError(t, err)
	assert.Equal(t, int64(42), found.UserID)
	assert.Equal(t, "signed.refresh.token", found.Token)
	assert.WithinDuration(t, record.ExpiresAt, found.ExpiresAt, time.Second)
}

func TestRedisRefreshTokenRepository_Insert_Duplicate(t *testing.T) {
	repo, _ := setupRedisRepositoryTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, "token", time.Now().Add(time.Hour))))
	err := repo.Insert(ctx, models.NewRefreshToken(42, "token", time.Now().Add(time.Hour)))

	assert.True(t, utils.IsDuplicateError(err))
}

func TestRedisRefreshTokenRepository_Insert_AlreadyExpired(t *testing.T) {
	repo, _ := setupRedisRepositoryTest(t)

	err := repo.Insert(context.Background(), models.NewRefreshToken(42, "token", time.Now().Add(-time.Second)))

	assert.ErrorIs(t, err, utils.ErrSessionExpired)
}

func TestRedisRefreshTokenRepository_Find_ExpiredByTTL(t *testing.T) {
	repo, mr := setupRedisRepositoryTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, "token", time.Now().Add(time.Minute))))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Find(ctx, "token")
	assert.True(t, utils.IsNotFoundError(err))
}

func TestRedisRefreshTokenRepository_Delete(t *testing.T) {
	repo, mr := setupRedisRepositoryTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, "token", time.Now().Add(time.Hour))))

	removed, err := repo.Delete(ctx, "token")
	require.NoError(t, err)
	assert.True(t, removed)

	members, _ := mr.SMembers(testPrefix + "user:42")
	assert.Empty(t, members)

	removed, err = repo.Delete(ctx, "token")
	require.NoError(t, err)
	assert.False(t, removed, "second delete must report nothing removed")
}

func TestRedisRefreshTokenRepository_Delete_ConcurrentSingleWinner(t *testing.T) {
	repo, _ := setupRedisRepositoryTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, "token", time.Now().Add(time.Hour))))

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			removed, err := repo.Delete(ctx, "token")
			if err == nil && removed {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestRedisRefreshTokenRepository_DeleteByUserID(t *testing.T) {
	repo, mr := setupRedisRepositoryTest(t)
	ctx := context.Background()

	for _, token := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, token, time.Now().Add(time.Hour))))
	}
	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(7, "other", time.Now().Add(time.Hour))))

	count, err := repo.DeleteByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.False(t, mr.Exists(testPrefix+"user:42"))

	// Another user's session survives
	_, err = repo.Find(ctx, "other")
	assert.NoError(t, err)
}

func TestRedisRefreshTokenRepository_DeleteExpired_PrunesIndex(t *testing.T) {
	repo, mr := setupRedisRepositoryTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, "short", time.Now().Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(42, "long", time.Now().Add(time.Hour))))
	mr.FastForward(2 * time.Minute)

	pruned, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	members, _ := mr.SMembers(testPrefix + "user:42")
	assert.Equal(t, []string{utils.HashToken("long")}, members)
}

func TestRedisRefreshTokenRepository_StoreDown(t *testing.T) {
	repo, mr := setupRedisRepositoryTest(t)
	mr.Close()

	_, err := repo.Find(context.Background(), "token")
	assert.True(t, utils.IsStorageUnavailable(err))

	_, err = repo.Delete(context.Background(), "token")
	assert.True(t, utils.IsStorageUnavailable(err))
}
