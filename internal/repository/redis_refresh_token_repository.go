package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// redisRecord is the JSON value stored under a refresh token key.
type redisRecord struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisRefreshTokenRepository stores refresh token records in Redis.
//
// Keys:
//   - <prefix>rt:<sha256(token)> holds the JSON record with a TTL equal to the remaining lifetime
//   - <prefix>user:<id> is a set of the user's token digests, used by logout-all
type RedisRefreshTokenRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRefreshTokenRepository creates a Redis backed RefreshTokenRepository.
//
// Parameters:
//   - client: The Redis client
//   - prefix: Namespace prepended to every key
//
// Returns:
//   - An implementation of the RefreshTokenRepository interface
func NewRedisRefreshTokenRepository(client redis.UniversalClient, prefix string) *RedisRefreshTokenRepository {
	return &RedisRefreshTokenRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisRefreshTokenRepository) tokenKey(digest string) string {
	return r.prefix + "rt:" + digest
}

func (r *RedisRefreshTokenRepository) userKey(userID int64) string {
	return r.prefix + "user:" + strconv.FormatInt(userID, 10)
}

// storageError maps a Redis failure to StorageUnavailable.
func storageError(op string, err error) error {
	return utils.NewStorageUnavailableError(fmt.Errorf("%s: %w", op, err))
}

// Insert stores the record with a TTL matching its expiry.
func (r *RedisRefreshTokenRepository) Insert(ctx context.Context, record *models.RefreshToken) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now()
	}

	ttl := record.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return utils.NewSessionExpiredError()
	}

	value, err := json.Marshal(redisRecord{
		UserID:    record.UserID,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode refresh token record: %w", err)
	}

	digest := utils.HashToken(record.Token)
	key := r.tokenKey(digest)

	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return storageError("failed to insert refresh token", err)
	}
	if !ok {
		return utils.NewDuplicateError("RefreshToken", constants.ColumnTokenHash, "[REDACTED]")
	}

	if err := r.client.SAdd(ctx, r.userKey(record.UserID), digest).Err(); err != nil {
		return storageError("failed to index refresh token", err)
	}

	log.Debug().
		Int64(constants.ColumnUserID, record.UserID).
		Dur("ttl", ttl).
		Msg("Refresh token stored in redis")

	return nil
}

// Find returns the record stored for token.
func (r *RedisRefreshTokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	value, err := r.client.Get(ctx, r.tokenKey(utils.HashToken(token))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, utils.NewNotFoundError("RefreshToken", constants.ColumnTokenHash)
		}
		return nil, storageError("failed to find refresh token", err)
	}

	var stored redisRecord
	if err := json.Unmarshal(value, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token record: %w", err)
	}

	return &models.RefreshToken{
		UserID:    stored.UserID,
		Token:     token,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// Delete removes the record for token.
// The integer reply of DEL decides the removed flag; the GET before it only
// finds the owner so the digest can be dropped from the user's set.
func (r *RedisRefreshTokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	digest := utils.HashToken(token)
	key := r.tokenKey(digest)

	var userID int64
	value, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return false, storageError("failed to read refresh token", err)
	default:
		var stored redisRecord
		if json.Unmarshal(value, &stored) == nil {
			userID = stored.UserID
		}
	}

	removed, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, storageError("failed to delete refresh token", err)
	}

	if removed > 0 && userID != 0 {
		if err := r.client.SRem(ctx, r.userKey(userID), digest).Err(); err != nil {
			log.Warn().Err(err).Int64(constants.ColumnUserID, userID).Msg("Failed to unindex refresh token")
		}
	}

	return removed > 0, nil
}

// DeleteByUserID removes every record listed in the user's set.
func (r *RedisRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	setKey := r.userKey(userID)

	digests, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, storageError("failed to list user refresh tokens", err)
	}

	var removed int64
	if len(digests) > 0 {
		keys := make([]string, 0, len(digests))
		for _, digest := range digests {
			keys = append(keys, r.tokenKey(digest))
		}
		removed, err = r.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, storageError("failed to delete user refresh tokens", err)
		}
	}

	if err := r.client.Del(ctx, setKey).Err(); err != nil {
		return removed, storageError("failed to delete user token index", err)
	}

	log.Info().
		Int64(constants.ColumnUserID, userID).
		Int64("sessions_deleted", removed).
		Msg("All user refresh tokens deleted")

	return removed, nil
}

// DeleteExpired prunes digests whose record already expired out of Redis from
// the user sets. Records themselves expire through their TTL.
func (r *RedisRefreshTokenRepository) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64
	pattern := r.prefix + "user:*"

	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		if !strings.HasPrefix(setKey, r.prefix+"user:") {
			continue
		}

		digests, err := r.client.SMembers(ctx, setKey).Result()
		if err != nil {
			return pruned, storageError("failed to list user refresh tokens", err)
		}

		for _, digest := range digests {
			exists, err := r.client.Exists(ctx, r.tokenKey(digest)).Result()
			if err != nil {
				return pruned, storageError("failed to check refresh token", err)
			}
			if exists == 0 {
				if err := r.client.SRem(ctx, setKey, digest).Err(); err != nil {
					return pruned, storageError("failed to prune refresh token", err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, storageError("failed to scan user token index", err)
	}

	if pruned > 0 {
		log.Info().
			Int64("tokens_pruned", pruned).
			Msg("Expired refresh token digests pruned")
	}

	return pruned, nil
}

var _ RefreshTokenRepository = (*RedisRefreshTokenRepository)(nil)
