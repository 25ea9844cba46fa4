package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed [Store]. Each session row lives under its
// token key with a TTL matching the expiry, plus a per-user index set so a
// user's sessions can be purged in one call. The index carries no TTL; it is
// pruned on every delete, and purging tolerates members whose rows already
// expired.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. prefix namespaces all keys; empty
// means "ka".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ka"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) tokenKey(token string) string {
	return s.prefix + ":t:" + token
}

func (s *RedisStore) userKey(userID int64) string {
	return s.prefix + ":u:" + strconv.FormatInt(userID, 10)
}

// Insert persists the row and records the token in the owner's index.
func (s *RedisStore) Insert(ctx context.Context, sess *Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: session already expired at insert", ErrStoreUnavailable)
	}

	data := Encode(sess)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(sess.Token), data, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.Token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindByToken returns the stored row, (nil, nil) for unknown tokens, and a
// wrapped [ErrStoreUnavailable] when Redis cannot answer.
func (s *RedisStore) FindByToken(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Corrupt rows fail closed: the token is unusable, not absent.
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	sess.Token = token
	return sess, nil
}

// DeleteByToken removes the row and its index entry, reporting whether a row
// actually existed.
func (s *RedisStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var userID int64
	if sess, decErr := Decode(data); decErr == nil {
		userID = sess.UserID
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.tokenKey(token))
		if userID != 0 {
			pipe.SRem(ctx, s.userKey(userID), token)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return deleted.Val() > 0, nil
}

// DeleteByUser removes every session of userID, returning the number of live
// rows removed. Index members whose rows already expired count as zero.
func (s *RedisStore) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	tokens, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, s.tokenKey(token))
	}

	removed, err := s.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.redis.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return int(removed), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(removed), nil
}
