package session

import (
	"context"
	"strconv"
	"time"

	"log/slog"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tracker:session:"

type redisStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewRedisStore constructs a Redis backed session store.
func NewRedisStore(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (Store, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &redisStore{client: client, logger: logger, ttl: ttl}, nil
}

func (s *redisStore) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	key := redisKeyPrefix + token
	if err := s.client.Set(ctx, key, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisStore) Resolve(ctx context.Context, token string) (int64, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrNoSession
		}
		return 0, err
	}
	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// A corrupt record is unusable; treat it as absent.
		s.logger.Warn("discarding malformed session record", "error", err)
		_ = s.client.Del(ctx, redisKeyPrefix+token).Err()
		return 0, ErrNoSession
	}
	return userID, nil
}

func (s *redisStore) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, redisKeyPrefix+token).Err()
}

func (s *redisStore) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}
