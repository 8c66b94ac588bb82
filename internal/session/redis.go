package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artur/pogoda-bot/internal/weather"
)

type pending struct {
	Gen        uint64              `json:"gen"`
	Candidates []weather.Candidate `json:"candidates"`
}

// Redis - сессии в Redis, общие для нескольких экземпляров бота.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis подключается по URL (например, redis://:pass@host:6379/0).
// Если prefix пустой, используется "pogoda:sess:".
func NewRedis(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*Redis, error) {
	if prefix == "" {
		prefix = "pogoda:sess:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) key(kind string, userID int64) string {
	return r.prefix + kind + ":" + strconv.FormatInt(userID, 10)
}

func (r *Redis) Begin(ctx context.Context, userID int64, query string) (uint64, error) {
	genKey := r.key("gen", userID)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, r.ttl)
		pipe.Set(ctx, r.key("query", userID), query, r.ttl)
		pipe.Del(ctx, r.key("pending", userID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to begin session: %w", err)
	}
	return uint64(incr.Val()), nil
}

func (r *Redis) Offer(ctx context.Context, userID int64, gen uint64, candidates []weather.Candidate) (bool, error) {
	genKey := r.key("gen", userID)

	data, err := json.Marshal(pending{Gen: gen, Candidates: candidates})
	if err != nil {
		return false, fmt.Errorf("failed to encode candidates: %w", err)
	}

	offered := false
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key("pending", userID), data, r.ttl)
			return nil
		})
		offered = err == nil
		return err
	}, genKey)

	if errors.Is(err, redis.TxFailedErr) {
		// Пока писали, пришёл новый запрос.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to offer candidates: %w", err)
	}
	return offered, nil
}

func (r *Redis) Take(ctx context.Context, userID int64, idx int) (weather.Candidate, bool, error) {
	key := r.key("pending", userID)

	var (
		chosen weather.Candidate
		found  bool
	)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var p pending
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("failed to decode candidates: %w", err)
		}
		if idx < 0 || idx >= len(p.Candidates) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		chosen, found = p.Candidates[idx], true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return weather.Candidate{}, false, nil
	}
	if err != nil {
		return weather.Candidate{}, false, fmt.Errorf("failed to take candidate: %w", err)
	}
	return chosen, found, nil
}

func (r *Redis) LastQuery(ctx context.Context, userID int64) (string, error) {
	q, err := r.rdb.Get(ctx, r.key("query", userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last query: %w", err)
	}
	return q, nil
}

// Close закрывает клиент Redis.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
