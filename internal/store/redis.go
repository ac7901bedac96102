package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Proctor/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxTxRetries = 16

var ErrTxContention = errors.New("redis: too much contention")

// RedisStore keeps each session as one JSON document and the insertion order
// in a list. Mutations use WATCH/MULTI so one id never sees torn writes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) sessionKey(id domain.SessionID) string {
	return r.prefix + "session:" + string(id)
}

func (r *RedisStore) orderKey() string { return r.prefix + "sessions" }

// Ping checks connectivity; used at startup.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Create(ctx context.Context, s *domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.ID, err)
	}
	key := r.sessionKey(s.ID)
	return r.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("create %s: duplicate id", s.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.RPush(ctx, r.orderKey(), string(s.ID))
			return nil
		})
		return err
	})
}

func (r *RedisStore) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return decodeSession(data)
}

func (r *RedisStore) List(ctx context.Context) ([]*domain.Session, error) {
	ids, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Session{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(domain.SessionID(id))
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	out := make([]*domain.Session, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// deleted between LRANGE and MGET
			continue
		}
		s, err := decodeSession([]byte(str))
		if err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("sid", ids[i]).Msg("skipping undecodable session")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisStore) Delete(ctx context.Context, id domain.SessionID) (bool, error) {
	key := r.sessionKey(id)
	existed := false
	err := r.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		existed = n > 0
		if !existed {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.LRem(ctx, r.orderKey(), 0, string(id))
			return nil
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	return existed, nil
}

func (r *RedisStore) Update(ctx context.Context, id domain.SessionID, fn func(*domain.Session) error) (*domain.Session, error) {
	key := r.sessionKey(id)
	var out *domain.Session
	err := r.watch(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		prev, err := decodeSession(data)
		if err != nil {
			return err
		}
		next := prev.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := checkUpdate(prev, next); err != nil {
			return err
		}
		enc, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, enc, 0)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// watch runs fn in an optimistic transaction on key, retrying when another
// writer got there first.
func (r *RedisStore) watch(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug().Str("module", "store.redis").Str("key", key).Int("attempt", i+1).Msg("tx conflict, retrying")
			continue
		}
		return err
	}
	return ErrTxContention
}

func decodeSession(data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Events == nil {
		s.Events = []domain.SessionEvent{}
	}
	return &s, nil
}
