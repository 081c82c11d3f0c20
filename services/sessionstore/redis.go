package sessionstore

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/play"
)

const (
	keyPrefix  = "quiz:session:"
	maxRetries = 10
)

var ErrConflict = errors.New("session updated concurrently")

// RedisStore keeps each session as a JSON string under `quiz:session:<id>`, expiring after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ play.SessionStore = (*RedisStore)(nil) // interface compliance check

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Ping checks that redis is reachable.
func (st *RedisStore) Ping(ctx context.Context) error {
	if err := st.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis health check failed")
	}
	return nil
}

func (st *RedisStore) Create(ctx context.Context, s play.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "serializing session")
	}
	ok, err := st.client.SetNX(ctx, key(s.ID), data, st.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "saving session")
	}
	if !ok {
		return errors.Errorf("session %s already exists", s.ID)
	}
	return nil
}

func (st *RedisStore) get(ctx context.Context, getter redis.Cmdable, id string) (play.Session, error) {
	data, err := getter.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return play.Session{}, play.ErrSessionNotFound
		}
		return play.Session{}, errors.Wrap(err, "getting session")
	}
	var s play.Session
	if err = json.Unmarshal(data, &s); err != nil {
		return play.Session{}, errors.Wrap(err, "parsing session")
	}
	return s, nil
}

func (st *RedisStore) Get(ctx context.Context, id string) (play.Session, error) {
	return st.get(ctx, st.client, id)
}

// Update runs fn under WATCH; it is retried when another client changed the session in between.
func (st *RedisStore) Update(ctx context.Context, id string, fn func(*play.Session) error) (play.Session, error) {
	var res play.Session
	txf := func(tx *redis.Tx) error {
		s, err := st.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err = fn(&s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return errors.Wrap(err, "serializing session")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(id), data, st.ttl)
			return nil
		})
		if err == nil {
			res = s
		}
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := st.client.Watch(ctx, txf, key(id))
		if err == redis.TxFailedErr {
			continue
		}
		return res, err
	}
	return play.Session{}, ErrConflict
}

func (st *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := st.client.Del(ctx, key(id)).Result()
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return play.ErrSessionNotFound
	}
	return nil
}

func (st *RedisStore) Close() error {
	return st.client.Close()
}
