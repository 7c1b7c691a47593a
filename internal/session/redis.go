package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

const keyPrefix = "eventdex:session:"

// RedisStore opens redis-backed sessions so conversation memory survives
// process restarts and can be shared across replicas.
type RedisStore struct {
	client   rueidis.Client
	capacity int
	ttl      time.Duration
}

// RedisConfig holds session store connection settings.
type RedisConfig struct {
	Addrs    []string
	Password string
	Capacity int
	TTL      time.Duration
}

// NewRedisStore connects to the session store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 24
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session client: %w", err)
	}

	return &RedisStore{client: client, capacity: cfg.Capacity, ttl: cfg.TTL}, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("session store ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *RedisStore) Close() {
	s.client.Close()
}

// Open returns a session handle for the given id, minting a fresh id when
// empty. The underlying list is created lazily on first append.
func (s *RedisStore) Open(id string) Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &redisSession{store: s, id: id}
}

type redisSession struct {
	store *RedisStore
	id    string
}

func (r *redisSession) ID() string { return r.id }

func (r *redisSession) key() string { return keyPrefix + r.id }

func (r *redisSession) Window(ctx context.Context, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		return nil, nil
	}

	c := r.store.client
	cmd := c.B().Lrange().Key(r.key()).Start(int64(-n)).Stop(-1).Build()
	rows, err := c.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session window: %w", err)
	}

	turns := make([]domain.ConversationTurn, 0, len(rows))
	for _, row := range rows {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(row), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (r *redisSession) Append(ctx context.Context, turns ...domain.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	c := r.store.client
	elements := make([]string, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		elements = append(elements, string(data))
	}

	cmds := []rueidis.Completed{
		c.B().Rpush().Key(r.key()).Element(elements...).Build(),
		c.B().Ltrim().Key(r.key()).Start(int64(-r.store.capacity)).Stop(-1).Build(),
	}
	if r.store.ttl > 0 {
		cmds = append(cmds, c.B().Expire().Key(r.key()).Seconds(int64(r.store.ttl.Seconds())).Build())
	}

	for _, resp := range c.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("session append: %w", err)
		}
	}
	return nil
}
