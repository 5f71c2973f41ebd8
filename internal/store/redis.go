package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Jair0305/battleship/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "battleship:"
	defaultRetries   = 8
)

// Redis is a KV on a Redis server. Update WATCHes every key it reads and
// commits the buffered writes in one MULTI/EXEC, retrying when another
// writer touched a watched key.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	retries int
}

// NewRedis wraps an existing client. An empty prefix selects the default.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix, retries: defaultRetries}
}

// OpenRedis parses a redis:// URL, connects and pings the server.
func OpenRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(rdb, prefix), nil
}

// Client exposes the underlying client so publishers can share the pool.
func (r *Redis) Client() *redis.Client { return r.rdb }

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func (r *Redis) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < r.retries; attempt++ {
		err := r.rdb.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTx{r: r, cmd: rtx, watch: rtx}
			if err := fn(tx); err != nil {
				return err
			}
			if len(tx.buf.ops) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				r.apply(ctx, pipe, tx.buf.ops)
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("store_tx_retry", zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	obslog.L().Warn("store_tx_conflict", zap.Int("retries", r.retries))
	return ErrConflict
}

func (r *Redis) View(ctx context.Context, fn func(tx Tx) error) error {
	tx := &redisTx{r: r, cmd: r.rdb, readOnly: true}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.err
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) apply(ctx context.Context, pipe redis.Pipeliner, ops []op) {
	for _, o := range ops {
		k := r.key(o.key)
		switch o.kind {
		case opSet:
			pipe.Set(ctx, k, o.value, 0)
		case opDelete:
			pipe.Del(ctx, k)
		case opAdd:
			pipe.SAdd(ctx, k, o.member)
		case opRemove:
			pipe.SRem(ctx, k, o.member)
		case opScored:
			pipe.ZAdd(ctx, k, redis.Z{Score: o.score, Member: o.member})
		}
	}
}

type redisTx struct {
	r        *Redis
	cmd      redis.Cmdable
	watch    *redis.Tx
	watched  map[string]bool
	buf      writeBuffer
	readOnly bool
	err      error
}

// observe adds key to the WATCH list before its first read.
func (t *redisTx) observe(ctx context.Context, key string) error {
	if t.watch == nil {
		return nil
	}
	if t.watched == nil {
		t.watched = map[string]bool{}
	}
	if t.watched[key] {
		return nil
	}
	if err := t.watch.Watch(ctx, t.r.key(key)).Err(); err != nil {
		return err
	}
	t.watched[key] = true
	return nil
}

func (t *redisTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, found, touched := t.buf.value(key); touched {
		return append([]byte(nil), v...), found, nil
	}
	if err := t.observe(ctx, key); err != nil {
		return nil, false, err
	}
	raw, err := t.cmd.Get(ctx, t.r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (t *redisTx) Members(ctx context.Context, key string) ([]string, error) {
	if err := t.observe(ctx, key); err != nil {
		return nil, err
	}
	base, err := t.cmd.SMembers(ctx, t.r.key(key)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	return t.buf.members(key, base), nil
}

func (t *redisTx) RangeSince(ctx context.Context, key string, min float64) ([]string, error) {
	if err := t.observe(ctx, key); err != nil {
		return nil, err
	}
	lo := "-inf"
	if !math.IsInf(min, -1) {
		lo = strconv.FormatFloat(min, 'f', -1, 64)
	}
	zs, err := t.cmd.ZRangeByScoreWithScores(ctx, t.r.key(key), &redis.ZRangeBy{Min: lo, Max: "+inf"}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	base := make([]scored, 0, len(zs))
	for _, z := range zs {
		m, _ := z.Member.(string)
		base = append(base, scored{member: m, score: z.Score})
	}
	return t.buf.scored(key, base, min), nil
}

func (t *redisTx) Set(key string, value []byte) {
	if t.guard() {
		t.buf.Set(key, value)
	}
}

func (t *redisTx) Delete(key string) {
	if t.guard() {
		t.buf.Delete(key)
	}
}

func (t *redisTx) AddMember(key, member string) {
	if t.guard() {
		t.buf.AddMember(key, member)
	}
}

func (t *redisTx) RemoveMember(key, member string) {
	if t.guard() {
		t.buf.RemoveMember(key, member)
	}
}

func (t *redisTx) AddScored(key, member string, score float64) {
	if t.guard() {
		t.buf.AddScored(key, member, score)
	}
}

func (t *redisTx) guard() bool {
	if t.readOnly {
		t.err = errReadOnly
		return false
	}
	return true
}
