package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

const (
	redisSubscribersHash  = "newsdigest:subscribers"
	redisSubscribersOrder = "newsdigest:subscribers:order"
)

// addSubscriberScript 在一个脚本里完成查重、记录顺序和写入数据。
// 先 RPUSH 再 HSET：RPUSH 失败时什么都没写；HSET 失败时撤回刚追加的顺序。
// 返回 1 表示新增，0 表示已存在。
var addSubscriberScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
local res = redis.pcall('HSET', KEYS[1], ARGV[1], ARGV[2])
if type(res) == 'table' and res.err then
  redis.call('RPOP', KEYS[2])
  return res
end
return 1
`)

// RedisStore 只用 Redis 保存订阅者：hash 存数据，list 记录订阅顺序
type RedisStore struct {
	rdb *redis.Client
}

var _ SubscriberStore = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Add(ctx context.Context, email string, prefs []string) error {
	sub := Subscriber{
		Email:       NormalizeEmail(email),
		Preferences: datatypes.JSONSlice[string](normalizePrefs(prefs)),
		CreatedAt:   time.Now().UTC(),
	}
	bs, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscriber: %w", err)
	}

	n, err := addSubscriberScript.Run(ctx, s.rdb,
		[]string{redisSubscribersHash, redisSubscribersOrder}, sub.Email, bs).Int()
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	if n == 0 {
		return ErrSubscriberExists
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Subscriber, error) {
	emails, err := s.rdb.LRange(ctx, redisSubscribersOrder, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	if len(emails) == 0 {
		return []Subscriber{}, nil
	}

	values, err := s.rdb.HMGet(ctx, redisSubscribersHash, emails...).Result()
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	out := make([]Subscriber, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if _, dup := seen[emails[i]]; dup {
			continue
		}
		seen[emails[i]] = struct{}{}

		var sub Subscriber
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("decode subscriber %s: %w", emails[i], err)
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *RedisStore) Remove(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.HDel(ctx, redisSubscribersHash, email)
		pipe.LRem(ctx, redisSubscribersOrder, 0, email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if del.Val() == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
