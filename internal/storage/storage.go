package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriberExists   = errors.New("subscriber already exists")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// Subscriber 邮件订阅者；Email 统一小写后作为唯一键
type Subscriber struct {
	ID          uint                        `gorm:"primaryKey" json:"-"`
	Email       string                      `gorm:"size:320;uniqueIndex" json:"email"`
	Preferences datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"preferences"`

	CreatedAt time.Time `json:"createdAt"`
}

// SubscriberStore 流水线只用到 List；Add / Remove 给 HTTP 接口使用
type SubscriberStore interface {
	Add(ctx context.Context, email string, prefs []string) error
	List(ctx context.Context) ([]Subscriber, error)
	Remove(ctx context.Context, email string) error
}

const (
	subscribersCacheKey = "newsdigest:subscribers:list"
	listCacheTTL        = 5 * time.Minute
)

// Store Postgres 持久化，Redis 仅做订阅者列表缓存
type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

var _ SubscriberStore = (*Store)(nil)

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Subscriber{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// 缓存不可用时退化为直连数据库
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// NormalizeEmail 去空白并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Add 以 email 为幂等键插入；已存在返回 ErrSubscriberExists
func (s *Store) Add(ctx context.Context, email string, prefs []string) error {
	sub := &Subscriber{
		Email:       NormalizeEmail(email),
		Preferences: datatypes.JSONSlice[string](normalizePrefs(prefs)),
	}

	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(sub)
	if res.Error != nil {
		return fmt.Errorf("insert subscriber: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubscriberExists
	}
	s.invalidate(ctx)
	return nil
}

// List 按订阅时间返回全部订阅者，结果缓存 5 分钟
func (s *Store) List(ctx context.Context) ([]Subscriber, error) {
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, subscribersCacheKey).Bytes(); err == nil {
			var cached []Subscriber
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Subscriber
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, subscribersCacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

func (s *Store) Remove(ctx context.Context, email string) error {
	res := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Delete(&Subscriber{})
	if res.Error != nil {
		return fmt.Errorf("delete subscriber: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubscriberNotFound
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) invalidate(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, subscribersCacheKey).Err(); err != nil {
		log.Printf("warn: drop subscriber cache: %v", err)
	}
}

// normalizePrefs 小写、去重、保持顺序
func normalizePrefs(prefs []string) []string {
	out := make([]string, 0, len(prefs))
	seen := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
