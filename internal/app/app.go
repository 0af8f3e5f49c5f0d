package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/NewsDigest/internal/collector"
	"github.com/LJTian/NewsDigest/internal/config"
	"github.com/LJTian/NewsDigest/internal/notifier"
	"github.com/LJTian/NewsDigest/internal/pipeline"
	"github.com/LJTian/NewsDigest/internal/retry"
	"github.com/LJTian/NewsDigest/internal/storage"
	"github.com/LJTian/NewsDigest/internal/summarizer"
)

// NewSubscriberStore 按 SUBSCRIBER_BACKEND 选择存储
func NewSubscriberStore(cfg *config.Config) (storage.SubscriberStore, error) {
	switch cfg.SubscriberBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return storage.NewRedisStore(rdb), nil
	default:
		return storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	}
}

// NewPipeline 组装一次运行需要的全部组件
func NewPipeline(cfg *config.Config, store storage.SubscriberStore) (*pipeline.Pipeline, error) {
	sources, err := collector.SourcesFromConfig(cfg.Sources)
	if err != nil {
		return nil, err
	}

	httpFetcher := collector.NewHTTPFetcher(cfg.FetchTimeout)
	browser := collector.NewBrowserFetcher(cfg.RenderTimeout)
	browser.ExecPath = cfg.ChromePath

	sum, err := summarizer.FromConfig(cfg.Summarizer)
	if err != nil {
		return nil, err
	}

	sender := &notifier.SMTPSender{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.User,
		Password: cfg.Mail.Password,
		Timeout:  cfg.Mail.Timeout,
	}

	retrier := retry.New(retry.Config{
		MaxAttempts:  cfg.FetchRetryAttempts,
		BaseDelay:    cfg.FetchRetryBaseDelay,
		JitterFactor: 0.2,
	}, pipeline.Retryable)

	p := &pipeline.Pipeline{
		Sources:     sources,
		Fetcher:     &collector.Router{Direct: httpFetcher, Rendered: browser},
		Retrier:     retrier,
		TopN:        cfg.TopN,
		Subscribers: store,
		Notifier: notifier.New(sender, cfg.Mail.From, notifier.Options{
			Timeout:    cfg.Mail.Timeout,
			RatePerSec: cfg.Mail.RatePerSec,
		}),
	}
	// 接口变量不能直接赋 nil 指针，否则判空失效
	if sum != nil {
		p.Summarizer = sum
		p.Bodies = collector.NewBodyLoader(httpFetcher)
	}

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	log.Printf("pipeline ready: sources=%v top_n=%d summarizer=%t retry_attempts=%d",
		names, cfg.TopN, sum != nil, retrier.Attempts())
	return p, nil
}
