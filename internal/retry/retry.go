package retry

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

type Config struct {
	// MaxAttempts 为 1 时只尝试一次，不做重试
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

// ErrorClassifier 返回 true 表示该错误值得重试
type ErrorClassifier func(error) bool

type Retrier struct {
	config      Config
	isRetryable ErrorClassifier
}

func New(config Config, classifier ErrorClassifier) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	return &Retrier{config: config, isRetryable: classifier}
}

func (r *Retrier) Attempts() int {
	return r.config.MaxAttempts
}

// Do 执行 op，失败后按指数退避等待再试；等待期间可被 ctx 取消
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				log.Printf("%s succeeded after %d attempts", name, attempt)
			}
			return nil
		}

		retryable := r.isRetryable == nil || r.isRetryable(lastErr)
		if attempt == r.config.MaxAttempts || !retryable {
			break
		}

		delay := r.delay(attempt)
		log.Printf("%s attempt %d/%d failed: %v, retry in %s", name, attempt, r.config.MaxAttempts, lastErr, delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	if r.config.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, r.config.MaxAttempts, lastErr)
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	// 抖动，避免多个源同时重试
	d *= 1.0 + (rand.Float64()-0.5)*r.config.JitterFactor
	return time.Duration(d)
}
