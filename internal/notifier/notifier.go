package notifier

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/LJTian/NewsDigest/internal/digest"
	"github.com/LJTian/NewsDigest/internal/metrics"
	"github.com/LJTian/NewsDigest/internal/storage"
)

// Sender 外部邮件投递服务
type Sender interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) error
}

type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// DeliveryResult 单个收件人的一次投递结果
type DeliveryResult struct {
	Email   string  `json:"email"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// RunOutcome 一次运行的整体结果
type RunOutcome string

const (
	Delivered     RunOutcome = "delivered"
	Failed        RunOutcome = "failed"
	NoSubscribers RunOutcome = "no_subscribers"
)

const (
	defaultSendTimeout = 15 * time.Second
	defaultRatePerSec  = 5
)

type Options struct {
	Timeout    time.Duration
	RatePerSec float64
}

type Notifier struct {
	sender  Sender
	from    string
	timeout time.Duration
	limiter *rate.Limiter
}

func New(sender Sender, from string, opts Options) *Notifier {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSendTimeout
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	return &Notifier{
		sender:  sender,
		from:    from,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// Deliver 给每个订阅者发送同一份完整摘要，每人只尝试一次；
// 单个收件人失败只记录结果，继续发送下一个。
// 只有渲染失败时返回 error。
func (n *Notifier) Deliver(ctx context.Context, d digest.Digest, subs []storage.Subscriber) ([]DeliveryResult, error) {
	results := make([]DeliveryResult, 0, len(subs))
	if len(subs) == 0 {
		return results, nil
	}

	body, err := d.HTML()
	if err != nil {
		return nil, err
	}
	subject := d.Subject()

	for _, sub := range subs {
		res := DeliveryResult{Email: sub.Email, Outcome: Success}
		if err := n.sendOne(ctx, sub.Email, subject, body); err != nil {
			log.Printf("deliver to %s error: %v", sub.Email, err)
			res.Outcome = Failure
			res.Error = err.Error()
		}
		metrics.DeliveriesTotal.WithLabelValues(string(res.Outcome)).Inc()
		results = append(results, res)
	}
	return results, nil
}

func (n *Notifier) sendOne(ctx context.Context, to, subject, body string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.sender.Send(sendCtx, n.from, to, subject, body)
}

// Summarize 至少一封成功即为 delivered；有订阅者但全部失败为 failed
func Summarize(results []DeliveryResult) RunOutcome {
	if len(results) == 0 {
		return NoSubscribers
	}
	for _, r := range results {
		if r.Outcome == Success {
			return Delivered
		}
	}
	return Failed
}
