package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LJTian/NewsDigest/internal/collector"
	"github.com/LJTian/NewsDigest/internal/digest"
	"github.com/LJTian/NewsDigest/internal/metrics"
	"github.com/LJTian/NewsDigest/internal/notifier"
	"github.com/LJTian/NewsDigest/internal/retry"
	"github.com/LJTian/NewsDigest/internal/storage"
)

// Aborted 运行在投递前就失败（例如读取订阅者失败）
const Aborted notifier.RunOutcome = "aborted"

// BodyLoader 读取文章正文
type BodyLoader interface {
	Load(ctx context.Context, link string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, body string) string
}

// SubscriberLister 流水线只读订阅者
type SubscriberLister interface {
	List(ctx context.Context) ([]storage.Subscriber, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, d digest.Digest, subs []storage.Subscriber) ([]notifier.DeliveryResult, error)
}

// Pipeline 一次完整运行：抓取 -> 抽取 -> 摘要 -> 组装 -> 投递，全程顺序执行
type Pipeline struct {
	Sources     []collector.Source
	Fetcher     collector.Fetcher
	Retrier     *retry.Retrier
	TopN        int
	Bodies      BodyLoader // 为 nil 时直接使用列表页简介
	Summarizer  Summarizer // 为 nil 时跳过摘要阶段
	Subscribers SubscriberLister
	Notifier    Deliverer
	Now         func() time.Time
}

type SectionReport struct {
	Source   string `json:"source"`
	Articles int    `json:"articles"`
	Error    string `json:"error,omitempty"`
}

// Report 一次运行的结果，只写日志并保留在内存中
type Report struct {
	RunID    string                    `json:"runId"`
	Started  time.Time                 `json:"started"`
	Finished time.Time                 `json:"finished"`
	Outcome  notifier.RunOutcome       `json:"outcome"`
	Sections []SectionReport           `json:"sections"`
	Results  []notifier.DeliveryResult `json:"results"`
	Error    string                    `json:"error,omitempty"`
}

func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == notifier.Success {
			n++
		}
	}
	return n
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run 单个数据源或单个收件人的失败不会中断运行；
// 只有读取订阅者或渲染邮件失败时返回 error，结果为 aborted。
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:   uuid.NewString(),
		Started: p.now(),
	}
	log.Printf("run %s: start, %d sources", report.RunID, len(p.Sources))

	perSource := make(map[string][]collector.Article, len(p.Sources))
	for _, src := range p.Sources {
		articles, err := p.collect(ctx, src)
		sec := SectionReport{Source: src.Name, Articles: len(articles)}
		if err != nil {
			sec.Error = err.Error()
		}
		report.Sections = append(report.Sections, sec)
		perSource[src.Name] = articles
	}

	d := digest.Build(report.Started, p.Sources, perSource)

	subs, err := p.Subscribers.List(ctx)
	if err != nil {
		return p.abort(report, fmt.Errorf("list subscribers: %w", err))
	}

	results, err := p.Notifier.Deliver(ctx, d, subs)
	if err != nil {
		return p.abort(report, err)
	}
	report.Results = results
	report.Outcome = notifier.Summarize(results)
	report.Finished = p.now()

	metrics.RunsTotal.WithLabelValues(string(report.Outcome)).Inc()
	metrics.RunDuration.Observe(report.Finished.Sub(report.Started).Seconds())
	log.Printf("run %s: done, outcome=%s sections=%v articles=%d delivered=%d/%d",
		report.RunID, report.Outcome, d.Sizes(), d.TotalArticles(), report.Delivered(), len(results))
	return report, nil
}

func (p *Pipeline) abort(report Report, err error) (Report, error) {
	report.Outcome = Aborted
	report.Error = err.Error()
	report.Finished = p.now()
	metrics.RunsTotal.WithLabelValues(string(Aborted)).Inc()
	log.Printf("run %s: aborted: %v", report.RunID, err)
	return report, err
}

// collect 处理一个数据源；抓取失败时该栏目为空
func (p *Pipeline) collect(ctx context.Context, src collector.Source) ([]collector.Article, error) {
	log.Printf("fetch from %s...", src.Name)

	var raw string
	fetch := func(ctx context.Context) error {
		var err error
		raw, err = p.Fetcher.Fetch(ctx, src)
		return err
	}

	var err error
	if p.Retrier != nil {
		err = p.Retrier.Do(ctx, "fetch "+src.Name, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		log.Printf("fetch %s error: %v", src.Name, err)
		metrics.FetchErrors.WithLabelValues(src.Name).Inc()
		return []collector.Article{}, err
	}

	articles := collector.Extract(raw, src, p.TopN)
	metrics.ArticlesExtracted.WithLabelValues(src.Name).Add(float64(len(articles)))

	for i := range articles {
		articles[i].Summary = p.summarize(ctx, articles[i])
	}
	log.Printf("%s done, extracted=%d", src.Name, len(articles))
	return articles, nil
}

func (p *Pipeline) summarize(ctx context.Context, a collector.Article) string {
	if p.Summarizer == nil {
		return a.Seed
	}

	body := ""
	if p.Bodies != nil {
		text, err := p.Bodies.Load(ctx, a.Link)
		if err != nil {
			log.Printf("load body %s error: %v", a.Link, err)
		} else {
			body = text
		}
	}
	if body == "" {
		body = a.Seed
	}
	return p.Summarizer.Summarize(ctx, body)
}

// Retryable 页面抓取的重试判定：运行被取消时不再重试
func Retryable(err error) bool {
	return !errors.Is(err, context.Canceled)
}
