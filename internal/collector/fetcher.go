package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultFetchTimeout = 15 * time.Second
	fetchMaxBodyBytes   = 4 << 20 // 4MB，防止超大页面占满内存
	userAgent           = "NewsDigestBot/1.0"
)

// ErrRenderTimeout 渲染页面在限定时间内没有出现 ready 元素
var ErrRenderTimeout = errors.New("render timeout")

// Fetcher 抽象“拿到某个数据源原始 HTML”这一步
type Fetcher interface {
	Fetch(ctx context.Context, src Source) (string, error)
}

// FetchError 单个数据源抓取失败；只影响该数据源对应的栏目
type FetchError struct {
	Source string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// HTTPFetcher 通过一次带超时的 GET 获取页面（不执行脚本）
type HTTPFetcher struct {
	Timeout time.Duration
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src Source) (string, error) {
	body, err := f.Get(ctx, src.URL)
	if err != nil {
		return "", &FetchError{Source: src.Name, Cause: err}
	}
	return body, nil
}

// Get 抓取任意 URL，正文加载器也复用这里
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	// 每次抓取新建 collector，避免 visited 记录导致同一 URL 第二天被跳过
	// ParseHTTPErrorResponse：colly 默认把 >= 203 都当错误，这里改为自己按 2xx 判断
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxBodySize(fetchMaxBodyBytes),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(timeout)

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(rawURL); err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("unexpected status %d", status)
	}
	return string(body), nil
}

// Router 根据数据源是否需要渲染选择抓取方式
type Router struct {
	Direct   Fetcher
	Rendered Fetcher
}

func (r *Router) Fetch(ctx context.Context, src Source) (string, error) {
	if src.Render {
		if r.Rendered == nil {
			return "", &FetchError{Source: src.Name, Cause: errors.New("no browser renderer configured")}
		}
		return r.Rendered.Fetch(ctx, src)
	}
	if r.Direct == nil {
		return "", &FetchError{Source: src.Name, Cause: errors.New("no http fetcher configured")}
	}
	return r.Direct.Fetch(ctx, src)
}
