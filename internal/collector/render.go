package collector

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultRenderTimeout = 30 * time.Second

// BrowserFetcher 用 headless Chrome 渲染需要执行脚本的页面。
// 每次 Fetch 独立启动、独立释放一个浏览器进程，不跨阶段持有。
type BrowserFetcher struct {
	Timeout time.Duration
	// ExecPath 为空时由 chromedp 自行查找 Chrome
	ExecPath string
}

func NewBrowserFetcher(timeout time.Duration) *BrowserFetcher {
	return &BrowserFetcher{Timeout: timeout}
}

func (b *BrowserFetcher) Fetch(ctx context.Context, src Source) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.UserAgent(userAgent),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	// 两个 cancel 都 defer，成功、超时、出错都会回收 Chrome 进程
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	ready := src.ReadySelector
	if ready == "" {
		ready = "body"
	}

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(src.URL),
		chromedp.WaitReady(ready, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			log.Printf("render %s: %q not ready after %s", src.Name, ready, timeout)
			return "", &FetchError{Source: src.Name, Cause: ErrRenderTimeout}
		}
		return "", &FetchError{Source: src.Name, Cause: err}
	}
	return html, nil
}
