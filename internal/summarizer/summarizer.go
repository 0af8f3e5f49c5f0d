package summarizer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/NewsDigest/internal/metrics"
)

// NotAvailable 摘要不可用时的固定文案，邮件里原样展示
const NotAvailable = "Summary not available."

const (
	defaultMinChars  = 200
	defaultMaxTokens = 150
	defaultTimeout   = 20 * time.Second
	maxPromptRunes   = 4000
)

// Generator 外部文本生成服务
type Generator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Options struct {
	MinChars  int
	MaxTokens int
	Timeout   time.Duration
}

// Summarizer 摘要阶段；失败只降级为固定文案，不会中断整次运行
type Summarizer struct {
	gen  Generator
	opts Options
}

func New(gen Generator, opts Options) *Summarizer {
	if opts.MinChars <= 0 {
		opts.MinChars = defaultMinChars
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Summarizer{gen: gen, opts: opts}
}

// Summarize 每篇文章最多调用一次外部服务，不重试
func (s *Summarizer) Summarize(ctx context.Context, body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) < s.opts.MinChars {
		return NotAvailable
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	out, err := s.gen.Complete(callCtx, buildPrompt(body), s.opts.MaxTokens)
	if err != nil {
		log.Printf("summarize error: %v", err)
		metrics.SummariesDegraded.Inc()
		return NotAvailable
	}
	out = strings.TrimSpace(out)
	if out == "" {
		log.Printf("summarize: empty completion")
		metrics.SummariesDegraded.Inc()
		return NotAvailable
	}
	return out
}

func buildPrompt(body string) string {
	return fmt.Sprintf("Summarize the following news article in 2-3 sentences:\n\n%s", truncateRunes(body, maxPromptRunes))
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
