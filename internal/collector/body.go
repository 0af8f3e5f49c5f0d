package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

var errEmptyBody = errors.New("empty article body")

// BodyLoader 打开文章详情页并用 readability 提取正文，供摘要阶段使用
type BodyLoader struct {
	fetcher *HTTPFetcher
}

func NewBodyLoader(fetcher *HTTPFetcher) *BodyLoader {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(0)
	}
	return &BodyLoader{fetcher: fetcher}
}

func (l *BodyLoader) Load(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}

	raw, err := l.fetcher.Get(ctx, link)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", link, err)
	}

	article, err := readability.FromReader(strings.NewReader(raw), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability %s: %w", link, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", errEmptyBody
	}
	return text, nil
}
