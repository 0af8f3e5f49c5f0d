package collector

import (
	"html"
	"log"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// RSS 简介里常带 <p>/<img> 等标签，只保留纯文本
var seedPolicy = bluemonday.StrictPolicy()

func extractFeed(raw string, src Source, limit int) []Article {
	out := make([]Article, 0, limit)

	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		log.Printf("extract %s: parse feed: %v", src.Name, err)
		return out
	}

	base, _ := url.Parse(src.URL)
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		title := cleanText(item.Title)
		if title == "" {
			continue
		}
		link, ok := ResolveLink(base, item.Link)
		if !ok {
			continue
		}

		seed := item.Description
		if seed == "" {
			seed = item.Content
		}
		out = append(out, Article{
			Title:  title,
			Link:   link,
			Seed:   StripHTML(seed),
			Source: src.Name,
		})
	}

	if len(out) == 0 {
		log.Printf("extract %s got 0 feed items", src.Name)
	}
	return out
}

// StripHTML 去掉标签并还原实体，得到单行纯文本
func StripHTML(s string) string {
	return cleanText(html.UnescapeString(seedPolicy.Sanitize(s)))
}
