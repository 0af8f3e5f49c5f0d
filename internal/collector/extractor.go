package collector

import (
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTopN 每个栏目最多保留的条数（按页面顺序截断，不做相关性排序）
const DefaultTopN = 5

// Extract 按数据源的结构描述从原始页面中取出文章。
// 选择器一条都匹配不上时返回空切片而不是错误：调用方应视为“今天没有新闻”。
func Extract(raw string, src Source, limit int) []Article {
	if limit <= 0 {
		limit = DefaultTopN
	}
	if src.Feed {
		return extractFeed(raw, src, limit)
	}

	out := make([]Article, 0, limit)
	if src.Profile == nil {
		log.Printf("extract %s: no profile configured", src.Name)
		return out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		log.Printf("extract %s: parse document: %v", src.Name, err)
		return out
	}

	base, _ := url.Parse(src.URL)
	seeder, _ := src.Profile.(Seeder)

	src.Profile.Candidates(doc).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := cleanText(src.Profile.Title(item))
		if title == "" {
			return true
		}
		link, ok := ResolveLink(base, src.Profile.Link(item))
		if !ok {
			return true
		}

		a := Article{Title: title, Link: link, Source: src.Name}
		if seeder != nil {
			a.Seed = cleanText(seeder.Seed(item))
		}
		out = append(out, a)
		return len(out) < limit
	})

	if len(out) == 0 {
		log.Printf("extract %s got 0 items, markup may have changed", src.Name)
	}
	return out
}
