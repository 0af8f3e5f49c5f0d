package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Profile 描述某个站点的页面结构：先定位文章容器，再在容器内找标题与链接。
// 新增站点只需实现该接口，提取逻辑本身不按站点分支。
type Profile interface {
	Candidates(doc *goquery.Document) *goquery.Selection
	Title(item *goquery.Selection) string
	Link(item *goquery.Selection) string
}

// Seeder 可选能力：从容器内取一段简介
type Seeder interface {
	Seed(item *goquery.Selection) string
}

// SelectorProfile 由配置文件给出的 CSS 选择器组成；Title/Link 选择器为空时作用于容器本身
type SelectorProfile struct {
	ItemSelector  string
	TitleSelector string
	LinkSelector  string
	SeedSelector  string
}

func (p SelectorProfile) Candidates(doc *goquery.Document) *goquery.Selection {
	return doc.Find(p.ItemSelector)
}

func (p SelectorProfile) Title(item *goquery.Selection) string {
	return within(item, p.TitleSelector).Text()
}

func (p SelectorProfile) Link(item *goquery.Selection) string {
	href, _ := within(item, p.LinkSelector).Attr("href")
	return href
}

func (p SelectorProfile) Seed(item *goquery.Selection) string {
	if p.SeedSelector == "" {
		return ""
	}
	return within(item, p.SeedSelector).Text()
}

func within(item *goquery.Selection, selector string) *goquery.Selection {
	if strings.TrimSpace(selector) == "" {
		return item
	}
	return item.Find(selector).First()
}

// YahooFinance 财经新闻流，列表由脚本填充，需要渲染
type YahooFinance struct{}

func (YahooFinance) Candidates(doc *goquery.Document) *goquery.Selection {
	return doc.Find("li.stream-item, li.js-stream-content")
}

func (YahooFinance) Title(item *goquery.Selection) string {
	return item.Find("h3").First().Text()
}

func (YahooFinance) Link(item *goquery.Selection) string {
	// 标题链接优先，缩略图链接兜底
	if href, ok := item.Find("h3 a[href]").First().Attr("href"); ok {
		return href
	}
	href, _ := item.Find("a.subtle-link[href], a[href]").First().Attr("href")
	return href
}

func (YahooFinance) Seed(item *goquery.Selection) string {
	return item.Find("p").First().Text()
}

// TechCrunch 科技新闻列表页（服务端直出）
type TechCrunch struct{}

func (TechCrunch) Candidates(doc *goquery.Document) *goquery.Selection {
	return doc.Find("div.loop-card, article.post-block")
}

func (TechCrunch) Title(item *goquery.Selection) string {
	return item.Find(".loop-card__title, .post-block__title, h2, h3").First().Text()
}

func (TechCrunch) Link(item *goquery.Selection) string {
	href, _ := item.Find("a.loop-card__title-link, .post-block__title a, h2 a, h3 a").First().Attr("href")
	return href
}

func (TechCrunch) Seed(item *goquery.Selection) string {
	return item.Find(".loop-card__excerpt, .post-block__content").First().Text()
}

// builtinProfiles 配置文件中 profile 字段可引用的内置结构
var builtinProfiles = map[string]Profile{
	"yahoo-finance": YahooFinance{},
	"techcrunch":    TechCrunch{},
}
