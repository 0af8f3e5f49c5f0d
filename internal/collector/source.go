package collector

import (
	"net/url"
	"strings"
)

// Source 一个固定的外部新闻站点，运行期间只读
type Source struct {
	Name  string
	Title string // 邮件中的栏目标题
	URL   string

	Profile Profile
	// Render 为 true 时需要 headless 浏览器执行脚本后再解析
	Render        bool
	ReadySelector string
	// Feed 为 true 时页面是 RSS/Atom，不走 Profile
	Feed bool
}

// Article 一条新闻；只在一次运行内存活，不落库
type Article struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	// Seed 列表页上紧挨标题的简介，可作为摘要的兜底输入
	Seed    string `json:"seed,omitempty"`
	Summary string `json:"summary,omitempty"`
	Source  string `json:"source"`
}

// Valid 标题非空且链接是绝对 http(s) 地址
func (a Article) Valid() bool {
	if strings.TrimSpace(a.Title) == "" {
		return false
	}
	u, err := url.Parse(a.Link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveLink 将相对链接补全为绝对地址；锚点、javascript: 等返回 false
func ResolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
