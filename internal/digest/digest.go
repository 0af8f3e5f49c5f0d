package digest

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/LJTian/NewsDigest/internal/collector"
)

// Placeholder 栏目没有文章时邮件中展示的文案
const Placeholder = "No news available."

const subjectPrefix = "Daily News Digest"

// Section 一个数据源对应的栏目
type Section struct {
	Source   string
	Title    string
	Articles []collector.Article
}

func (s Section) Empty() bool {
	return len(s.Articles) == 0
}

// Digest 一次运行生成的邮件内容，构建后不再修改
type Digest struct {
	GeneratedAt time.Time
	Sections    []Section
}

// Build 按 sources 的顺序组织栏目；栏目内保持抽取顺序。
// 无效文章（标题为空或非绝对链接）与同一栏目内重复链接会被丢弃。
func Build(now time.Time, sources []collector.Source, perSource map[string][]collector.Article) Digest {
	d := Digest{
		GeneratedAt: now,
		Sections:    make([]Section, 0, len(sources)),
	}

	for _, src := range sources {
		title := src.Title
		if title == "" {
			title = src.Name
		}
		sec := Section{Source: src.Name, Title: title}

		seen := make(map[string]struct{})
		for _, a := range perSource[src.Name] {
			if !a.Valid() {
				continue
			}
			id := hashURL(a.Link)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			a.Title = strings.TrimSpace(a.Title)
			a.Summary = strings.TrimSpace(a.Summary)
			sec.Articles = append(sec.Articles, a)
		}
		d.Sections = append(d.Sections, sec)
	}
	return d
}

// Subject 例如 "Daily News Digest - 2026-10-16"
func (d Digest) Subject() string {
	return fmt.Sprintf("%s - %s", subjectPrefix, d.GeneratedAt.Format("2006-01-02"))
}

// Sizes 每个栏目的文章数，按栏目顺序
func (d Digest) Sizes() []int {
	out := make([]int, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = len(s.Articles)
	}
	return out
}

func (d Digest) TotalArticles() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Articles)
	}
	return n
}

var emailTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h1>{{.Subject}}</h1>
{{range .Sections}}
<h2>{{.Title}}</h2>
{{if .Empty}}<p><em>{{$.Placeholder}}</em></p>{{else}}<ul>
{{range .Articles}}  <li><a href="{{.Link}}">{{.Title}}</a>{{if .Summary}}<br><span>{{.Summary}}</span>{{end}}</li>
{{end}}</ul>{{end}}
{{end}}
<p style="font-size: 12px; color: #888;">Generated at {{.GeneratedAt}}</p>
</body>
</html>
`))

type emailView struct {
	Subject     string
	Sections    []Section
	Placeholder string
	GeneratedAt string
}

// HTML 渲染邮件正文
func (d Digest) HTML() (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, emailView{
		Subject:     d.Subject(),
		Sections:    d.Sections,
		Placeholder: Placeholder,
		GeneratedAt: d.GeneratedAt.Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
