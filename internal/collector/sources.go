package collector

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/LJTian/NewsDigest/internal/config"
)

// DefaultSources 内置数据源；顺序决定邮件中的栏目顺序（财经在前，科技在后）
func DefaultSources() []Source {
	return []Source{
		{
			Name:          "finance",
			Title:         "Finance",
			URL:           "https://finance.yahoo.com/topic/latest-news/",
			Profile:       YahooFinance{},
			Render:        true,
			ReadySelector: "li.stream-item",
		},
		{
			Name:    "tech",
			Title:   "Tech",
			URL:     "https://techcrunch.com/latest/",
			Profile: TechCrunch{},
		},
	}
}

// SourcesFromConfig 把配置文件中的数据源转换为运行期结构；列表为空时使用内置数据源
func SourcesFromConfig(cfgs []config.SourceConfig) ([]Source, error) {
	if len(cfgs) == 0 {
		return DefaultSources(), nil
	}

	seen := make(map[string]struct{}, len(cfgs))
	out := make([]Source, 0, len(cfgs))
	for i, sc := range cfgs {
		name := strings.TrimSpace(sc.Name)
		if name == "" {
			return nil, fmt.Errorf("source #%d: name is required", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("source %s: duplicate name", name)
		}
		seen[name] = struct{}{}

		u, err := url.Parse(sc.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("source %s: invalid url %q", name, sc.URL)
		}

		src := Source{
			Name:          name,
			Title:         sc.Title,
			URL:           sc.URL,
			Render:        sc.Render,
			ReadySelector: sc.ReadySelector,
			Feed:          sc.Feed,
		}
		if src.Title == "" {
			src.Title = name
		}

		if !src.Feed {
			profile, err := profileFor(sc)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", name, err)
			}
			src.Profile = profile
		}
		out = append(out, src)
	}
	return out, nil
}

func profileFor(sc config.SourceConfig) (Profile, error) {
	switch sc.Profile {
	case "", "selector":
		if strings.TrimSpace(sc.Selectors.Item) == "" {
			return nil, fmt.Errorf("selectors.item is required for selector profile")
		}
		return SelectorProfile{
			ItemSelector:  sc.Selectors.Item,
			TitleSelector: sc.Selectors.Title,
			LinkSelector:  sc.Selectors.Link,
			SeedSelector:  sc.Selectors.Seed,
		}, nil
	default:
		p, ok := builtinProfiles[sc.Profile]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", sc.Profile)
		}
		return p, nil
	}
}
