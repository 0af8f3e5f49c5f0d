package collector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsDigest/internal/config"
)

func TestDefaultSourcesOrder(t *testing.T) {
	srcs := DefaultSources()
	require.Len(t, srcs, 2)
	require.Equal(t, "finance", srcs[0].Name)
	require.True(t, srcs[0].Render)
	require.NotEmpty(t, srcs[0].ReadySelector)
	require.Equal(t, "tech", srcs[1].Name)
	require.False(t, srcs[1].Render)
}

func TestSourcesFromConfig(t *testing.T) {
	srcs, err := SourcesFromConfig([]config.SourceConfig{
		{Name: "tech", URL: "https://tech.example.com", Profile: "techcrunch"},
		{Name: "hn", URL: "https://hnrss.org/frontpage", Feed: true},
		{Name: "blog", Title: "Blog", URL: "https://blog.example.com", Selectors: config.SelectorConfig{Item: "article", Title: "h2", Link: "a"}},
	})
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	require.IsType(t, TechCrunch{}, srcs[0].Profile)
	require.Equal(t, "tech", srcs[0].Title)
	require.Nil(t, srcs[1].Profile)
	require.True(t, srcs[1].Feed)
	require.Equal(t, SelectorProfile{ItemSelector: "article", TitleSelector: "h2", LinkSelector: "a"}, srcs[2].Profile)
}

func TestSourcesFromConfigEmptyUsesDefaults(t *testing.T) {
	srcs, err := SourcesFromConfig(nil)
	require.NoError(t, err)
	require.Equal(t, len(DefaultSources()), len(srcs))
}

func TestSourcesFromConfigRejectsBadEntries(t *testing.T) {
	cases := map[string][]config.SourceConfig{
		"missing name":     {{URL: "https://a.example.com", Profile: "techcrunch"}},
		"relative url":     {{Name: "a", URL: "/news", Profile: "techcrunch"}},
		"unknown profile":  {{Name: "a", URL: "https://a.example.com", Profile: "nope"}},
		"no item selector": {{Name: "a", URL: "https://a.example.com", Profile: "selector"}},
		"duplicate": {
			{Name: "a", URL: "https://a.example.com", Profile: "techcrunch"},
			{Name: "a", URL: "https://b.example.com", Profile: "techcrunch"},
		},
	}
	for name, cfgs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SourcesFromConfig(cfgs)
			require.Error(t, err)
		})
	}
}
