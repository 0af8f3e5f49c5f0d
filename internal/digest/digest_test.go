package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsDigest/internal/collector"
)

var testSources = []collector.Source{
	{Name: "finance", Title: "Finance"},
	{Name: "tech", Title: "Tech"},
}

func articles(source string, n int) []collector.Article {
	out := make([]collector.Article, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, collector.Article{
			Title:  fmt.Sprintf("%s %d", source, i),
			Link:   fmt.Sprintf("https://%s.example.com/%d", source, i),
			Source: source,
		})
	}
	return out
}

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	require.Equal(t, hashURL("https://example.com/a"), hashURL("https://example.com/a"))
	require.NotEqual(t, hashURL("https://example.com/a"), hashURL("https://example.com/b"))
}

func TestBuildOrderIsDeterministic(t *testing.T) {
	now := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)
	per := map[string][]collector.Article{
		"tech":    articles("tech", 3),
		"finance": articles("finance", 2),
	}

	first := Build(now, testSources, per)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Build(now, testSources, per))
	}

	require.Equal(t, "finance", first.Sections[0].Source)
	require.Equal(t, "tech", first.Sections[1].Source)
	require.Equal(t, []int{2, 3}, first.Sizes())
	require.Equal(t, "tech 1", first.Sections[1].Articles[0].Title)
	require.Equal(t, "tech 3", first.Sections[1].Articles[2].Title)
	require.Equal(t, 5, first.TotalArticles())
}

func TestBuildDropsInvalidAndDuplicateArticles(t *testing.T) {
	per := map[string][]collector.Article{
		"tech": {
			{Title: "ok", Link: "https://tech.example.com/1"},
			{Title: "dup", Link: "https://tech.example.com/1"},
			{Title: "", Link: "https://tech.example.com/2"},
			{Title: "relative", Link: "/3"},
			{Title: "second", Link: "https://tech.example.com/4"},
		},
	}
	d := Build(time.Now(), testSources, per)
	require.Len(t, d.Sections[1].Articles, 2)
	require.Equal(t, "ok", d.Sections[1].Articles[0].Title)
	require.Equal(t, "second", d.Sections[1].Articles[1].Title)
}

func TestEmptySectionRendersPlaceholder(t *testing.T) {
	d := Build(time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC), testSources, map[string][]collector.Article{
		"tech": articles("tech", 1),
	})
	require.True(t, d.Sections[0].Empty())

	html, err := d.HTML()
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(html, Placeholder))
	require.Less(t, strings.Index(html, "Finance"), strings.Index(html, "Tech"))
	require.Contains(t, html, `href="https://tech.example.com/1"`)
}

func TestHTMLEscapesContent(t *testing.T) {
	d := Build(time.Now(), testSources, map[string][]collector.Article{
		"finance": {{Title: "<script>x</script>", Link: "https://finance.example.com/1", Summary: "a & b"}},
	})
	html, err := d.HTML()
	require.NoError(t, err)
	require.NotContains(t, html, "<script>x</script>")
	require.Contains(t, html, "a &amp; b")
}

func TestSubject(t *testing.T) {
	d := Digest{GeneratedAt: time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)}
	require.Equal(t, "Daily News Digest - 2026-10-16", d.Subject())
}
