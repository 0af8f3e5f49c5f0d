package collector

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func listPage(n int) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<li class="news"><h3><a href="/story/%d">Story %d</a></h3><p>Seed %d</p></li>`, i, i, i)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

var testProfile = SelectorProfile{
	ItemSelector:  "li.news",
	TitleSelector: "h3",
	LinkSelector:  "h3 a",
	SeedSelector:  "p",
}

func TestExtractZeroCandidatesReturnsEmpty(t *testing.T) {
	src := Source{Name: "tech", URL: "https://tech.example.com/", Profile: testProfile}

	out := Extract(`<html><body><div class="redesigned">nothing here</div></body></html>`, src, 5)
	require.NotNil(t, out)
	require.Empty(t, out)

	// 非 HTML 的垃圾输入同样不报错
	require.Empty(t, Extract("", src, 5))
	require.Empty(t, Extract("\x00\x01<<<", src, 5))
}

func TestExtractTruncatesToTopNInDocumentOrder(t *testing.T) {
	src := Source{Name: "tech", URL: "https://tech.example.com/latest/", Profile: testProfile}

	out := Extract(listPage(8), src, 5)
	require.Len(t, out, 5)
	for i, a := range out {
		require.Equal(t, fmt.Sprintf("Story %d", i+1), a.Title)
		require.Equal(t, fmt.Sprintf("https://tech.example.com/story/%d", i+1), a.Link)
		require.Equal(t, fmt.Sprintf("Seed %d", i+1), a.Seed)
		require.Equal(t, "tech", a.Source)
		require.True(t, a.Valid())
	}
}

func TestExtractDefaultLimit(t *testing.T) {
	src := Source{Name: "tech", URL: "https://tech.example.com/", Profile: testProfile}
	require.Len(t, Extract(listPage(9), src, 0), DefaultTopN)
}

func TestExtractSkipsCandidatesMissingTitleOrLink(t *testing.T) {
	html := `
	<ul>
	  <li class="news"><h3><a href="/a">  First   story </a></h3></li>
	  <li class="news"><h3><a href="/b">   </a></h3></li>
	  <li class="news"><h3><a>No link</a></h3></li>
	  <li class="news"><h3><a href="javascript:void(0)">Script link</a></h3></li>
	  <li class="news"><h3><a href="#top">Anchor</a></h3></li>
	  <li class="news"><h3><a href="https://other.example.org/c">Absolute</a></h3></li>
	</ul>`
	src := Source{Name: "tech", URL: "https://tech.example.com/", Profile: testProfile}

	out := Extract(html, src, 10)
	require.Len(t, out, 2)
	require.Equal(t, "First story", out[0].Title)
	require.Equal(t, "https://tech.example.com/a", out[0].Link)
	require.Equal(t, "https://other.example.org/c", out[1].Link)
}

func TestExtractWithoutProfile(t *testing.T) {
	require.Empty(t, Extract(listPage(3), Source{Name: "broken", URL: "https://x.example.com"}, 5))
}

func TestBuiltinProfiles(t *testing.T) {
	yahoo := `
	<ul>
	  <li class="stream-item"><a class="subtle-link" href="/news/rates-123.html"><h3>Fed holds rates</h3></a><p>Markets react.</p></li>
	  <li class="stream-item"><div class="ad">sponsored</div></li>
	  <li class="js-stream-content"><h3><a href="https://finance.example.com/news/oil.html">Oil climbs</a></h3></li>
	</ul>`
	out := Extract(yahoo, Source{Name: "finance", URL: "https://finance.yahoo.com/topic/latest-news/", Profile: YahooFinance{}}, 5)
	require.Len(t, out, 2)
	require.Equal(t, "Fed holds rates", out[0].Title)
	require.Equal(t, "https://finance.yahoo.com/news/rates-123.html", out[0].Link)
	require.Equal(t, "Markets react.", out[0].Seed)
	require.Equal(t, "Oil climbs", out[1].Title)

	tc := `
	<div class="loop-card">
	  <h3 class="loop-card__title"><a class="loop-card__title-link" href="https://techcrunch.com/2026/10/16/chips/">New chips ship</a></h3>
	  <p class="loop-card__excerpt">A short excerpt.</p>
	</div>`
	out = Extract(tc, Source{Name: "tech", URL: "https://techcrunch.com/latest/", Profile: TechCrunch{}}, 5)
	require.Len(t, out, 1)
	require.Equal(t, "New chips ship", out[0].Title)
	require.Equal(t, "A short excerpt.", out[0].Seed)
}

func TestExtractFeed(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>HN</title>
  <item><title>Show HN: a thing</title><link>https://news.example.com/1</link><description>&lt;p&gt;Hello &amp;amp; welcome&lt;/p&gt;</description></item>
  <item><title></title><link>https://news.example.com/2</link></item>
  <item><title>Relative</title><link>/3</link></item>
</channel></rss>`
	src := Source{Name: "hn", URL: "https://news.example.com/rss", Feed: true}

	out := Extract(rss, src, 5)
	require.Len(t, out, 2)
	require.Equal(t, "Show HN: a thing", out[0].Title)
	require.Equal(t, "Hello & welcome", out[0].Seed)
	require.Equal(t, "https://news.example.com/3", out[1].Link)

	require.Empty(t, Extract("not a feed", src, 5))
}

func TestArticleValid(t *testing.T) {
	require.True(t, Article{Title: "t", Link: "https://example.com/a"}.Valid())
	require.False(t, Article{Title: "", Link: "https://example.com/a"}.Valid())
	require.False(t, Article{Title: "t", Link: "/relative"}.Valid())
	require.False(t, Article{Title: "t", Link: "mailto:a@example.com"}.Valid())
}
