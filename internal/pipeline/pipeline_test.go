package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsDigest/internal/collector"
	"github.com/LJTian/NewsDigest/internal/digest"
	"github.com/LJTian/NewsDigest/internal/notifier"
	"github.com/LJTian/NewsDigest/internal/retry"
	"github.com/LJTian/NewsDigest/internal/storage"
)

var listProfile = collector.SelectorProfile{
	ItemSelector:  "li.news",
	TitleSelector: "h3",
	LinkSelector:  "h3 a",
	SeedSelector:  "p",
}

func newsServer(t *testing.T, prefix string, n int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("<html><body><ul>")
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, `<li class="news"><h3><a href="/%s/%d">%s story %d</a></h3><p>%s seed %d</p></li>`,
				prefix, i, prefix, i, prefix, i)
		}
		b.WriteString("</ul></body></html>")
		_, _ = w.Write([]byte(b.String()))
	}))
	t.Cleanup(server.Close)
	return server
}

type memStore struct {
	subs []storage.Subscriber
	err  error
}

func (m *memStore) List(context.Context) ([]storage.Subscriber, error) {
	return m.subs, m.err
}

type recordingSender struct {
	mu   sync.Mutex
	to   []string
	body string
}

func (s *recordingSender) Send(_ context.Context, _, to, _, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.body = htmlBody
	return nil
}

type capturingDeliverer struct {
	inner  Deliverer
	digest digest.Digest
}

func (c *capturingDeliverer) Deliver(ctx context.Context, d digest.Digest, subs []storage.Subscriber) ([]notifier.DeliveryResult, error) {
	c.digest = d
	return c.inner.Deliver(ctx, d, subs)
}

func twoSubscribers() *memStore {
	return &memStore{subs: []storage.Subscriber{{Email: "a@example.com"}, {Email: "b@example.com"}}}
}

func TestRunEndToEnd(t *testing.T) {
	finance := newsServer(t, "finance", 7)
	tech := newsServer(t, "tech", 5)

	sender := &recordingSender{}
	deliverer := &capturingDeliverer{inner: notifier.New(sender, "digest@example.com", notifier.Options{RatePerSec: 1000})}

	p := &Pipeline{
		Sources: []collector.Source{
			{Name: "finance", Title: "Finance", URL: finance.URL + "/latest", Profile: listProfile},
			{Name: "tech", Title: "Tech", URL: tech.URL + "/latest", Profile: listProfile},
		},
		Fetcher:     &collector.Router{Direct: collector.NewHTTPFetcher(2 * time.Second)},
		TopN:        5,
		Subscribers: twoSubscribers(),
		Notifier:    deliverer,
		Now:         func() time.Time { return time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC) },
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, notifier.Delivered, report.Outcome)
	require.Len(t, report.Results, 2)
	require.Equal(t, 2, report.Delivered())

	d := deliverer.digest
	require.Len(t, d.Sections, 2)
	require.Equal(t, []int{5, 5}, d.Sizes())
	require.Equal(t, "finance story 1", d.Sections[0].Articles[0].Title)
	require.Equal(t, finance.URL+"/finance/1", d.Sections[0].Articles[0].Link)
	// 摘要阶段关闭时沿用列表页简介
	require.Equal(t, "finance seed 1", d.Sections[0].Articles[0].Summary)

	require.Equal(t, []string{"a@example.com", "b@example.com"}, sender.to)
	require.Contains(t, sender.body, "tech story 5")
	require.NotContains(t, sender.body, "finance story 6")
}

func TestFailingSourceOnlyEmptiesItsSection(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	tech := newsServer(t, "tech", 3)

	sender := &recordingSender{}
	deliverer := &capturingDeliverer{inner: notifier.New(sender, "digest@example.com", notifier.Options{RatePerSec: 1000})}
	p := &Pipeline{
		Sources: []collector.Source{
			{Name: "finance", Title: "Finance", URL: broken.URL, Profile: listProfile},
			{Name: "tech", Title: "Tech", URL: tech.URL, Profile: listProfile},
		},
		Fetcher:     collector.NewHTTPFetcher(2 * time.Second),
		Retrier:     retry.New(retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond}, Retryable),
		TopN:        5,
		Subscribers: twoSubscribers(),
		Notifier:    deliverer,
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, notifier.Delivered, report.Outcome)
	require.NotEmpty(t, report.Sections[0].Error)
	require.Empty(t, report.Sections[1].Error)
	require.Equal(t, []int{0, 3}, deliverer.digest.Sizes())
	require.Contains(t, sender.body, digest.Placeholder)
}

func TestNoSubscribersOutcome(t *testing.T) {
	tech := newsServer(t, "tech", 2)
	p := &Pipeline{
		Sources:     []collector.Source{{Name: "tech", URL: tech.URL, Profile: listProfile}},
		Fetcher:     collector.NewHTTPFetcher(time.Second),
		Subscribers: &memStore{},
		Notifier:    notifier.New(&recordingSender{}, "digest@example.com", notifier.Options{}),
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, notifier.NoSubscribers, report.Outcome)
	require.Empty(t, report.Results)
}

func TestSubscriberListFailureAborts(t *testing.T) {
	sender := &recordingSender{}
	p := &Pipeline{
		Fetcher:     collector.NewHTTPFetcher(time.Second),
		Subscribers: &memStore{err: errors.New("connection refused")},
		Notifier:    notifier.New(sender, "digest@example.com", notifier.Options{}),
	}

	report, err := p.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, Aborted, report.Outcome)
	require.Contains(t, report.Error, "connection refused")
	require.Empty(t, sender.to)
}

type fakeBodies struct {
	bodies map[string]string
}

func (f *fakeBodies) Load(_ context.Context, link string) (string, error) {
	if b, ok := f.bodies[link]; ok {
		return b, nil
	}
	return "", errors.New("not found")
}

type echoSummarizer struct {
	inputs []string
}

func (e *echoSummarizer) Summarize(_ context.Context, body string) string {
	e.inputs = append(e.inputs, body)
	return "summary of " + body
}

func TestSummaryUsesBodyThenSeed(t *testing.T) {
	tech := newsServer(t, "tech", 2)
	sum := &echoSummarizer{}
	deliverer := &capturingDeliverer{inner: notifier.New(&recordingSender{}, "digest@example.com", notifier.Options{RatePerSec: 1000})}

	p := &Pipeline{
		Sources:     []collector.Source{{Name: "tech", URL: tech.URL, Profile: listProfile}},
		Fetcher:     collector.NewHTTPFetcher(time.Second),
		Bodies:      &fakeBodies{bodies: map[string]string{tech.URL + "/tech/1": "full body"}},
		Summarizer:  sum,
		Subscribers: twoSubscribers(),
		Notifier:    deliverer,
	}

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"full body", "tech seed 2"}, sum.inputs)
	require.Equal(t, "summary of full body", deliverer.digest.Sections[0].Articles[0].Summary)
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(errors.New("boom")))
	require.False(t, Retryable(fmt.Errorf("wrapped: %w", context.Canceled)))
}
