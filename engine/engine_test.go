package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"news-crawler/collect"
	"news-crawler/limiter"
	"news-crawler/parse/daum"
	"news-crawler/parse/naver"
	"news-crawler/storage"
	"news-crawler/storage/memstorage"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Get(ctx context.Context, req *collect.Request) (*collect.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	body, ok := f.pages[req.URL]
	err := f.errs[req.URL]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &collect.FetchError{URL: req.URL, Err: err}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &collect.FetchError{URL: req.URL, StatusCode: http.StatusNotFound, Err: collect.ErrUnexpectedStatus}
	}
	u, _ := url.Parse(req.URL)
	return &collect.Page{Req: req, URL: u, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const daumBase = "https://news.test"

func daumListing(next string, ids ...int) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<li><a href="/v/%d">기사 %d</a></li>`, id, id)
	}
	b.WriteString("</ul>")
	if next != "" {
		fmt.Fprintf(&b, `<div class="paging"><a class="next" href="%s">다음</a></div>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func daumArticle(title string) string {
	return `<html><head><meta property="og:title" content="` + title + `"></head><body>
<div id="harmonyContainer"><section><p>` + title + ` 본문입니다.</p></section></div></body></html>`
}

func daumArticleURL(id int) string {
	return fmt.Sprintf("%s/v/%d", daumBase, id)
}

func newTestCrawler(f collect.Fetcher, st storage.Storage, opts ...Option) *Crawler {
	store := NewStore()
	store.Add(daum.New(daum.WithBaseURL(daumBase)))
	store.Add(naver.New(naver.WithBaseURL("https://news.naver.test")))
	base := []Option{
		WithFetcher(f),
		WithStorage(st),
		WithLimiter(limiter.Nop()),
		WithStore(store),
	}
	return NewEngine(append(base, opts...)...)
}

func TestCrawl_StopsAtQuota(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("?page=2", 1, 2, 3)
	for i := 1; i <= 3; i++ {
		f.pages[daumArticleURL(i)] = daumArticle(fmt.Sprintf("기사%d", i))
	}
	st := memstorage.New()

	ids, err := newTestCrawler(f, st).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "economy", Quota: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []string{daumBase + "/economy", daumArticleURL(1), daumArticleURL(2)}, f.Calls())

	saved := st.All()
	require.Len(t, saved, 2)
	assert.Equal(t, "기사1", saved[0].Title)
	assert.Equal(t, "economy", saved[0].Category)
	assert.Equal(t, collect.SourceDaum, saved[0].Source)
	assert.Equal(t, daumArticleURL(1), saved[0].SourceURL)
}

func TestCrawl_PaginatesAndDedups(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/world"] = daumListing("?page=2", 1, 2)
	f.pages[daumBase+"/world?page=2"] = daumListing("?page=3", 2, 3, 2)
	f.pages[daumBase+"/world?page=3"] = daumListing("?page=4", 1, 3)
	for i := 1; i <= 3; i++ {
		f.pages[daumArticleURL(i)] = daumArticle(fmt.Sprintf("기사%d", i))
	}

	ids, err := newTestCrawler(f, memstorage.New()).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "world", Quota: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	// 第三页没有新链接，不再请求第四页，也不重复请求文章
	assert.Equal(t, []string{
		daumBase + "/world",
		daumArticleURL(1),
		daumArticleURL(2),
		daumBase + "/world?page=2",
		daumArticleURL(3),
		daumBase + "/world?page=3",
	}, f.Calls())
}

func TestCrawl_NoNextPage(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("", 1)
	f.pages[daumArticleURL(1)] = daumArticle("기사1")

	ids, err := newTestCrawler(f, memstorage.New()).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "unknown-category", Quota: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.Len(t, f.Calls(), 2)
}

func TestCrawl_SkipsBadArticles(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("", 1, 2, 3, 4)
	f.pages[daumArticleURL(1)] = daumArticle("기사1")
	// 2: 404
	f.pages[daumArticleURL(3)] = `<html><body><div id="harmonyContainer"><p>제목 없음</p></div></body></html>`
	f.pages[daumArticleURL(4)] = daumArticle("기사4")

	core, logs := observer.New(zapcore.InfoLevel)
	ids, err := newTestCrawler(f, memstorage.New(), WithLogger(zap.New(core))).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "economy", Quota: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	assert.Equal(t, 1, logs.FilterMessage("fetch article failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("extract article failed").Len())
	finished := logs.FilterMessage("crawl finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, int64(2), finished[0].ContextMap()["skipped"])
}

type failingStorage struct {
	fail map[string]bool
	next int64
}

func (s *failingStorage) Save(_ context.Context, a *collect.Article) (int64, error) {
	if s.fail[a.SourceURL] {
		return 0, fmt.Errorf("%w: duplicate key", storage.ErrPersist)
	}
	s.next += 10
	return s.next, nil
}

func TestCrawl_SkipsPersistFailure(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("", 1, 2, 3)
	for i := 1; i <= 3; i++ {
		f.pages[daumArticleURL(i)] = daumArticle(fmt.Sprintf("기사%d", i))
	}
	st := &failingStorage{fail: map[string]bool{daumArticleURL(2): true}}

	ids, err := newTestCrawler(f, st).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "economy", Quota: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, ids)
}

// recordingStorage 记录每次 Save 收到的文章地址
type recordingStorage struct {
	mu    sync.Mutex
	saved []string
}

func (s *recordingStorage) Save(_ context.Context, a *collect.Article) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, a.SourceURL)
	return int64(len(s.saved)), nil
}

func TestCrawl_TitleWithoutBodyNeverSaved(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("", 1, 2, 3)
	f.pages[daumArticleURL(1)] = daumArticle("기사1")
	f.pages[daumArticleURL(2)] = `<html><head><meta property="og:title" content="본문 없는 기사"></head><body>
<div id="harmonyContainer"><section><p>   </p><p>인쇄하기</p><p>ⓒ 연합뉴스, 무단전재 및 재배포 금지</p></section></div></body></html>`
	f.pages[daumArticleURL(3)] = daumArticle("기사3")
	st := &recordingStorage{}

	core, logs := observer.New(zapcore.WarnLevel)
	ids, err := newTestCrawler(f, st, WithLogger(zap.New(core))).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "economy", Quota: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []string{daumArticleURL(1), daumArticleURL(3)}, st.saved)

	skipped := logs.FilterMessage("extract article failed").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, daumArticleURL(2), skipped[0].ContextMap()["url"])
}

func TestCrawl_ListingFailureReturnsPartial(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("?page=2", 1)
	f.pages[daumArticleURL(1)] = daumArticle("기사1")
	f.errs[daumBase+"/economy?page=2"] = &collect.FetchError{
		URL: daumBase + "/economy?page=2", StatusCode: http.StatusInternalServerError, Err: collect.ErrUnexpectedStatus,
	}

	ids, err := newTestCrawler(f, memstorage.New()).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceDaum, Category: "economy", Quota: 5,
	})
	require.Error(t, err)
	assert.Equal(t, []int64{1}, ids)

	var fe *collect.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
}

func TestCrawl_InvalidRequest(t *testing.T) {
	c := newTestCrawler(newFakeFetcher(), memstorage.New())

	_, err := c.Crawl(context.Background(), collect.CrawlRequest{Source: collect.SourceDaum, Quota: 0})
	assert.ErrorIs(t, err, ErrInvalidQuota)

	_, err = c.Crawl(context.Background(), collect.CrawlRequest{Source: "yahoo", Quota: 1})
	assert.ErrorIs(t, err, ErrUnknownSource)

	assert.Equal(t, []collect.Source{collect.SourceDaum, collect.SourceNaver}, c.Sources())
}

type cancelLimiter struct {
	cancel context.CancelFunc
}

func (l *cancelLimiter) Wait(ctx context.Context) error {
	l.cancel()
	return ctx.Err()
}

func TestCrawl_Cancelled(t *testing.T) {
	f := newFakeFetcher()
	f.pages[daumBase+"/economy"] = daumListing("", 1, 2)
	f.pages[daumArticleURL(1)] = daumArticle("기사1")
	f.pages[daumArticleURL(2)] = daumArticle("기사2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newTestCrawler(f, memstorage.New(), WithLimiter(&cancelLimiter{cancel: cancel}))

	ids, err := c.Crawl(ctx, collect.CrawlRequest{Source: collect.SourceDaum, Category: "economy", Quota: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1}, ids)
	assert.NotContains(t, f.Calls(), daumArticleURL(2))
}

func TestCrawl_NaverPagination(t *testing.T) {
	const base = "https://news.naver.test"
	listing := func(page int) string {
		return fmt.Sprintf("%s/main/list.naver?mode=LSD&mid=sec&sid1=105&date=20240301&page=%d", base, page)
	}
	link := func(aid int) string {
		return fmt.Sprintf("https://n.news.naver.test/mnews/article/001/%d", aid)
	}
	article := func(title string) string {
		return `<html><head><meta property="og:title" content="` + title + `"></head><body>
<article id="dic_area">` + title + ` 본문<br>둘째 줄</article></body></html>`
	}

	f := newFakeFetcher()
	f.pages[listing(1)] = `<a href="/main/read.naver?oid=001&aid=1">1</a><a href="https://n.news.naver.test/mnews/article/001/2?sid=105">2</a>`
	f.pages[listing(2)] = `<a href="/main/read.naver?oid=001&aid=2">2</a><a href="/main/read.naver?oid=001&aid=3">3</a>`
	f.pages[listing(3)] = `<a href="/main/read.naver?oid=001&aid=3">3</a>`
	for i := 1; i <= 3; i++ {
		f.pages[link(i)] = article(fmt.Sprintf("네이버%d", i))
	}
	st := memstorage.New()

	now := func() time.Time { return time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC) }
	ids, err := newTestCrawler(f, st, WithClock(now)).Crawl(context.Background(), collect.CrawlRequest{
		Source: collect.SourceNaver, Category: "digital", Quota: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, listing(3), f.Calls()[len(f.Calls())-1])
	assert.NotContains(t, f.Calls(), listing(4))

	a, ok := st.Get(3)
	require.True(t, ok)
	assert.Equal(t, "네이버3 본문\n\n둘째 줄", a.Body)
	assert.Equal(t, link(3), a.SourceURL)
}

func TestCrawl_HTTPIntegration(t *testing.T) {
	var throttled atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/society", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, daumListing("", 3))
			return
		}
		fmt.Fprint(w, daumListing("?page=2", 1, 2))
	})
	mux.HandleFunc("/v/", func(w http.ResponseWriter, r *http.Request) {
		// 第一次请求文章时限流一次
		if throttled.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/v/")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, daumArticle("기사"+id))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewStore()
	store.Add(daum.New(daum.WithBaseURL(srv.URL)))
	st := memstorage.New()
	c := NewEngine(
		WithFetcher(&collect.BrowserFetch{RetryBackoff: 10 * time.Millisecond}),
		WithStorage(st),
		WithStore(store),
		WithLimiter(limiter.NewJitter(time.Millisecond, 2*time.Millisecond)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ids, err := c.Crawl(ctx, collect.CrawlRequest{Source: collect.SourceDaum, Category: "society", Quota: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	titles := make([]string, 0, 3)
	for _, a := range st.All() {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"기사1", "기사2", "기사3"}, titles)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fetching_listing", StateFetchingListing.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestStore(t *testing.T) {
	assert.Equal(t, []collect.Source{collect.SourceDaum, collect.SourceNaver}, Store.Sources())

	s := NewStore()
	s.Add(daum.New())
	replacement := daum.New(daum.WithBaseURL("http://127.0.0.1:1"))
	s.Add(replacement)
	got, ok := s.Get(collect.SourceDaum)
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Len(t, s.Sources(), 1)

	_, ok = s.Get(collect.SourceNaver)
	assert.False(t, ok)
}
