package collect

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"news-crawler/proxy"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout      = 15 * time.Second
	DefaultRetryBackoff = 5 * time.Second
	defaultMaxBodyBytes = 10 << 20
)

type Fetcher interface {
	Get(ctx context.Context, req *Request) (*Page, error)
}

// BrowserFetch 模拟浏览器请求头的 HTTP 抓取器。
// 遇到 429/503 时固定等待 RetryBackoff 后重试同一地址，不限次数，
// 每次等待都会检查 ctx，调用方通过 ctx 控制总时长。
type BrowserFetch struct {
	Timeout      time.Duration
	UserAgent    string
	RetryBackoff time.Duration
	MaxBodyBytes int64
	Proxy        proxy.ProxyFunc
	Logger       *zap.Logger
	Client       *http.Client

	once sync.Once
}

func (b *BrowserFetch) Get(ctx context.Context, req *Request) (*Page, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{URL: req.URL, Err: err}
		}
		page, status, err := b.do(ctx, req)
		if err != nil {
			return nil, err
		}
		if page != nil {
			return page, nil
		}

		backoff := b.RetryBackoff
		if backoff <= 0 {
			backoff = DefaultRetryBackoff
		}
		b.logger().Warn("rate limited, retry later",
			zap.String("url", req.URL),
			zap.Int("status", status),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{URL: req.URL, StatusCode: status, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// do 执行一次请求。返回 (nil, status, nil) 表示被限流需要重试
func (b *BrowserFetch) do(ctx context.Context, req *Request) (*Page, int, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = b.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return nil, 0, &FetchError{URL: req.URL, Err: fmt.Errorf("build request: %w", err)}
	}
	ua := b.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	httpReq.Header.Set("User-Agent", ua)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := b.client().Do(httpReq)
	if err != nil {
		return nil, 0, &FetchError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &FetchError{URL: req.URL, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	limit := b.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	limited := &io.LimitedReader{R: resp.Body, N: limit}
	bodyReader := bufio.NewReader(limited)
	e := DeterminEncoding(bodyReader, resp.Header.Get("Content-Type"))
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, resp.StatusCode, &FetchError{URL: req.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	// 读满上限后再读一个字节，区分恰好等长与被截断
	truncated := false
	if limited.N <= 0 {
		var one [1]byte
		if n, _ := io.ReadFull(resp.Body, one[:]); n > 0 {
			truncated = true
			b.logger().Warn("response body truncated",
				zap.String("url", req.URL),
				zap.Int64("limit", limit),
			)
		}
	}

	b.logger().Debug("fetched",
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("length", len(body)),
	)
	return &Page{
		Req:        req,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Body:       body,
		Truncated:  truncated,
	}, resp.StatusCode, nil
}

func (b *BrowserFetch) client() *http.Client {
	b.once.Do(func() {
		if b.Client != nil {
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if b.Proxy != nil {
			transport.Proxy = b.Proxy
		}
		b.Client = &http.Client{Transport: transport}
	})
	return b.Client
}

func (b *BrowserFetch) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// DeterminEncoding 根据响应头和前 1024 字节猜测页面编码，猜不出时按 UTF-8 处理
func DeterminEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	bytes, err := r.Peek(1024)
	if err != nil && len(bytes) == 0 {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(bytes, contentType)
	return e
}
