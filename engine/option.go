package engine

import (
	"time"

	"go.uber.org/zap"

	"news-crawler/collect"
	"news-crawler/limiter"
	"news-crawler/storage"
)

const (
	DefaultListingTimeout = 15 * time.Second
	DefaultArticleTimeout = 10 * time.Second
)

type Option func(opts *options)

type options struct {
	Fetcher        collect.Fetcher
	Logger         *zap.Logger
	Storage        storage.Storage
	Limiter        limiter.Limiter
	Store          *CrawlerStore
	ListingTimeout time.Duration
	ArticleTimeout time.Duration
	now            func() time.Time
}

var defaultOptions = options{
	Logger:         zap.NewNop(),
	ListingTimeout: DefaultListingTimeout,
	ArticleTimeout: DefaultArticleTimeout,
	now:            time.Now,
}

func WithFetcher(f collect.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = f
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithStorage(s storage.Storage) Option {
	return func(opts *options) {
		opts.Storage = s
	}
}

// WithLimiter 两次请求之间的礼貌性等待
func WithLimiter(l limiter.Limiter) Option {
	return func(opts *options) {
		opts.Limiter = l
	}
}

// WithStore 指定站点注册表，默认使用全局 Store
func WithStore(s *CrawlerStore) Option {
	return func(opts *options) {
		opts.Store = s
	}
}

func WithListingTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.ListingTimeout = d
		}
	}
}

func WithArticleTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.ArticleTimeout = d
		}
	}
}

// WithClock 替换当前时间，影响按日期翻页的来源
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		opts.now = now
	}
}
