// Package engine 按分类翻页抓取新闻，直到保存的文章数达到配额
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"news-crawler/collect"
	"news-crawler/extract"
	"news-crawler/limiter"
	"news-crawler/normalize"
	"news-crawler/storage/memstorage"
)

var (
	ErrUnknownSource = errors.New("engine: unknown source")
	ErrInvalidQuota  = errors.New("engine: quota must be at least 1")
)

// Crawler 可被多个 goroutine 同时调用 Crawl，每次调用是独立的会话
type Crawler struct {
	options
}

func NewEngine(opts ...Option) *Crawler {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Fetcher == nil {
		options.Fetcher = &collect.BrowserFetch{Logger: options.Logger}
	}
	if options.Limiter == nil {
		options.Limiter = limiter.NewJitter(limiter.DefaultMinDelay, limiter.DefaultMaxDelay)
	}
	// 未设置时只保存在内存中
	if options.Storage == nil {
		options.Storage = memstorage.New()
	}
	if options.Store == nil {
		options.Store = Store
	}
	if options.now == nil {
		options.now = time.Now
	}
	return &Crawler{options: options}
}

// Sources 当前可抓取的来源
func (e *Crawler) Sources() []collect.Source {
	return e.Store.Sources()
}

// Crawl 抓取 req.Quota 篇文章，返回按保存顺序排列的 id。
// 列表页抓取失败或 ctx 取消时，返回已保存的 id 和错误；单篇文章失败只记录日志并跳过。
func (e *Crawler) Crawl(ctx context.Context, req collect.CrawlRequest) ([]int64, error) {
	if req.Quota < 1 {
		return nil, ErrInvalidQuota
	}
	site, ok := e.Store.Get(req.Source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, req.Source)
	}

	id := uuid.NewString()
	s := &session{
		id:   id,
		req:  req,
		site: site,
		seen: normalize.NewOrderedSet(req.Quota * 4),
		logger: e.Logger.With(
			zap.String("session", id),
			zap.String("source", string(req.Source)),
			zap.String("category", req.Category),
		),
	}
	first := site.FirstCursor(req.Category, e.now())
	s.cursor = &first
	s.setState(StateInit)

	start := time.Now()
	err := e.run(ctx, s)
	s.setState(StateDone)
	s.logger.Info("crawl finished",
		zap.Int("quota", req.Quota),
		zap.Int("saved", s.stats.Saved),
		zap.Int("pages", s.stats.Pages),
		zap.Int("links", s.stats.Links),
		zap.Int("skipped", s.stats.Skipped),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return s.result(), err
}

func (e *Crawler) run(ctx context.Context, s *session) error {
	for !s.quotaMet() && s.cursor != nil {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.setState(StateFetchingListing)
		listing, err := e.fetchListing(ctx, s)
		if err != nil {
			return err
		}

		s.setState(StateExtractingLinks)
		links := s.fresh(listing.Links)
		if len(links) == 0 {
			s.logger.Info("no new links on listing page", zap.Stringer("cursor", *s.cursor))
			return nil
		}

		for _, link := range links {
			if s.quotaMet() {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			e.crawlArticle(ctx, s, link)
			if err := e.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		s.cursor = listing.Next
		if s.quotaMet() || s.cursor == nil {
			break
		}
		if err := e.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Crawler) fetchListing(ctx context.Context, s *session) (collect.Listing, error) {
	cursor := *s.cursor
	req := &collect.Request{
		URL:     s.site.ListingURL(cursor),
		Timeout: e.ListingTimeout,
		Cursor:  &cursor,
	}
	page, err := e.Fetcher.Get(ctx, req)
	if err != nil {
		return collect.Listing{}, fmt.Errorf("fetch listing %s: %w", req.URL, err)
	}
	s.stats.Pages++

	listing, err := s.site.ParseListing(collect.NewContext(page))
	if err != nil {
		return collect.Listing{}, fmt.Errorf("parse listing %s: %w", req.URL, err)
	}
	s.logger.Debug("listing fetched",
		zap.String("url", req.URL),
		zap.Int("links", len(listing.Links)),
		zap.Bool("has_next", listing.Next != nil),
	)
	return listing, nil
}

func (e *Crawler) crawlArticle(ctx context.Context, s *session, link string) {
	s.setState(StateFetchingArticle)
	page, err := e.Fetcher.Get(ctx, &collect.Request{URL: link, Timeout: e.ArticleTimeout})
	if err != nil {
		s.skip(link, "fetch article failed", err)
		return
	}

	s.setState(StateExtractingArticle)
	article, err := s.site.ParseArticle(collect.NewContext(page), s.req.Category)
	if err != nil {
		s.skip(link, "extract article failed", err)
		return
	}
	if !article.Valid() {
		s.skip(link, "extract article failed", extract.ErrEmpty)
		return
	}

	id, err := e.Storage.Save(ctx, article)
	if err != nil {
		s.skip(link, "save article failed", err)
		return
	}
	s.persisted(id, link)
}
