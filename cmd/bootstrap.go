package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"news-crawler/collect"
	"news-crawler/config"
	"news-crawler/engine"
	"news-crawler/extract"
	"news-crawler/limiter"
	"news-crawler/log"
	"news-crawler/parse/daum"
	"news-crawler/parse/naver"
	"news-crawler/proxy"
	"news-crawler/storage"
	"news-crawler/storage/memstorage"
	"news-crawler/storage/sqlstorage"
)

// app 由配置组装出的全部依赖
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage storage.Storage
	crawler *engine.Crawler
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, debug, dryRun bool) (*app, error) {
	a := &app{cfg: cfg}
	a.logger = a.newLogger(debug)

	fetcher, err := newFetcher(cfg.Fetcher, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	st, err := a.newStorage(ctx, dryRun)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.storage = st

	a.crawler = engine.NewEngine(
		engine.WithFetcher(fetcher),
		engine.WithLogger(a.logger),
		engine.WithStorage(st),
		engine.WithLimiter(newLimiter(cfg.Politeness)),
		engine.WithStore(newStore(cfg)),
		engine.WithListingTimeout(cfg.Fetcher.ListingTimeout),
		engine.WithArticleTimeout(cfg.Fetcher.ArticleTimeout),
	)
	return a, nil
}

func (a *app) newLogger(debug bool) *zap.Logger {
	level := log.ParseLevel(a.cfg.Logging.Level)
	if debug {
		level = zapcore.DebugLevel
	}
	if a.cfg.Logging.File == "" {
		return log.NewLogger(log.NewStdoutPlugin(level))
	}
	plugin, closer := log.NewFilePlugin(a.cfg.Logging.File, level,
		log.WithMaxSize(a.cfg.Logging.MaxSizeMB),
		log.WithMaxBackups(a.cfg.Logging.MaxBackups),
	)
	a.closers = append(a.closers, closer)
	return log.NewLogger(plugin)
}

func newFetcher(cfg config.FetcherConfig, logger *zap.Logger) (collect.Fetcher, error) {
	f := &collect.BrowserFetch{
		Timeout:      cfg.ListingTimeout,
		UserAgent:    cfg.UserAgent,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	}
	if len(cfg.Proxies) > 0 {
		p, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
		f.Proxy = p
	}
	return f, nil
}

func newLimiter(cfg config.PolitenessConfig) limiter.Limiter {
	chain := limiter.Chain{limiter.NewJitter(cfg.MinDelay, cfg.MaxDelay)}
	if cfg.RPS > 0 {
		chain = append(chain, limiter.NewToken(cfg.RPS, cfg.Burst))
	}
	return chain
}

func (a *app) newStorage(ctx context.Context, dryRun bool) (storage.Storage, error) {
	if dryRun || a.cfg.Storage.Driver == config.DriverMemory {
		return memstorage.New(), nil
	}
	s, err := sqlstorage.New(a.cfg.Storage.DSN,
		sqlstorage.WithTable(a.cfg.Storage.Table),
		sqlstorage.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, s)
	if err := s.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if a.cfg.Storage.CreateTable {
		if err := s.CreateTable(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// newStore 按配置创建站点，过滤词和根地址可覆盖
func newStore(cfg *config.Config) *engine.CrawlerStore {
	noise := extract.DefaultNoise()
	if len(cfg.Extract.NoiseContains) > 0 || len(cfg.Extract.NoisePrefixes) > 0 {
		noise = extract.NoiseFilter{
			Contains: cfg.Extract.NoiseContains,
			Prefixes: cfg.Extract.NoisePrefixes,
		}
	}

	daumOpts := []daum.Option{daum.WithNoise(noise)}
	if cfg.Sites.DaumBaseURL != "" {
		daumOpts = append(daumOpts, daum.WithBaseURL(cfg.Sites.DaumBaseURL))
	}
	naverOpts := []naver.Option{naver.WithNoise(noise)}
	if cfg.Sites.NaverBaseURL != "" {
		naverOpts = append(naverOpts, naver.WithBaseURL(cfg.Sites.NaverBaseURL))
	}

	store := engine.NewStore()
	store.Add(daum.New(daumOpts...))
	store.Add(naver.New(naverOpts...))
	return store
}

func (a *app) Close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
