// Package daum 第一个新闻来源：分类首页地址固定，翻页靠页面上的“下一页”链接。
package daum

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"news-crawler/collect"
	"news-crawler/extract"
	"news-crawler/normalize"
)

const (
	DefaultBaseURL  = "https://news.daum.net"
	DefaultCategory = "economy"
)

// 分类 -> 列表页路径
var categoryPaths = map[string]string{
	"politics": "/politics",
	"economy":  "/economy",
	"society":  "/society",
	"world":    "/world",
	"digital":  "/digital",
}

// 下一页链接，按优先级排列
var nextSelectors = []string{
	".paging a.next",
	"a:matchesOwn(다음|더보기|Next|›)",
	"a[rel=next]",
	`a[href*="page="]`,
}

const linkSelector = `a[href*="/v/"]`

// ArticleProfile 详情页选择器
var ArticleProfile = extract.Profile{
	Containers: []string{"#harmonyContainer", "#mArticle"},
	Remove: []string{
		"aside", "nav", ".btn_util", ".util_view", ".voice_area", ".translate_btn",
		".tool_trans", ".copyright", ".foot_view", ".relate_news", ".kakao_ad",
		".ad_player", ".realtime_view", ".keyword_view",
	},
	Title:  []string{"h3.tit_view"},
	Author: []string{".info_view .txt_info", ".name_reporter"},
	PublishedMeta: []string{
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
		`meta[name="pubdate"]`,
	},
	Images: "section img[src], section img[data-src], img[srcset]",
	Noise:  extract.DefaultNoise(),
}

// Categories 返回支持的分类，按字母排序
func Categories() []string {
	cats := make([]string, 0, len(categoryPaths))
	for c := range categoryPaths {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

type Site struct {
	baseURL   string
	extractor *extract.Extractor
}

type Option func(s *Site)

// WithBaseURL 替换站点根地址，测试时指向 httptest 服务
func WithBaseURL(u string) Option {
	return func(s *Site) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

func WithNoise(n extract.NoiseFilter) Option {
	return func(s *Site) {
		p := s.extractor.Profile()
		p.Noise = n
		s.extractor = extract.New(p)
	}
}

func New(opts ...Option) *Site {
	s := &Site{
		baseURL:   DefaultBaseURL,
		extractor: extract.New(ArticleProfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Site) Source() collect.Source {
	return collect.SourceDaum
}

func (s *Site) FirstCursor(category string, _ time.Time) collect.Cursor {
	path, ok := categoryPaths[category]
	if !ok {
		path = categoryPaths[DefaultCategory]
	}
	return collect.Cursor{URL: s.baseURL + path}
}

func (s *Site) ListingURL(c collect.Cursor) string {
	return c.URL
}

func (s *Site) ParseListing(ctx *collect.Context) (collect.Listing, error) {
	doc, err := ctx.Document()
	if err != nil {
		return collect.Listing{}, fmt.Errorf("daum: parse listing: %w", err)
	}

	var links normalize.OrderedSet
	doc.Find(linkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if link := normalize.CanonicalizeArticleLink(ctx.URL, href, collect.SourceDaum); link != "" {
			links.Add(link)
		}
	})

	return collect.Listing{
		Links: links.Items(),
		Next:  s.nextCursor(ctx, doc),
	}, nil
}

func (s *Site) nextCursor(ctx *collect.Context, doc *goquery.Document) *collect.Cursor {
	for _, sel := range nextSelectors {
		href, ok := doc.Find(sel).First().Attr("href")
		if !ok {
			continue
		}
		next := ctx.AbsURL(href)
		if next == "" {
			continue
		}
		// 指回当前页时视为最后一页
		if isSamePage(ctx, next) {
			return nil
		}
		return &collect.Cursor{URL: next}
	}
	return nil
}

func isSamePage(ctx *collect.Context, next string) bool {
	if ctx.URL != nil && strings.EqualFold(next, ctx.URL.String()) {
		return true
	}
	return ctx.Req != nil && strings.EqualFold(next, ctx.Req.URL)
}

func (s *Site) ParseArticle(ctx *collect.Context, category string) (*collect.Article, error) {
	doc, err := ctx.Document()
	if err != nil {
		return nil, fmt.Errorf("daum: parse article: %w", err)
	}
	res, err := s.extractor.Extract(doc)
	if err != nil {
		return nil, err
	}
	return res.Article(collect.SourceDaum, category, ctx.Req.URL), nil
}
