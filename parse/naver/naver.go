// Package naver 第二个新闻来源：按分类代码和日期拼出列表页地址，页码递增翻页。
package naver

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
	DefaultBaseURL  = "https://news.naver.com"
	DefaultCategory = "economy"

	dateLayout  = "20060102"
	listingPath = "/main/list.naver?mode=LSD&mid=sec&sid1=%s&date=%s&page=%d"
)

// 列表页日期按韩国时间计算，固定 UTC+9，不依赖系统时区库
var kst = time.FixedZone("KST", 9*60*60)

// 分类 -> sid1
var sectionIDs = map[string]string{
	"politics": "100",
	"economy":  "101",
	"society":  "102",
	"world":    "104",
	"digital":  "105",
}

const linkSelector = `a[href*="read.naver"], a[href*="/mnews/article/"]`

// ArticleProfile 详情页选择器，正文容器多为 <br> 分行的版式，读取整个容器
var ArticleProfile = extract.Profile{
	Text:       extract.TextBlocks,
	Containers: []string{"#dic_area", "#newsct_article"},
	Remove: []string{
		"script", "style", "aside", "figure[data-type=photo-raw]",
		".promotion", ".media_end_categorize", "em.img_desc",
	},
	Title:         []string{"h2.media_end_head_headline", "h2#title_area"},
	Author:        []string{".media_end_head_journalist_name", "span.byline", ".journalistcard_summary_name__"},
	PublishedMeta: []string{`meta[property="article:published_time"]`},
	Time:          []string{"span.media_end_head_info_datestamp_time", "time"},
	Images:        "img",
	Noise:         extract.DefaultNoise(),
}

func Categories() []string {
	cats := make([]string, 0, len(sectionIDs))
	for c := range sectionIDs {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// SectionID 未知分类回退到 economy
func SectionID(category string) string {
	if id, ok := sectionIDs[category]; ok {
		return id
	}
	return sectionIDs[DefaultCategory]
}

type Site struct {
	baseURL   string
	extractor *extract.Extractor
}

type Option func(s *Site)

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
	return collect.SourceNaver
}

func (s *Site) FirstCursor(category string, now time.Time) collect.Cursor {
	return collect.Cursor{
		Code: SectionID(category),
		Date: now.In(kst).Format(dateLayout),
		Page: 1,
	}
}

func (s *Site) ListingURL(c collect.Cursor) string {
	return s.baseURL + fmt.Sprintf(listingPath, c.Code, c.Date, c.Page)
}

// ParseListing 下一页总是 page+1，列表页没有新链接时由调度方结束
func (s *Site) ParseListing(ctx *collect.Context) (collect.Listing, error) {
	doc, err := ctx.Document()
	if err != nil {
		return collect.Listing{}, fmt.Errorf("naver: parse listing: %w", err)
	}

	var links normalize.OrderedSet
	doc.Find(linkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if link := normalize.CanonicalizeArticleLink(ctx.URL, href, collect.SourceNaver); link != "" {
			links.Add(link)
		}
	})

	listing := collect.Listing{Links: links.Items()}
	if cur := ctx.Req.Cursor; cur != nil {
		listing.Next = &collect.Cursor{Code: cur.Code, Date: cur.Date, Page: cur.Page + 1}
	}
	return listing, nil
}

func (s *Site) ParseArticle(ctx *collect.Context, category string) (*collect.Article, error) {
	doc, err := ctx.Document()
	if err != nil {
		return nil, fmt.Errorf("naver: parse article: %w", err)
	}
	res, err := s.extractor.Extract(doc)
	if err != nil {
		return nil, err
	}
	return res.Article(collect.SourceNaver, category, ctx.Req.URL), nil
}
