// Package extract 从新闻详情页 HTML 中抽取标题、正文、作者、发布时间和图片。
//
// 正文按优先级依次尝试：
//  1. application/ld+json 中的 articleBody（发布方已清洗，最干净）
//  2. 正文容器内的段落（先删除导航、分享、广告等区域，再过滤界面文案）
//
// 两者都为空时返回 ErrEmpty，调用方丢弃该文章。
package extract

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"news-crawler/collect"
	"news-crawler/normalize"
)

var ErrEmpty = errors.New("extract: no usable title or body")

// 正文后追加图片列表时使用的分隔标记
const ImagesMarker = "[IMAGES]"

// TextMode 正文容器内文本的读取方式
type TextMode int

const (
	// TextParagraphs 读取 section p，其次所有 p；容器内没有 p 时按 TextBlocks 处理
	TextParagraphs TextMode = iota
	// TextBlocks 读取整个容器，在块级元素边界和 <br> 处分行
	TextBlocks
)

// 块级元素前后各断一行
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Header: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Hr: true, atom.Li: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// Profile 某个来源详情页的选择器配置，选择器列表按优先级排列
type Profile struct {
	Text          TextMode
	Containers    []string // 正文容器，取第一个命中的
	Remove        []string // 读取正文前从容器中删除
	Title         []string // og:title 缺失时使用
	Author        []string
	PublishedMeta []string // meta 选择器，取 content 属性
	Time          []string // time 类元素，取 datetime 属性或文本
	Images        string   // 容器内的图片选择器
	Noise         NoiseFilter
}

type Result struct {
	Title       string
	Body        string
	Author      string
	PublishedAt string
	Images      []string
}

// Article 转换为 collect.Article
func (r *Result) Article(source collect.Source, category, sourceURL string) *collect.Article {
	return &collect.Article{
		Title:       r.Title,
		Body:        r.Body,
		Author:      r.Author,
		PublishedAt: r.PublishedAt,
		Category:    category,
		SourceURL:   sourceURL,
		Source:      source,
		Images:      r.Images,
	}
}

type Extractor struct {
	profile Profile
}

func New(p Profile) *Extractor {
	return &Extractor{profile: p}
}

func (e *Extractor) Profile() Profile {
	return e.profile
}

// Extract 会修改 doc（删除容器内的非正文节点）
func (e *Extractor) Extract(doc *goquery.Document) (*Result, error) {
	title := e.title(doc)

	container := e.container(doc)
	if container != nil && len(e.profile.Remove) > 0 {
		container.Find(strings.Join(e.profile.Remove, ", ")).Remove()
	}

	body := StructuredBody(doc)
	if body == "" {
		body = e.domBody(container)
	}
	if title == "" || body == "" {
		return nil, ErrEmpty
	}

	images := e.images(container, doc.Url)
	return &Result{
		Title:       title,
		Body:        AppendImages(body, images),
		Author:      firstText(doc, e.profile.Author),
		PublishedAt: e.published(doc),
		Images:      images,
	}, nil
}

// AppendImages 正文后追加 "[IMAGES]" 标记和每行一个图片地址
func AppendImages(body string, images []string) string {
	if len(images) == 0 {
		return body
	}
	return body + "\n\n" + ImagesMarker + "\n" + strings.Join(images, "\n")
}

func (e *Extractor) title(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	return firstText(doc, e.profile.Title)
}

func (e *Extractor) container(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.profile.Containers {
		if c := doc.Find(sel).First(); c.Length() > 0 {
			return c
		}
	}
	return nil
}

func (e *Extractor) domBody(container *goquery.Selection) string {
	if container == nil {
		return ""
	}
	var parts []string
	if e.profile.Text == TextParagraphs {
		paras := container.Find("section p")
		if paras.Length() == 0 {
			paras = container.Find("p")
		}
		if paras.Length() > 0 {
			paras.Each(func(_ int, p *goquery.Selection) {
				parts = e.keep(parts, p.Text())
			})
			return strings.Join(parts, "\n\n")
		}
	}
	for _, line := range strings.Split(blockText(container), "\n") {
		parts = e.keep(parts, line)
	}
	return strings.Join(parts, "\n\n")
}

// blockText 拼接容器内的文本，<br> 和块级元素边界处插入换行
func blockText(container *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range container.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	return b.String()
}

func (e *Extractor) keep(parts []string, text string) []string {
	t := collapseSpace(text)
	if t == "" || e.profile.Noise.Match(t) {
		return parts
	}
	return append(parts, t)
}

func (e *Extractor) published(doc *goquery.Document) string {
	for _, sel := range e.profile.PublishedMeta {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	for _, sel := range e.profile.Time {
		t := doc.Find(sel).First()
		if t.Length() == 0 {
			continue
		}
		if v, ok := t.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v := strings.TrimSpace(t.Text()); v != "" {
			return v
		}
	}
	return ""
}

func (e *Extractor) images(container *goquery.Selection, base *url.URL) []string {
	if container == nil || e.profile.Images == "" {
		return nil
	}
	var set normalize.OrderedSet
	container.Find(e.profile.Images).Each(func(_ int, img *goquery.Selection) {
		u := collect.ResolveURL(base, imageSource(img))
		if u == "" {
			return
		}
		set.Add(normalize.RestoreOriginalImageURL(u))
	})
	if set.Len() == 0 {
		return nil
	}
	return set.Items()
}

// imageSource 懒加载地址优先，其次 src，最后取 srcset 的第一个候选
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if srcset, ok := img.Attr("srcset"); ok {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := collapseSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
