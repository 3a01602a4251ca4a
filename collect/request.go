package collect

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// 单次抓取请求
type Request struct {
	URL     string
	Timeout time.Duration
	Cursor  *Cursor // 列表页请求携带当前游标，文章页为 nil
}

// 抓取结果，URL 为重定向之后的最终地址
type Page struct {
	Req        *Request
	URL        *url.URL
	StatusCode int
	Body       []byte
	Truncated  bool // 响应体超过 MaxBodyBytes，只保留了前面部分
}

// 解析上下文
type Context struct {
	Body []byte
	Req  *Request
	URL  *url.URL

	doc *goquery.Document
}

func NewContext(p *Page) *Context {
	return &Context{
		Body: p.Body,
		Req:  p.Req,
		URL:  p.URL,
	}
}

// Document 解析 HTML，结果缓存在 Context 中
func (c *Context) Document() (*goquery.Document, error) {
	if c.doc != nil {
		return c.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(c.Body))
	if err != nil {
		return nil, err
	}
	doc.Url = c.URL
	c.doc = doc
	return doc, nil
}

// AbsURL 以页面地址为基准解析相对链接，无法解析时返回空串
func (c *Context) AbsURL(href string) string {
	return ResolveURL(c.URL, href)
}

func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return ""
	}
	return u.String()
}
