package collect

import (
	"fmt"
	"time"
)

// 列表页游标：第一个来源使用 URL，第二个来源使用 分类代码 + 日期 + 页码
type Cursor struct {
	URL  string
	Code string
	Date string
	Page int
}

func (c Cursor) String() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("%s/%s/%d", c.Code, c.Date, c.Page)
}

// 列表页解析结果
type Listing struct {
	Links []string // 已规范化的文章链接，按页面出现顺序
	Next  *Cursor  // 下一页游标，nil 表示没有下一页
}

// Site 每个新闻来源的解析策略
type Site interface {
	Source() Source
	// FirstCursor 根据分类生成第一页的游标，未知分类回退到默认分类
	FirstCursor(category string, now time.Time) Cursor
	ListingURL(c Cursor) string
	ParseListing(ctx *Context) (Listing, error)
	ParseArticle(ctx *Context, category string) (*Article, error)
}
