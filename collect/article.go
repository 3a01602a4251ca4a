package collect

import "strings"

type Source string

const (
	SourceDaum  Source = "daum"
	SourceNaver Source = "naver"
)

func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceDaum:
		return SourceDaum, true
	case SourceNaver:
		return SourceNaver, true
	}
	return "", false
}

// 一篇抽取完成的新闻
type Article struct {
	Title       string
	Body        string
	Author      string
	PublishedAt string // 原样保存，不做日期解析
	Category    string
	SourceURL   string
	Source      Source
	Images      []string
}

// Valid 标题和正文都不能为空
func (a *Article) Valid() bool {
	return a != nil && strings.TrimSpace(a.Title) != "" && strings.TrimSpace(a.Body) != ""
}

// 一次抓取任务
type CrawlRequest struct {
	Source   Source
	Category string
	Quota    int
}
