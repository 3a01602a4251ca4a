package storage

import (
	"context"
	"errors"
	"strings"

	"news-crawler/collect"
)

var ErrPersist = errors.New("storage: persist failed")

const DefaultTable = "news"

// 对应数据库中的行
type DataCell struct {
	Table string
	Data  map[string]interface{}
}

// 列顺序固定，用于生成 INSERT 语句
var ArticleColumns = []string{"title", "content", "author", "post_date", "category", "source", "source_url"}

// NewArticleCell 把文章转换为 news 表的一行，空的可选字段存为 NULL
func NewArticleCell(a *collect.Article) *DataCell {
	return &DataCell{
		Table: DefaultTable,
		Data: map[string]interface{}{
			"title":      a.Title,
			"content":    a.Body,
			"author":     nullable(a.Author),
			"post_date":  nullable(a.PublishedAt),
			"category":   a.Category,
			"source":     string(a.Source),
			"source_url": a.SourceURL,
		},
	}
}

func (d *DataCell) GetTableName() string {
	if d.Table == "" {
		return DefaultTable
	}
	return d.Table
}

// Values 按 ArticleColumns 的顺序返回列值
func (d *DataCell) Values() []interface{} {
	vals := make([]interface{}, len(ArticleColumns))
	for i, col := range ArticleColumns {
		vals[i] = d.Data[col]
	}
	return vals
}

func nullable(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// 存储接口，Save 成功时返回新记录的 id。实现需要支持并发调用
type Storage interface {
	Save(ctx context.Context, a *collect.Article) (int64, error)
}
