package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// 结构化数据正文的最小长度（字符数），太短的多半是摘要
const minStructuredBodyLen = 50

var articleTypes = []string{"Article", "NewsArticle", "ReportageNewsArticle"}

// StructuredBody 从 application/ld+json 中取第一个足够长的 articleBody
func StructuredBody(doc *goquery.Document) string {
	var body string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return true
		}
		for _, node := range articleNodes(data) {
			if !isArticle(node["@type"]) {
				continue
			}
			text, _ := node["articleBody"].(string)
			text = strings.TrimSpace(text)
			if utf8.RuneCountInString(text) > minStructuredBodyLen {
				body = text
				return false
			}
		}
		return true
	})
	return body
}

// articleNodes 展开顶层对象、数组以及 @graph
func articleNodes(data any) []map[string]any {
	var nodes []map[string]any
	switch v := data.(type) {
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"]; ok {
			nodes = append(nodes, articleNodes(graph)...)
		}
	case []any:
		for _, item := range v {
			nodes = append(nodes, articleNodes(item)...)
		}
	}
	return nodes
}

func isArticle(t any) bool {
	switch v := t.(type) {
	case string:
		for _, at := range articleTypes {
			if strings.EqualFold(v, at) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if isArticle(item) {
				return true
			}
		}
	}
	return false
}
