// Package normalize 负责文章链接规范化与图片原图地址还原。
package normalize

import (
	"fmt"
	"net/url"
	"strings"

	"news-crawler/collect"
)

// 广告与统计用参数，不影响页面内容
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"dclid":        {},
	"msclkid":      {},
}

// 缩略图的尺寸参数
var resizeParams = map[string]struct{}{
	"type": {},
	"w":    {},
	"t":    {},
}

// CanonicalizeArticleLink 把列表页中的 href 转为去重用的规范地址，无法解析时返回空串。
// naver 的旧式 read.naver?oid=..&aid=.. 链接统一改写为移动端 /mnews/article/{oid}/{aid}。
func CanonicalizeArticleLink(base *url.URL, rawHref string, source collect.Source) string {
	abs := collect.ResolveURL(base, rawHref)
	if abs == "" {
		return ""
	}
	u, err := url.Parse(abs)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""

	if source == collect.SourceNaver {
		if mobile, ok := naverMobileURL(u); ok {
			return mobile
		}
	}

	stripParams(u, trackingParams)
	return u.String()
}

func naverMobileURL(u *url.URL) (string, bool) {
	host, ok := newsHost(u.Hostname())
	if !ok {
		return "", false
	}
	if strings.Contains(u.Path, "/mnews/article/") {
		return "https://n." + host + u.Path, true
	}
	if strings.HasSuffix(u.Path, "read.naver") {
		q := u.Query()
		oid, aid := q.Get("oid"), q.Get("aid")
		if oid != "" && aid != "" {
			return fmt.Sprintf("https://n.%s/mnews/article/%s/%s", host, oid, aid), true
		}
	}
	return "", false
}

// newsHost 取出以 "news." 开头的那一段主机名，如 n.news.naver.com -> news.naver.com
func newsHost(hostname string) (string, bool) {
	hostname = strings.ToLower(hostname)
	for i := 0; i < len(hostname); {
		j := strings.Index(hostname[i:], "news.")
		if j < 0 {
			return "", false
		}
		pos := i + j
		if pos == 0 || hostname[pos-1] == '.' {
			return hostname[pos:], true
		}
		i = pos + 1
	}
	return "", false
}

// RestoreOriginalImageURL 还原缩略图的原图地址：
// 带 fname=<编码后的原图 URL> 的直接解码返回，否则去掉 type/w/t 尺寸参数。
func RestoreOriginalImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if fname := u.Query().Get("fname"); fname != "" {
		return fname
	}
	if u.RawQuery == "" {
		return raw
	}
	stripParams(u, resizeParams)
	return u.String()
}

// stripParams 按原顺序保留其余参数
func stripParams(u *url.URL, drop map[string]struct{}) {
	if u.RawQuery == "" {
		return
	}
	parts := strings.Split(u.RawQuery, "&")
	kept := parts[:0]
	changed := false
	for _, p := range parts {
		if p == "" {
			changed = true
			continue
		}
		key := p
		if i := strings.IndexByte(p, '='); i >= 0 {
			key = p[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if _, ok := drop[strings.ToLower(key)]; ok {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	if changed {
		u.RawQuery = strings.Join(kept, "&")
		u.ForceQuery = false
	}
}
