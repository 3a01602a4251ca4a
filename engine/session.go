package engine

import (
	"go.uber.org/zap"

	"news-crawler/collect"
	"news-crawler/normalize"
)

// State 一次抓取会话所处的阶段
type State int

const (
	StateInit State = iota
	StateFetchingListing
	StateExtractingLinks
	StateFetchingArticle
	StateExtractingArticle
	StatePersisted
	StateSkipped
	StateDone
)

var stateNames = [...]string{
	StateInit:              "init",
	StateFetchingListing:   "fetching_listing",
	StateExtractingLinks:   "extracting_links",
	StateFetchingArticle:   "fetching_article",
	StateExtractingArticle: "extracting_article",
	StatePersisted:         "persisted",
	StateSkipped:           "skipped",
	StateDone:              "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

type Stats struct {
	Pages   int // 已抓取的列表页
	Links   int // 去重后的文章链接
	Saved   int
	Skipped int
}

// session 单次 Crawl 调用的状态，只在一个 goroutine 内使用
type session struct {
	id     string
	req    collect.CrawlRequest
	site   collect.Site
	seen   *normalize.OrderedSet
	saved  []int64
	cursor *collect.Cursor
	state  State
	stats  Stats
	logger *zap.Logger
}

func (s *session) setState(st State) {
	s.state = st
	s.logger.Debug("session state", zap.Stringer("state", st))
}

func (s *session) quotaMet() bool {
	return len(s.saved) >= s.req.Quota
}

// fresh 返回本页中之前没见过的链接，保持页面顺序
func (s *session) fresh(links []string) []string {
	var out []string
	for _, l := range links {
		if s.seen.Add(l) {
			out = append(out, l)
		}
	}
	s.stats.Links += len(out)
	return out
}

func (s *session) persisted(id int64, url string) {
	s.saved = append(s.saved, id)
	s.stats.Saved++
	s.setState(StatePersisted)
	s.logger.Info("article saved", zap.Int64("id", id), zap.String("url", url), zap.Int("saved", len(s.saved)))
}

func (s *session) skip(url, msg string, err error) {
	s.stats.Skipped++
	s.setState(StateSkipped)
	s.logger.Warn(msg, zap.String("url", url), zap.Error(err))
}

func (s *session) result() []int64 {
	out := make([]int64, len(s.saved))
	copy(out, s.saved)
	return out
}
