package engine

import (
	"sort"
	"sync"

	"news-crawler/collect"
	"news-crawler/parse/daum"
	"news-crawler/parse/naver"
)

// 注册默认站点
func init() {
	Store.Add(daum.New())
	Store.Add(naver.New())
}

// 全局站点注册表
var Store = NewStore()

type CrawlerStore struct {
	mu   sync.RWMutex
	list []collect.Site
	hash map[collect.Source]collect.Site
}

func NewStore() *CrawlerStore {
	return &CrawlerStore{
		list: []collect.Site{},
		hash: map[collect.Source]collect.Site{},
	}
}

// Add 同一来源重复注册时替换旧的
func (c *CrawlerStore) Add(site collect.Site) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := site.Source()
	if _, ok := c.hash[src]; ok {
		for i, s := range c.list {
			if s.Source() == src {
				c.list[i] = site
			}
		}
	} else {
		c.list = append(c.list, site)
	}
	c.hash[src] = site
}

func (c *CrawlerStore) Get(src collect.Source) (collect.Site, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	site, ok := c.hash[src]
	return site, ok
}

func (c *CrawlerStore) Sources() []collect.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]collect.Source, 0, len(c.list))
	for _, s := range c.list {
		out = append(out, s.Source())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
