// Package memstorage 内存存储，用于 dry-run 和测试
package memstorage

import (
	"context"
	"fmt"
	"sync"

	"news-crawler/collect"
	"news-crawler/storage"
)

type MemStorage struct {
	mu       sync.Mutex
	nextID   int64
	articles map[int64]*collect.Article
	order    []int64
}

func New() *MemStorage {
	return &MemStorage{articles: make(map[int64]*collect.Article)}
}

// Save id 从 1 开始递增
func (m *MemStorage) Save(ctx context.Context, a *collect.Article) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrPersist, err)
	}
	if !a.Valid() {
		return 0, fmt.Errorf("%w: article without title or body", storage.ErrPersist)
	}
	cp := *a
	cp.Images = append([]string(nil), a.Images...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.articles[m.nextID] = &cp
	m.order = append(m.order, m.nextID)
	return m.nextID, nil
}

func (m *MemStorage) Get(id int64) (*collect.Article, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	return a, ok
}

// All 按保存顺序返回
func (m *MemStorage) All() []*collect.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*collect.Article, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.articles[id])
	}
	return out
}

func (m *MemStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
