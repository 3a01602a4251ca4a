package normalize

// OrderedSet 保持插入顺序的字符串集合，零值可直接使用。
// 用于跨页文章链接去重和单篇文章内的图片去重。
type OrderedSet struct {
	index map[string]struct{}
	items []string
}

func NewOrderedSet(capacity int) *OrderedSet {
	return &OrderedSet{
		index: make(map[string]struct{}, capacity),
		items: make([]string, 0, capacity),
	}
}

// Add 返回 true 表示 v 是新元素
func (s *OrderedSet) Add(v string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *OrderedSet) Has(v string) bool {
	_, ok := s.index[v]
	return ok
}

func (s *OrderedSet) Len() int {
	return len(s.items)
}

// Items 返回副本
func (s *OrderedSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
