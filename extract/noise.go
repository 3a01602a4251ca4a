package extract

import "strings"

// NoiseFilter 过滤正文段落里的界面文案和版权声明，按部署地区配置
type NoiseFilter struct {
	Contains []string
	Prefixes []string
}

// DefaultNoise 韩文新闻站点的默认过滤词
func DefaultNoise() NoiseFilter {
	return NoiseFilter{
		Contains: []string{"번역beta", "무단전재", "재배포 금지"},
		Prefixes: []string{"Translated by", "글씨크기", "인쇄하기"},
	}
}

func (f NoiseFilter) Match(text string) bool {
	for _, c := range f.Contains {
		if c != "" && strings.Contains(text, c) {
			return true
		}
	}
	for _, p := range f.Prefixes {
		if p != "" && strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
