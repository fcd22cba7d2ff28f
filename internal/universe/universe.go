package universe

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"signaldesk/internal/pkg/symbol"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

type catalogue struct {
	Venues map[string][]string `yaml:"venues"`
}

// Provider 币种来源接口
type Provider interface {
	Symbols() []string
	Contains(sym string) bool
	Name() string
}

// Universe 当前 venue 下客户端认识的交易对集合，启动后不变。
type Universe struct {
	venue   string
	symbols []string
	index   map[string]int
}

// New 从内置目录加载指定 venue 的交易对。
func New(venue string) (*Universe, error) {
	return parse(catalogueYAML, venue)
}

// FromList 用显式列表构造，主要给测试和自定义部署使用。
func FromList(venue string, symbols []string) (*Universe, error) {
	norm := symbol.NormalizeList(symbols)
	if len(norm) == 0 {
		return nil, errors.New("symbol list is empty after normalization")
	}
	u := &Universe{
		venue:   strings.ToLower(strings.TrimSpace(venue)),
		symbols: norm,
		index:   make(map[string]int, len(norm)),
	}
	for i, s := range norm {
		u.index[s] = i
	}
	return u, nil
}

func parse(raw []byte, venue string) (*Universe, error) {
	var cat catalogue
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse symbol catalogue: %w", err)
	}
	key := strings.ToLower(strings.TrimSpace(venue))
	list, ok := cat.Venues[key]
	if !ok {
		return nil, fmt.Errorf("venue %q not in symbol catalogue", venue)
	}
	return FromList(key, list)
}

func (u *Universe) Name() string { return u.venue }

// Symbols 返回副本，按目录顺序。
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out
}

func (u *Universe) Contains(sym string) bool {
	_, ok := u.index[symbol.Normalize(sym)]
	return ok
}

// Filter 只保留认识的交易对，按目录顺序排列并去重。
func (u *Universe) Filter(symbols []string) []string {
	keep := make([]bool, len(u.symbols))
	for _, s := range symbols {
		if i, ok := u.index[symbol.Normalize(s)]; ok {
			keep[i] = true
		}
	}
	out := make([]string, 0, len(symbols))
	for i, k := range keep {
		if k {
			out = append(out, u.symbols[i])
		}
	}
	return out
}

// First 默认交易对兜底。
func (u *Universe) First() string {
	if len(u.symbols) == 0 {
		return ""
	}
	return u.symbols[0]
}
