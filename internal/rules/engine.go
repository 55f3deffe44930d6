package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Mode URL 条件的匹配方式
type Mode string

const (
	ModeContains Mode = "contains"
	ModePrefix   Mode = "prefix"
	ModeExact    Mode = "exact"
	ModeRegex    Mode = "regex"
	ModeGlob     Mode = "glob"
)

// Condition 单个 URL 匹配条件
type Condition struct {
	Mode    Mode   `yaml:"mode"`
	Pattern string `yaml:"pattern"`
}

// Contains 把一组标记转换为包含匹配条件
func Contains(markers ...string) []Condition {
	conds := make([]Condition, 0, len(markers))
	for _, m := range markers {
		conds = append(conds, Condition{Mode: ModeContains, Pattern: m})
	}
	return conds
}

// UnmarshalYAML 同时接受纯字符串（按 contains 处理）和 {mode, pattern} 映射
func (c *Condition) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*c = Condition{Mode: ModeContains, Pattern: n.Value}
		return nil
	}
	type plain Condition
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	if p.Mode == "" {
		p.Mode = ModeContains
	}
	*c = Condition(p)
	return nil
}

// Validate 检查匹配方式与模式是否可用
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Pattern) == "" {
		return fmt.Errorf("empty pattern for mode %q", c.Mode)
	}
	switch c.Mode {
	case ModeContains, ModePrefix, ModeExact, ModeGlob:
		return nil
	case ModeRegex:
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("bad regex %q: %w", c.Pattern, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown match mode %q", c.Mode)
	}
}

// Engine 按 anyOf 语义对 URL 求值
type Engine struct {
	conds []Condition
}

// New 创建匹配器，模式为空的条件被忽略
func New(conds ...Condition) *Engine {
	kept := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if strings.TrimSpace(c.Pattern) != "" {
			kept = append(kept, c)
		}
	}
	return &Engine{conds: kept}
}

// Match 任一条件命中即返回 true
func (e *Engine) Match(url string) bool {
	for i := range e.conds {
		if cond(url, e.conds[i]) {
			return true
		}
	}
	return false
}

// AuthRedirect 判断当前 URL 是否落在登录/认证页面
func (e *Engine) AuthRedirect(url string) bool { return e.Match(url) }

func cond(s string, c Condition) bool {
	switch c.Mode {
	case ModeContains:
		return strings.Contains(s, c.Pattern)
	case ModePrefix:
		return strings.HasPrefix(s, c.Pattern)
	case ModeExact:
		return s == c.Pattern
	case ModeRegex:
		return matchRegex(s, c.Pattern)
	case ModeGlob:
		return glob(s, c.Pattern)
	default:
		return false
	}
}

// ContainsMarker 判断 class 属性中是否出现标记，按子串匹配，
// is-disabled、disabled-sector 之类的写法同样算作命中
func ContainsMarker(classAttr, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(classAttr, marker)
}

var regexCache sync.Map

func matchRegex(s, pattern string) bool {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp).MatchString(s)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	regexCache.Store(pattern, re)
	return re.MatchString(s)
}

func glob(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(s, strings.TrimPrefix(pattern, "*")) {
		return true
	}
	if strings.HasSuffix(pattern, "*") && strings.HasPrefix(s, strings.TrimSuffix(pattern, "*")) {
		return true
	}
	return s == pattern
}
