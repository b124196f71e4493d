package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

const (
	FieldItem     = "item"
	FieldTitle    = "title"
	FieldLink     = "link"
	FieldDate     = "date"
	FieldSummary  = "summary"
	FieldAuthor   = "author"
	FieldCategory = "category"

	// AttrHTML 取匹配元素的 inner HTML（会经过清洗）
	AttrHTML = "html"
)

var (
	requiredFields = []string{FieldItem, FieldTitle, FieldLink}
	knownFields    = map[string]bool{
		FieldItem: true, FieldTitle: true, FieldLink: true, FieldDate: true,
		FieldSummary: true, FieldAuthor: true, FieldCategory: true,
	}
)

// Rule 一条取值规则。CSS 为空表示作用范围内的元素本身，Attr 为空表示取文本。
// Up 表示先从条目元素往上走几层再查找，日期写在卡片外层时用得到
type Rule struct {
	CSS  string
	Attr string
	Up   int
}

// maxUp 祖先层数上限
const maxUp = 3

// ParseRule 解析 "css"、"css@attr"、"@attr"、"." 四种写法，
// 前面每加一个 "^" 作用范围上移一层，如 "^ time"、"^^ span.date@title"
func ParseRule(s string) Rule {
	s = strings.TrimSpace(s)
	up := 0
	for strings.HasPrefix(s, "^") {
		up++
		s = strings.TrimSpace(s[1:])
	}

	r := Rule{CSS: s, Up: up}
	if s == "." || s == "" {
		r.CSS = ""
		return r
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		attr := strings.TrimSpace(s[i+1:])
		if attr != "" && !strings.ContainsAny(attr, " ]>+~,") {
			css := strings.TrimSpace(s[:i])
			if css == "." {
				css = ""
			}
			r.CSS, r.Attr = css, attr
		}
	}
	return r
}

func (r Rule) String() string {
	var out string
	switch {
	case r.Attr == "" && r.CSS == "":
		out = "."
	case r.Attr == "":
		out = r.CSS
	case r.CSS == "":
		out = "@" + r.Attr
	default:
		out = r.CSS + "@" + r.Attr
	}
	if r.Up > 0 {
		return strings.Repeat("^", r.Up) + " " + out
	}
	return out
}

// RuleList 按顺序尝试的一组规则，YAML 里可以写成单个字符串或列表
type RuleList []Rule

func (l *RuleList) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		raw = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: selector must be a string or a list of strings", node.Line)
	}
	out := make(RuleList, 0, len(raw))
	for _, s := range raw {
		out = append(out, ParseRule(s))
	}
	*l = out
	return nil
}

func (l RuleList) MarshalYAML() (any, error) {
	if len(l) == 1 {
		return l[0].String(), nil
	}
	out := make([]string, 0, len(l))
	for _, r := range l {
		out = append(out, r.String())
	}
	return out, nil
}

func (l RuleList) String() string {
	parts := make([]string, 0, len(l))
	for _, r := range l {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, " | ")
}

// Selectors 字段名 -> 规则列表
type Selectors map[string]RuleList

// Validate 必需字段齐全，字段名已知，所有 CSS 都能编译
func (s Selectors) Validate() error {
	for _, f := range requiredFields {
		if len(s[f]) == 0 {
			return fmt.Errorf("selectors.%s is required", f)
		}
	}
	if s[FieldItem][0].CSS == "" {
		return fmt.Errorf("selectors.%s needs a CSS selector", FieldItem)
	}
	for _, r := range s[FieldItem] {
		if r.Up > 0 {
			return fmt.Errorf("selectors.%s: %q cannot use ^, items are matched from the document root", FieldItem, r.String())
		}
	}

	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if !knownFields[f] {
			return fmt.Errorf("selectors.%s: unknown field", f)
		}
		for _, r := range s[f] {
			if r.Up > maxUp {
				return fmt.Errorf("selectors.%s: %q goes up more than %d levels", f, r.String(), maxUp)
			}
			if r.CSS == "" {
				continue
			}
			if _, err := cascadia.Compile(r.CSS); err != nil {
				return fmt.Errorf("selectors.%s: invalid selector %q: %w", f, r.CSS, err)
			}
		}
	}
	return nil
}
