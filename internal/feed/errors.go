package feed

import "fmt"

// ParseError HTML 无法解析，或者必需的选择器一个元素都没匹配到
type ParseError struct {
	Feed     string
	Field    string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("feed %s: parse %s", e.Feed, e.Field)
	if e.Selector != "" {
		msg += fmt.Sprintf(" (selector %q)", e.Selector)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + ": no matching elements"
}

func (e *ParseError) Unwrap() error { return e.Err }

// SerializationError 记录缺少生成 RSS 所需的字段。Index 为 -1 表示频道本身缺字段
type SerializationError struct {
	Feed  string
	Index int
	Field string
}

func (e *SerializationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("feed %s: channel is missing %s", e.Feed, e.Field)
	}
	return fmt.Sprintf("feed %s: record %d is missing %s", e.Feed, e.Index, e.Field)
}
