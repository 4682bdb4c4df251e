package section

import (
	"fmt"
	"strings"

	"cvBuilder/internal/errcode"
)

// Key 标识 CV 的一个固定章节。
type Key string

const (
	Contact      Key = "contact"
	Education    Key = "education"
	Work         Key = "work"
	Project      Key = "project"
	Organization Key = "organization"
	Course       Key = "course"
	Skill        Key = "skill"
	Language     Key = "language"
)

var canonical = [...]Key{Contact, Education, Work, Project, Organization, Course, Skill, Language}

var labels = map[Key]string{
	Contact:      "Contact",
	Education:    "Education",
	Work:         "Work Experience",
	Project:      "Projects",
	Organization: "Organizations",
	Course:       "Courses",
	Skill:        "Skills",
	Language:     "Languages",
}

// Order 是章节键的有序序列。
type Order []Key

// Titles 是章节键到自定义标题的映射。
type Titles map[Key]string

// DefaultOrder 返回规范的章节顺序，每次返回新切片。
func DefaultOrder() Order {
	out := make(Order, len(canonical))
	copy(out, canonical[:])
	return out
}

// Valid 判断是否属于固定的 8 个章节。
func (k Key) Valid() bool {
	_, ok := labels[k]
	return ok
}

// Label 返回章节的规范标题。
func (k Key) Label() string {
	return labels[k]
}

// ParseKey 解析外部传入的章节键（忽略大小写与首尾空白）。
func ParseKey(raw string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", errcode.Validation("section.parse",
			fmt.Sprintf("unknown section %q (expected one of %s)", raw, strings.Join(DefaultOrder().Strings(), ", ")))
	}
	return k, nil
}

// ValidateOrder 校验 keys 恰好是 8 个章节键的一个排列。
func ValidateOrder(keys []string) (Order, error) {
	const op = "section.order"
	if len(keys) != len(canonical) {
		return nil, errcode.Validation(op, fmt.Sprintf("expected all %d sections (%s), got %d",
			len(canonical), strings.Join(DefaultOrder().Strings(), ", "), len(keys)))
	}
	seen := make(map[Key]struct{}, len(keys))
	out := make(Order, 0, len(keys))
	for _, raw := range keys {
		k, err := ParseKey(raw)
		if err != nil {
			return nil, errcode.Validation(op, fmt.Sprintf("unknown section %q", raw))
		}
		if _, dup := seen[k]; dup {
			return nil, errcode.Validation(op, fmt.Sprintf("duplicate section %q", k))
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// Resolve 将存储的顺序规范化：丢弃未知或重复键，缺失的键按默认顺序追加到末尾。
func Resolve(stored []Key) Order {
	if len(stored) == 0 {
		return DefaultOrder()
	}
	seen := make(map[Key]struct{}, len(canonical))
	out := make(Order, 0, len(canonical))
	for _, k := range stored {
		if !k.Valid() {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range canonical {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Title 返回自定义标题，未设置时回落到规范标题。
func (t Titles) Title(k Key) string {
	if custom := strings.TrimSpace(t[k]); custom != "" {
		return custom
	}
	return k.Label()
}

// Strings 返回键的字符串形式，用于错误信息与序列化。
func (o Order) Strings() []string {
	out := make([]string, len(o))
	for i, k := range o {
		out[i] = string(k)
	}
	return out
}
