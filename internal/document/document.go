package document

import "cvBuilder/internal/section"

// Document 是组装器的输出，也是渲染器的唯一输入。
type Document struct {
	CV       Meta      `json:"cv"`
	Sections []Section `json:"sections"`
	Style    Style     `json:"style"`
	Compact  bool      `json:"compact"`
}

// Meta 描述 CV 本身的身份信息。
type Meta struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Theme       Theme  `json:"theme"`
	Language    string `json:"language"`
	Slug        string `json:"slug"`
}

// Section 是文档中的一个章节，Records 已按 display_order、id 排好序。
type Section struct {
	Key     section.Key `json:"key"`
	Title   string      `json:"title"`
	Records []Record    `json:"records"`
}

// Record 是与章节类型无关的规范化条目。
type Record struct {
	ID           uint     `json:"id"`
	DisplayOrder *int     `json:"display_order,omitempty"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Location     string   `json:"location,omitempty"`
	Period       string   `json:"period,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	URL          string   `json:"url,omitempty"`
	Level        string   `json:"level,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Details      []Detail `json:"details,omitempty"`
}

// Detail 是带标签的附加字段（例如联系方式）。
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Recordable 由每种章节实体实现。
type Recordable interface {
	ToRecord() Record
}

// Empty 判断章节是否没有任何条目。
func (s Section) Empty() bool {
	return len(s.Records) == 0
}

// Period 将起止日期格式化为 "start – end"；current 为真时结束时间显示为 Present。
func Period(start, end string, current bool) string {
	switch {
	case current && start != "":
		return start + " – Present"
	case current:
		return "Present"
	case start != "" && end != "":
		return start + " – " + end
	case start != "":
		return start
	default:
		return end
	}
}
