package database

import (
	"strings"

	"cvBuilder/internal/document"
)

// Contact 联系方式章节。
type Contact struct {
	ChildBase
	FullName string `gorm:"size:255" json:"full_name"`
	Headline string `gorm:"size:255" json:"headline"`
	Email    string `gorm:"size:255" json:"email"`
	Phone    string `gorm:"size:64" json:"phone"`
	Location string `gorm:"size:255" json:"location"`
	Website  string `gorm:"size:512" json:"website"`
	LinkedIn string `gorm:"column:linkedin;size:512" json:"linkedin"`
	GitHub   string `gorm:"column:github;size:512" json:"github"`
}

func (Contact) TableName() string { return "cv_contacts" }

func (c Contact) ToRecord() document.Record {
	details := make([]document.Detail, 0, 6)
	details = appendDetail(details, "Email", c.Email)
	details = appendDetail(details, "Phone", c.Phone)
	details = appendDetail(details, "Location", c.Location)
	details = appendDetail(details, "Website", c.Website)
	details = appendDetail(details, "LinkedIn", c.LinkedIn)
	details = appendDetail(details, "GitHub", c.GitHub)
	return document.Record{
		ID:           c.ID,
		DisplayOrder: c.DisplayOrder,
		Title:        c.FullName,
		Subtitle:     c.Headline,
		Details:      details,
	}
}

// Education 教育经历章节。
type Education struct {
	ChildBase
	Institution  string `gorm:"size:255" json:"institution"`
	Degree       string `gorm:"size:255" json:"degree"`
	FieldOfStudy string `gorm:"size:255" json:"field_of_study"`
	Location     string `gorm:"size:255" json:"location"`
	StartDate    string `gorm:"size:16" json:"start_date"`
	EndDate      string `gorm:"size:16" json:"end_date"`
	Grade        string `gorm:"size:64" json:"grade"`
	Description  string `gorm:"type:text" json:"description"`
}

func (Education) TableName() string { return "cv_educations" }

func (e Education) ToRecord() document.Record {
	title := e.Degree
	if e.FieldOfStudy != "" {
		if title != "" {
			title += ", "
		}
		title += e.FieldOfStudy
	}
	rec := document.Record{
		ID:           e.ID,
		DisplayOrder: e.DisplayOrder,
		Title:        title,
		Subtitle:     e.Institution,
		Location:     e.Location,
		Period:       document.Period(e.StartDate, e.EndDate, false),
		Summary:      e.Description,
	}
	rec.Details = appendDetail(rec.Details, "Grade", e.Grade)
	return rec
}

// Work 工作经历章节。
type Work struct {
	ChildBase
	Company     string `gorm:"size:255" json:"company"`
	Position    string `gorm:"size:255" json:"position"`
	Location    string `gorm:"size:255" json:"location"`
	StartDate   string `gorm:"size:16" json:"start_date"`
	EndDate     string `gorm:"size:16" json:"end_date"`
	IsCurrent   bool   `gorm:"default:false" json:"is_current"`
	Description string `gorm:"type:text" json:"description"`
}

func (Work) TableName() string { return "cv_works" }

func (w Work) ToRecord() document.Record {
	return document.Record{
		ID:           w.ID,
		DisplayOrder: w.DisplayOrder,
		Title:        w.Position,
		Subtitle:     w.Company,
		Location:     w.Location,
		Period:       document.Period(w.StartDate, w.EndDate, w.IsCurrent),
		Summary:      w.Description,
	}
}

// Project 项目经历章节。
type Project struct {
	ChildBase
	Name         string `gorm:"size:255" json:"name"`
	Role         string `gorm:"size:255" json:"role"`
	URL          string `gorm:"column:url;size:512" json:"url"`
	Technologies string `gorm:"size:512" json:"technologies"`
	StartDate    string `gorm:"size:16" json:"start_date"`
	EndDate      string `gorm:"size:16" json:"end_date"`
	Description  string `gorm:"type:text" json:"description"`
}

func (Project) TableName() string { return "cv_projects" }

func (p Project) ToRecord() document.Record {
	return document.Record{
		ID:           p.ID,
		DisplayOrder: p.DisplayOrder,
		Title:        p.Name,
		Subtitle:     p.Role,
		Period:       document.Period(p.StartDate, p.EndDate, false),
		Summary:      p.Description,
		URL:          p.URL,
		Tags:         splitList(p.Technologies),
	}
}

// Organization 社团/组织经历章节。
type Organization struct {
	ChildBase
	Name        string `gorm:"size:255" json:"name"`
	Role        string `gorm:"size:255" json:"role"`
	Location    string `gorm:"size:255" json:"location"`
	StartDate   string `gorm:"size:16" json:"start_date"`
	EndDate     string `gorm:"size:16" json:"end_date"`
	Description string `gorm:"type:text" json:"description"`
}

func (Organization) TableName() string { return "cv_organizations" }

func (o Organization) ToRecord() document.Record {
	return document.Record{
		ID:           o.ID,
		DisplayOrder: o.DisplayOrder,
		Title:        o.Role,
		Subtitle:     o.Name,
		Location:     o.Location,
		Period:       document.Period(o.StartDate, o.EndDate, false),
		Summary:      o.Description,
	}
}

// Course 课程/证书章节。
type Course struct {
	ChildBase
	Name        string `gorm:"size:255" json:"name"`
	Provider    string `gorm:"size:255" json:"provider"`
	URL         string `gorm:"column:url;size:512" json:"url"`
	CompletedOn string `gorm:"size:16" json:"completed_on"`
	Description string `gorm:"type:text" json:"description"`
}

func (Course) TableName() string { return "cv_courses" }

func (c Course) ToRecord() document.Record {
	return document.Record{
		ID:           c.ID,
		DisplayOrder: c.DisplayOrder,
		Title:        c.Name,
		Subtitle:     c.Provider,
		Period:       c.CompletedOn,
		Summary:      c.Description,
		URL:          c.URL,
	}
}

// Skill 技能章节。
type Skill struct {
	ChildBase
	Name     string `gorm:"size:255" json:"name"`
	Level    string `gorm:"size:64" json:"level"`
	Keywords string `gorm:"size:512" json:"keywords"`
}

func (Skill) TableName() string { return "cv_skills" }

func (s Skill) ToRecord() document.Record {
	return document.Record{
		ID:           s.ID,
		DisplayOrder: s.DisplayOrder,
		Title:        s.Name,
		Level:        s.Level,
		Tags:         splitList(s.Keywords),
	}
}

// Language 语言能力章节。
type Language struct {
	ChildBase
	Name        string `gorm:"size:128" json:"name"`
	Proficiency string `gorm:"size:64" json:"proficiency"`
}

func (Language) TableName() string { return "cv_languages" }

func (l Language) ToRecord() document.Record {
	return document.Record{
		ID:           l.ID,
		DisplayOrder: l.DisplayOrder,
		Title:        l.Name,
		Level:        l.Proficiency,
	}
}

func appendDetail(details []document.Detail, label, value string) []document.Detail {
	value = strings.TrimSpace(value)
	if value == "" {
		return details
	}
	return append(details, document.Detail{Label: label, Value: value})
}

// splitList 将逗号分隔的字符串拆成去空白的列表。
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
