package store

import (
	"gorm.io/gorm"

	"cvBuilder/internal/database"
	"cvBuilder/internal/section"
)

// Sections 聚合 8 个章节仓储实例。
type Sections struct {
	Contact      *ChildStore[database.Contact, database.ContactInput]
	Education    *ChildStore[database.Education, database.EducationInput]
	Work         *ChildStore[database.Work, database.WorkInput]
	Project      *ChildStore[database.Project, database.ProjectInput]
	Organization *ChildStore[database.Organization, database.OrganizationInput]
	Course       *ChildStore[database.Course, database.CourseInput]
	Skill        *ChildStore[database.Skill, database.SkillInput]
	Language     *ChildStore[database.Language, database.LanguageInput]
}

var _ ChildEntityStore[database.Work, database.WorkInput] = (*ChildStore[database.Work, database.WorkInput])(nil)

// NewSections 为每种章节实例化通用仓储。
func NewSections(db *gorm.DB) *Sections {
	return &Sections{
		Contact:      NewChildStore[database.Contact, database.ContactInput](db, string(section.Contact)),
		Education:    NewChildStore[database.Education, database.EducationInput](db, string(section.Education)),
		Work:         NewChildStore[database.Work, database.WorkInput](db, string(section.Work)),
		Project:      NewChildStore[database.Project, database.ProjectInput](db, string(section.Project)),
		Organization: NewChildStore[database.Organization, database.OrganizationInput](db, string(section.Organization)),
		Course:       NewChildStore[database.Course, database.CourseInput](db, string(section.Course)),
		Skill:        NewChildStore[database.Skill, database.SkillInput](db, string(section.Skill)),
		Language:     NewChildStore[database.Language, database.LanguageInput](db, string(section.Language)),
	}
}

// Listers 返回章节键到读取接口的映射，供组装器并发读取。
func (s *Sections) Listers() map[section.Key]RecordLister {
	return map[section.Key]RecordLister{
		section.Contact:      s.Contact,
		section.Education:    s.Education,
		section.Work:         s.Work,
		section.Project:      s.Project,
		section.Organization: s.Organization,
		section.Course:       s.Course,
		section.Skill:        s.Skill,
		section.Language:     s.Language,
	}
}
