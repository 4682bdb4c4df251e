package database

import "strings"

// 各章节的写入载荷。载荷中不包含 cv_id：归属只能由调用方传入的 cvID 决定，
// 请求体里伪造的 cv_id 字段在解码时即被丢弃。nil 字段在更新时被忽略。

type ContactInput struct {
	DisplayOrder *int    `json:"display_order"`
	FullName     *string `json:"full_name"`
	Headline     *string `json:"headline"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Location     *string `json:"location"`
	Website      *string `json:"website"`
	LinkedIn     *string `json:"linkedin"`
	GitHub       *string `json:"github"`
}

func (in ContactInput) ToModel(cvID uint) Contact {
	return Contact{
		ChildBase: ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		FullName:  str(in.FullName),
		Headline:  str(in.Headline),
		Email:     str(in.Email),
		Phone:     str(in.Phone),
		Location:  str(in.Location),
		Website:   str(in.Website),
		LinkedIn:  str(in.LinkedIn),
		GitHub:    str(in.GitHub),
	}
}

func (in ContactInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("full_name", in.FullName)
	p.str("headline", in.Headline)
	p.str("email", in.Email)
	p.str("phone", in.Phone)
	p.str("location", in.Location)
	p.str("website", in.Website)
	p.str("linkedin", in.LinkedIn)
	p.str("github", in.GitHub)
	return p
}

type EducationInput struct {
	DisplayOrder *int    `json:"display_order"`
	Institution  *string `json:"institution"`
	Degree       *string `json:"degree"`
	FieldOfStudy *string `json:"field_of_study"`
	Location     *string `json:"location"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Grade        *string `json:"grade"`
	Description  *string `json:"description"`
}

func (in EducationInput) ToModel(cvID uint) Education {
	return Education{
		ChildBase:    ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Institution:  str(in.Institution),
		Degree:       str(in.Degree),
		FieldOfStudy: str(in.FieldOfStudy),
		Location:     str(in.Location),
		StartDate:    str(in.StartDate),
		EndDate:      str(in.EndDate),
		Grade:        str(in.Grade),
		Description:  str(in.Description),
	}
}

func (in EducationInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("institution", in.Institution)
	p.str("degree", in.Degree)
	p.str("field_of_study", in.FieldOfStudy)
	p.str("location", in.Location)
	p.str("start_date", in.StartDate)
	p.str("end_date", in.EndDate)
	p.str("grade", in.Grade)
	p.str("description", in.Description)
	return p
}

type WorkInput struct {
	DisplayOrder *int    `json:"display_order"`
	Company      *string `json:"company"`
	Position     *string `json:"position"`
	Location     *string `json:"location"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	IsCurrent    *bool   `json:"is_current"`
	Description  *string `json:"description"`
}

func (in WorkInput) ToModel(cvID uint) Work {
	w := Work{
		ChildBase:   ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Company:     str(in.Company),
		Position:    str(in.Position),
		Location:    str(in.Location),
		StartDate:   str(in.StartDate),
		EndDate:     str(in.EndDate),
		Description: str(in.Description),
	}
	if in.IsCurrent != nil {
		w.IsCurrent = *in.IsCurrent
	}
	return w
}

func (in WorkInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("company", in.Company)
	p.str("position", in.Position)
	p.str("location", in.Location)
	p.str("start_date", in.StartDate)
	p.str("end_date", in.EndDate)
	p.bool("is_current", in.IsCurrent)
	p.str("description", in.Description)
	return p
}

type ProjectInput struct {
	DisplayOrder *int    `json:"display_order"`
	Name         *string `json:"name"`
	Role         *string `json:"role"`
	URL          *string `json:"url"`
	Technologies *string `json:"technologies"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Description  *string `json:"description"`
}

func (in ProjectInput) ToModel(cvID uint) Project {
	return Project{
		ChildBase:    ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Name:         str(in.Name),
		Role:         str(in.Role),
		URL:          str(in.URL),
		Technologies: str(in.Technologies),
		StartDate:    str(in.StartDate),
		EndDate:      str(in.EndDate),
		Description:  str(in.Description),
	}
}

func (in ProjectInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("name", in.Name)
	p.str("role", in.Role)
	p.str("url", in.URL)
	p.str("technologies", in.Technologies)
	p.str("start_date", in.StartDate)
	p.str("end_date", in.EndDate)
	p.str("description", in.Description)
	return p
}

type OrganizationInput struct {
	DisplayOrder *int    `json:"display_order"`
	Name         *string `json:"name"`
	Role         *string `json:"role"`
	Location     *string `json:"location"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Description  *string `json:"description"`
}

func (in OrganizationInput) ToModel(cvID uint) Organization {
	return Organization{
		ChildBase:   ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Name:        str(in.Name),
		Role:        str(in.Role),
		Location:    str(in.Location),
		StartDate:   str(in.StartDate),
		EndDate:     str(in.EndDate),
		Description: str(in.Description),
	}
}

func (in OrganizationInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("name", in.Name)
	p.str("role", in.Role)
	p.str("location", in.Location)
	p.str("start_date", in.StartDate)
	p.str("end_date", in.EndDate)
	p.str("description", in.Description)
	return p
}

type CourseInput struct {
	DisplayOrder *int    `json:"display_order"`
	Name         *string `json:"name"`
	Provider     *string `json:"provider"`
	URL          *string `json:"url"`
	CompletedOn  *string `json:"completed_on"`
	Description  *string `json:"description"`
}

func (in CourseInput) ToModel(cvID uint) Course {
	return Course{
		ChildBase:   ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Name:        str(in.Name),
		Provider:    str(in.Provider),
		URL:         str(in.URL),
		CompletedOn: str(in.CompletedOn),
		Description: str(in.Description),
	}
}

func (in CourseInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("name", in.Name)
	p.str("provider", in.Provider)
	p.str("url", in.URL)
	p.str("completed_on", in.CompletedOn)
	p.str("description", in.Description)
	return p
}

type SkillInput struct {
	DisplayOrder *int    `json:"display_order"`
	Name         *string `json:"name"`
	Level        *string `json:"level"`
	Keywords     *string `json:"keywords"`
}

func (in SkillInput) ToModel(cvID uint) Skill {
	return Skill{
		ChildBase: ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Name:      str(in.Name),
		Level:     str(in.Level),
		Keywords:  str(in.Keywords),
	}
}

func (in SkillInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("name", in.Name)
	p.str("level", in.Level)
	p.str("keywords", in.Keywords)
	return p
}

type LanguageInput struct {
	DisplayOrder *int    `json:"display_order"`
	Name         *string `json:"name"`
	Proficiency  *string `json:"proficiency"`
}

func (in LanguageInput) ToModel(cvID uint) Language {
	return Language{
		ChildBase:   ChildBase{CVID: cvID, DisplayOrder: in.DisplayOrder},
		Name:        str(in.Name),
		Proficiency: str(in.Proficiency),
	}
}

func (in LanguageInput) Patch() map[string]any {
	p := patch{}
	p.int("display_order", in.DisplayOrder)
	p.str("name", in.Name)
	p.str("proficiency", in.Proficiency)
	return p
}

type patch map[string]any

func (p patch) str(column string, v *string) {
	if v != nil {
		p[column] = strings.TrimSpace(*v)
	}
}

func (p patch) int(column string, v *int) {
	if v != nil {
		p[column] = *v
	}
}

func (p patch) bool(column string, v *bool) {
	if v != nil {
		p[column] = *v
	}
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
