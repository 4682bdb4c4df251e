package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"cvBuilder/internal/document"
	"cvBuilder/internal/errcode"
)

// Renderer 将 Document 渲染为自包含的 HTML。渲染是纯函数：相同输入得到逐字节相同的输出。
type Renderer struct {
	templates map[document.Theme]*template.Template
	policy    *bluemonday.Policy
}

// New 为每个主题编译一份模板。模板是编译期常量，解析失败属于程序错误。
func New() (*Renderer, error) {
	base, err := template.New("layout").Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}

	templates := make(map[document.Theme]*template.Template, len(themeLayouts))
	for theme, layout := range themeLayouts {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", theme, err)
		}
		if _, err := t.Parse(layout.header); err != nil {
			return nil, fmt.Errorf("parse %s header: %w", theme, err)
		}
		if _, err := t.Parse(layout.record); err != nil {
			return nil, fmt.Errorf("parse %s record: %w", theme, err)
		}
		templates[theme] = t
	}

	return &Renderer{
		templates: templates,
		policy:    bluemonday.UGCPolicy(),
	}, nil
}

// MustNew 用于 cmd 入口。
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// RenderHTML 渲染用于打印/导出的 HTML。
func (r *Renderer) RenderHTML(doc document.Document) (string, error) {
	return r.render(doc, false)
}

// RenderPreview 渲染编辑器预览：空章节带 data-preview-empty 标记和仅屏幕可见的提示。
func (r *Renderer) RenderPreview(doc document.Document) (string, error) {
	return r.render(doc, true)
}

type pageView struct {
	Lang        string
	Title       string
	Description string
	Theme       document.Theme
	Compact     bool
	Preview     bool
	CSS         template.CSS
	Sections    []sectionView
}

type sectionView struct {
	Key     string
	Title   string
	Empty   bool
	Records []recordView
}

type recordView struct {
	Title    string
	Subtitle string
	Location string
	Period   string
	Summary  template.HTML
	URL      string
	Level    string
	Tags     []string
	Details  []document.Detail
}

func (r *Renderer) render(doc document.Document, preview bool) (string, error) {
	const op = "render.html"

	tmpl, ok := r.templates[doc.CV.Theme]
	if !ok {
		return "", errcode.Validation(op, fmt.Sprintf("unknown theme %q", doc.CV.Theme))
	}

	view := pageView{
		Lang:        doc.CV.Language,
		Title:       doc.CV.Title,
		Description: doc.CV.Description,
		Theme:       doc.CV.Theme,
		Compact:     doc.Compact,
		Preview:     preview,
		CSS:         stylesheet(doc.Style, themeLayouts[doc.CV.Theme].css),
		Sections:    make([]sectionView, 0, len(doc.Sections)),
	}
	if view.Lang == "" {
		view.Lang = "en"
	}
	for _, s := range doc.Sections {
		sv := sectionView{
			Key:     string(s.Key),
			Title:   s.Title,
			Empty:   s.Empty(),
			Records: make([]recordView, 0, len(s.Records)),
		}
		for _, rec := range s.Records {
			sv.Records = append(sv.Records, recordView{
				Title:    rec.Title,
				Subtitle: rec.Subtitle,
				Location: rec.Location,
				Period:   rec.Period,
				Summary:  r.sanitize(rec.Summary),
				URL:      rec.URL,
				Level:    rec.Level,
				Tags:     rec.Tags,
				Details:  rec.Details,
			})
		}
		view.Sections = append(view.Sections, sv)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", errcode.RenderingFailed(op, err)
	}
	return buf.String(), nil
}

// sanitize 清洗富文本摘要；纯文本的换行转为 <br>。
func (r *Renderer) sanitize(summary string) template.HTML {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}
	if !strings.Contains(summary, "<") {
		summary = strings.ReplaceAll(template.HTMLEscapeString(summary), "\n", "<br>")
	}
	return template.HTML(r.policy.Sanitize(summary))
}

// stylesheet 在 Go 中拼出样式表。字体、颜色在 MergeStyle 中已校验，可以直接写入。
func stylesheet(s document.Style, themeCSS string) template.CSS {
	var b strings.Builder
	margin := num(s.Margin)

	fmt.Fprintf(&b, "@page{size:A4;margin:%sin}", margin)
	fmt.Fprintf(&b, ":root{--cv-accent:%s}", s.HeaderColor)
	fmt.Fprintf(&b, "body{margin:0;font-family:%s;font-size:%spt;line-height:%s;color:#222}",
		s.FontFamily, num(s.FontSize), num(s.LineHeight))
	b.WriteString(".cv-page{max-width:8.27in;margin:0 auto}")
	b.WriteString("@media screen{.cv-page{padding:" + margin + "in;box-sizing:border-box}}")
	fmt.Fprintf(&b, "h1,h2{color:%s;margin:0}", s.HeaderColor)
	b.WriteString(".cv-name{font-size:2em}.cv-section{margin-top:12px;break-inside:avoid-page}")
	b.WriteString(".cv-section-title{font-size:1.15em;padding-bottom:2px;margin-bottom:6px}")
	if s.SectionDivider {
		fmt.Fprintf(&b, ".cv-section-title{border-bottom:1px solid %s}", s.HeaderColor)
	}
	b.WriteString(".cv-record{margin-bottom:8px;break-inside:avoid}")
	b.WriteString(".cv-record-head{display:flex;justify-content:space-between;gap:8px}")
	b.WriteString(".cv-record-title{font-weight:600}.cv-record-period,.cv-record-sub{color:#555}")
	b.WriteString(".cv-record-details,.cv-record-tags{list-style:none;padding:0;margin:2px 0;display:flex;flex-wrap:wrap;gap:4px 12px}")
	b.WriteString(".cv-preview-note{color:#888;font-style:italic;border:1px dashed #bbb;padding:6px}")
	b.WriteString("@media print{.cv-preview-note{display:none}}")
	b.WriteString(themeCSS)

	return template.CSS(b.String())
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
