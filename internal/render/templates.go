package render

import "cvBuilder/internal/document"

// layoutTemplate 是所有主题共享的页面骨架，主题通过 "header" 与 "record" 两个子模板定制。
const layoutTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body class="cv theme-{{.Theme}}{{if .Compact}} cv-compact{{end}}">
<main class="cv-page">
{{template "header" .}}
{{range .Sections}}<section class="cv-section" id="section-{{.Key}}" data-section="{{.Key}}"{{if and $.Preview .Empty}} data-preview-empty="true"{{end}}>
<h2 class="cv-section-title">{{.Title}}</h2>
{{if .Empty}}{{if $.Preview}}<p class="cv-preview-note">No entries yet. This section is empty and is kept in the layout.</p>
{{end}}{{else}}<div class="cv-records">
{{range .Records}}{{template "record" .}}
{{end}}</div>
{{end}}</section>
{{end}}</main>
</body>
</html>
`

// recordTemplate 是默认的条目布局：标题行、副标题与时间、正文、标签与附加字段。
const recordTemplate = `{{define "record"}}<article class="cv-record">
<div class="cv-record-head"><span class="cv-record-title">{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</span>{{if .Level}} <span class="cv-record-level">{{.Level}}</span>{{end}}{{if .Period}}<span class="cv-record-period">{{.Period}}</span>{{end}}</div>
{{if or .Subtitle .Location}}<div class="cv-record-sub">{{.Subtitle}}{{if and .Subtitle .Location}} · {{end}}{{.Location}}</div>
{{end}}{{if .Summary}}<div class="cv-record-summary">{{.Summary}}</div>
{{end}}{{if .Details}}<ul class="cv-record-details">{{range .Details}}<li><span class="cv-detail-label">{{.Label}}</span> {{.Value}}</li>{{end}}</ul>
{{end}}{{if .Tags}}<ul class="cv-record-tags">{{range .Tags}}<li>{{.}}</li>{{end}}</ul>
{{end}}</article>{{end}}`

// inlineRecordTemplate 供紧凑主题使用，单行排布以节省纸面。
const inlineRecordTemplate = `{{define "record"}}<article class="cv-record cv-record-inline">
<span class="cv-record-title">{{.Title}}</span>{{if .Subtitle}}, {{.Subtitle}}{{end}}{{if .Level}} ({{.Level}}){{end}}{{if .Period}} <span class="cv-record-period">{{.Period}}</span>{{end}}{{if .Tags}} <span class="cv-record-tags">{{range $i, $t := .Tags}}{{if $i}}, {{end}}{{$t}}{{end}}</span>{{end}}
{{if .Summary}}<div class="cv-record-summary">{{.Summary}}</div>
{{end}}{{if .Details}}<div class="cv-record-details">{{range $i, $d := .Details}}{{if $i}} · {{end}}{{$d.Value}}{{end}}</div>
{{end}}</article>{{end}}`

const bannerHeader = `{{define "header"}}<header class="cv-header cv-header-banner">
<h1 class="cv-name">{{.Title}}</h1>
{{if .Description}}<p class="cv-description">{{.Description}}</p>{{end}}
</header>{{end}}`

const centeredHeader = `{{define "header"}}<header class="cv-header cv-header-centered">
<h1 class="cv-name">{{.Title}}</h1>
{{if .Description}}<p class="cv-description"><em>{{.Description}}</em></p>{{end}}
</header>{{end}}`

const plainHeader = `{{define "header"}}<header class="cv-header">
<h1 class="cv-name">{{.Title}}</h1>
{{if .Description}}<p class="cv-description">{{.Description}}</p>{{end}}
</header>{{end}}`

// themeLayout 描述主题在共享骨架上的差异：子模板与额外样式。
type themeLayout struct {
	header string
	record string
	css    string
}

var themeLayouts = map[document.Theme]themeLayout{
	document.ThemeModern: {
		header: bannerHeader,
		record: recordTemplate,
		css: `.cv-header-banner{border-left:4px solid var(--cv-accent);padding-left:12px}` +
			`.cv-record-tags li{background:#eef3f8;border-radius:3px;padding:0 4px}`,
	},
	document.ThemeClassic: {
		header: centeredHeader,
		record: recordTemplate,
		css: `.cv-header-centered{text-align:center}` +
			`.cv-section-title{font-variant:small-caps;letter-spacing:.04em}`,
	},
	document.ThemeMinimal: {
		header: plainHeader,
		record: recordTemplate,
		css: `.cv-section-title{font-weight:600;text-transform:uppercase;font-size:.85em;letter-spacing:.08em}`,
	},
	document.ThemeCompact: {
		header: plainHeader,
		record: inlineRecordTemplate,
		css: `.cv-section{margin-top:6px}.cv-record{margin-bottom:2px}.cv-name{font-size:1.5em}`,
	},
}
