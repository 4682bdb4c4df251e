package document

import (
	"fmt"
	"regexp"
	"strings"

	"cvBuilder/internal/errcode"
)

// Theme 是封闭的主题集合，未知主题必须显式报错。
type Theme string

const (
	ThemeModern  Theme = "modern"
	ThemeClassic Theme = "classic"
	ThemeMinimal Theme = "minimal"
	ThemeCompact Theme = "compact"
)

// DefaultTheme 用于 CV 未设置主题的情况。
const DefaultTheme = ThemeModern

// DefaultMarginInches 是所有主题共享的页边距。
const DefaultMarginInches = 0.55

// Themes 返回全部已知主题。
func Themes() []Theme {
	return []Theme{ThemeModern, ThemeClassic, ThemeMinimal, ThemeCompact}
}

// ParseTheme 解析主题名；空字符串视为默认主题。
func ParseTheme(raw string) (Theme, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return DefaultTheme, nil
	}
	for _, t := range Themes() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", errcode.Validation("document.theme", fmt.Sprintf("unknown theme %q", raw))
}

// Style 是合并主题默认值之后的最终样式。
type Style struct {
	FontFamily     string  `json:"font_family"`
	FontSize       float64 `json:"font_size"`
	LineHeight     float64 `json:"line_height"`
	HeaderColor    string  `json:"header_color"`
	SectionDivider bool    `json:"section_divider"`
	Margin         float64 `json:"margin"`
}

// StylePatch 是调用方提供的部分样式，nil 字段沿用主题默认值。
type StylePatch struct {
	FontFamily     *string  `json:"font_family"`
	FontSize       *float64 `json:"font_size"`
	LineHeight     *float64 `json:"line_height"`
	HeaderColor    *string  `json:"header_color"`
	SectionDivider *bool    `json:"section_divider"`
	Margin         *float64 `json:"margin"`
}

var themeDefaults = map[Theme]Style{
	ThemeModern: {
		FontFamily:     "Inter, Helvetica, Arial, sans-serif",
		FontSize:       11,
		LineHeight:     1.4,
		HeaderColor:    "#1f4e79",
		SectionDivider: true,
		Margin:         DefaultMarginInches,
	},
	ThemeClassic: {
		FontFamily:     "Georgia, 'Times New Roman', serif",
		FontSize:       11.5,
		LineHeight:     1.35,
		HeaderColor:    "#222222",
		SectionDivider: true,
		Margin:         DefaultMarginInches,
	},
	ThemeMinimal: {
		FontFamily:     "Helvetica, Arial, sans-serif",
		FontSize:       10.5,
		LineHeight:     1.45,
		HeaderColor:    "#444444",
		SectionDivider: false,
		Margin:         DefaultMarginInches,
	},
	ThemeCompact: {
		FontFamily:     "Arial, Helvetica, sans-serif",
		FontSize:       9.5,
		LineHeight:     1.25,
		HeaderColor:    "#1f4e79",
		SectionDivider: false,
		Margin:         DefaultMarginInches,
	},
}

// ThemeDefaults 返回主题的默认样式。
func ThemeDefaults(theme Theme) (Style, error) {
	style, ok := themeDefaults[theme]
	if !ok {
		return Style{}, errcode.Validation("document.theme", fmt.Sprintf("unknown theme %q", theme))
	}
	return style, nil
}

var (
	hexColorPattern   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	fontFamilyPattern = regexp.MustCompile(`^[A-Za-z0-9 ,'\-]+$`)
)

// inRange 对 NaN 返回 false。
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// MergeStyle 将 patch 覆盖到主题默认值之上并校验结果。
func MergeStyle(theme Theme, patch StylePatch) (Style, error) {
	const op = "document.style"

	style, err := ThemeDefaults(theme)
	if err != nil {
		return Style{}, err
	}

	if patch.FontFamily != nil {
		family := strings.TrimSpace(*patch.FontFamily)
		if family == "" || len(family) > 120 || !fontFamilyPattern.MatchString(family) {
			return Style{}, errcode.Validation(op, "invalid font family")
		}
		style.FontFamily = family
	}
	if patch.FontSize != nil {
		if !inRange(*patch.FontSize, 6, 24) {
			return Style{}, errcode.Validation(op, "font size must be between 6 and 24")
		}
		style.FontSize = *patch.FontSize
	}
	if patch.LineHeight != nil {
		if !inRange(*patch.LineHeight, 0.8, 3) {
			return Style{}, errcode.Validation(op, "line height must be between 0.8 and 3")
		}
		style.LineHeight = *patch.LineHeight
	}
	if patch.HeaderColor != nil {
		color := strings.TrimSpace(*patch.HeaderColor)
		if !hexColorPattern.MatchString(color) {
			return Style{}, errcode.Validation(op, "header color must be a hex color")
		}
		style.HeaderColor = strings.ToLower(color)
	}
	if patch.SectionDivider != nil {
		style.SectionDivider = *patch.SectionDivider
	}
	if patch.Margin != nil {
		if !inRange(*patch.Margin, 0, 2) {
			return Style{}, errcode.Validation(op, "margin must be between 0 and 2 inches")
		}
		style.Margin = *patch.Margin
	}

	return style, nil
}
