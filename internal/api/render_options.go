package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cvBuilder/internal/document"
)

// renderQuery 是渲染接口的查询参数，样式字段缺省时沿用主题默认值。
type renderQuery struct {
	Style   document.StylePatch
	Compact bool
	Preview bool
	Scale   float64
}

func parseRenderQuery(c *gin.Context) (renderQuery, error) {
	var q renderQuery
	var err error

	if v, ok := c.GetQuery("font_family"); ok {
		q.Style.FontFamily = &v
	}
	if v, ok := c.GetQuery("header_color"); ok {
		q.Style.HeaderColor = &v
	}
	if q.Style.FontSize, err = floatQuery(c, "font_size"); err != nil {
		return q, err
	}
	if q.Style.LineHeight, err = floatQuery(c, "line_height"); err != nil {
		return q, err
	}
	if q.Style.Margin, err = floatQuery(c, "margin"); err != nil {
		return q, err
	}
	if q.Style.SectionDivider, err = boolQuery(c, "section_divider"); err != nil {
		return q, err
	}

	compact, err := boolQuery(c, "compact")
	if err != nil {
		return q, err
	}
	q.Compact = compact != nil && *compact

	preview, err := boolQuery(c, "preview")
	if err != nil {
		return q, err
	}
	q.Preview = preview != nil && *preview

	scale, err := floatQuery(c, "scale")
	if err != nil {
		return q, err
	}
	if scale != nil {
		q.Scale = *scale
	}
	return q, nil
}

func floatQuery(c *gin.Context, name string) (*float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &v, nil
}

func boolQuery(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &v, nil
}
