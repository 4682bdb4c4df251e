package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvBuilder/internal/document"
	"cvBuilder/internal/resume"
	"cvBuilder/internal/section"
)

// CVService 是 CV 组装与渲染接口，由 resume.Service 实现。
type CVService interface {
	OwnerAuthorizer
	Construct(ctx context.Context, cvID, userID uint, style document.StylePatch, compact bool) (document.Document, error)
	RenderHTML(ctx context.Context, cvID, userID uint, style document.StylePatch, opts resume.HTMLOptions) (string, error)
	RenderPublicHTML(ctx context.Context, cvID uint, style document.StylePatch, opts resume.HTMLOptions) (string, error)
	RenderPDF(ctx context.Context, cvID, userID uint, style document.StylePatch, opts resume.PDFOptions) ([]byte, error)
	RenderPublicPDF(ctx context.Context, cvID uint, style document.StylePatch, opts resume.PDFOptions) ([]byte, error)
	SetSectionOrder(ctx context.Context, cvID, userID uint, keys []string) (section.Order, error)
	SetSectionTitles(ctx context.Context, cvID, userID uint, titles map[string]string) (section.Titles, error)
	GetSectionConfig(ctx context.Context, cvID, userID uint) (resume.SectionConfig, error)
}

// CVHandler 提供组装、渲染与章节配置接口。
type CVHandler struct {
	service CVService
}

func NewCVHandler(service CVService) *CVHandler {
	return &CVHandler{service: service}
}

const htmlContentType = "text/html; charset=utf-8"

// GetDocument 返回组装后的文档 JSON。
func (h *CVHandler) GetDocument(c *gin.Context) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return
	}
	q, err := parseRenderQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	doc, err := h.service.Construct(c.Request.Context(), cvID, userID, q.Style, q.Compact)
	if err != nil {
		respondError(c, err, "failed to construct cv")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *CVHandler) RenderHTML(c *gin.Context) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return
	}
	q, err := parseRenderQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	html, err := h.service.RenderHTML(c.Request.Context(), cvID, userID, q.Style, resume.HTMLOptions{Preview: q.Preview, Compact: q.Compact})
	if err != nil {
		respondError(c, err, "failed to render cv")
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

// RenderPDF 同步导出 PDF，适合小文档与预览；批量导出走异步任务。
func (h *CVHandler) RenderPDF(c *gin.Context) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return
	}
	q, err := parseRenderQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	data, err := h.service.RenderPDF(c.Request.Context(), cvID, userID, q.Style, resume.PDFOptions{Scale: q.Scale, Compact: q.Compact})
	if err != nil {
		respondError(c, err, "failed to export pdf")
		return
	}
	writePDF(c, cvID, data)
}

func (h *CVHandler) RenderPublicHTML(c *gin.Context) {
	cvID, ok := uintParam(c, "cvId")
	if !ok {
		BadRequest(c, "invalid cv id")
		return
	}
	q, err := parseRenderQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	html, err := h.service.RenderPublicHTML(c.Request.Context(), cvID, q.Style, resume.HTMLOptions{Compact: q.Compact})
	if err != nil {
		respondError(c, err, "failed to render cv")
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

func (h *CVHandler) RenderPublicPDF(c *gin.Context) {
	cvID, ok := uintParam(c, "cvId")
	if !ok {
		BadRequest(c, "invalid cv id")
		return
	}
	q, err := parseRenderQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	data, err := h.service.RenderPublicPDF(c.Request.Context(), cvID, q.Style, resume.PDFOptions{Scale: q.Scale, Compact: q.Compact})
	if err != nil {
		respondError(c, err, "failed to export pdf")
		return
	}
	writePDF(c, cvID, data)
}

func writePDF(c *gin.Context, cvID uint, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="cv-%d.pdf"`, cvID))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *CVHandler) GetSectionConfig(c *gin.Context) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return
	}
	cfg, err := h.service.GetSectionConfig(c.Request.Context(), cvID, userID)
	if err != nil {
		respondError(c, err, "failed to load section config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type sectionOrderRequest struct {
	Order []string `json:"order" binding:"required"`
}

// SetSectionOrder 整体替换章节顺序，必须是 8 个章节的一个排列。
func (h *CVHandler) SetSectionOrder(c *gin.Context) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return
	}
	var req sectionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	order, err := h.service.SetSectionOrder(c.Request.Context(), cvID, userID, req.Order)
	if err != nil {
		respondError(c, err, "failed to save section order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type sectionTitlesRequest struct {
	Titles map[string]string `json:"titles" binding:"required"`
}

// SetSectionTitles 合并自定义标题；空字符串表示恢复默认。
func (h *CVHandler) SetSectionTitles(c *gin.Context) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return
	}
	var req sectionTitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	titles, err := h.service.SetSectionTitles(c.Request.Context(), cvID, userID, req.Titles)
	if err != nil {
		respondError(c, err, "failed to save section titles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"titles": titles})
}
