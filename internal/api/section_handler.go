package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvBuilder/internal/section"
	"cvBuilder/internal/store"
)

// OwnerAuthorizer 校验 CV 归属，由 resume.Service 实现。
type OwnerAuthorizer interface {
	AuthorizeOwner(ctx context.Context, cvID, userID uint) error
}

// SectionHandler 为一种章节提供 CRUD 接口，归属先于任何读写校验。
type SectionHandler[T store.Entity, I store.Input[T]] struct {
	key   section.Key
	owner OwnerAuthorizer
	store store.ChildEntityStore[T, I]
}

func NewSectionHandler[T store.Entity, I store.Input[T]](key section.Key, owner OwnerAuthorizer, s *store.ChildStore[T, I]) *SectionHandler[T, I] {
	return &SectionHandler[T, I]{key: key, owner: owner, store: s}
}

// Register 在 /cvs/:cvId/<section> 下注册路由。
func (h *SectionHandler[T, I]) Register(cvGroup *gin.RouterGroup) {
	g := cvGroup.Group("/" + string(h.key))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.HEAD("/:id", h.Head)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *SectionHandler[T, I]) scope(c *gin.Context) (uint, bool) {
	userID, cvID, ok := ownerScope(c)
	if !ok {
		return 0, false
	}
	if err := h.owner.AuthorizeOwner(c.Request.Context(), cvID, userID); err != nil {
		respondError(c, err, "failed to load cv")
		return 0, false
	}
	return cvID, true
}

func (h *SectionHandler[T, I]) scopeWithID(c *gin.Context) (cvID, id uint, ok bool) {
	cvID, ok = h.scope(c)
	if !ok {
		return 0, 0, false
	}
	id, ok = uintParam(c, "id")
	if !ok {
		BadRequest(c, "invalid "+string(h.key)+" id")
		return 0, 0, false
	}
	return cvID, id, true
}

func (h *SectionHandler[T, I]) notFound(c *gin.Context) {
	NotFound(c, string(h.key)+" not found")
}

func (h *SectionHandler[T, I]) List(c *gin.Context) {
	cvID, ok := h.scope(c)
	if !ok {
		return
	}
	items, err := h.store.GetAll(c.Request.Context(), cvID)
	if err != nil {
		respondError(c, err, "failed to list "+string(h.key))
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *SectionHandler[T, I]) Create(c *gin.Context) {
	cvID, ok := h.scope(c)
	if !ok {
		return
	}
	var in I
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	item, err := h.store.Create(c.Request.Context(), cvID, in)
	if err != nil {
		respondError(c, err, "failed to create "+string(h.key))
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *SectionHandler[T, I]) Get(c *gin.Context) {
	cvID, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}
	item, err := h.store.GetOne(c.Request.Context(), cvID, id)
	if err != nil {
		respondError(c, err, "failed to load "+string(h.key))
		return
	}
	if item == nil {
		h.notFound(c)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Head 只判断条目是否存在。
func (h *SectionHandler[T, I]) Head(c *gin.Context) {
	cvID, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}
	exists, err := h.store.Exists(c.Request.Context(), cvID, id)
	if err != nil {
		respondError(c, err, "failed to check "+string(h.key))
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (h *SectionHandler[T, I]) Update(c *gin.Context) {
	cvID, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}
	var in I
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	item, err := h.store.Update(c.Request.Context(), cvID, id, in)
	if err != nil {
		respondError(c, err, "failed to update "+string(h.key))
		return
	}
	if item == nil {
		h.notFound(c)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *SectionHandler[T, I]) Delete(c *gin.Context) {
	cvID, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}
	deleted, err := h.store.Delete(c.Request.Context(), cvID, id)
	if err != nil {
		respondError(c, err, "failed to delete "+string(h.key))
		return
	}
	if !deleted {
		h.notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterSections 为全部 8 种章节注册 CRUD 路由。
func RegisterSections(cvGroup *gin.RouterGroup, owner OwnerAuthorizer, s *store.Sections) {
	NewSectionHandler(section.Contact, owner, s.Contact).Register(cvGroup)
	NewSectionHandler(section.Education, owner, s.Education).Register(cvGroup)
	NewSectionHandler(section.Work, owner, s.Work).Register(cvGroup)
	NewSectionHandler(section.Project, owner, s.Project).Register(cvGroup)
	NewSectionHandler(section.Organization, owner, s.Organization).Register(cvGroup)
	NewSectionHandler(section.Course, owner, s.Course).Register(cvGroup)
	NewSectionHandler(section.Skill, owner, s.Skill).Register(cvGroup)
	NewSectionHandler(section.Language, owner, s.Language).Register(cvGroup)
}
