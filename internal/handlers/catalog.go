package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

// CatalogHandler serves the course and video catalogue. Reads are open to
// any signed-in user; writes are mounted behind the admin gate.
type CatalogHandler struct {
	store  *services.RedisService
	logger *slog.Logger
}

func NewCatalogHandler(store *services.RedisService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger}
}

func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondBadRequest(c, err)
		return
	}

	course := &models.Course{
		ID:        models.GenerateID("course"),
		Key:       req.Key,
		Name:      req.Name,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := h.store.CreateCourse(c.Request.Context(), course); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CatalogHandler) RenameCourse(c *gin.Context) {
	var req models.RenameCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	course, err := h.store.RenameCourse(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CatalogHandler) DeleteCourse(c *gin.Context) {
	if err := h.store.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: "Course deleted"})
}

func (h *CatalogHandler) ListVideos(c *gin.Context) {
	courseKey := c.Query("courseKey")
	if courseKey == "" {
		respondMessage(c, http.StatusBadRequest, "courseKey is required")
		return
	}

	videos, err := h.store.ListVideos(c.Request.Context(), courseKey)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

func (h *CatalogHandler) CreateVideo(c *gin.Context) {
	var req models.CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondBadRequest(c, err)
		return
	}

	video := &models.Video{
		ID:        models.GenerateID("video"),
		CourseKey: req.CourseKey,
		Title:     req.Title,
		YouTubeID: req.YouTubeID,
	}
	if err := h.store.CreateVideo(c.Request.Context(), video, req.Order); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

func (h *CatalogHandler) UpdateVideo(c *gin.Context) {
	var patch models.VideoPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, err)
		return
	}
	if patch.Empty() {
		respondMessage(c, http.StatusBadRequest, "nothing to update")
		return
	}

	video, err := h.store.UpdateVideo(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *CatalogHandler) DeleteVideo(c *gin.Context) {
	if err := h.store.DeleteVideo(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: "Video deleted"})
}
