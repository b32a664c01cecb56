package file

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts upload plus the read and delete operations under group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/", handler.uploadFile)
	RegisterReadRoutes(group, service)
}

// RegisterReadRoutes mounts list, get, download and delete under group.
func RegisterReadRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/", handler.listFiles)
	group.GET("/:id", handler.getFile)
	group.GET("/:id/download", handler.downloadFile)
	group.DELETE("/:id", handler.deleteFile)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	rec, err := h.service.Upload(c.Request.Context(), fileHeader)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		case errors.Is(err, ErrMissingPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload file"})
		}
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	if list == nil {
		list = []Record{}
	}

	c.JSON(http.StatusOK, gin.H{"files": list})
}

func (h *httpHandler) getFile(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err, "failed to fetch file")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	rec, f, err := h.service.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err, "failed to download file")
		return
	}
	defer f.Close()

	c.Header("Content-Type", ContentType(rec.MediaType))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalFilename))
	c.Header("Content-Length", fmt.Sprintf("%d", rec.SizeBytes))

	if _, err := io.Copy(c.Writer, f); err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeLookupError(c, err, "failed to delete file")
		return
	}

	c.Status(http.StatusNoContent)
}

func writeLookupError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, ErrContentMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": "file content missing"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
