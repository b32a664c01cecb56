package conversion

import (
	"errors"
	"net/http"

	"github.com/abduss/transmute/internal/file"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the conversion endpoints plus read and delete
// access to converted files under group.
func RegisterRoutes(group *gin.RouterGroup, service *Service, converted *file.Service) {
	handler := &httpHandler{service: service}
	group.POST("/", handler.createConversion)
	group.GET("/complete", handler.listComplete)
	group.GET("/formats/:format", handler.compatibleFormats)
	file.RegisterReadRoutes(group, converted)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) createConversion(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields), errors.Is(err, ErrUnsupported):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, file.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no file found with id " + req.ID})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *httpHandler) listComplete(c *gin.Context) {
	entries, err := h.service.ListComplete(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversions": entries})
}

func (h *httpHandler) compatibleFormats(c *gin.Context) {
	format := c.Param("format")
	c.JSON(http.StatusOK, gin.H{"format": format, "targets": h.service.CompatibleFormats(format)})
}
