package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gharbazaar/internal/photos"
)

// PhotoHandler handles listing photo uploads and downloads.
type PhotoHandler struct {
	repo   *photos.Repository
	logger *logrus.Logger
}

func NewPhotoHandler(repo *photos.Repository, logger *logrus.Logger) *PhotoHandler {
	return &PhotoHandler{repo: repo, logger: logger}
}

// Upload handles POST /api/photos
func (h *PhotoHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "cannot open file"})
		return
	}
	defer file.Close()

	photoID, err := h.repo.Upload(file, fileHeader.Filename)
	if err != nil {
		h.logger.WithError(err).Error("photo upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "upload failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "photoId": photoID})
}

// Download handles GET /api/photos/:id
func (h *PhotoHandler) Download(c *gin.Context) {
	data, err := h.repo.Download(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "photo not found"})
		return
	}

	c.Header("Content-Disposition", "inline")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
