package handler

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"sampark/backend/internal/imagestore"
	"sampark/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// UploadImage приймає multipart-поле "file" і повертає публічний URL
func (h *Handler) UploadImage(c *gin.Context) {
	if h.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	url, err := h.upload(c, header)
	if err != nil {
		fail(c, err, "Upload target not found", "Failed to upload image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// uploadResult is the outcome for one file of a batch.
type uploadResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadImages приймає одне або кілька полів "files". Кожен файл
// перевіряється окремо, тож одна погана картинка не зриває весь запит.
func (h *Handler) UploadImages(c *gin.Context) {
	if h.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	files := form.File["files"]
	results := make([]uploadResult, 0, len(files))
	for _, header := range files {
		url, err := h.upload(c, header)
		if err != nil {
			results = append(results, uploadResult{Error: header.Filename + ": " + uploadFailure(err)})
			continue
		}
		results = append(results, uploadResult{Success: true, URL: url})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

func (h *Handler) upload(c *gin.Context, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		log.Printf("ERROR: Failed to open uploaded file %s: %v", header.Filename, err)
		return "", err
	}
	defer file.Close()
	return h.Images.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
}

func uploadFailure(err error) string {
	switch {
	case errors.Is(err, imagestore.ErrNotImage):
		return "Not an image"
	case errors.Is(err, imagestore.ErrTooLarge):
		return "File too large"
	case errors.Is(err, models.ErrValidation):
		return "Invalid file"
	default:
		return "Upload failed"
	}
}
