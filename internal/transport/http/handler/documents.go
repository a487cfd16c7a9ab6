package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docqa/internal/devserver"
	"docqa/internal/transport/http/middleware"
	"docqa/internal/transport/http/response"
)

type DocumentHandler struct {
	library *devserver.LibraryService
}

type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

type UploadResponse struct {
	ID              string `json:"id"`
	Filename        string `json:"filename"`
	ChunksProcessed int    `json:"chunks_processed"`
	Message         string `json:"message"`
}

func NewDocumentHandler(library *devserver.LibraryService) *DocumentHandler {
	return &DocumentHandler{library: library}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.DetailInvalidCredentials)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "file is required")
		return
	}
	if header.Size > devserver.MaxUploadSize {
		response.Error(c, http.StatusBadRequest, "Failed to process document: "+devserver.ErrFileTooLarge.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to process document: cannot open file")
		return
	}
	defer file.Close()

	result, err := h.library.Upload(devserver.UploadInput{
		UserID:   userID,
		Filename: header.Filename,
		Content:  file,
	})
	if err != nil {
		switch {
		case errors.Is(err, devserver.ErrInvalidInput),
			errors.Is(err, devserver.ErrUnsupportedFile),
			errors.Is(err, devserver.ErrFileTooLarge),
			errors.Is(err, devserver.ErrUnreadableDocument),
			errors.Is(err, devserver.ErrDocumentLimit):
			response.Error(c, http.StatusBadRequest, "Failed to process document: "+err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	response.OK(c, UploadResponse{
		ID:              result.Document.ID,
		Filename:        result.Document.Filename,
		ChunksProcessed: result.ChunkCount,
		Message:         "Document processed successfully",
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.DetailInvalidCredentials)
		return
	}

	docs, err := h.library.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list documents failed")
		return
	}

	out := make([]DocumentInfo, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentInfo{ID: d.ID, Filename: d.Filename, UploadedAt: formatTime(d.UploadedAt)})
	}
	response.OK(c, out)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
