package http

import (
	"bytes"
	"io"
	"net/http"

	"conexbot/internal/infrastructure"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListMedia(c *gin.Context) {
	media, err := h.media.List(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": media})
}

// UploadMedia forwards one multipart file to the media storage and records it.
func (h *Handler) UploadMedia(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Field file is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		respondError(c, err)
		return
	}
	head = head[:n]

	media, err := h.media.Upload(c.Request.Context(), currentIdentity(c), usecases.UploadInput{
		Filename: fileHeader.Filename,
		MimeType: infrastructure.DetectMIME(head, fileHeader.Header.Get("Content-Type")),
		Size:     fileHeader.Size,
		Body:     io.MultiReader(bytes.NewReader(head), f),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Media uploaded successfully", "media": media})
}

// DeleteMedia removes the remote object first and the local record after.
func (h *Handler) DeleteMedia(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid media ID")
		return
	}
	if err := h.media.Delete(c.Request.Context(), currentIdentity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Media deleted successfully"})
}
