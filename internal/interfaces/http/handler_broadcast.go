package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartBroadcast sends the saved message to every saved contact in the
// background.
func (h *Handler) StartBroadcast(c *gin.Context) {
	progress, err := h.broadcast.Start(c.Request.Context(), currentIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Broadcast started", "progress": progress})
}

func (h *Handler) BroadcastProgress(c *gin.Context) {
	progress, ok := h.broadcast.Progress(currentIdentity(c).ID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"progress": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

func (h *Handler) CancelBroadcast(c *gin.Context) {
	if !h.broadcast.Cancel(currentIdentity(c).ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No broadcast is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Broadcast cancelled"})
}

// MessageUsage reports how many broadcast messages the user sent recently.
func (h *Handler) MessageUsage(c *gin.Context) {
	usage, err := h.broadcast.Usage(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
