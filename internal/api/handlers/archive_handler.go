package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voxprep/voxprep/internal/services"
)

type ArchiveHandler struct {
	svc services.ArchiveService
}

func NewArchiveHandler(svc services.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{svc: svc}
}

// ListTranscriptLogs returns the relational mirror of a finished call's
// transcript, ordered by position.
func (h *ArchiveHandler) ListTranscriptLogs(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")

	limit := 200
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rows, err := h.svc.ListTranscriptLogs(c.Request.Context(), userID, interviewID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interview_id": interviewID,
		"logs":         rows,
	})
}

// ListArchives serves the admin view over finalized interviews.
func (h *ArchiveHandler) ListArchives(c *gin.Context) {
	userID := c.Query("user_id")

	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := h.svc.ListArchivesByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"archives": rows})
}
