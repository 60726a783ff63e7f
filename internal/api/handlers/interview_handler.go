package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voxprep/voxprep/internal/services"
	"github.com/voxprep/voxprep/internal/utils"
)

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

type CreateInterviewResponse struct {
	InterviewID string `json:"interview_id"`
}

// Create inserts an empty draft interview keyed to the caller. The voice
// surface normally does this itself at call start; the route exists for
// clients that pre-create before rendering.
func (h *InterviewHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id, err := h.svc.CreateDraft(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateInterviewResponse{InterviewID: id})
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	iv, err := h.svc.Get(c.Request.Context(), interviewID)
	if err != nil {
		writeError(c, err)
		return
	}

	// Finalized interviews are browsable by anyone; drafts only by the owner.
	if iv.UserID != userID && !iv.Finalized {
		writeError(c, utils.E(utils.CodeForbidden, "InterviewHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, iv)
}

func (h *InterviewHandler) ListMine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.ListByUser(c.Request.Context(), userID, queryLimit(c, 50))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": rows})
}

// ListLatest returns other users' finalized interviews, newest first.
func (h *InterviewHandler) ListLatest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.ListLatest(c.Request.Context(), userID, queryLimit(c, 20))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": rows})
}

func (h *InterviewHandler) GetFeedback(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	fb, err := h.svc.GetFeedback(c.Request.Context(), interviewID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, fb)
}

func queryLimit(c *gin.Context, def int64) int64 {
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}
