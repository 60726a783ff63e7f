package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/services"
	"github.com/voxprep/voxprep/internal/utils"
)

// GenerateHandler serves the voice workflow's callback endpoint. Identity
// travels in the body because the caller is the engine's workflow runtime,
// not a browser session.
type GenerateHandler struct {
	svc services.GenerationService
}

func NewGenerateHandler(svc services.GenerationService) *GenerateHandler {
	return &GenerateHandler{svc: svc}
}

type GenerateRequest struct {
	UserID      string `json:"userid"`
	InterviewID string `json:"interviewId"`

	// Transcript-save completion after a generate-mode call.
	Transcript []models.Turn `json:"transcript"`

	// Question generation, collected by the voice agent during the call.
	Role      string `json:"role"`
	Level     string `json:"level"`
	TechStack string `json:"techstack"` // comma-separated
	Amount    int    `json:"amount"`
	Type      string `json:"type"`
}

type GenerateResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenerateResponse{Success: false, Message: "invalid request body"})
		return
	}

	if req.UserID == "" || req.InterviewID == "" {
		c.JSON(http.StatusBadRequest, GenerateResponse{
			Success: false,
			Message: "User ID and Interview ID are required.",
		})
		return
	}

	if len(req.Transcript) > 0 {
		err := h.svc.CompleteGenerated(c.Request.Context(), req.InterviewID, req.UserID, req.Transcript)
		if err != nil {
			h.writeFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, GenerateResponse{Success: true, ID: req.InterviewID})
		return
	}

	techStack := splitTechStack(req.TechStack)
	if req.Role == "" || len(techStack) == 0 || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, GenerateResponse{
			Success: false,
			Message: "Missing required fields: role, techstack, amount.",
		})
		return
	}

	err := h.svc.GenerateQuestions(c.Request.Context(), services.QuestionRequest{
		InterviewID: req.InterviewID,
		UserID:      req.UserID,
		Role:        req.Role,
		Level:       req.Level,
		TechStack:   techStack,
		Amount:      req.Amount,
		Focus:       req.Type,
	})
	if err != nil {
		h.writeFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Success: true, ID: req.InterviewID})
}

// writeFailure echoes the safe error message with the mapped status; this
// endpoint keeps the success-flag body shape rather than the API error shape.
func (h *GenerateHandler) writeFailure(c *gin.Context, err error) {
	msg := "Internal Server Error"
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}
	c.JSON(utils.HTTPStatus(err), GenerateResponse{Success: false, Message: msg})
}

func splitTechStack(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
