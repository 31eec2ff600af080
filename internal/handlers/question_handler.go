package handlers

import (
	"context"
	"net/http"
	"strconv"

	"assessment-service/internal/service"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	Service *service.QuestionService
}

func NewQuestionHandler(s *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{Service: s}
}

// GetQuestionsForStep lists the sanitized question set for one step.
func (h *QuestionHandler) GetQuestionsForStep(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be a number"})
		return
	}

	questions, err := h.Service.GetQuestionsForStep(context.Background(), step)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}
