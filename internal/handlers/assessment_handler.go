package handlers

import (
	"context"
	"net/http"

	"assessment-service/internal/apperr"
	"assessment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_sessions_started_total",
			Help: "Total number of assessment start requests",
		},
		[]string{"outcome"}, // outcome: created/resumed
	)

	answersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_answers_submitted_total",
			Help: "Total number of answers submitted",
		},
		[]string{"result"}, // result: correct/incorrect
	)

	stepsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_steps_completed_total",
			Help: "Total number of step completions",
		},
		[]string{"step", "tier"},
	)
)

type AssessmentHandler struct {
	Service *service.AssessmentService
}

func NewAssessmentHandler(s *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{Service: s}
}

// StartAssessment creates a session at step 1, or resumes the caller's
// existing active session.
func (h *AssessmentHandler) StartAssessment(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	session, created, err := h.Service.StartAssessment(context.Background(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if created {
		sessionsStarted.WithLabelValues("created").Inc()
		c.JSON(http.StatusCreated, gin.H{"session": session, "resumed": false})
		return
	}
	sessionsStarted.WithLabelValues("resumed").Inc()
	c.JSON(http.StatusOK, gin.H{"session": session, "resumed": true})
}

// GetSession returns the caller's active session.
func (h *AssessmentHandler) GetSession(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	session, err := h.Service.GetActiveSession(context.Background(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// SubmitAnswer grades one answer and records it.
func (h *AssessmentHandler) SubmitAnswer(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var req struct {
		SessionID        string `json:"session_id" binding:"required"`
		QuestionID       string `json:"question_id" binding:"required"`
		Answer           string `json:"answer"`
		TimeSpentSeconds int    `json:"time_spent_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	feedback, err := h.Service.SubmitAnswer(context.Background(), userID, req.SessionID, req.QuestionID, req.Answer, req.TimeSpentSeconds)
	if err != nil {
		respondError(c, err)
		return
	}

	if feedback.IsCorrect {
		answersSubmitted.WithLabelValues("correct").Inc()
	} else {
		answersSubmitted.WithLabelValues("incorrect").Inc()
	}
	c.JSON(http.StatusOK, feedback)
}

// CompleteStep scores the current step and advances or ends the session.
func (h *AssessmentHandler) CompleteStep(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	outcome, err := h.Service.CompleteStep(context.Background(), userID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	stepsCompleted.WithLabelValues(
		stepLabel(outcome.StepResult.Step),
		outcome.StepResult.CertificationAchieved,
	).Inc()
	c.JSON(http.StatusOK, outcome)
}

func stepLabel(step int) string {
	switch step {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	}
	return "unknown"
}

// requireUserID reads the identity header set by the gateway. An empty
// result means the 401 response has already been written.
func requireUserID(c *gin.Context) string {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID is required"})
	}
	return userID
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error": apperr.MessageOf(err),
		"code":  apperr.KindOf(err),
	})
}
