package service

import (
	"context"
	"log"
	"time"

	"assessment-service/internal/apperr"
	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/progression"
)

// AnswerFeedback is returned to the caller after grading one answer.
// This is the only place the correct answer is revealed, and only for
// the question just submitted.
type AnswerFeedback struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
}

// StepOutcome is the result of completing the session's current step.
type StepOutcome struct {
	StepResult models.StepResult         `json:"step_result"`
	Session    *models.AssessmentSession `json:"session"`
	CanProceed bool                      `json:"can_proceed"`
}

type AssessmentService struct {
	Sessions  SessionStore
	Answers   AnswerStore
	Questions QuestionStore
	publisher event.Publisher
}

func NewAssessmentService(sessions SessionStore, answers AnswerStore, questions QuestionStore, publisher event.Publisher) *AssessmentService {
	return &AssessmentService{
		Sessions:  sessions,
		Answers:   answers,
		Questions: questions,
		publisher: publisher,
	}
}

// StartAssessment returns the user's existing in_progress session or
// creates a new one at step 1. The bool reports whether a session was
// created. Losing the creation race to a concurrent request resolves by
// resuming the winner's session, so the at-most-one invariant holds.
func (s *AssessmentService) StartAssessment(ctx context.Context, userID string) (*models.AssessmentSession, bool, error) {
	active, err := s.Sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if active != nil {
		return active, false, nil
	}

	now := time.Now()
	session := &models.AssessmentSession{
		UserID:       userID,
		CurrentStep:  progression.FirstStep,
		Status:       models.StatusInProgress,
		StepResults:  []models.StepResult{},
		SessionStart: now,
		StepStart:    now,
	}

	if err := s.Sessions.Create(ctx, session); err != nil {
		if apperr.IsKind(err, apperr.Conflict) {
			existing, findErr := s.Sessions.FindActiveByUser(ctx, userID)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	s.publish(event.SessionStarted, map[string]interface{}{
		"session_id": session.ID,
		"user_id":    userID,
	})
	return session, true, nil
}

// GetActiveSession returns the caller's in_progress session, or
// NOT_FOUND when there is none.
func (s *AssessmentService) GetActiveSession(ctx context.Context, userID string) (*models.AssessmentSession, error) {
	active, err := s.Sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apperr.New(apperr.NotFound, "no active session")
	}
	return active, nil
}

// SubmitAnswer grades one answer against the question bank and appends
// it to the ledger. The step is stamped from the session's current step
// at submission time, never taken from the client, so a stale client
// cannot attribute answers to an already-completed step.
func (s *AssessmentService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID, userAnswer string, timeSpent int) (*AnswerFeedback, error) {
	if userAnswer == "" {
		return nil, apperr.New(apperr.InvalidArgument, "answer is required")
	}

	session, err := s.Sessions.FindActive(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	question, err := s.Questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	isCorrect := userAnswer == question.CorrectAnswer

	answer := &models.UserAnswer{
		SessionID:        session.ID,
		Step:             session.CurrentStep,
		QuestionID:       questionID,
		UserAnswer:       userAnswer,
		CorrectAnswer:    question.CorrectAnswer,
		IsCorrect:        isCorrect,
		TimeSpentSeconds: timeSpent,
		AnsweredAt:       time.Now(),
	}
	if err := s.Answers.Create(ctx, answer); err != nil {
		return nil, err
	}

	s.publish(event.AnswerSubmitted, map[string]interface{}{
		"session_id":  session.ID,
		"step":        session.CurrentStep,
		"question_id": questionID,
		"is_correct":  isCorrect,
	})

	return &AnswerFeedback{IsCorrect: isCorrect, CorrectAnswer: question.CorrectAnswer}, nil
}

// CompleteStep scores the ledger for the session's current step,
// derives the certification tier, and applies the progression rule with
// a conditional write. The second of two concurrent completions fails
// with INVALID_STATE and mutates nothing.
func (s *AssessmentService) CompleteStep(ctx context.Context, userID, sessionID string) (*StepOutcome, error) {
	session, err := s.Sessions.FindActive(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	answers, err := s.Answers.FindBySessionAndStep(ctx, session.ID, session.CurrentStep)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, apperr.New(apperr.InvalidState, "no answers for this step")
	}

	correct := 0
	questionIDs := make([]string, 0, len(answers))
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
		questionIDs = append(questionIDs, a.QuestionID)
	}
	score := progression.Score(correct, len(answers))

	levels, err := progression.LevelsForStep(session.CurrentStep)
	if err != nil {
		return nil, apperr.New(apperr.InvalidState, "session step is out of range")
	}

	outcome := progression.Apply(session.CurrentStep, score)

	now := time.Now()
	stepStart := session.StepStart
	if stepStart.IsZero() {
		stepStart = session.SessionStart
	}
	timeTaken := int(now.Sub(stepStart).Seconds())
	if timeTaken < 0 {
		timeTaken = 0
	}

	result := models.StepResult{
		Step:                  session.CurrentStep,
		LevelsTested:          levels,
		QuestionsAttempted:    questionIDs,
		ScorePercentage:       score,
		CertificationAchieved: outcome.Tier,
		StepStart:             stepStart,
		StepEnd:               now,
		TimeTakenSeconds:      timeTaken,
	}

	tr := models.StepTransition{
		Result:             result,
		NextStep:           outcome.NextStep,
		Status:             outcome.Status,
		FinalCertification: outcome.FinalCertification,
	}
	if outcome.Status != models.StatusInProgress {
		tr.SessionEnd = &now
	} else {
		tr.NextStepStart = &now
	}

	updated, err := s.Sessions.CompleteStep(ctx, session.ID, userID, session.CurrentStep, tr)
	if err != nil {
		return nil, err
	}

	s.publish(event.StepCompleted, map[string]interface{}{
		"session_id":  updated.ID,
		"step":        result.Step,
		"score":       result.ScorePercentage,
		"tier":        result.CertificationAchieved,
		"can_proceed": outcome.CanProceed,
	})
	if outcome.Status != models.StatusInProgress {
		s.publish(event.SessionFinished, map[string]interface{}{
			"session_id":          updated.ID,
			"status":              updated.Status,
			"final_certification": updated.FinalCertification,
		})
	}

	return &StepOutcome{
		StepResult: result,
		Session:    updated,
		CanProceed: outcome.CanProceed,
	}, nil
}

func (s *AssessmentService) publish(eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, payload); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
