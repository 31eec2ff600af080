package service

import (
	"context"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

// Store interfaces the services depend on. The Mongo repositories
// satisfy them; tests use in-memory fakes.

type SessionStore interface {
	Create(ctx context.Context, session *models.AssessmentSession) error
	FindActiveByUser(ctx context.Context, userID string) (*models.AssessmentSession, error)
	FindActive(ctx context.Context, sessionID, userID string) (*models.AssessmentSession, error)
	FindByIDAndUser(ctx context.Context, sessionID, userID string) (*models.AssessmentSession, error)
	CompleteStep(ctx context.Context, sessionID, userID string, fromStep int, tr models.StepTransition) (*models.AssessmentSession, error)
}

type AnswerStore interface {
	Create(ctx context.Context, answer *models.UserAnswer) error
	FindBySessionAndStep(ctx context.Context, sessionID string, step int) ([]models.UserAnswer, error)
}

type QuestionStore interface {
	FindByLevels(ctx context.Context, levels []string) ([]models.Question, error)
	FindByID(ctx context.Context, id string) (*models.Question, error)
}

type CertificateStore interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindBySession(ctx context.Context, sessionID, userID string) (*models.Certificate, error)
}

var (
	_ SessionStore     = (*repository.SessionRepository)(nil)
	_ AnswerStore      = (*repository.AnswerRepository)(nil)
	_ QuestionStore    = (*repository.QuestionRepository)(nil)
	_ CertificateStore = (*repository.CertificateRepository)(nil)
)
