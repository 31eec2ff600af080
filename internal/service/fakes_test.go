package service

import (
	"context"
	"fmt"

	"assessment-service/internal/apperr"
	"assessment-service/internal/models"
)

// In-memory stores mirroring the Mongo repositories' contracts,
// including the conditional-write semantics the services rely on.

type fakeSessionStore struct {
	sessions map[string]*models.AssessmentSession
	nextID   int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*models.AssessmentSession{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *models.AssessmentSession) error {
	for _, s := range f.sessions {
		if s.UserID == session.UserID && s.Status == models.StatusInProgress {
			return apperr.New(apperr.Conflict, "user already has an active session")
		}
	}
	f.nextID++
	session.ID = fmt.Sprintf("session-%d", f.nextID)
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) FindActiveByUser(ctx context.Context, userID string) (*models.AssessmentSession, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == models.StatusInProgress {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) FindActive(ctx context.Context, sessionID, userID string) (*models.AssessmentSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID || s.Status != models.StatusInProgress {
		return nil, apperr.New(apperr.NotFound, "active session not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) FindByIDAndUser(ctx context.Context, sessionID, userID string) (*models.AssessmentSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) CompleteStep(ctx context.Context, sessionID, userID string, fromStep int, tr models.StepTransition) (*models.AssessmentSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID || s.Status != models.StatusInProgress || s.CurrentStep != fromStep {
		return nil, apperr.New(apperr.InvalidState, "session is not in progress at this step")
	}
	s.StepResults = append(s.StepResults, tr.Result)
	s.CurrentStep = tr.NextStep
	s.Status = tr.Status
	if tr.FinalCertification != "" {
		s.FinalCertification = tr.FinalCertification
	}
	if tr.SessionEnd != nil {
		s.SessionEnd = tr.SessionEnd
	}
	if tr.NextStepStart != nil {
		s.StepStart = *tr.NextStepStart
	}
	cp := *s
	return &cp, nil
}

type fakeAnswerStore struct {
	answers []models.UserAnswer
}

func (f *fakeAnswerStore) Create(ctx context.Context, answer *models.UserAnswer) error {
	f.answers = append(f.answers, *answer)
	return nil
}

func (f *fakeAnswerStore) FindBySessionAndStep(ctx context.Context, sessionID string, step int) ([]models.UserAnswer, error) {
	var out []models.UserAnswer
	for _, a := range f.answers {
		if a.SessionID == sessionID && a.Step == step {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeQuestionStore struct {
	questions map[string]*models.Question
}

func (f *fakeQuestionStore) FindByLevels(ctx context.Context, levels []string) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.questions {
		for _, l := range levels {
			if q.Level == l {
				out = append(out, *q)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "question not found")
	}
	cp := *q
	return &cp, nil
}

type fakeCertificateStore struct {
	certificates map[string]*models.Certificate
	creates      int
}

func newFakeCertificateStore() *fakeCertificateStore {
	return &fakeCertificateStore{certificates: map[string]*models.Certificate{}}
}

func (f *fakeCertificateStore) Create(ctx context.Context, cert *models.Certificate) error {
	if _, ok := f.certificates[cert.SessionID]; ok {
		return apperr.New(apperr.Conflict, "certificate already exists")
	}
	f.creates++
	cert.ID = fmt.Sprintf("cert-%d", f.creates)
	cp := *cert
	f.certificates[cert.SessionID] = &cp
	return nil
}

func (f *fakeCertificateStore) FindBySession(ctx context.Context, sessionID, userID string) (*models.Certificate, error) {
	c, ok := f.certificates[sessionID]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) error {
	p.events = append(p.events, eventType)
	return nil
}
