package service

import (
	"context"
	"math"
	"testing"
	"time"

	"assessment-service/internal/apperr"
	"assessment-service/internal/models"
	"assessment-service/internal/progression"
)

func newTestAssessmentService() (*AssessmentService, *fakeSessionStore, *fakeAnswerStore, *fakeQuestionStore, *recordingPublisher) {
	sessions := newFakeSessionStore()
	answers := &fakeAnswerStore{}
	questions := &fakeQuestionStore{questions: map[string]*models.Question{}}
	pub := &recordingPublisher{}
	svc := NewAssessmentService(sessions, answers, questions, pub)
	return svc, sessions, answers, questions, pub
}

func seedAnswers(answers *fakeAnswerStore, sessionID string, step, correct, total int) {
	for i := 0; i < total; i++ {
		answers.answers = append(answers.answers, models.UserAnswer{
			SessionID:  sessionID,
			Step:       step,
			QuestionID: "q",
			IsCorrect:  i < correct,
			AnsweredAt: time.Now(),
		})
	}
}

func TestStartAssessmentCreatesSession(t *testing.T) {
	svc, _, _, _, pub := newTestAssessmentService()

	session, created, err := svc.StartAssessment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("StartAssessment: %v", err)
	}
	if !created {
		t.Error("expected a new session to be created")
	}
	if session.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", session.CurrentStep)
	}
	if session.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", session.Status, models.StatusInProgress)
	}
	if session.StepStart.IsZero() {
		t.Error("step start not stamped")
	}
	if len(pub.events) != 1 || pub.events[0] != "assessment.session.started" {
		t.Errorf("published events = %v", pub.events)
	}
}

func TestStartAssessmentIsIdempotent(t *testing.T) {
	svc, sessions, _, _, _ := newTestAssessmentService()

	first, _, err := svc.StartAssessment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, created, err := svc.StartAssessment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if created {
		t.Error("second start must not create a session")
	}
	if second.ID != first.ID {
		t.Errorf("second start returned %q, want %q", second.ID, first.ID)
	}
	if len(sessions.sessions) != 1 {
		t.Errorf("stored sessions = %d, want 1", len(sessions.sessions))
	}
}

func TestStartAssessmentResolvesCreationRace(t *testing.T) {
	svc, sessions, _, _, _ := newTestAssessmentService()

	// A concurrent request wins the insert between our existence check
	// and ours. The store rejects the duplicate and we resume the winner.
	winner := &models.AssessmentSession{
		UserID:      "user-1",
		CurrentStep: 1,
		Status:      models.StatusInProgress,
	}
	if err := sessions.Create(context.Background(), winner); err != nil {
		t.Fatalf("seed winner: %v", err)
	}

	session, created, err := svc.StartAssessment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("StartAssessment: %v", err)
	}
	if created {
		t.Error("loser of the race must not report creation")
	}
	if session.ID != winner.ID {
		t.Errorf("resumed %q, want winner %q", session.ID, winner.ID)
	}
}

func TestGetActiveSessionNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestAssessmentService()

	_, err := svc.GetActiveSession(context.Background(), "user-1")
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestSubmitAnswerGradesAgainstBank(t *testing.T) {
	svc, _, answers, questions, _ := newTestAssessmentService()
	questions.questions["q1"] = &models.Question{Level: models.LevelA1, CorrectAnswer: "B"}

	session, _, err := svc.StartAssessment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("StartAssessment: %v", err)
	}

	fb, err := svc.SubmitAnswer(context.Background(), "user-1", session.ID, "q1", "B", 12)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !fb.IsCorrect {
		t.Error("matching answer graded incorrect")
	}
	if fb.CorrectAnswer != "B" {
		t.Errorf("feedback answer = %q, want B", fb.CorrectAnswer)
	}

	fb, err = svc.SubmitAnswer(context.Background(), "user-1", session.ID, "q1", "C", 5)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if fb.IsCorrect {
		t.Error("mismatching answer graded correct")
	}

	if len(answers.answers) != 2 {
		t.Fatalf("ledger size = %d, want 2", len(answers.answers))
	}
	for _, a := range answers.answers {
		if a.Step != 1 {
			t.Errorf("answer stamped step %d, want session's current step 1", a.Step)
		}
	}
}

func TestSubmitAnswerRejectsEmptyAnswer(t *testing.T) {
	svc, _, _, questions, _ := newTestAssessmentService()
	questions.questions["q1"] = &models.Question{CorrectAnswer: "A"}

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	_, err := svc.SubmitAnswer(context.Background(), "user-1", session.ID, "q1", "", 0)
	if !apperr.IsKind(err, apperr.InvalidArgument) {
		t.Errorf("err = %v, want INVALID_ARGUMENT", err)
	}
}

func TestSubmitAnswerUnknownQuestion(t *testing.T) {
	svc, _, _, _, _ := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	_, err := svc.SubmitAnswer(context.Background(), "user-1", session.ID, "missing", "A", 0)
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestCompleteStepWithEmptyLedger(t *testing.T) {
	svc, sessions, _, _, _ := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	_, err := svc.CompleteStep(context.Background(), "user-1", session.ID)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("err = %v, want INVALID_STATE", err)
	}
	if got := sessions.sessions[session.ID]; len(got.StepResults) != 0 {
		t.Errorf("step results mutated on rejected completion: %v", got.StepResults)
	}
}

func TestCompleteStepAdvancesOnHighScore(t *testing.T) {
	svc, sessions, answers, _, pub := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	seedAnswers(answers, session.ID, 1, 8, 10)

	outcome, err := svc.CompleteStep(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	if !outcome.CanProceed {
		t.Error("80%% on step 1 must proceed")
	}
	if outcome.StepResult.ScorePercentage != 80.0 {
		t.Errorf("score = %v, want 80", outcome.StepResult.ScorePercentage)
	}
	if outcome.StepResult.CertificationAchieved != progression.TierA2Advance {
		t.Errorf("tier = %q, want %q", outcome.StepResult.CertificationAchieved, progression.TierA2Advance)
	}
	if outcome.Session.CurrentStep != 2 {
		t.Errorf("current step = %d, want 2", outcome.Session.CurrentStep)
	}
	if outcome.Session.Status != models.StatusInProgress {
		t.Errorf("status = %q, want in_progress", outcome.Session.Status)
	}
	if len(sessions.sessions[session.ID].StepResults) != 1 {
		t.Errorf("stored step results = %d, want 1", len(sessions.sessions[session.ID].StepResults))
	}
	if contains(pub.events, "assessment.session.finished") {
		t.Error("finished event published for a still-active session")
	}
}

func TestCompleteStepFailsSessionBelowFloor(t *testing.T) {
	svc, _, answers, _, pub := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	seedAnswers(answers, session.ID, 1, 1, 10)

	outcome, err := svc.CompleteStep(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	if outcome.CanProceed {
		t.Error("10%% on step 1 must not proceed")
	}
	if outcome.Session.Status != models.StatusFailed {
		t.Errorf("status = %q, want failed", outcome.Session.Status)
	}
	if outcome.Session.FinalCertification != progression.FinalFailed {
		t.Errorf("final certification = %q, want %q", outcome.Session.FinalCertification, progression.FinalFailed)
	}
	if outcome.Session.SessionEnd == nil {
		t.Error("session end not stamped on terminal transition")
	}
	if !contains(pub.events, "assessment.session.finished") {
		t.Error("finished event not published on terminal transition")
	}
}

func TestCompleteStepCoercesRemainSentinel(t *testing.T) {
	svc, sessions, answers, _, _ := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	seedAnswers(answers, session.ID, 1, 8, 10)
	if _, err := svc.CompleteStep(context.Background(), "user-1", session.ID); err != nil {
		t.Fatalf("complete step 1: %v", err)
	}

	seedAnswers(answers, session.ID, 2, 2, 10)
	outcome, err := svc.CompleteStep(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("complete step 2: %v", err)
	}
	if outcome.StepResult.CertificationAchieved != progression.TierRemainA2 {
		t.Errorf("step tier = %q, want %q", outcome.StepResult.CertificationAchieved, progression.TierRemainA2)
	}
	if outcome.Session.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", outcome.Session.Status)
	}
	if outcome.Session.FinalCertification != progression.TierA2 {
		t.Errorf("final certification = %q, want %q", outcome.Session.FinalCertification, progression.TierA2)
	}
	if got := sessions.sessions[session.ID]; len(got.StepResults) != 2 {
		t.Errorf("stored step results = %d, want 2", len(got.StepResults))
	}
}

func TestCompleteStepThirdStepAlwaysTerminal(t *testing.T) {
	svc, _, answers, _, _ := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	seedAnswers(answers, session.ID, 1, 9, 10)
	if _, err := svc.CompleteStep(context.Background(), "user-1", session.ID); err != nil {
		t.Fatalf("complete step 1: %v", err)
	}
	seedAnswers(answers, session.ID, 2, 9, 10)
	if _, err := svc.CompleteStep(context.Background(), "user-1", session.ID); err != nil {
		t.Fatalf("complete step 2: %v", err)
	}

	seedAnswers(answers, session.ID, 3, 9, 10)
	outcome, err := svc.CompleteStep(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("complete step 3: %v", err)
	}
	if outcome.CanProceed {
		t.Error("step 3 never proceeds")
	}
	if outcome.Session.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", outcome.Session.Status)
	}
	if outcome.Session.FinalCertification != progression.TierC2 {
		t.Errorf("final certification = %q, want %q", outcome.Session.FinalCertification, progression.TierC2)
	}

	// A replayed completion finds no active session to act on.
	_, err = svc.CompleteStep(context.Background(), "user-1", session.ID)
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("replayed completion err = %v, want NOT_FOUND", err)
	}
}

func TestCompleteStepScoreIsCorrectOverTotal(t *testing.T) {
	svc, _, answers, _, _ := newTestAssessmentService()

	session, _, _ := svc.StartAssessment(context.Background(), "user-1")
	seedAnswers(answers, session.ID, 1, 2, 3)

	outcome, err := svc.CompleteStep(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	want := 100.0 * 2 / 3
	if math.Abs(outcome.StepResult.ScorePercentage-want) > 1e-9 {
		t.Errorf("score = %v, want %v", outcome.StepResult.ScorePercentage, want)
	}
}

func contains(events []string, want string) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}
