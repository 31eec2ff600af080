package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"assessment-service/internal/apperr"
	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/progression"
)

type CertificateService struct {
	Sessions        SessionStore
	Certificates    CertificateStore
	publisher       event.Publisher
	competencyCount int
}

func NewCertificateService(sessions SessionStore, certificates CertificateStore, publisher event.Publisher, competencyCount int) *CertificateService {
	return &CertificateService{
		Sessions:        sessions,
		Certificates:    certificates,
		publisher:       publisher,
		competencyCount: competencyCount,
	}
}

// GenerateCertificate issues the certificate for a completed, non-failed
// session. Idempotent on session id: repeated calls return the stored
// certificate unchanged. Two concurrent calls converge on one stored
// row via the unique index on session_id.
func (s *CertificateService) GenerateCertificate(ctx context.Context, userID, sessionID string) (*models.Certificate, error) {
	session, err := s.Sessions.FindByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusCompleted || session.FinalCertification == progression.FinalFailed {
		return nil, apperr.New(apperr.InvalidState, "cannot generate certificate for this session")
	}

	existing, err := s.Certificates.FindBySession(ctx, session.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	stepScores := make([]models.StepScore, 0, len(session.StepResults))
	for _, r := range session.StepResults {
		stepScores = append(stepScores, models.StepScore{
			Step:            r.Step,
			ScorePercentage: r.ScorePercentage,
			LevelsCovered:   r.LevelsTested,
		})
	}

	competencies := make([]int, s.competencyCount)
	for i := range competencies {
		competencies[i] = i + 1
	}

	cert := &models.Certificate{
		UserID:               userID,
		SessionID:            session.ID,
		CertificateLevel:     session.FinalCertification,
		CertificateNumber:    generateCertificateNumber(),
		IssuedDate:           time.Now(),
		CompetenciesAssessed: competencies,
		OverallScore:         progression.Overall(session.StepResults),
		StepScores:           stepScores,
	}

	if err := s.Certificates.Create(ctx, cert); err != nil {
		if apperr.IsKind(err, apperr.Conflict) {
			// Another request issued the certificate first; converge on it.
			winner, findErr := s.Certificates.FindBySession(ctx, session.ID, userID)
			if findErr == nil && winner != nil {
				return winner, nil
			}
			// No stored certificate means the certificate number collided;
			// surface the conflict rather than retrying with the same inputs.
		}
		return nil, err
	}

	s.publish(event.CertificateIssued, map[string]interface{}{
		"session_id":         cert.SessionID,
		"user_id":            cert.UserID,
		"certificate_level":  cert.CertificateLevel,
		"certificate_number": cert.CertificateNumber,
	})
	return cert, nil
}

const certNumberAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateCertificateNumber builds a human-presentable number from a
// random base36 component plus a timestamp component, unique with
// overwhelming probability. The unique index catches the rest.
func generateCertificateNumber() string {
	random := make([]byte, 9)
	for i := range random {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(certNumberAlphabet))))
		if err != nil {
			// crypto/rand failing is unrecoverable in practice; fall back to
			// a time-derived digit so issuance can still proceed.
			log.Printf("crypto/rand failed: %v", err)
			n = big.NewInt(time.Now().UnixNano() % int64(len(certNumberAlphabet)))
		}
		random[i] = certNumberAlphabet[n.Int64()]
	}
	millis := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("CERT-%s-%s", string(random), millis)
}

func (s *CertificateService) publish(eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, payload); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
