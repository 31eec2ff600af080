package models

import "time"

type StepScore struct {
	Step            int      `bson:"step" json:"step"`
	ScorePercentage float64  `bson:"score_percentage" json:"score_percentage"`
	LevelsCovered   []string `bson:"levels_covered" json:"levels_covered"`
}

// Certificate is the terminal artifact of a completed, non-failed
// session. Exactly one exists per session; session_id is the
// idempotency key.
type Certificate struct {
	ID                   string      `bson:"_id,omitempty" json:"id"`
	UserID               string      `bson:"user_id" json:"user_id"`
	SessionID            string      `bson:"session_id" json:"session_id"`
	CertificateLevel     string      `bson:"certificate_level" json:"certificate_level"`
	CertificateNumber    string      `bson:"certificate_number" json:"certificate_number"`
	IssuedDate           time.Time   `bson:"issued_date" json:"issued_date"`
	CompetenciesAssessed []int       `bson:"competencies_assessed" json:"competencies_assessed"`
	OverallScore         float64     `bson:"overall_score" json:"overall_score"`
	StepScores           []StepScore `bson:"step_scores" json:"step_scores"`
}
