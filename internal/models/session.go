package models

import "time"

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// StepResult is appended to a session when a step is scored. Immutable
// once written.
type StepResult struct {
	Step                  int       `bson:"step" json:"step"`
	LevelsTested          []string  `bson:"levels_tested" json:"levels_tested"`
	QuestionsAttempted    []string  `bson:"questions_attempted" json:"questions_attempted"`
	ScorePercentage       float64   `bson:"score_percentage" json:"score_percentage"`
	CertificationAchieved string    `bson:"certification_achieved" json:"certification_achieved"`
	StepStart             time.Time `bson:"step_start" json:"step_start"`
	StepEnd               time.Time `bson:"step_end" json:"step_end"`
	TimeTakenSeconds      int       `bson:"time_taken_seconds" json:"time_taken_seconds"`
}

// AssessmentSession is one user's end-to-end attempt. At most one
// in_progress session may exist per user; the repository enforces this
// with a partial unique index.
type AssessmentSession struct {
	ID                 string        `bson:"_id,omitempty" json:"id"`
	UserID             string        `bson:"user_id" json:"user_id"`
	CurrentStep        int           `bson:"current_step" json:"current_step"`
	Status             SessionStatus `bson:"status" json:"status"`
	StepResults        []StepResult  `bson:"step_results" json:"step_results"`
	FinalCertification string        `bson:"final_certification,omitempty" json:"final_certification,omitempty"`
	SessionStart       time.Time     `bson:"session_start" json:"session_start"`
	// StepStart marks when the current step began. It is reset each time
	// the session advances so per-step timing stays accurate past step 1.
	StepStart  time.Time  `bson:"step_start" json:"step_start"`
	SessionEnd *time.Time `bson:"session_end,omitempty" json:"session_end,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

func (s *AssessmentSession) IsActive() bool {
	return s != nil && s.Status == StatusInProgress
}

// StepTransition is the session mutation produced by scoring a step: the
// result to append plus the progression decision to apply. It is written
// with a single conditional update so concurrent completions of the same
// step cannot both land.
type StepTransition struct {
	Result             StepResult
	NextStep           int
	Status             SessionStatus
	FinalCertification string
	SessionEnd         *time.Time
	// NextStepStart resets the per-step timing marker when advancing.
	NextStepStart *time.Time
}
