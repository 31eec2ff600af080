package models

import "time"

// UserAnswer is one row of the append-only answer ledger. Step is
// stamped server-side from the session's current step at submission
// time, never taken from the client. Duplicate answers to the same
// question are allowed and all count toward the step score.
type UserAnswer struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	SessionID        string    `bson:"session_id" json:"session_id"`
	Step             int       `bson:"step" json:"step"`
	QuestionID       string    `bson:"question_id" json:"question_id"`
	UserAnswer       string    `bson:"user_answer" json:"user_answer"`
	CorrectAnswer    string    `bson:"correct_answer" json:"-"`
	IsCorrect        bool      `bson:"is_correct" json:"is_correct"`
	TimeSpentSeconds int       `bson:"time_spent_seconds" json:"time_spent_seconds"`
	AnsweredAt       time.Time `bson:"answered_at" json:"answered_at"`
}
