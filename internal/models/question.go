package models

import "time"

// Proficiency levels, two per assessment step.
const (
	LevelA1 = "A1"
	LevelA2 = "A2"
	LevelB1 = "B1"
	LevelB2 = "B2"
	LevelC1 = "C1"
	LevelC2 = "C2"
)

type QuestionOption struct {
	Label string `bson:"label" json:"label"`
	Text  string `bson:"text" json:"text"`
}

// Question is consumed by the assessment core as an opaque record. The
// correct answer is never serialized to clients; it is only read
// server-side when an answer is graded.
type Question struct {
	ID               string           `bson:"_id,omitempty" json:"id"`
	QuestionID       int              `bson:"question_id" json:"question_id"`
	CompetencyID     int              `bson:"competency_id" json:"competency_id"`
	Level            string           `bson:"level" json:"level"`
	QuestionText     string           `bson:"question_text" json:"question_text"`
	Options          []QuestionOption `bson:"options" json:"options"`
	CorrectAnswer    string           `bson:"correct_answer,omitempty" json:"-"`
	DifficultyPoints int              `bson:"difficulty_points" json:"difficulty_points"`
	CreatedAt        time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `bson:"updated_at" json:"updated_at"`
}
