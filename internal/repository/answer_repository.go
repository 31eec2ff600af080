package repository

import (
	"context"

	"assessment-service/internal/apperr"
	"assessment-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AnswerRepository is the append-only answer ledger. Rows are never
// updated or deleted; duplicate answers to the same question are
// allowed by design.
type AnswerRepository struct {
	Col *mongo.Collection
}

func NewAnswerRepository(db *mongo.Database) *AnswerRepository {
	return &AnswerRepository{Col: db.Collection("user_answers")}
}

func (r *AnswerRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "step", Value: 1},
			},
		},
	}
	_, err := r.Col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *AnswerRepository) Create(ctx context.Context, answer *models.UserAnswer) error {
	res, err := r.Col.InsertOne(ctx, answer)
	if err != nil {
		return apperr.Wrap(apperr.Unavailable, "failed to record answer", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		answer.ID = oid.Hex()
	}
	return nil
}

func (r *AnswerRepository) FindBySessionAndStep(ctx context.Context, sessionID string, step int) ([]models.UserAnswer, error) {
	cur, err := r.Col.Find(ctx, bson.M{
		"session_id": sessionID,
		"step":       step,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to read answers", err)
	}
	defer cur.Close(ctx)

	var answers []models.UserAnswer
	for cur.Next(ctx) {
		var a models.UserAnswer
		if err := cur.Decode(&a); err != nil {
			return nil, apperr.Wrap(apperr.Unavailable, "failed to decode answer", err)
		}
		answers = append(answers, a)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to read answers", err)
	}
	return answers, nil
}
