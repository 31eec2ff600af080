package repository

import (
	"context"
	"errors"

	"assessment-service/internal/apperr"
	"assessment-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type QuestionRepository struct {
	Col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{Col: db.Collection("questions")}
}

func (r *QuestionRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "question_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "competency_id", Value: 1},
				{Key: "level", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "level", Value: 1}},
		},
	}
	_, err := r.Col.Indexes().CreateMany(ctx, indexes)
	return err
}

// FindByLevels lists the questions covering the given levels with the
// correct answer projected away, so graded answers can never leak
// through a listing.
func (r *QuestionRepository) FindByLevels(ctx context.Context, levels []string) ([]models.Question, error) {
	opts := options.Find().
		SetProjection(bson.M{"correct_answer": 0}).
		SetSort(bson.D{
			{Key: "level", Value: 1},
			{Key: "competency_id", Value: 1},
			{Key: "_id", Value: 1},
		})

	cur, err := r.Col.Find(ctx, bson.M{"level": bson.M{"$in": levels}}, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to read questions", err)
	}
	defer cur.Close(ctx)

	var questions []models.Question
	for cur.Next(ctx) {
		var q models.Question
		if err := cur.Decode(&q); err != nil {
			return nil, apperr.Wrap(apperr.Unavailable, "failed to decode question", err)
		}
		questions = append(questions, q)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to read questions", err)
	}
	return questions, nil
}

// FindByID returns a question including its correct answer. Server-side
// use only.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid question id")
	}

	var question models.Question
	err = r.Col.FindOne(ctx, bson.M{"_id": objID}).Decode(&question)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "question not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to read question", err)
	}
	return &question, nil
}
