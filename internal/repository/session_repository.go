package repository

import (
	"context"
	"errors"
	"time"

	"assessment-service/internal/apperr"
	"assessment-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository struct {
	Col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{Col: db.Collection("assessment_sessions")}
}

// CreateIndexes sets up the partial unique index that guarantees at most
// one in_progress session per user, so concurrent session creation is an
// atomic check-and-create instead of a read-then-write race.
func (r *SessionRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: string(models.StatusInProgress)}}),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "status", Value: 1},
			},
		},
	}
	_, err := r.Col.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new session. A duplicate-key error means another
// request created an in_progress session for the same user first; that
// surfaces as CONFLICT so the caller can re-read and resume it.
func (r *SessionRepository) Create(ctx context.Context, session *models.AssessmentSession) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	res, err := r.Col.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.Conflict, "user already has an active session", err)
		}
		return apperr.Wrap(apperr.Unavailable, "failed to create session", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}
	return nil
}

// FindActiveByUser returns the user's in_progress session, or nil when
// there is none.
func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID string) (*models.AssessmentSession, error) {
	var session models.AssessmentSession
	err := r.Col.FindOne(ctx, bson.M{
		"user_id": userID,
		"status":  models.StatusInProgress,
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to look up active session", err)
	}
	return &session, nil
}

// FindActive looks up a session by id, owner, and in_progress status in
// one filter. This is the sole authorization check for session access.
func (r *SessionRepository) FindActive(ctx context.Context, sessionID, userID string) (*models.AssessmentSession, error) {
	objID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid session id")
	}

	var session models.AssessmentSession
	err = r.Col.FindOne(ctx, bson.M{
		"_id":     objID,
		"user_id": userID,
		"status":  models.StatusInProgress,
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to look up session", err)
	}
	return &session, nil
}

// FindByIDAndUser looks up a session regardless of status, for reads
// that need terminal sessions such as certificate generation.
func (r *SessionRepository) FindByIDAndUser(ctx context.Context, sessionID, userID string) (*models.AssessmentSession, error) {
	objID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid session id")
	}

	var session models.AssessmentSession
	err = r.Col.FindOne(ctx, bson.M{"_id": objID, "user_id": userID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to look up session", err)
	}
	return &session, nil
}

// CompleteStep applies a step transition with a single conditional
// update matching id, owner, in_progress status, and the step the
// caller scored. A concurrent completion that already advanced the
// session makes the filter miss, which surfaces as INVALID_STATE; the
// losing request mutates nothing.
func (r *SessionRepository) CompleteStep(ctx context.Context, sessionID, userID string, fromStep int, tr models.StepTransition) (*models.AssessmentSession, error) {
	objID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid session id")
	}

	filter := bson.M{
		"_id":          objID,
		"user_id":      userID,
		"status":       models.StatusInProgress,
		"current_step": fromStep,
	}

	set := bson.M{
		"current_step": tr.NextStep,
		"status":       tr.Status,
		"updated_at":   time.Now(),
	}
	if tr.FinalCertification != "" {
		set["final_certification"] = tr.FinalCertification
	}
	if tr.SessionEnd != nil {
		set["session_end"] = *tr.SessionEnd
	}
	if tr.NextStepStart != nil {
		set["step_start"] = *tr.NextStepStart
	}

	update := bson.M{
		"$push": bson.M{"step_results": tr.Result},
		"$set":  set,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.AssessmentSession
	err = r.Col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.InvalidState, "session is not in progress at this step")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to complete step", err)
	}
	return &updated, nil
}
