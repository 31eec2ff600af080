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

type CertificateRepository struct {
	Col *mongo.Collection
}

func NewCertificateRepository(db *mongo.Database) *CertificateRepository {
	return &CertificateRepository{Col: db.Collection("certificates")}
}

// CreateIndexes makes certificate issuance convergent: the unique index
// on session_id turns the existence check plus insert into an atomic
// insert-if-absent, and the certificate_number index guards the global
// uniqueness of presented numbers.
func (r *CertificateRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "certificate_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	_, err := r.Col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	res, err := r.Col.InsertOne(ctx, cert)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.Conflict, "certificate already exists", err)
		}
		return apperr.Wrap(apperr.Unavailable, "failed to create certificate", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		cert.ID = oid.Hex()
	}
	return nil
}

// FindBySession returns the certificate for a session, or nil when none
// has been issued yet.
func (r *CertificateRepository) FindBySession(ctx context.Context, sessionID, userID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := r.Col.FindOne(ctx, bson.M{
		"session_id": sessionID,
		"user_id":    userID,
	}).Decode(&cert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "failed to look up certificate", err)
	}
	return &cert, nil
}
