package requestsRepo

import (
	"context"
	"errors"
	"time"

	"moyobot/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new service request and returns its ID.
func (r *mongoRequestRepo) Create(ctx context.Context, req models.ServiceRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusNew
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, req)
	if err != nil {
		return "", err
	}
	return req.ID, nil
}

// GetByID returns a service request by its ID.
func (r *mongoRequestRepo) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns service requests sorted newest first, capped at 100.
func (r *mongoRequestRepo) List(ctx context.Context) ([]models.ServiceRequest, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(100)
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reqs []models.ServiceRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// UpdateStatus moves a request through the new/contacted/closed pipeline.
func (r *mongoRequestRepo) UpdateStatus(ctx context.Context, id, status string) error {
	switch status {
	case models.RequestStatusNew, models.RequestStatusContacted, models.RequestStatusClosed:
	default:
		return errors.New("invalid status: " + status)
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("service request not found")
	}
	return nil
}
