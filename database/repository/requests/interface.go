package requestsRepo

import (
	"context"

	"moyobot/database"
	"moyobot/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type ServiceRequestRepository interface {
	Create(ctx context.Context, req models.ServiceRequest) (string, error)
	GetByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	List(ctx context.Context) ([]models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type mongoRequestRepo struct {
	coll *mongo.Collection
}

// NewMongoRequestRepo returns a new ServiceRequestRepository instance using MongoDB.
func NewMongoRequestRepo() ServiceRequestRepository {
	db := database.MongoClient.Database("moyobot")
	return &mongoRequestRepo{
		coll: db.Collection("service_requests"),
	}
}
