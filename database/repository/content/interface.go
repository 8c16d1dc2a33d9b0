package contentRepo

import (
	"context"

	"moyobot/database"
	"moyobot/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type ContentRepository interface {
	ListActiveServices(ctx context.Context) ([]models.Service, error)
	ListFAQs(ctx context.Context) ([]models.FAQ, error)
	ReplaceServices(ctx context.Context, services []models.Service) error
	ReplaceFAQs(ctx context.Context, faqs []models.FAQ) error
}

type mongoContentRepo struct {
	services *mongo.Collection
	faqs     *mongo.Collection
}

// NewMongoContentRepo returns a new ContentRepository instance using MongoDB.
func NewMongoContentRepo() ContentRepository {
	db := database.MongoClient.Database("moyobot")
	return &mongoContentRepo{
		services: db.Collection("services"),
		faqs:     db.Collection("faqs"),
	}
}
