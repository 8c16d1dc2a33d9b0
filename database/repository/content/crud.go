package contentRepo

import (
	"context"

	"moyobot/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListActiveServices returns the active catalog entries sorted by name.
func (r *mongoContentRepo) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.services.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var services []models.Service
	if err := cursor.All(ctx, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// ListFAQs returns all stored FAQ entries.
func (r *mongoContentRepo) ListFAQs(ctx context.Context) ([]models.FAQ, error) {
	cursor, err := r.faqs.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var faqs []models.FAQ
	if err := cursor.All(ctx, &faqs); err != nil {
		return nil, err
	}
	return faqs, nil
}

// ReplaceServices swaps the whole catalog for a freshly synced one.
func (r *mongoContentRepo) ReplaceServices(ctx context.Context, services []models.Service) error {
	if _, err := r.services.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(services) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(services))
	for _, s := range services {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		docs = append(docs, s)
	}
	_, err := r.services.InsertMany(ctx, docs)
	return err
}

// ReplaceFAQs swaps the stored FAQ entries for a freshly synced set.
func (r *mongoContentRepo) ReplaceFAQs(ctx context.Context, faqs []models.FAQ) error {
	if _, err := r.faqs.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(faqs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(faqs))
	for _, f := range faqs {
		docs = append(docs, f)
	}
	_, err := r.faqs.InsertMany(ctx, docs)
	return err
}
