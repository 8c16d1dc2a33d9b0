package catalog

import (
	"context"
	"errors"
	"testing"

	"moyobot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubContentRepo struct {
	services []models.Service
	faqs     []models.FAQ
	err      error
}

func (s *stubContentRepo) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	return s.services, s.err
}
func (s *stubContentRepo) ListFAQs(ctx context.Context) ([]models.FAQ, error) {
	return s.faqs, s.err
}
func (s *stubContentRepo) ReplaceServices(ctx context.Context, services []models.Service) error {
	s.services = services
	return s.err
}
func (s *stubContentRepo) ReplaceFAQs(ctx context.Context, faqs []models.FAQ) error {
	s.faqs = faqs
	return s.err
}

func TestServicesFromStore(t *testing.T) {
	c := New(&stubContentRepo{services: []models.Service{
		{ID: "custom", Name: "Custom Work", Active: true},
	}}, zap.NewNop())

	services := c.Services(context.Background())

	require.Len(t, services, 1)
	assert.Equal(t, "Custom Work", services[0].Name)
}

func TestServicesFallBackToSeedWhenStoreEmpty(t *testing.T) {
	c := New(&stubContentRepo{}, zap.NewNop())

	services := c.Services(context.Background())

	assert.Len(t, services, len(seedServices))
}

func TestServicesFallBackToSeedWhenStoreFails(t *testing.T) {
	c := New(&stubContentRepo{err: errors.New("mongo down")}, zap.NewNop())

	services := c.Services(context.Background())

	assert.NotEmpty(t, services, "users always get a service menu")
}

func TestFindServiceByIDAndName(t *testing.T) {
	c := New(&stubContentRepo{services: []models.Service{
		{ID: "it-training", Name: "IT Training", Active: true},
	}}, zap.NewNop())
	ctx := context.Background()

	svc, ok := c.FindService(ctx, "it-training")
	require.True(t, ok)
	assert.Equal(t, "IT Training", svc.Name)

	svc, ok = c.FindService(ctx, "it training")
	require.True(t, ok, "name match is case-insensitive")
	assert.Equal(t, "it-training", svc.ID)

	_, ok = c.FindService(ctx, "unknown")
	assert.False(t, ok)
}
