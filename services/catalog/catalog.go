package catalog

import (
	"context"
	"strings"

	contentRepo "moyobot/database/repository/content"
	"moyobot/models"

	"go.uber.org/zap"
)

// seedServices is the catalog served until the first sheet sync lands, and
// the fallback when the content store is unreachable. Users always see a
// non-empty service list.
var seedServices = []models.Service{
	{ID: "sap-consulting", Name: "SAP Consulting", Short: "SAP implementation, migration and support", Active: true},
	{ID: "custom-development", Name: "Custom Development", Short: "Web and mobile applications built to order", Active: true},
	{ID: "software-qa", Name: "Software Quality Assurance", Short: "Test automation and quality audits", Active: true},
	{ID: "it-training", Name: "IT Training", Short: "Corporate training for technical teams", Active: true},
}

// Catalog serves the service list and FAQ context shown to users and fed
// into the assistant prompt.
type Catalog struct {
	repo   contentRepo.ContentRepository
	logger *zap.Logger
}

func New(repo contentRepo.ContentRepository, logger *zap.Logger) *Catalog {
	return &Catalog{repo: repo, logger: logger}
}

// Services returns the active catalog, falling back to the seed set when the
// store is empty or unreachable.
func (c *Catalog) Services(ctx context.Context) []models.Service {
	if c.repo == nil {
		return seedServices
	}
	services, err := c.repo.ListActiveServices(ctx)
	if err != nil {
		c.logger.Warn("catalog: service lookup failed, using seed set", zap.Error(err))
		return seedServices
	}
	if len(services) == 0 {
		return seedServices
	}
	return services
}

// FAQs returns the stored FAQ entries, or none when unavailable.
func (c *Catalog) FAQs(ctx context.Context) []models.FAQ {
	if c.repo == nil {
		return nil
	}
	faqs, err := c.repo.ListFAQs(ctx)
	if err != nil {
		c.logger.Warn("catalog: faq lookup failed", zap.Error(err))
		return nil
	}
	return faqs
}

// FindService resolves a catalog entry by ID or case-insensitive name.
func (c *Catalog) FindService(ctx context.Context, idOrName string) (*models.Service, bool) {
	for _, s := range c.Services(ctx) {
		if s.ID == idOrName || strings.EqualFold(s.Name, idOrName) {
			return &s, true
		}
	}
	return nil, false
}
