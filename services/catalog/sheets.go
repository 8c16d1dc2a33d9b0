package catalog

import (
	"context"
	"fmt"
	"strings"

	contentRepo "moyobot/database/repository/content"
	"moyobot/models"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Ranges read from the content spreadsheet. First row of each range is a
// header and is skipped.
const (
	servicesRange = "Services!A:D"
	faqsRange     = "FAQs!A:B"
)

// SheetSyncer pulls the service catalog and FAQ content from a Google Sheet
// the consultancy edits, and replaces the stored copies.
type SheetSyncer struct {
	svc     *sheets.Service
	sheetID string
	repo    contentRepo.ContentRepository
	logger  *zap.Logger
}

func NewSheetSyncer(ctx context.Context, credentialsFile, sheetID string, repo contentRepo.ContentRepository, logger *zap.Logger) (*SheetSyncer, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetSyncer{svc: svc, sheetID: sheetID, repo: repo, logger: logger}, nil
}

// Sync reads both sheet ranges and replaces the stored catalog. Returns the
// number of services and FAQs written.
func (s *SheetSyncer) Sync(ctx context.Context) (int, int, error) {
	services, err := s.readServices(ctx)
	if err != nil {
		return 0, 0, err
	}
	faqs, err := s.readFAQs(ctx)
	if err != nil {
		return 0, 0, err
	}

	if err := s.repo.ReplaceServices(ctx, services); err != nil {
		return 0, 0, fmt.Errorf("replace services: %w", err)
	}
	if err := s.repo.ReplaceFAQs(ctx, faqs); err != nil {
		return 0, 0, fmt.Errorf("replace faqs: %w", err)
	}

	s.logger.Info("catalog: sheet sync complete",
		zap.Int("services", len(services)),
		zap.Int("faqs", len(faqs)))
	return len(services), len(faqs), nil
}

// readServices parses rows of [id, name, short, details]. Rows with an empty
// name are ignored; a trailing "inactive" marker in the id column hides the
// row without deleting it from the sheet.
func (s *SheetSyncer) readServices(ctx context.Context) ([]models.Service, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, servicesRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read services range: %w", err)
	}

	var services []models.Service
	for i, row := range resp.Values {
		if i == 0 {
			continue
		}
		id := cell(row, 0)
		name := cell(row, 1)
		if name == "" {
			continue
		}
		active := !strings.HasSuffix(strings.ToLower(id), ":inactive")
		id = strings.TrimSuffix(strings.TrimSuffix(id, ":inactive"), ":INACTIVE")
		if id == "" {
			id = slugify(name)
		}
		services = append(services, models.Service{
			ID:      id,
			Name:    name,
			Short:   cell(row, 2),
			Details: cell(row, 3),
			Active:  active,
		})
	}
	return services, nil
}

func (s *SheetSyncer) readFAQs(ctx context.Context) ([]models.FAQ, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, faqsRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read faqs range: %w", err)
	}

	var faqs []models.FAQ
	for i, row := range resp.Values {
		if i == 0 {
			continue
		}
		q := cell(row, 0)
		a := cell(row, 1)
		if q == "" || a == "" {
			continue
		}
		faqs = append(faqs, models.FAQ{Question: q, Answer: a})
	}
	return faqs, nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return strings.TrimSpace(s)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
