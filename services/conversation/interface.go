package conversation

import (
	"context"

	"moyobot/models"
)

// LanguageModel produces one assistant reply from the system prompt and the
// running conversation history.
type LanguageModel interface {
	GenerateReply(ctx context.Context, systemPrompt string, history []models.Turn) (string, error)
}

// ServiceCatalog supplies the service list and FAQ content for prompts and
// service menus.
type ServiceCatalog interface {
	Services(ctx context.Context) []models.Service
	FAQs(ctx context.Context) []models.FAQ
	FindService(ctx context.Context, idOrName string) (*models.Service, bool)
}

// LeadRepo persists service requests captured from the conversation.
type LeadRepo interface {
	Create(ctx context.Context, req models.ServiceRequest) (string, error)
}

// FlowController runs one conversation turn end to end: session acquisition,
// model call, directive side effects, and session commit.
type FlowController interface {
	HandleMessage(ctx context.Context, in models.InboundMessage) (*models.OutboundMessage, error)
}
