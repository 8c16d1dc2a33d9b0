package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"moyobot/models"

	"go.uber.org/zap"
)

const graphAPIBase = "https://graph.facebook.com/v19.0"

// WhatsApp interactive lists allow at most ten rows.
const maxListRows = 10

// WhatsAppClient sends messages through the WhatsApp Cloud API and parses
// its webhook payloads.
type WhatsAppClient struct {
	token         string
	phoneNumberID string
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewWhatsAppClient(token, phoneNumberID string, timeout time.Duration, logger *zap.Logger) *WhatsAppClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppClient{
		token:         token,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// Send delivers the outbound message, choosing the richest WhatsApp message
// type the content allows: an interactive list for services, a numbered text
// list for slots, plain text otherwise.
func (w *WhatsAppClient) Send(ctx context.Context, to string, out models.OutboundMessage) error {
	switch {
	case len(out.Services) > 0:
		return w.sendServiceList(ctx, to, out.Text, out.Services)
	case len(out.Slots) > 0:
		body := out.Text + "\n\n" + NumberSlots(out.Slots) + "\n\nReply with a number to pick a time."
		return w.sendText(ctx, to, body)
	default:
		return w.sendText(ctx, to, out.Text)
	}
}

func (w *WhatsAppClient) sendText(ctx context.Context, to, body string) error {
	return w.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
}

func (w *WhatsAppClient) sendServiceList(ctx context.Context, to, body string, services []models.Service) error {
	rows := make([]map[string]string, 0, maxListRows)
	for i, s := range services {
		if i == maxListRows {
			break
		}
		row := map[string]string{
			"id":    "svc:" + s.ID,
			"title": truncate(s.Name, 24),
		}
		if s.Short != "" {
			row["description"] = truncate(s.Short, 72)
		}
		rows = append(rows, row)
	}
	if body == "" {
		body = "Here are the services we offer:"
	}
	return w.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "list",
			"body": map[string]string{"text": body},
			"action": map[string]interface{}{
				"button": "View services",
				"sections": []map[string]interface{}{
					{"title": "Our services", "rows": rows},
				},
			},
		},
	})
}

func (w *WhatsAppClient) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", graphAPIBase, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		w.logger.Error("whatsapp send rejected",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", detail))
		return fmt.Errorf("whatsapp send: status %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// webhookPayload mirrors the slice of the Cloud API webhook schema we read.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						ListReply struct {
							ID string `json:"id"`
						} `json:"list_reply"`
						ButtonReply struct {
							ID string `json:"id"`
						} `json:"button_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWebhook extracts inbound user messages from a webhook delivery.
// Status updates and unsupported message types yield no messages.
func ParseWebhook(body []byte) ([]models.InboundMessage, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook: %w", err)
	}

	var inbound []models.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				in := models.InboundMessage{
					Identity: models.Identity{Channel: ChannelWhatsApp, Address: msg.From},
				}
				switch msg.Type {
				case "text":
					in.Text = msg.Text.Body
				case "interactive":
					if id := msg.Interactive.ListReply.ID; id != "" {
						in.SelectionID = id
					} else if id := msg.Interactive.ButtonReply.ID; id != "" {
						in.SelectionID = id
					} else {
						continue
					}
				default:
					continue
				}
				inbound = append(inbound, in)
			}
		}
	}
	return inbound, nil
}

// VerifyChallenge answers the webhook subscription handshake. Returns the
// challenge to echo and whether the token matched.
func VerifyChallenge(mode, token, challenge, expectedToken string) (string, bool) {
	if mode == "subscribe" && token == expectedToken {
		return challenge, true
	}
	return "", false
}
