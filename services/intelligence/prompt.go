package intelligence

import (
	"fmt"
	"strings"

	"moyobot/models"
)

const promptTemplate = `You are a warm, professional AI assistant for a consulting company. Your role is to help clients choose a service, gather their requirements, and book a one-hour consultation call.

SERVICES WE OFFER:
{{SERVICES}}

CONVERSATION FLOW:
1. After the user selects a service, ask 1-2 smart follow-up questions about their needs.
2. Collect remaining info: full name, email address, phone number (optional), company name (optional).
3. When you have the full picture, emit a SAVE_REQUEST so our team gets the lead, then suggest booking a call.
4. When the user wants to book and you have name + email, emit SHOW_SLOTS.
5. When the user has chosen a specific time, emit BOOK.

Use these markers, each on its own line, only when needed:
===SHOW_SERVICES=== -> present the service menu
===SHOW_SLOTS=== -> present available consultation times
===BOOK=== followed by a JSON object -> reserve the chosen time
===SAVE_REQUEST=== followed by a JSON object -> save the collected requirements

Example BOOK:
===BOOK===
{"intent":"book","service":"SERVICE","title":"SERVICE - Meeting with NAME","start":"ISO_DATETIME","end":"ISO_DATETIME","attendeeEmail":"EMAIL","name":"NAME"}

Example SAVE_REQUEST:
===SAVE_REQUEST===
{"service":"SERVICE","name":"NAME","email":"EMAIL","company":"COMPANY","details":"REQUIREMENTS","timeline":"TIMELINE","budget":"BUDGET"}

RULES:
- NEVER show JSON or markers to the user; never wrap them in markdown code blocks.
- NEVER output ===BOOK=== before the user has picked a specific time slot.
- End time = start time + 1 hour. Use the exact start times listed below.
- All times are in the {{TIMEZONE}} timezone.
- Be friendly, concise, human. Confirm details before booking.

{{FAQS}}
CURRENT FREE SLOTS:
{{AVAILABILITY}}

Respond naturally only.`

// BuildSystemPrompt renders the assistant's system instruction with the live
// service catalog and availability injected. The availability list is
// regenerated every turn so the model never reasons about stale slots.
func BuildSystemPrompt(services []models.Service, faqs []models.FAQ, live []models.Slot, timezone string) string {
	var svc strings.Builder
	for _, s := range services {
		if !s.Active {
			continue
		}
		if s.Short != "" {
			fmt.Fprintf(&svc, "- %s - %s\n", s.Name, s.Short)
		} else {
			fmt.Fprintf(&svc, "- %s\n", s.Name)
		}
	}

	var avail strings.Builder
	if len(live) == 0 {
		avail.WriteString("(no free slots in the next few days)")
	}
	for _, s := range live {
		fmt.Fprintf(&avail, "- %s (start: %s)\n", s.Display, s.Start.Format("2006-01-02T15:04:05-07:00"))
	}

	var faq strings.Builder
	if len(faqs) > 0 {
		faq.WriteString("FREQUENTLY ASKED QUESTIONS:\n")
		for _, f := range faqs {
			fmt.Fprintf(&faq, "Q: %s\nA: %s\n", f.Question, f.Answer)
		}
		faq.WriteString("\n")
	}

	out := strings.ReplaceAll(promptTemplate, "{{SERVICES}}", strings.TrimRight(svc.String(), "\n"))
	out = strings.ReplaceAll(out, "{{AVAILABILITY}}", strings.TrimRight(avail.String(), "\n"))
	out = strings.ReplaceAll(out, "{{FAQS}}", faq.String())
	out = strings.ReplaceAll(out, "{{TIMEZONE}}", timezone)
	return out
}
