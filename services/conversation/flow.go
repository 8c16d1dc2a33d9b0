package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"moyobot/models"
	"moyobot/services/booking"
	"moyobot/services/directive"
	"moyobot/services/intelligence"
	"moyobot/services/session"
	"moyobot/services/slots"

	"go.uber.org/zap"
)

// User-facing copy shared across channels.
const (
	defaultPrompt    = "How can I help you today?"
	retryMessage     = "Sorry, something went wrong on our side. Please try again in a moment."
	rateLimitMessage = "We're receiving a lot of messages right now. Please try again in a minute."
	greetingMessage  = "Hello! Welcome to Moyo Consulting. Here are the services we offer:"
	resetMessage     = "No problem, let's start fresh. Here are the services we offer:"
	slotsDownNote    = "I couldn't fetch our live availability just now. Please ask again in a moment."
	leadFailNote     = "I couldn't save your request just now, but I have your details in this chat. Please try again shortly."
)

// DefaultFlowController orchestrates one conversation turn. It holds the
// session's critical section for the whole turn, including the model and
// calendar calls, so concurrent messages from the same person are serialized.
type DefaultFlowController struct {
	Store      session.Store
	Model      LanguageModel
	Catalog    ServiceCatalog
	Leads      LeadRepo
	Booking    booking.Coordinator
	Parser     *directive.Parser
	Normalizer *slots.Normalizer
	Timezone   string
	Logger     *zap.Logger
}

func (f *DefaultFlowController) HandleMessage(ctx context.Context, in models.InboundMessage) (*models.OutboundMessage, error) {
	sess, err := f.Store.Acquire(ctx, in.Identity)
	if err != nil {
		f.Logger.Error("flow: session acquire failed", zap.String("identity", in.Identity.Key()), zap.Error(err))
		return &models.OutboundMessage{Text: retryMessage}, nil
	}

	text := f.resolveInput(ctx, sess, in)
	lower := strings.ToLower(strings.TrimSpace(text))

	if lower == "reset" || lower == "start over" {
		return f.finishReset(ctx, sess)
	}
	// First contact always opens with the service menu. A list selection on a
	// fresh session (possible after a reap) still gets processed normally.
	if len(sess.History) == 0 && in.SelectionID == "" {
		return f.finishGreeting(ctx, sess, text)
	}
	if out, handled := f.tryDirectSlotPick(ctx, sess, lower, text); handled {
		return out, nil
	}

	return f.runModelTurn(ctx, sess, text)
}

// resolveInput turns an interactive-list selection into plain text the model
// can work with, recording a service selection on the session as it goes.
func (f *DefaultFlowController) resolveInput(ctx context.Context, sess *models.Session, in models.InboundMessage) string {
	if in.SelectionID == "" {
		return in.Text
	}
	if id, ok := strings.CutPrefix(in.SelectionID, "svc:"); ok {
		if svc, found := f.Catalog.FindService(ctx, id); found {
			sess.State.SelectedServiceID = svc.ID
			return fmt.Sprintf("I'm interested in %s.", svc.Name)
		}
	}
	if n, ok := strings.CutPrefix(in.SelectionID, "slot:"); ok {
		return n
	}
	return in.SelectionID
}

// finishGreeting answers first contact with the service menu without
// spending a model call.
func (f *DefaultFlowController) finishGreeting(ctx context.Context, sess *models.Session, userText string) (*models.OutboundMessage, error) {
	out := &models.OutboundMessage{
		Text:     greetingMessage,
		Services: f.Catalog.Services(ctx),
	}
	sess.Append(models.RoleUser, userText)
	sess.Append(models.RoleAssistant, out.Text)
	f.commit(ctx, sess)
	return out, nil
}

// finishReset wipes the conversation on an explicit user request.
func (f *DefaultFlowController) finishReset(ctx context.Context, sess *models.Session) (*models.OutboundMessage, error) {
	sess.History = nil
	sess.State = models.SessionState{}
	out := &models.OutboundMessage{
		Text:     resetMessage,
		Services: f.Catalog.Services(ctx),
	}
	sess.Append(models.RoleAssistant, out.Text)
	f.commit(ctx, sess)
	return out, nil
}

// tryDirectSlotPick reserves immediately when the user answers an offered
// slot list with its number and we already hold their contact details.
// Anything else falls through to the model.
func (f *DefaultFlowController) tryDirectSlotPick(ctx context.Context, sess *models.Session, lower, original string) (*models.OutboundMessage, bool) {
	if !sess.State.AwaitingSlot || len(sess.State.OfferedSlots) == 0 {
		return nil, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(lower, "."))
	if err != nil || n < 1 || n > len(sess.State.OfferedSlots) {
		return nil, false
	}
	email := sess.State.CollectedFields["email"]
	if email == "" {
		return nil, false
	}

	slot := sess.State.OfferedSlots[n-1]
	req := models.BookingRequest{
		ServiceName:   f.selectedServiceName(ctx, sess),
		Start:         slot.Start,
		End:           slot.End,
		AttendeeEmail: email,
		Name:          sess.State.CollectedFields["name"],
		Phone:         sess.State.CollectedFields["phone"],
		Company:       sess.State.CollectedFields["company"],
		Details:       sess.State.CollectedFields["details"],
	}

	sess.Append(models.RoleUser, original)
	out := f.reserve(ctx, sess, req)
	if out == nil {
		f.Store.Discard(sess.Identity)
		return &models.OutboundMessage{Text: retryMessage}, true
	}
	sess.Append(models.RoleAssistant, out.Text)
	f.commit(ctx, sess)
	return out, true
}

// runModelTurn is the general path: prompt, model call, directive handling.
func (f *DefaultFlowController) runModelTurn(ctx context.Context, sess *models.Session, text string) (*models.OutboundMessage, error) {
	live, err := f.Booking.LiveSlots(ctx)
	if err != nil {
		f.Logger.Warn("flow: availability unavailable for prompt", zap.Error(err))
		live = nil
	}

	prompt := f.buildPrompt(ctx, live)
	sess.Append(models.RoleUser, text)

	reply, err := f.Model.GenerateReply(ctx, prompt, sess.History)
	if err != nil {
		f.Store.Discard(sess.Identity)
		f.Logger.Error("flow: model call failed", zap.String("identity", sess.Identity.Key()), zap.Error(err))
		return &models.OutboundMessage{Text: modelFailureMessage(err)}, nil
	}

	res := f.Parser.Parse(reply)
	if res.Err != nil {
		f.Logger.Warn("flow: malformed directive payload",
			zap.String("identity", sess.Identity.Key()), zap.Error(res.Err))
	}

	out := f.applyDirective(ctx, sess, res)
	if out == nil {
		// Reservation transport failure; nothing to commit.
		return &models.OutboundMessage{Text: retryMessage}, nil
	}
	if out.Text == "" {
		out.Text = defaultPrompt
	}
	sess.Append(models.RoleAssistant, out.Text)
	f.commit(ctx, sess)
	return out, nil
}

// applyDirective performs the side effect a parsed directive asks for and
// shapes the outbound message. A nil return means the turn must be discarded.
func (f *DefaultFlowController) applyDirective(ctx context.Context, sess *models.Session, res directive.Result) *models.OutboundMessage {
	out := &models.OutboundMessage{Text: res.VisibleText}

	switch res.Directive.Kind {
	case directive.ShowServices:
		out.Services = f.Catalog.Services(ctx)
		sess.State.AwaitingSlot = false

	case directive.ShowSlots:
		live, err := f.Booking.LiveSlots(ctx)
		if err != nil || len(live) == 0 {
			if err != nil {
				f.Logger.Warn("flow: slot listing failed", zap.Error(err))
			}
			out.Text = joinLines(out.Text, slotsDownNote)
			sess.State.AwaitingSlot = false
			break
		}
		out.Slots = live
		sess.State.OfferedSlots = live
		sess.State.AwaitingSlot = true

	case directive.Book:
		f.rememberContact(sess, res.Directive.Book.Name, res.Directive.Book.AttendeeEmail,
			res.Directive.Book.Phone, res.Directive.Book.Company)
		booked := f.reserve(ctx, sess, *res.Directive.Book)
		if booked == nil {
			f.Store.Discard(sess.Identity)
			return nil
		}
		booked.Text = joinLines(res.VisibleText, booked.Text)
		out = booked

	case directive.SaveRequest:
		f.rememberContact(sess, res.Directive.SaveRequest.Name, res.Directive.SaveRequest.Email,
			res.Directive.SaveRequest.Phone, res.Directive.SaveRequest.Company)
		if _, err := f.Leads.Create(ctx, *res.Directive.SaveRequest); err != nil {
			f.Logger.Error("flow: lead save failed", zap.Error(err))
			out.Text = joinLines(out.Text, leadFailNote)
		}
	}
	return out
}

// reserve runs one booking attempt and renders its outcome. Returns nil only
// on a transport failure, where the caller must discard the turn.
func (f *DefaultFlowController) reserve(ctx context.Context, sess *models.Session, req models.BookingRequest) *models.OutboundMessage {
	result, err := f.Booking.Reserve(ctx, req)
	if err != nil {
		f.Logger.Error("flow: reservation failed", zap.String("identity", sess.Identity.Key()), zap.Error(err))
		return nil
	}

	switch result.Outcome {
	case booking.Confirmed:
		sess.State.AwaitingSlot = false
		sess.State.OfferedSlots = nil
		text := fmt.Sprintf("✅ Your consultation is booked for %s.", f.Normalizer.FormatDisplay(result.Slot.Start))
		if result.Event != nil && result.Event.MeetingLink != "" {
			text += "\nMeeting link: " + result.Event.MeetingLink
		}
		text += "\nYou'll receive a calendar invitation by email shortly."
		return &models.OutboundMessage{Text: text, BookingConfirmed: true}

	case booking.Conflict:
		return f.reOffer(sess, result,
			"I'm sorry, that time was just taken. Here are the times still available:")

	default: // NoMatchingSlot
		return f.reOffer(sess, result,
			"That time isn't available. Here are the times I can offer:")
	}
}

// reOffer turns a failed attempt into an apology plus the fresh availability
// carried on the result.
func (f *DefaultFlowController) reOffer(sess *models.Session, result *booking.Result, apology string) *models.OutboundMessage {
	out := &models.OutboundMessage{Text: apology}
	if len(result.LiveSlots) > 0 {
		out.Slots = result.LiveSlots
		sess.State.OfferedSlots = result.LiveSlots
		sess.State.AwaitingSlot = true
	} else {
		out.Text = joinLines(apology, "Actually, nothing is open right now. Please check back soon.")
		sess.State.OfferedSlots = nil
		sess.State.AwaitingSlot = false
	}
	return out
}

func (f *DefaultFlowController) buildPrompt(ctx context.Context, live []models.Slot) string {
	return intelligence.BuildSystemPrompt(f.Catalog.Services(ctx), f.Catalog.FAQs(ctx), live, f.Timezone)
}

func (f *DefaultFlowController) selectedServiceName(ctx context.Context, sess *models.Session) string {
	if sess.State.SelectedServiceID == "" {
		return ""
	}
	if svc, ok := f.Catalog.FindService(ctx, sess.State.SelectedServiceID); ok {
		return svc.Name
	}
	return sess.State.SelectedServiceID
}

// rememberContact folds details the model extracted into the session so a
// later numbered slot pick can book without re-asking.
func (f *DefaultFlowController) rememberContact(sess *models.Session, name, email, phone, company string) {
	if sess.State.CollectedFields == nil {
		sess.State.CollectedFields = make(map[string]string)
	}
	set := func(key, val string) {
		if val != "" {
			sess.State.CollectedFields[key] = val
		}
	}
	set("name", name)
	set("email", email)
	set("phone", phone)
	set("company", company)
}

// commit persists the turn. A storage failure loses continuity, not the
// reply, so it is logged and swallowed.
func (f *DefaultFlowController) commit(ctx context.Context, sess *models.Session) {
	sess.Touch()
	if err := f.Store.Commit(ctx, sess); err != nil {
		f.Logger.Error("flow: session commit failed", zap.String("identity", sess.Identity.Key()), zap.Error(err))
	}
}

func modelFailureMessage(err error) string {
	if errors.Is(err, intelligence.ErrRateLimited) {
		return rateLimitMessage
	}
	return retryMessage
}

func joinLines(a, b string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n" + b
}
