package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"moyobot/models"
	"moyobot/services/booking"
	"moyobot/services/directive"
	"moyobot/services/intelligence"
	"moyobot/services/session"
	"moyobot/services/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeModel struct {
	replies []string
	err     error
	calls   int
}

func (m *fakeModel) GenerateReply(ctx context.Context, systemPrompt string, history []models.Turn) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

type fakeCatalog struct {
	services []models.Service
}

func (c *fakeCatalog) Services(ctx context.Context) []models.Service { return c.services }
func (c *fakeCatalog) FAQs(ctx context.Context) []models.FAQ        { return nil }
func (c *fakeCatalog) FindService(ctx context.Context, idOrName string) (*models.Service, bool) {
	for _, s := range c.services {
		if s.ID == idOrName || s.Name == idOrName {
			return &s, true
		}
	}
	return nil, false
}

type fakeLeads struct {
	created []models.ServiceRequest
	err     error
}

func (l *fakeLeads) Create(ctx context.Context, req models.ServiceRequest) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.created = append(l.created, req)
	return "req-1", nil
}

type fakeBooking struct {
	live         []models.Slot
	liveErr      error
	result       *booking.Result
	reserveErr   error
	reserveCalls int
	lastReq      models.BookingRequest
}

func (b *fakeBooking) LiveSlots(ctx context.Context) ([]models.Slot, error) {
	return b.live, b.liveErr
}

func (b *fakeBooking) Reserve(ctx context.Context, req models.BookingRequest) (*booking.Result, error) {
	b.reserveCalls++
	b.lastReq = req
	if b.reserveErr != nil {
		return nil, b.reserveErr
	}
	return b.result, nil
}

type flowFixture struct {
	flow    *DefaultFlowController
	store   *session.MemoryStore
	model   *fakeModel
	leads   *fakeLeads
	booking *fakeBooking
}

func newFixture(t *testing.T) *flowFixture {
	t.Helper()
	n, err := slots.NewNormalizer("Africa/Kigali")
	require.NoError(t, err)

	store := session.NewMemoryStore()
	model := &fakeModel{replies: []string{"Hello there!"}}
	leads := &fakeLeads{}
	bk := &fakeBooking{}

	return &flowFixture{
		flow: &DefaultFlowController{
			Store: store,
			Model: model,
			Catalog: &fakeCatalog{services: []models.Service{
				{ID: "sap-consulting", Name: "SAP Consulting", Active: true},
				{ID: "it-training", Name: "IT Training", Active: true},
			}},
			Leads:      leads,
			Booking:    bk,
			Parser:     directive.NewParser(n.Location()),
			Normalizer: n,
			Timezone:   "Africa/Kigali",
			Logger:     zap.NewNop(),
		},
		store:   store,
		model:   model,
		leads:   leads,
		booking: bk,
	}
}

func inbound(text string) models.InboundMessage {
	return models.InboundMessage{
		Identity: models.Identity{Channel: "web", Address: "alice"},
		Text:     text,
	}
}

// prime runs the first-contact turn so later messages reach the model path.
func prime(t *testing.T, f *flowFixture) {
	t.Helper()
	out, err := f.flow.HandleMessage(context.Background(), inbound("hi"))
	require.NoError(t, err)
	require.NotEmpty(t, out.Services)
}

func testSlot(loc *time.Location, day, hour int) models.Slot {
	start := time.Date(2026, 9, day, hour, 0, 0, 0, loc)
	return models.Slot{Start: start, End: start.Add(time.Hour), Display: start.Format("Monday, January 2 at 3:04 PM")}
}

func TestFirstMessageAlwaysShowsServices(t *testing.T) {
	f := newFixture(t)

	out, err := f.flow.HandleMessage(context.Background(), inbound("I need help migrating our ERP"))

	require.NoError(t, err)
	assert.Len(t, out.Services, 2)
	assert.Zero(t, f.model.calls, "first contact is answered without a model call")
	assert.False(t, out.BookingConfirmed)

	sess, err := f.store.Acquire(context.Background(), models.Identity{Channel: "web", Address: "alice"})
	require.NoError(t, err)
	defer f.store.Discard(sess.Identity)
	assert.Len(t, sess.History, 2, "first-contact turn is recorded")
}

func TestSecondMessageGoesToModel(t *testing.T) {
	f := newFixture(t)
	prime(t, f)

	_, err := f.flow.HandleMessage(context.Background(), inbound("tell me about SAP"))

	require.NoError(t, err)
	assert.Equal(t, 1, f.model.calls)
}

func TestPlainReplyGrowsHistory(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.model.replies = []string{"We have been doing SAP work for a decade."}
	ctx := context.Background()

	out, err := f.flow.HandleMessage(ctx, inbound("how experienced are you?"))

	require.NoError(t, err)
	assert.Equal(t, "We have been doing SAP work for a decade.", out.Text)

	sess, _ := f.store.Acquire(ctx, models.Identity{Channel: "web", Address: "alice"})
	defer f.store.Discard(sess.Identity)
	require.Len(t, sess.History, 4)
	assert.Equal(t, models.RoleUser, sess.History[2].Role)
	assert.Equal(t, models.RoleAssistant, sess.History[3].Role)
}

func TestShowSlotsDirectiveOffersSlots(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	loc := f.flow.Normalizer.Location()
	f.booking.live = []models.Slot{testSlot(loc, 2, 10), testSlot(loc, 2, 11)}
	f.model.replies = []string{"Here are our open times:\n===SHOW_SLOTS==="}
	ctx := context.Background()

	out, err := f.flow.HandleMessage(ctx, inbound("when are you free?"))

	require.NoError(t, err)
	assert.Len(t, out.Slots, 2)

	sess, _ := f.store.Acquire(ctx, models.Identity{Channel: "web", Address: "alice"})
	defer f.store.Discard(sess.Identity)
	assert.True(t, sess.State.AwaitingSlot)
	assert.Len(t, sess.State.OfferedSlots, 2)
}

func TestBookDirectiveConfirms(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	loc := f.flow.Normalizer.Location()
	slot := testSlot(loc, 2, 10)
	f.booking.result = &booking.Result{Outcome: booking.Confirmed, Slot: slot,
		Event: &models.EventDetails{EventID: "evt-1", MeetingLink: "https://meet.example/abc"}}
	f.model.replies = []string{
		"Booking that now.\n===BOOK===\n" +
			`{"start":"2026-09-02T10:00:00","attendeeEmail":"jo@acme.com","name":"Jo"}`,
	}

	out, err := f.flow.HandleMessage(context.Background(), inbound("book me the 10am"))

	require.NoError(t, err)
	assert.True(t, out.BookingConfirmed)
	assert.Contains(t, out.Text, "booked")
	assert.Contains(t, out.Text, "https://meet.example/abc")
	assert.Equal(t, 1, f.booking.reserveCalls)
	assert.Equal(t, "jo@acme.com", f.booking.lastReq.AttendeeEmail)
}

func TestBookConflictReoffersFreshSlots(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	loc := f.flow.Normalizer.Location()
	fresh := []models.Slot{testSlot(loc, 2, 14)}
	f.booking.result = &booking.Result{Outcome: booking.Conflict, Slot: testSlot(loc, 2, 10), LiveSlots: fresh}
	f.model.replies = []string{
		"===BOOK===\n" + `{"start":"2026-09-02T10:00:00","attendeeEmail":"jo@acme.com"}`,
	}
	ctx := context.Background()

	out, err := f.flow.HandleMessage(ctx, inbound("book me the 10am"))

	require.NoError(t, err)
	assert.False(t, out.BookingConfirmed)
	assert.Contains(t, out.Text, "taken")
	assert.Len(t, out.Slots, 1)

	sess, _ := f.store.Acquire(ctx, models.Identity{Channel: "web", Address: "alice"})
	defer f.store.Discard(sess.Identity)
	assert.True(t, sess.State.AwaitingSlot)
	require.Len(t, sess.State.OfferedSlots, 1)
	assert.True(t, sess.State.OfferedSlots[0].Start.Equal(fresh[0].Start))
}

func TestBookTransportFailureDiscardsTurn(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.booking.reserveErr = errors.New("calendar down")
	f.model.replies = []string{
		"===BOOK===\n" + `{"start":"2026-09-02T10:00:00","attendeeEmail":"jo@acme.com"}`,
	}
	ctx := context.Background()

	out, err := f.flow.HandleMessage(ctx, inbound("book me the 10am"))

	require.NoError(t, err)
	assert.False(t, out.BookingConfirmed)
	assert.Equal(t, retryMessage, out.Text)

	sess, _ := f.store.Acquire(ctx, models.Identity{Channel: "web", Address: "alice"})
	defer f.store.Discard(sess.Identity)
	assert.Len(t, sess.History, 2, "the failed turn must not be committed")
}

func TestSaveRequestDirectivePersistsLead(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.model.replies = []string{
		"Noted! Our team will reach out.\n===SAVE_REQUEST===\n" +
			`{"service":"IT Training","name":"Jo","email":"jo@acme.com","participants":6}`,
	}

	out, err := f.flow.HandleMessage(context.Background(), inbound("we need Go training for 6 people"))

	require.NoError(t, err)
	assert.Equal(t, "Noted! Our team will reach out.", out.Text)
	require.Len(t, f.leads.created, 1)
	assert.Equal(t, "IT Training", f.leads.created[0].Service)
	assert.Equal(t, 6, f.leads.created[0].Participants)
}

func TestSaveRequestFailureApologizesWithoutClaimingSaved(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.leads.err = errors.New("mongo down")
	f.model.replies = []string{
		"Got it.\n===SAVE_REQUEST===\n" +
			`{"service":"IT Training","name":"Jo","email":"jo@acme.com"}`,
	}

	out, err := f.flow.HandleMessage(context.Background(), inbound("we need training"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "couldn't save")
}

func TestMalformedDirectiveKeepsPrecedingTextNoSideEffects(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.model.replies = []string{"Let me set that up.\n===BOOK===\n{broken json"}

	out, err := f.flow.HandleMessage(context.Background(), inbound("book me"))

	require.NoError(t, err)
	assert.Equal(t, "Let me set that up.", out.Text)
	assert.Zero(t, f.booking.reserveCalls)
	assert.Empty(t, f.leads.created)
	assert.False(t, out.BookingConfirmed)
}

func TestModelFailureDoesNotCommit(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.model.err = intelligence.ErrUnavailable
	ctx := context.Background()

	out, err := f.flow.HandleMessage(ctx, inbound("a question"))

	require.NoError(t, err)
	assert.Equal(t, retryMessage, out.Text)

	sess, _ := f.store.Acquire(ctx, models.Identity{Channel: "web", Address: "alice"})
	defer f.store.Discard(sess.Identity)
	assert.Len(t, sess.History, 2, "the failed turn must not be committed")
}

func TestModelRateLimitGetsDedicatedMessage(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.model.err = intelligence.ErrRateLimited

	out, err := f.flow.HandleMessage(context.Background(), inbound("a question"))

	require.NoError(t, err)
	assert.Equal(t, rateLimitMessage, out.Text)
}

func TestNumberedSlotPickReservesDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := models.Identity{Channel: "web", Address: "alice"}
	loc := f.flow.Normalizer.Location()
	offered := []models.Slot{testSlot(loc, 2, 10), testSlot(loc, 2, 11)}

	// Prime a session that is already awaiting a slot choice with contact
	// details on file.
	sess, err := f.store.Acquire(ctx, id)
	require.NoError(t, err)
	sess.Append(models.RoleUser, "can we book a call?")
	sess.Append(models.RoleAssistant, "Here are our open times:")
	sess.State.AwaitingSlot = true
	sess.State.OfferedSlots = offered
	sess.State.CollectedFields = map[string]string{"email": "jo@acme.com", "name": "Jo"}
	require.NoError(t, f.store.Commit(ctx, sess))

	f.booking.result = &booking.Result{Outcome: booking.Confirmed, Slot: offered[1],
		Event: &models.EventDetails{EventID: "evt-2"}}

	out, err := f.flow.HandleMessage(ctx, inbound("2"))

	require.NoError(t, err)
	assert.True(t, out.BookingConfirmed)
	assert.Zero(t, f.model.calls, "a numbered pick books without a model call")
	assert.Equal(t, 1, f.booking.reserveCalls)
	assert.True(t, f.booking.lastReq.Start.Equal(offered[1].Start))
	assert.Equal(t, "jo@acme.com", f.booking.lastReq.AttendeeEmail)
}

func TestNumberedPickWithoutEmailFallsThroughToModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := models.Identity{Channel: "web", Address: "alice"}
	loc := f.flow.Normalizer.Location()

	sess, err := f.store.Acquire(ctx, id)
	require.NoError(t, err)
	sess.Append(models.RoleUser, "can we book a call?")
	sess.Append(models.RoleAssistant, "Here are our open times:")
	sess.State.AwaitingSlot = true
	sess.State.OfferedSlots = []models.Slot{testSlot(loc, 2, 10)}
	require.NoError(t, f.store.Commit(ctx, sess))

	f.model.replies = []string{"Great choice! May I have your email to confirm?"}

	out, err := f.flow.HandleMessage(ctx, inbound("1"))

	require.NoError(t, err)
	assert.Equal(t, 1, f.model.calls)
	assert.Zero(t, f.booking.reserveCalls)
	assert.Contains(t, out.Text, "email")
}

func TestResetClearsSessionState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := models.Identity{Channel: "web", Address: "alice"}

	sess, err := f.store.Acquire(ctx, id)
	require.NoError(t, err)
	sess.Append(models.RoleUser, "earlier message")
	sess.State.SelectedServiceID = "sap-consulting"
	sess.State.AwaitingSlot = true
	require.NoError(t, f.store.Commit(ctx, sess))

	out, err := f.flow.HandleMessage(ctx, inbound("start over"))

	require.NoError(t, err)
	assert.Len(t, out.Services, 2)

	sess, _ = f.store.Acquire(ctx, id)
	defer f.store.Discard(id)
	assert.Empty(t, sess.State.SelectedServiceID)
	assert.False(t, sess.State.AwaitingSlot)
	require.Len(t, sess.History, 1, "only the reset reply remains")
	assert.Equal(t, models.RoleAssistant, sess.History[0].Role)
}

func TestServiceSelectionFromInteractiveList(t *testing.T) {
	f := newFixture(t)
	f.model.replies = []string{"SAP Consulting is a great fit. What are you migrating from?"}
	ctx := context.Background()

	out, err := f.flow.HandleMessage(ctx, models.InboundMessage{
		Identity:    models.Identity{Channel: "whatsapp", Address: "250788000111"},
		SelectionID: "svc:sap-consulting",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, f.model.calls, "a list selection is processed even on a fresh session")
	assert.NotEmpty(t, out.Text)

	sess, _ := f.store.Acquire(ctx, models.Identity{Channel: "whatsapp", Address: "250788000111"})
	defer f.store.Discard(sess.Identity)
	assert.Equal(t, "sap-consulting", sess.State.SelectedServiceID)
	require.NotEmpty(t, sess.History)
	assert.Contains(t, sess.History[0].Text, "SAP Consulting")
}

func TestEmptyVisibleTextGetsDefaultPrompt(t *testing.T) {
	f := newFixture(t)
	prime(t, f)
	f.model.replies = []string{"===SHOW_SERVICES==="}

	out, err := f.flow.HandleMessage(context.Background(), inbound("what do you do?"))

	require.NoError(t, err)
	assert.Equal(t, defaultPrompt, out.Text)
	assert.Len(t, out.Services, 2)
}
