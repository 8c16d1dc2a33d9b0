package directive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"moyobot/models"
)

// ErrMalformedDirective reports a marker whose JSON payload could not be
// parsed. The directive then resolves to None for side-effect purposes, but
// the flow controller uses the error to fall back to re-offering slots or
// services instead of silently succeeding.
var ErrMalformedDirective = errors.New("malformed directive payload")

// Kind identifies the structured intent embedded in assistant output.
type Kind int

const (
	None Kind = iota
	ShowServices
	ShowSlots
	Book
	SaveRequest
)

func (k Kind) String() string {
	switch k {
	case ShowServices:
		return "show_services"
	case ShowSlots:
		return "show_slots"
	case Book:
		return "book"
	case SaveRequest:
		return "save_request"
	default:
		return "none"
	}
}

// Directive is a typed intent extracted from assistant text. Book and
// SaveRequest carry payloads; the other kinds are bare markers.
type Directive struct {
	Kind        Kind
	Book        *models.BookingRequest
	SaveRequest *models.ServiceRequest
}

// Result is the outcome of parsing one assistant reply.
type Result struct {
	// VisibleText is the reply with all recognized markers and payloads
	// removed and whitespace trimmed. May be empty; callers substitute a
	// default prompt in that case.
	VisibleText string
	Directive   Directive
	// Err is non-nil when a recognized marker carried an unparsable payload.
	Err error
}

// Wire marker tokens. COLLECT_SERVICE is a legacy alias for SAVE_REQUEST.
const (
	markerShowServices   = "===SHOW_SERVICES==="
	markerShowSlots      = "===SHOW_SLOTS==="
	markerBook           = "===BOOK==="
	markerSaveRequest    = "===SAVE_REQUEST==="
	markerCollectService = "===COLLECT_SERVICE==="
)

// Parser extracts directives from free-form assistant output. Parsing is
// best-effort and defensive: assistant text is untrusted input.
type Parser struct {
	loc *time.Location
}

// NewParser builds a parser. Naive timestamps in payloads (no UTC offset)
// are interpreted in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

type foundMarker struct {
	kind    Kind
	pos     int
	token   string
	payload bool
}

// Parse splits raw assistant output into visible text plus at most one
// actionable directive. When multiple markers appear, precedence is
// Book > SaveRequest > ShowSlots > ShowServices so a booking intent is never
// silently dropped in favor of a lower-priority directive.
func (p *Parser) Parse(text string) Result {
	found := scanMarkers(text)
	if len(found) == 0 {
		return Result{VisibleText: strings.TrimSpace(text)}
	}

	chosen := found[0]
	for _, m := range found[1:] {
		if precedence(m.kind) > precedence(chosen.kind) {
			chosen = m
		}
	}

	visible := stripMarkers(text, found)
	res := Result{VisibleText: visible}

	if !chosen.payload {
		res.Directive = Directive{Kind: chosen.kind}
		return res
	}

	raw, ok := extractPayload(text, chosen)
	if !ok {
		// Marker present, payload unusable: everything from the marker on is
		// garbage, keep only the text preceding it.
		res.VisibleText = strings.TrimSpace(text[:chosen.pos])
		res.Err = fmt.Errorf("%w: %s", ErrMalformedDirective, chosen.kind)
		return res
	}

	switch chosen.kind {
	case Book:
		req, err := p.decodeBook(raw)
		if err != nil {
			res.VisibleText = strings.TrimSpace(text[:chosen.pos])
			res.Err = fmt.Errorf("%w: %s: %v", ErrMalformedDirective, chosen.kind, err)
			return res
		}
		res.Directive = Directive{Kind: Book, Book: req}
	case SaveRequest:
		rec, err := decodeSaveRequest(raw)
		if err != nil {
			res.VisibleText = strings.TrimSpace(text[:chosen.pos])
			res.Err = fmt.Errorf("%w: %s: %v", ErrMalformedDirective, chosen.kind, err)
			return res
		}
		res.Directive = Directive{Kind: SaveRequest, SaveRequest: rec}
	}
	return res
}

// scanMarkers finds every recognized marker token that starts a line.
func scanMarkers(text string) []foundMarker {
	tokens := []struct {
		token   string
		kind    Kind
		payload bool
	}{
		{markerBook, Book, true},
		{markerSaveRequest, SaveRequest, true},
		{markerCollectService, SaveRequest, true},
		{markerShowSlots, ShowSlots, false},
		{markerShowServices, ShowServices, false},
	}

	var found []foundMarker
	for _, t := range tokens {
		offset := 0
		rest := text
		for {
			idx := strings.Index(rest, t.token)
			if idx < 0 {
				break
			}
			abs := offset + idx
			if startsLine(text, abs) {
				found = append(found, foundMarker{kind: t.kind, pos: abs, token: t.token, payload: t.payload})
			}
			offset = abs + len(t.token)
			rest = text[offset:]
		}
	}
	return found
}

// startsLine reports whether pos is at the beginning of the text or of a line,
// ignoring leading spaces on that line.
func startsLine(text string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\t':
			continue
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}

func precedence(k Kind) int {
	switch k {
	case Book:
		return 4
	case SaveRequest:
		return 3
	case ShowSlots:
		return 2
	case ShowServices:
		return 1
	default:
		return 0
	}
}

// extractPayload pulls the single JSON object following a payload marker,
// tolerating a fenced code block around it. Returns false when no object is
// present or the braces never parse as one JSON value.
func extractPayload(text string, m foundMarker) (json.RawMessage, bool) {
	rest := text[m.pos+len(m.token):]
	rest = strings.ReplaceAll(rest, "```json", "")
	rest = strings.ReplaceAll(rest, "```", "")

	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(rest[start:]))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	return raw, true
}

// stripMarkers removes every recognized marker and, for payload markers, the
// JSON object that follows it.
func stripMarkers(text string, found []foundMarker) string {
	// Work back to front so recorded positions stay valid.
	ordered := make([]foundMarker, len(found))
	copy(ordered, found)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].pos > ordered[i].pos {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	for _, m := range ordered {
		end := m.pos + len(m.token)
		if m.payload {
			if _, ok := extractPayload(text, m); ok {
				end += payloadSpan(text[end:])
			} else {
				end = len(text)
			}
		}
		text = text[:m.pos] + text[end:]
	}
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// payloadSpan returns the number of bytes from the start of rest through the
// closing brace of the first balanced JSON object, skipping string literals.
func payloadSpan(rest string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(rest)
}

// bookPayload is the wire shape of a BOOK directive. Times arrive as strings
// and may omit the UTC offset.
type bookPayload struct {
	Intent        string `json:"intent"`
	Service       string `json:"service"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end"`
	AttendeeEmail string `json:"attendeeEmail"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Company       string `json:"company"`
	Details       string `json:"details"`
}

func (p *Parser) decodeBook(raw json.RawMessage) (*models.BookingRequest, error) {
	var pl bookPayload
	if err := json.Unmarshal(raw, &pl); err != nil {
		return nil, err
	}
	if pl.Start == "" || pl.AttendeeEmail == "" {
		return nil, errors.New("missing start or attendeeEmail")
	}
	start, err := p.parseTime(pl.Start)
	if err != nil {
		return nil, fmt.Errorf("bad start %q: %v", pl.Start, err)
	}
	end := start.Add(models.SlotDuration)
	if pl.End != "" {
		if t, err := p.parseTime(pl.End); err == nil {
			end = t
		}
	}
	return &models.BookingRequest{
		ServiceName:   pl.Service,
		Title:         pl.Title,
		Start:         start,
		End:           end,
		AttendeeEmail: pl.AttendeeEmail,
		Name:          pl.Name,
		Phone:         pl.Phone,
		Company:       pl.Company,
		Details:       pl.Details,
	}, nil
}

// saveRequestPayload is the wire shape of a SAVE_REQUEST directive.
// Participants tolerates both numeric and quoted values.
type saveRequestPayload struct {
	Service       string      `json:"service"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Company       string      `json:"company"`
	Details       string      `json:"details"`
	Timeline      string      `json:"timeline"`
	Budget        string      `json:"budget"`
	SAPModule     string      `json:"sapModule"`
	AppType       string      `json:"appType"`
	TrainingTopic string      `json:"trainingTopic"`
	Participants  json.Number `json:"participants,omitempty"`
}

func decodeSaveRequest(raw json.RawMessage) (*models.ServiceRequest, error) {
	var pl saveRequestPayload
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&pl); err != nil {
		return nil, err
	}
	if pl.Service == "" || pl.Name == "" || pl.Email == "" {
		return nil, errors.New("missing service, name or email")
	}
	participants := 0
	if pl.Participants != "" {
		if n, err := pl.Participants.Int64(); err == nil {
			participants = int(n)
		}
	}
	return &models.ServiceRequest{
		Service:       pl.Service,
		Name:          pl.Name,
		Email:         pl.Email,
		Phone:         pl.Phone,
		Company:       pl.Company,
		Details:       pl.Details,
		Timeline:      pl.Timeline,
		Budget:        pl.Budget,
		SAPModule:     pl.SAPModule,
		AppType:       pl.AppType,
		TrainingTopic: pl.TrainingTopic,
		Participants:  participants,
		Status:        models.RequestStatusNew,
	}, nil
}

func (p *Parser) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, p.loc)
}
