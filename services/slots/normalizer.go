package slots

import (
	"fmt"
	"sort"
	"time"

	"moyobot/models"
)

// displayLayout matches the confirmation copy sent to end users,
// e.g. "Wednesday, December 10 at 2:00 PM".
const displayLayout = "Monday, January 2 at 3:04 PM"

// Window is a provider-native free window, as returned by the calendar
// collaborator. Windows may be longer than one slot or already in progress.
type Window struct {
	Start time.Time
	End   time.Time
}

// Normalizer converts raw free windows into canonical one-hour Slots.
// All instants are compared in absolute time; Display strings are rendered
// in a single fixed IANA timezone so formatting and comparison can never
// disagree about ordering.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// NewNormalizer builds a Normalizer for the given IANA timezone name.
func NewNormalizer(timezone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load display timezone %q: %w", timezone, err)
	}
	return &Normalizer{loc: loc, now: time.Now}, nil
}

// NewNormalizerAt is like NewNormalizer with an injectable clock, for tests.
func NewNormalizerAt(timezone string, now func() time.Time) (*Normalizer, error) {
	n, err := NewNormalizer(timezone)
	if err != nil {
		return nil, err
	}
	n.now = now
	return n, nil
}

// Normalize carves the given windows into one-hour Slots sorted ascending by
// start. A window already in progress is clamped to the next full-hour
// boundary after now rather than dropped, so a provider returning one long
// in-progress window still yields offers. Zero windows yield an empty slice,
// which callers treat as "no availability", not an error.
func (n *Normalizer) Normalize(windows []Window) []models.Slot {
	now := n.now()
	var out []models.Slot
	for _, w := range windows {
		start := w.Start
		if !start.After(now) {
			// Next reservable boundary strictly after now.
			start = now.Truncate(time.Hour).Add(time.Hour)
		}
		for !start.Add(models.SlotDuration).After(w.End) {
			out = append(out, n.makeSlot(start))
			start = start.Add(models.SlotDuration)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FormatDisplay renders an instant the way slots are shown to end users.
func (n *Normalizer) FormatDisplay(t time.Time) string {
	return t.In(n.loc).Format(displayLayout)
}

// Location returns the fixed display timezone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

func (n *Normalizer) makeSlot(start time.Time) models.Slot {
	return models.Slot{
		Start:   start,
		End:     start.Add(models.SlotDuration),
		Display: n.FormatDisplay(start),
	}
}
