package models

import "time"

// SlotDuration is the fixed length of every reservable consultation window.
const SlotDuration = time.Hour

// Slot represents a canonical, timezone-normalized one-hour reservable window.
// Start and End are absolute instants used for all comparisons; Display is the
// human-readable start time in the configured display timezone and must never
// disagree with Start about ordering.
type Slot struct {
	Start   time.Time `bson:"start" json:"isoStart"`
	End     time.Time `bson:"end" json:"isoEnd"`
	Display string    `bson:"display" json:"display"`
}

// Equal reports whether two slots cover the same instant window.
func (s Slot) Equal(other Slot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}
