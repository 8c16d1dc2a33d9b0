package models

import (
	"time"
)

// Turn roles recorded in a session's history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Identity is the stable key for one end user's conversation on one channel.
type Identity struct {
	Channel string `bson:"channel" json:"channel"` // e.g. "whatsapp", "web"
	Address string `bson:"address" json:"address"` // phone number, client id, ...
}

// Key returns the storage key for this identity.
func (id Identity) Key() string {
	return id.Channel + ":" + id.Address
}

// Turn is a single entry in a session's conversation history.
type Turn struct {
	Role      string    `bson:"role" json:"role"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SessionState carries the per-conversation flow state mutated once per turn.
type SessionState struct {
	SelectedServiceID string            `bson:"selectedServiceId,omitempty" json:"selectedServiceId,omitempty"`
	CollectedFields   map[string]string `bson:"collectedFields,omitempty" json:"collectedFields,omitempty"`
	AwaitingSlot      bool              `bson:"awaitingSlot" json:"awaitingSlot"`
	OfferedSlots      []Slot            `bson:"offeredSlots,omitempty" json:"offeredSlots,omitempty"`
}

// Session is one end user's conversation state and history. Sessions are
// disposable: losing one only degrades conversational continuity, never the
// correctness of a completed booking.
type Session struct {
	Identity     Identity     `bson:"identity" json:"identity"`
	History      []Turn       `bson:"history" json:"history"`
	State        SessionState `bson:"state" json:"state"`
	LastActivity time.Time    `bson:"lastActivity" json:"lastActivity"`
}

// NewSession returns a fresh empty session for the given identity.
func NewSession(id Identity) *Session {
	return &Session{
		Identity:     id,
		State:        SessionState{CollectedFields: map[string]string{}},
		LastActivity: time.Now(),
	}
}

// Append records one history entry. History is append-only; insertion order
// is significant for model context.
func (s *Session) Append(role, text string) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: time.Now()})
}

// Touch updates the activity timestamp used by the reaper.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}
