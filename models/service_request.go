package models

import "time"

// Service request lifecycle statuses.
const (
	RequestStatusNew       = "new"
	RequestStatusContacted = "contacted"
	RequestStatusClosed    = "closed"
)

// ServiceRequest is a persisted lead/intake record created once per
// save-request directive. Immutable after creation except for Status.
type ServiceRequest struct {
	ID      string `bson:"id" json:"id"`
	Service string `bson:"service" json:"service"`
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Company string `bson:"company,omitempty" json:"company,omitempty"`
	Details string `bson:"details,omitempty" json:"details,omitempty"`

	// Optional qualification fields the assistant may have collected.
	Timeline      string `bson:"timeline,omitempty" json:"timeline,omitempty"`
	Budget        string `bson:"budget,omitempty" json:"budget,omitempty"`
	SAPModule     string `bson:"sapModule,omitempty" json:"sapModule,omitempty"`
	AppType       string `bson:"appType,omitempty" json:"appType,omitempty"`
	TrainingTopic string `bson:"trainingTopic,omitempty" json:"trainingTopic,omitempty"`
	Participants  int    `bson:"participants,omitempty" json:"participants,omitempty"`

	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
