package models

import "time"

// Service is one entry of the consultancy's service catalog.
type Service struct {
	ID      string `bson:"id" json:"id"`
	Name    string `bson:"name" json:"name"`
	Short   string `bson:"short,omitempty" json:"short,omitempty"`
	Details string `bson:"details,omitempty" json:"details,omitempty"`
	Active  bool   `bson:"active" json:"active"`
}

// FAQ is a frequently-asked question shown to the assistant as context.
type FAQ struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// Content bundles the synced catalog material.
type Content struct {
	Services  []Service `bson:"services" json:"services"`
	FAQs      []FAQ     `bson:"faqs" json:"faqs"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
