package domain

import (
	"time"
)

// Visitor represents a lead captured by a chatbot
type Visitor struct {
	ID            string    `json:"id"`
	ChatbotID     string    `json:"chatbotId"`
	Name          *string   `json:"name,omitempty"`
	Email         *string   `json:"email,omitempty"`
	PhoneNumber   *string   `json:"phoneNumber,omitempty"`
	Important     bool      `json:"important"`
	Archived      bool      `json:"archived"`
	TotalSessions int       `json:"totalSessions"`
	TotalMessages int       `json:"totalMessages"`
	TotalThreads  int       `json:"totalThreads"`
	InternalNotes *string   `json:"internalNotes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// VisitorChanges represents lead fields an operator may edit
type VisitorChanges struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Important   *bool   `json:"important,omitempty"`
	Archived    *bool   `json:"archived,omitempty"`
}

// Fields converts the change set into its wire form
func (c VisitorChanges) Fields() Fields {
	f := Fields{}
	if c.Name != nil {
		f["name"] = *c.Name
	}
	if c.Email != nil {
		f["email"] = *c.Email
	}
	if c.PhoneNumber != nil {
		f["phoneNumber"] = *c.PhoneNumber
	}
	if c.Important != nil {
		f["important"] = *c.Important
	}
	if c.Archived != nil {
		f["archived"] = *c.Archived
	}
	return f
}

// VisitorNotes holds the free-form notes an operator keeps on a lead
type VisitorNotes struct {
	VisitorID string    `json:"visitorId"`
	Notes     string    `json:"notes" validate:"max=5000"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Pagination is the page window returned by paged endpoints
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// HasMore reports whether pages remain after the current one
func (p Pagination) HasMore() bool {
	return p.Page < p.Pages
}
