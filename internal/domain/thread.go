package domain

import (
	"time"
)

// ThreadMode represents who is answering a thread
type ThreadMode string

const (
	ModeAI    ThreadMode = "AI"
	ModeHuman ThreadMode = "HUMAN"
)

// MaxTagLength is the longest tag a thread may carry
const MaxTagLength = 50

// Thread represents a conversation session between a visitor and the bot or an agent
type Thread struct {
	ID           string     `json:"id"`
	ChatbotID    string     `json:"chatbotId"`
	Resolved     bool       `json:"resolved"`
	Important    bool       `json:"important"`
	Archived     bool       `json:"archived"`
	Escalated    bool       `json:"escalated"`
	Mode         ThreadMode `json:"mode"`
	Title        *string    `json:"title,omitempty"`
	Tags         []string   `json:"tags"`
	VisitorID    string     `json:"visitorId,omitempty"`
	VisitorName  string     `json:"visitorName,omitempty"`
	VisitorEmail string     `json:"visitorEmail,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ThreadChanges is the typed form of the field subset a thread update may carry.
// Nil fields are not part of the change.
type ThreadChanges struct {
	Title     *string     `json:"title,omitempty" validate:"omitempty,max=255"`
	Resolved  *bool       `json:"resolved,omitempty"`
	Important *bool       `json:"important,omitempty"`
	Archived  *bool       `json:"archived,omitempty"`
	Escalated *bool       `json:"escalated,omitempty"`
	Mode      *ThreadMode `json:"mode,omitempty" validate:"omitempty,oneof=AI HUMAN"`
	Tags      []string    `json:"tags,omitempty" validate:"omitempty,unique,dive,required,max=50"`
}

// Fields converts the change set into its wire form
func (c ThreadChanges) Fields() Fields {
	f := Fields{}
	if c.Title != nil {
		f["title"] = *c.Title
	}
	if c.Resolved != nil {
		f["resolved"] = *c.Resolved
	}
	if c.Important != nil {
		f["important"] = *c.Important
	}
	if c.Archived != nil {
		f["archived"] = *c.Archived
	}
	if c.Escalated != nil {
		f["escalated"] = *c.Escalated
	}
	if c.Mode != nil {
		f["mode"] = string(*c.Mode)
	}
	if c.Tags != nil {
		tags := make([]any, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = t
		}
		f["tags"] = tags
	}
	return f
}

// ThreadUpdate is one element of a batch update request
type ThreadUpdate struct {
	ThreadID string
	Changes  Fields
}

// MarshalJSON flattens the update into {threadId, ...changes}
func (u ThreadUpdate) MarshalJSON() ([]byte, error) {
	body := make(Fields, len(u.Changes)+1)
	for k, v := range u.Changes {
		body[k] = v
	}
	body["threadId"] = u.ThreadID
	return marshalFields(body)
}

// BulkResult is the batch update response: one batch per submitted item,
// each holding zero or one updated record.
type BulkResult [][]Fields

// Flatten maps every returned record by id. Records without an id are skipped.
func (r BulkResult) Flatten() map[string]Fields {
	out := make(map[string]Fields)
	for _, batch := range r {
		for _, rec := range batch {
			id := rec.ID()
			if id == "" {
				continue
			}
			out[id] = rec
		}
	}
	return out
}
