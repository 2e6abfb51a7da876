package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Rrens/chatdesk/internal/domain"
)

// ListVisitors returns the leads of the tenant's chatbot
func (c *Client) ListVisitors(ctx context.Context, tenant domain.Tenant) ([]domain.Visitor, error) {
	var data struct {
		Visitors []domain.Visitor `json:"visitors"`
	}
	err := c.do(ctx, tenant, request{method: http.MethodGet, path: "/visitors", chatbotScoped: true}, &data)
	if err != nil {
		return nil, err
	}
	return data.Visitors, nil
}

// UpdateVisitor patches a field subset of one lead and returns the updated record
func (c *Client) UpdateVisitor(ctx context.Context, tenant domain.Tenant, visitorID string, changes domain.Fields) (domain.Fields, error) {
	var rec domain.Fields
	err := c.do(ctx, tenant, request{
		method:        http.MethodPatch,
		path:          "/visitor/" + url.PathEscape(visitorID),
		body:          changes,
		chatbotScoped: true,
	}, &rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetVisitorNotes returns the notes of a lead, or ErrNotFound when none exist yet
func (c *Client) GetVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID string) (domain.VisitorNotes, error) {
	var notes domain.VisitorNotes
	err := c.do(ctx, tenant, request{method: http.MethodGet, path: notesPath(visitorID)}, &notes)
	return notes, err
}

// CreateVisitorNotes stores the first notes of a lead
func (c *Client) CreateVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID, notes string) (domain.VisitorNotes, error) {
	return c.writeNotes(ctx, tenant, http.MethodPost, visitorID, notes)
}

// UpdateVisitorNotes replaces the existing notes of a lead
func (c *Client) UpdateVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID, notes string) (domain.VisitorNotes, error) {
	return c.writeNotes(ctx, tenant, http.MethodPatch, visitorID, notes)
}

func (c *Client) writeNotes(ctx context.Context, tenant domain.Tenant, method, visitorID, notes string) (domain.VisitorNotes, error) {
	var out domain.VisitorNotes
	err := c.do(ctx, tenant, request{
		method: method,
		path:   notesPath(visitorID),
		body:   map[string]string{"notes": notes},
	}, &out)
	return out, err
}

func notesPath(visitorID string) string {
	return "/visitor/" + url.PathEscape(visitorID) + "/notes"
}
