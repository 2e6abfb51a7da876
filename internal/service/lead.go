package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/mutation"
	"github.com/Rrens/chatdesk/internal/view"
)

// LeadBackend is the subset of the backend client lead edits use
type LeadBackend interface {
	UpdateVisitor(ctx context.Context, tenant domain.Tenant, visitorID string, changes domain.Fields) (domain.Fields, error)
	GetVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID string) (domain.VisitorNotes, error)
	CreateVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID, notes string) (domain.VisitorNotes, error)
	UpdateVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID, notes string) (domain.VisitorNotes, error)
}

// LeadService runs the edits of the lead table and visitor pane
type LeadService struct {
	tenant   domain.Tenant
	backend  LeadBackend
	visitors *mutation.Coordinator
	threads  *view.VisitorThreadsView
}

// NewLeadService creates a lead service for one tenant
func NewLeadService(tenant domain.Tenant, backend LeadBackend, visitors *mutation.Coordinator, threads *view.VisitorThreadsView) *LeadService {
	return &LeadService{
		tenant:   tenant,
		backend:  backend,
		visitors: visitors,
		threads:  threads,
	}
}

// SetFlag sets the important or archived flag of a lead
func (s *LeadService) SetFlag(ctx context.Context, visitorID, flag string, value bool) (mutation.Result, error) {
	var changes domain.VisitorChanges
	switch flag {
	case "important":
		changes.Important = &value
	case "archived":
		changes.Archived = &value
	default:
		return mutation.Result{}, fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}
	return s.UpdateContact(ctx, visitorID, changes)
}

// UpdateContact edits the contact fields of a lead
func (s *LeadService) UpdateContact(ctx context.Context, visitorID string, changes domain.VisitorChanges) (mutation.Result, error) {
	if err := domain.Validate(changes); err != nil {
		return mutation.Result{}, err
	}
	fields := changes.Fields()
	if len(fields) == 0 {
		return mutation.Result{}, &domain.ValidationError{Fields: map[string]string{"changes": "is required"}}
	}

	intent := domain.MutationIntent{EntityID: visitorID, Changes: fields}
	return s.visitors.Apply(ctx, intent, func(ctx context.Context) (domain.Fields, error) {
		return s.backend.UpdateVisitor(ctx, s.tenant, visitorID, fields)
	}, mutation.WithFailureMessage("Could not save lead"))
}

// SaveNotes stores the internal notes of a lead. Leads without notes yet are
// created with POST; existing notes are replaced with PATCH.
func (s *LeadService) SaveNotes(ctx context.Context, visitorID, notes string) (mutation.Result, error) {
	if err := domain.Validate(domain.VisitorNotes{VisitorID: visitorID, Notes: notes}); err != nil {
		return mutation.Result{}, err
	}

	intent := domain.MutationIntent{EntityID: visitorID, Changes: domain.Fields{"internalNotes": notes}}
	return s.visitors.Apply(ctx, intent, func(ctx context.Context) (domain.Fields, error) {
		saved, err := s.writeNotes(ctx, visitorID, notes)
		if err != nil {
			return nil, err
		}
		return domain.Fields{"id": visitorID, "internalNotes": saved.Notes}, nil
	}, mutation.WithFailureMessage("Could not save notes"))
}

func (s *LeadService) writeNotes(ctx context.Context, visitorID, notes string) (domain.VisitorNotes, error) {
	_, err := s.backend.GetVisitorNotes(ctx, s.tenant, visitorID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return s.backend.CreateVisitorNotes(ctx, s.tenant, visitorID, notes)
	case err != nil:
		return domain.VisitorNotes{}, err
	}
	return s.backend.UpdateVisitorNotes(ctx, s.tenant, visitorID, notes)
}

// OpenThreads shows the first page of a visitor's threads
func (s *LeadService) OpenThreads(ctx context.Context, visitorID string) error {
	return s.threads.Open(ctx, visitorID)
}

// LoadMoreThreads fetches the next page of a visitor's threads
func (s *LeadService) LoadMoreThreads(ctx context.Context, visitorID string) (bool, error) {
	return s.threads.LoadMore(ctx, visitorID)
}
