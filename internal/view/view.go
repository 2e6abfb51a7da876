package view

import (
	"context"

	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/rs/zerolog/log"
)

// ThreadSource lists the threads of a chatbot
type ThreadSource interface {
	ListThreads(ctx context.Context, tenant domain.Tenant) ([]domain.Thread, error)
}

// MessageSource lists the messages of a thread
type MessageSource interface {
	ListMessages(ctx context.Context, tenant domain.Tenant, threadID string) ([]domain.Message, error)
}

// VisitorSource lists the leads of a chatbot
type VisitorSource interface {
	ListVisitors(ctx context.Context, tenant domain.Tenant) ([]domain.Visitor, error)
}

// VisitorThreadSource pages through the threads of one visitor
type VisitorThreadSource interface {
	ListVisitorThreads(ctx context.Context, tenant domain.Tenant, visitorID string, page, limit int) (backend.VisitorThreadsPage, error)
}

// snapshotOf returns the named fields of rec
func snapshotOf[T any](rec *T, fields []string) (domain.Fields, bool) {
	all, err := domain.FieldsOf(rec)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read view record")
		return nil, false
	}
	if fields == nil {
		return all, true
	}
	return all.Pick(fields...), true
}

// patchRecord applies changes to rec and reports whether any value differed
func patchRecord[T any](rec *T, changes domain.Fields) bool {
	current, err := domain.FieldsOf(rec)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read view record")
		return false
	}

	changed := false
	for k := range changes {
		if k == "id" || k == "_id" {
			continue
		}
		if !current.Same(changes, k) {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}

	if err := changes.ApplyTo(rec); err != nil {
		log.Error().Err(err).Msg("Failed to patch view record")
		return false
	}
	return true
}
