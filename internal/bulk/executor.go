package bulk

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/mutation"
	"github.com/Rrens/chatdesk/internal/notify"
	"github.com/rs/zerolog/log"
)

// Submitter sends one batch thread update to the backend
type Submitter interface {
	UpdateThreads(ctx context.Context, tenant domain.Tenant, updates []domain.ThreadUpdate) (domain.BulkResult, error)
}

// Summary describes a bulk run
type Summary struct {
	Intent    domain.BulkIntent `json:"intent"`
	Skipped   bool              `json:"skipped"`
	Requested []string          `json:"requested"`
	Updated   []string          `json:"updated"`
	Missing   []string          `json:"missing"`
}

// Executor applies one intent to every selected thread with a single batch call.
// Holders are only written after the backend confirms each record.
type Executor struct {
	tenant      domain.Tenant
	submitter   Submitter
	coordinator *mutation.Coordinator
	notifier    notify.Notifier
	busy        atomic.Bool
}

// NewExecutor creates a bulk executor for one bulk-action bar
func NewExecutor(tenant domain.Tenant, submitter Submitter, coordinator *mutation.Coordinator, notifier notify.Notifier) *Executor {
	return &Executor{
		tenant:      tenant,
		submitter:   submitter,
		coordinator: coordinator,
		notifier:    notifier,
	}
}

// Busy reports whether a run is in flight
func (e *Executor) Busy() bool {
	return e.busy.Load()
}

// Run applies intent to the selection. An empty selection or a run already
// in flight is a no-op reported through Summary.Skipped.
func (e *Executor) Run(ctx context.Context, sel *Selection, intent domain.BulkIntent) (Summary, error) {
	summary := Summary{Intent: intent}

	changes, err := intent.Changes()
	if err != nil {
		return summary, err
	}

	ids := sel.IDs()
	if len(ids) == 0 {
		summary.Skipped = true
		return summary, nil
	}
	if !e.busy.CompareAndSwap(false, true) {
		log.Debug().Str("intent", string(intent)).Msg("Bulk run already in flight, skipping")
		summary.Skipped = true
		return summary, nil
	}
	defer e.busy.Store(false)

	summary.Requested = ids
	updates := make([]domain.ThreadUpdate, 0, len(ids))
	pending := make([]*mutation.Pending, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, domain.ThreadUpdate{ThreadID: id, Changes: changes.Clone()})
		pending = append(pending, e.coordinator.Begin(ctx,
			domain.MutationIntent{EntityID: id, Changes: changes.Clone()},
			mutation.WithoutOptimism(),
		))
	}

	result, err := e.submitter.UpdateThreads(ctx, e.tenant, updates)
	if err != nil {
		for _, p := range pending {
			e.coordinator.Abort(ctx, p)
		}
		log.Error().Err(err).
			Str("intent", string(intent)).
			Int("count", len(ids)).
			Msg("Bulk update failed")
		e.notifier.Failure(fmt.Sprintf("Could not update %d threads", len(ids)), err)
		return summary, fmt.Errorf("bulk %s: %w", intent, err)
	}

	confirmed := result.Flatten()
	for _, p := range pending {
		rec, ok := confirmed[p.ID()]
		if !ok {
			e.coordinator.Drop(ctx, p)
			summary.Missing = append(summary.Missing, p.ID())
			continue
		}
		e.coordinator.Confirm(ctx, p, rec)
		summary.Updated = append(summary.Updated, p.ID())
	}

	for _, id := range ids {
		sel.Remove(id)
	}

	log.Info().
		Str("intent", string(intent)).
		Int("updated", len(summary.Updated)).
		Int("missing", len(summary.Missing)).
		Msg("Bulk update applied")
	e.notifier.Success(successMessage(intent, len(summary.Updated)))

	return summary, nil
}

func successMessage(intent domain.BulkIntent, n int) string {
	if n == 1 {
		return fmt.Sprintf("1 thread %s", intent.Verb())
	}
	return fmt.Sprintf("%d threads %s", n, intent.Verb())
}
