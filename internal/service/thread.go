package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/chatdesk/internal/bulk"
	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/mutation"
)

// ErrUnknownFlag is returned for a flag name the entity does not carry
var ErrUnknownFlag = errors.New("unknown flag")

// ErrNotLoaded is returned when an edit needs local state that is not held yet
var ErrNotLoaded = errors.New("entity not loaded")

// ThreadBackend is the subset of the backend client thread edits use
type ThreadBackend interface {
	UpdateThreadStatus(ctx context.Context, tenant domain.Tenant, threadID string, changes domain.Fields) (domain.Fields, error)
	UpdateMessageReaction(ctx context.Context, tenant domain.Tenant, threadID, messageID string, reaction domain.Reaction) (domain.Fields, error)
}

// ThreadService runs the thread edits of the list, detail and bulk-action views
type ThreadService struct {
	tenant   domain.Tenant
	backend  ThreadBackend
	cache    *cache.EntityCache
	keys     cache.Keys
	threads  *mutation.Coordinator
	messages *mutation.Coordinator
	executor *bulk.Executor
}

// NewThreadService creates a thread service for one tenant
func NewThreadService(
	tenant domain.Tenant,
	backend ThreadBackend,
	c *cache.EntityCache,
	threads *mutation.Coordinator,
	messages *mutation.Coordinator,
	executor *bulk.Executor,
) *ThreadService {
	return &ThreadService{
		tenant:   tenant,
		backend:  backend,
		cache:    c,
		keys:     cache.NewKeys(tenant),
		threads:  threads,
		messages: messages,
		executor: executor,
	}
}

// Rename sets the thread title
func (s *ThreadService) Rename(ctx context.Context, threadID, title string) (mutation.Result, error) {
	title = strings.TrimSpace(title)
	return s.update(ctx, threadID, domain.ThreadChanges{Title: &title})
}

// SetFlag sets one of the boolean thread flags
func (s *ThreadService) SetFlag(ctx context.Context, threadID, flag string, value bool) (mutation.Result, error) {
	var changes domain.ThreadChanges
	switch flag {
	case "resolved":
		changes.Resolved = &value
	case "important":
		changes.Important = &value
	case "archived":
		changes.Archived = &value
	case "escalated":
		changes.Escalated = &value
	default:
		return mutation.Result{}, fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}
	return s.update(ctx, threadID, changes)
}

// SetMode hands the thread to the bot or a human agent
func (s *ThreadService) SetMode(ctx context.Context, threadID string, mode domain.ThreadMode) (mutation.Result, error) {
	return s.update(ctx, threadID, domain.ThreadChanges{Mode: &mode})
}

// Update applies an arbitrary validated change set
func (s *ThreadService) Update(ctx context.Context, threadID string, changes domain.ThreadChanges) (mutation.Result, error) {
	return s.update(ctx, threadID, changes)
}

// AddTag appends tag to the thread. Duplicate, empty and over-long tags are
// rejected before any request is sent.
func (s *ThreadService) AddTag(ctx context.Context, threadID, tag string) (mutation.Result, error) {
	current, err := s.tags(ctx, threadID)
	if err != nil {
		return mutation.Result{}, err
	}
	tags, err := domain.AddTag(current, tag)
	if err != nil {
		return mutation.Result{}, err
	}
	return s.update(ctx, threadID, domain.ThreadChanges{Tags: tags})
}

// RemoveTag drops tag from the thread
func (s *ThreadService) RemoveTag(ctx context.Context, threadID, tag string) (mutation.Result, error) {
	current, err := s.tags(ctx, threadID)
	if err != nil {
		return mutation.Result{}, err
	}
	return s.update(ctx, threadID, domain.ThreadChanges{Tags: domain.RemoveTag(current, tag)})
}

// React sets the operator reaction on a message
func (s *ThreadService) React(ctx context.Context, threadID, messageID string, reaction domain.Reaction) (mutation.Result, error) {
	if !reaction.Valid() {
		return mutation.Result{}, &domain.ValidationError{Fields: map[string]string{
			"reaction": "must be one of POSITIVE NEGATIVE NONE",
		}}
	}

	intent := domain.MutationIntent{
		EntityID: messageID,
		Changes:  domain.Fields{"reaction": string(reaction)},
	}
	return s.messages.Apply(ctx, intent, func(ctx context.Context) (domain.Fields, error) {
		rec, err := s.backend.UpdateMessageReaction(ctx, s.tenant, threadID, messageID, reaction)
		if err != nil {
			return nil, err
		}
		if _, ok := rec["threadId"]; !ok {
			rec["threadId"] = threadID
		}
		return rec, nil
	}, mutation.WithFailureMessage("Could not save reaction"))
}

// Bulk applies intent to every selected thread
func (s *ThreadService) Bulk(ctx context.Context, sel *bulk.Selection, intent domain.BulkIntent) (bulk.Summary, error) {
	return s.executor.Run(ctx, sel, intent)
}

func (s *ThreadService) update(ctx context.Context, threadID string, changes domain.ThreadChanges) (mutation.Result, error) {
	if err := domain.Validate(changes); err != nil {
		return mutation.Result{}, err
	}
	fields := changes.Fields()
	if len(fields) == 0 {
		return mutation.Result{}, &domain.ValidationError{Fields: map[string]string{"changes": "is required"}}
	}

	intent := domain.MutationIntent{EntityID: threadID, Changes: fields}
	return s.threads.Apply(ctx, intent, func(ctx context.Context) (domain.Fields, error) {
		return s.backend.UpdateThreadStatus(ctx, s.tenant, threadID, fields)
	})
}

// tags reads the thread's current tags from the detail or list cache entry
func (s *ThreadService) tags(ctx context.Context, threadID string) ([]string, error) {
	for _, key := range []string{s.keys.Thread(threadID), s.keys.Threads()} {
		rec, ok, err := s.cache.Record(ctx, key, threadID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var thread domain.Thread
		if err := rec.ApplyTo(&thread); err != nil {
			return nil, err
		}
		return thread.Tags, nil
	}
	return nil, fmt.Errorf("%w: thread %s", ErrNotLoaded, threadID)
}
