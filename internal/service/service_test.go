package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/bulk"
	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/events"
	"github.com/Rrens/chatdesk/internal/mutation"
	"github.com/Rrens/chatdesk/internal/notify"
	"github.com/Rrens/chatdesk/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var tenant = domain.Tenant{AccountID: "acc1", ChatbotID: "bot1"}

type fixture struct {
	cache    *cache.EntityCache
	keys     cache.Keys
	bus      *events.Bus
	feed     *notify.Feed
	threads  *MockThreadBackend
	leads    *MockLeadBackend
	threadSv *ThreadService
	leadSv   *LeadService
	messages []events.MessageChange
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		cache:   cache.New(memory.NewStore(), cache.Options{}),
		keys:    cache.NewKeys(tenant),
		bus:     events.NewBus(),
		feed:    notify.NewFeed(10),
		threads: new(MockThreadBackend),
		leads:   new(MockLeadBackend),
	}
	require.NoError(t, f.cache.Put(ctx, f.keys.Threads(), []domain.Fields{
		{"id": "T1", "title": "Original", "tags": []any{"billing"}, "mode": "AI"},
	}))
	require.NoError(t, f.cache.Put(ctx, f.keys.Messages("T1"), []domain.Fields{
		{"id": "M1", "threadId": "T1", "reaction": "NONE"},
	}))
	require.NoError(t, f.cache.Put(ctx, f.keys.Visitors(), []domain.Fields{
		{"id": "V1", "important": false},
	}))

	threadReg := mutation.NewRegistry()
	threadReg.Add(f.cache.Holder(f.keys.Threads()))
	threadCoord := mutation.NewCoordinator("thread", threadReg, func(id string, changed domain.Fields) {
		events.Publish(f.bus, events.ThreadUpdated, events.ThreadChange{ID: id, Changed: changed})
	}, f.feed)

	msgReg := mutation.NewRegistry()
	msgReg.Add(f.cache.Holder(f.keys.Messages("T1")))
	msgCoord := mutation.NewCoordinator("message", msgReg, func(id string, changed domain.Fields) {
		threadID, _ := changed["threadId"].(string)
		events.Publish(f.bus, events.MessageUpdated, events.MessageChange{ID: id, ThreadID: threadID, Changed: changed})
	}, f.feed)
	events.Subscribe(f.bus, events.MessageUpdated, func(c events.MessageChange) {
		f.messages = append(f.messages, c)
	})

	visitorReg := mutation.NewRegistry()
	visitorReg.Add(f.cache.Holder(f.keys.Visitors()))
	visitorCoord := mutation.NewCoordinator("visitor", visitorReg, nil, f.feed)

	f.threadSv = NewThreadService(tenant, f.threads, f.cache, threadCoord, msgCoord, nil)
	f.leadSv = NewLeadService(tenant, f.leads, visitorCoord, nil)
	return f
}

func (f *fixture) record(t *testing.T, key, id string) domain.Fields {
	t.Helper()
	rec, ok, err := f.cache.Record(context.Background(), key, id)
	require.NoError(t, err)
	require.True(t, ok)
	return rec
}

func TestThreadService_AddTag(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate rejected before network", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.threadSv.AddTag(ctx, "T1", "billing")
		assert.ErrorIs(t, err, domain.ErrDuplicateTag)
		f.threads.AssertNotCalled(t, "UpdateThreadStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("too long rejected before network", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.threadSv.AddTag(ctx, "T1", "this tag is far too long to be accepted by the console")
		assert.ErrorIs(t, err, domain.ErrTagTooLong)
		f.threads.AssertNotCalled(t, "UpdateThreadStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("case differs is a new tag", func(t *testing.T) {
		f := newFixture(t)
		want := domain.Fields{"tags": []any{"billing", "Billing"}}
		f.threads.On("UpdateThreadStatus", mock.Anything, tenant, "T1", want).
			Return(domain.Fields{"id": "T1", "tags": []any{"billing", "Billing"}}, nil).Once()

		res, err := f.threadSv.AddTag(ctx, "T1", "Billing")
		require.NoError(t, err)
		assert.Equal(t, mutation.Committed, res.Outcome)
		assert.Equal(t, []any{"billing", "Billing"}, f.record(t, f.keys.Threads(), "T1")["tags"])
		f.threads.AssertExpectations(t)
	})

	t.Run("unknown thread", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.threadSv.AddTag(ctx, "T9", "x")
		assert.ErrorIs(t, err, ErrNotLoaded)
	})
}

func TestThreadService_RemoveTag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.threads.On("UpdateThreadStatus", mock.Anything, tenant, "T1", domain.Fields{"tags": []any{}}).
		Return(domain.Fields{"id": "T1", "tags": []any{}}, nil).Once()

	_, err := f.threadSv.RemoveTag(ctx, "T1", "billing")
	require.NoError(t, err)
	assert.Equal(t, []any{}, f.record(t, f.keys.Threads(), "T1")["tags"])
}

func TestThreadService_Rename(t *testing.T) {
	ctx := context.Background()

	t.Run("trims and confirms", func(t *testing.T) {
		f := newFixture(t)
		f.threads.On("UpdateThreadStatus", mock.Anything, tenant, "T1", domain.Fields{"title": "Refund request"}).
			Return(domain.Fields{"id": "T1", "title": "Refund request"}, nil).Once()

		res, err := f.threadSv.Rename(ctx, "T1", "  Refund request ")
		require.NoError(t, err)
		assert.Equal(t, mutation.Committed, res.Outcome)
		assert.Equal(t, "Refund request", f.record(t, f.keys.Threads(), "T1")["title"])
	})

	t.Run("failure rolls back and notifies", func(t *testing.T) {
		f := newFixture(t)
		boom := &backend.APIError{Status: 422, Message: "title rejected"}
		f.threads.On("UpdateThreadStatus", mock.Anything, tenant, "T1", mock.Anything).Return(nil, boom).Once()

		res, err := f.threadSv.Rename(ctx, "T1", "New")
		var apiErr *backend.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, mutation.RolledBack, res.Outcome)
		assert.Equal(t, "Original", f.record(t, f.keys.Threads(), "T1")["title"])
		assert.Equal(t, 1, f.feed.Count(notify.LevelFailure))
	})
}

func TestThreadService_SetFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.threadSv.SetFlag(ctx, "T1", "pinned", true)
	assert.ErrorIs(t, err, ErrUnknownFlag)

	f.threads.On("UpdateThreadStatus", mock.Anything, tenant, "T1", domain.Fields{"escalated": true}).
		Return(domain.Fields{"id": "T1", "escalated": true}, nil).Once()
	_, err = f.threadSv.SetFlag(ctx, "T1", "escalated", true)
	require.NoError(t, err)
	assert.Equal(t, true, f.record(t, f.keys.Threads(), "T1")["escalated"])
}

func TestThreadService_SetMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.threadSv.SetMode(ctx, "T1", domain.ThreadMode("ROBOT"))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "mode")

	f.threads.On("UpdateThreadStatus", mock.Anything, tenant, "T1", domain.Fields{"mode": "HUMAN"}).
		Return(domain.Fields{"id": "T1", "mode": "HUMAN"}, nil).Once()
	_, err = f.threadSv.SetMode(ctx, "T1", domain.ModeHuman)
	require.NoError(t, err)
	assert.Equal(t, "HUMAN", f.record(t, f.keys.Threads(), "T1")["mode"])
}

func TestThreadService_React(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid reaction", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.threadSv.React(ctx, "T1", "M1", domain.Reaction("LOVE"))
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
		f.threads.AssertNotCalled(t, "UpdateMessageReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publishes message change with thread id", func(t *testing.T) {
		f := newFixture(t)
		f.threads.On("UpdateMessageReaction", mock.Anything, tenant, "T1", "M1", domain.ReactionPositive).
			Return(domain.Fields{"id": "M1", "reaction": "POSITIVE"}, nil).Once()

		_, err := f.threadSv.React(ctx, "T1", "M1", domain.ReactionPositive)
		require.NoError(t, err)
		assert.Equal(t, "POSITIVE", f.record(t, f.keys.Messages("T1"), "M1")["reaction"])
		require.Len(t, f.messages, 1)
		assert.Equal(t, "T1", f.messages[0].ThreadID)
	})
}

func TestThreadService_Bulk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reg := mutation.NewRegistry()
	reg.Add(f.cache.Holder(f.keys.Threads()))
	coord := mutation.NewCoordinator("thread", reg, nil, f.feed)
	submitter := &stubSubmitter{result: domain.BulkResult{{{"id": "T1", "important": true}}}}
	svc := NewThreadService(tenant, f.threads, f.cache, coord, nil, bulk.NewExecutor(tenant, submitter, coord, f.feed))

	summary, err := svc.Bulk(ctx, bulk.NewSelection("T1"), domain.BulkImportant)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, summary.Updated)
	assert.Equal(t, true, f.record(t, f.keys.Threads(), "T1")["important"])
}

type stubSubmitter struct {
	result domain.BulkResult
}

func (s *stubSubmitter) UpdateThreads(context.Context, domain.Tenant, []domain.ThreadUpdate) (domain.BulkResult, error) {
	return s.result, nil
}

func TestLeadService_SaveNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when none exist", func(t *testing.T) {
		f := newFixture(t)
		f.leads.On("GetVisitorNotes", mock.Anything, tenant, "V1").
			Return(domain.VisitorNotes{}, backend.ErrNotFound).Once()
		f.leads.On("CreateVisitorNotes", mock.Anything, tenant, "V1", "Prefers email").
			Return(domain.VisitorNotes{VisitorID: "V1", Notes: "Prefers email"}, nil).Once()

		res, err := f.leadSv.SaveNotes(ctx, "V1", "Prefers email")
		require.NoError(t, err)
		assert.Equal(t, mutation.Committed, res.Outcome)
		assert.Equal(t, "Prefers email", f.record(t, f.keys.Visitors(), "V1")["internalNotes"])
		f.leads.AssertNotCalled(t, "UpdateVisitorNotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.leads.AssertExpectations(t)
	})

	t.Run("updates existing notes", func(t *testing.T) {
		f := newFixture(t)
		f.leads.On("GetVisitorNotes", mock.Anything, tenant, "V1").
			Return(domain.VisitorNotes{VisitorID: "V1", Notes: "old"}, nil).Once()
		f.leads.On("UpdateVisitorNotes", mock.Anything, tenant, "V1", "new").
			Return(domain.VisitorNotes{VisitorID: "V1", Notes: "new"}, nil).Once()

		_, err := f.leadSv.SaveNotes(ctx, "V1", "new")
		require.NoError(t, err)
		f.leads.AssertNotCalled(t, "CreateVisitorNotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.leads.AssertExpectations(t)
	})

	t.Run("lookup failure rolls back", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("connection reset")
		f.leads.On("GetVisitorNotes", mock.Anything, tenant, "V1").
			Return(domain.VisitorNotes{}, boom).Once()

		res, err := f.leadSv.SaveNotes(ctx, "V1", "new")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, mutation.RolledBack, res.Outcome)
		assert.Nil(t, f.record(t, f.keys.Visitors(), "V1")["internalNotes"])
		assert.Equal(t, 1, f.feed.Count(notify.LevelFailure))
	})
}

func TestLeadService_UpdateContact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bad := "not-an-email"
	_, err := f.leadSv.UpdateContact(ctx, "V1", domain.VisitorChanges{Email: &bad})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "invalid email format", vErr.Fields["email"])

	_, err = f.leadSv.SetFlag(ctx, "V1", "resolved", true)
	assert.ErrorIs(t, err, ErrUnknownFlag)

	f.leads.On("UpdateVisitor", mock.Anything, tenant, "V1", domain.Fields{"important": true}).
		Return(domain.Fields{"id": "V1", "important": true}, nil).Once()
	_, err = f.leadSv.SetFlag(ctx, "V1", "important", true)
	require.NoError(t, err)
	assert.Equal(t, true, f.record(t, f.keys.Visitors(), "V1")["important"])
}
