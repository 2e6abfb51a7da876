package service

import (
	"context"

	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockThreadBackend mocks the ThreadBackend interface
type MockThreadBackend struct {
	mock.Mock
}

func (m *MockThreadBackend) UpdateThreadStatus(ctx context.Context, tenant domain.Tenant, threadID string, changes domain.Fields) (domain.Fields, error) {
	args := m.Called(ctx, tenant, threadID, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Fields), args.Error(1)
}

func (m *MockThreadBackend) UpdateMessageReaction(ctx context.Context, tenant domain.Tenant, threadID, messageID string, reaction domain.Reaction) (domain.Fields, error) {
	args := m.Called(ctx, tenant, threadID, messageID, reaction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Fields), args.Error(1)
}

// MockLeadBackend mocks the LeadBackend interface
type MockLeadBackend struct {
	mock.Mock
}

func (m *MockLeadBackend) UpdateVisitor(ctx context.Context, tenant domain.Tenant, visitorID string, changes domain.Fields) (domain.Fields, error) {
	args := m.Called(ctx, tenant, visitorID, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Fields), args.Error(1)
}

func (m *MockLeadBackend) GetVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID string) (domain.VisitorNotes, error) {
	args := m.Called(ctx, tenant, visitorID)
	return args.Get(0).(domain.VisitorNotes), args.Error(1)
}

func (m *MockLeadBackend) CreateVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID, notes string) (domain.VisitorNotes, error) {
	args := m.Called(ctx, tenant, visitorID, notes)
	return args.Get(0).(domain.VisitorNotes), args.Error(1)
}

func (m *MockLeadBackend) UpdateVisitorNotes(ctx context.Context, tenant domain.Tenant, visitorID, notes string) (domain.VisitorNotes, error) {
	args := m.Called(ctx, tenant, visitorID, notes)
	return args.Get(0).(domain.VisitorNotes), args.Error(1)
}
