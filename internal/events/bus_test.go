package events

import (
	"testing"

	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBus_SynchronousDelivery(t *testing.T) {
	bus := NewBus()
	var got []ThreadChange

	unsubscribe := Subscribe(bus, ThreadUpdated, func(c ThreadChange) {
		got = append(got, c)
	})
	defer unsubscribe()

	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1", Changed: domain.Fields{"title": "x"}})

	// Delivered before Publish returned
	assert.Len(t, got, 1)
	assert.Equal(t, "T1", got[0].ID)
	assert.Equal(t, "x", got[0].Changed["title"])
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	bus := NewBus()
	threadCalls, visitorCalls := 0, 0

	Subscribe(bus, ThreadUpdated, func(ThreadChange) { threadCalls++ })
	Subscribe(bus, VisitorUpdated, func(VisitorChange) { visitorCalls++ })

	Publish(bus, VisitorUpdated, VisitorChange{ID: "V1"})

	assert.Equal(t, 0, threadCalls)
	assert.Equal(t, 1, visitorCalls)
}

func TestBus_NoReplayForLateSubscribers(t *testing.T) {
	bus := NewBus()
	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1"})

	calls := 0
	Subscribe(bus, ThreadUpdated, func(ThreadChange) { calls++ })

	assert.Equal(t, 0, calls)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := Subscribe(bus, ThreadUpdated, func(ThreadChange) { calls++ })

	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1"})
	unsubscribe()
	unsubscribe()
	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, Subscribers(bus, ThreadUpdated))
}

func TestBus_UnsubscribeDuringDelivery(t *testing.T) {
	bus := NewBus()
	first, second := 0, 0

	var unsubscribeFirst func()
	unsubscribeFirst = Subscribe(bus, ThreadUpdated, func(ThreadChange) {
		first++
		unsubscribeFirst()
	})
	Subscribe(bus, ThreadUpdated, func(ThreadChange) { second++ })

	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1"})
	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1"})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestBus_HandlerRemovedMidPublishIsSkipped(t *testing.T) {
	bus := NewBus()
	second := 0

	var unsubscribeSecond func()
	Subscribe(bus, ThreadUpdated, func(ThreadChange) { unsubscribeSecond() })
	unsubscribeSecond = Subscribe(bus, ThreadUpdated, func(ThreadChange) { second++ })

	Publish(bus, ThreadUpdated, ThreadChange{ID: "T1"})

	assert.Equal(t, 0, second)
	assert.Equal(t, 1, Subscribers(bus, ThreadUpdated))
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0

	Subscribe(bus, MessageUpdated, func(MessageChange) { panic("boom") })
	Subscribe(bus, MessageUpdated, func(MessageChange) { calls++ })

	assert.NotPanics(t, func() {
		Publish(bus, MessageUpdated, MessageChange{ID: "M1", ThreadID: "T1"})
	})
	assert.Equal(t, 1, calls)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "thread-updated", ThreadUpdated.Name())
	assert.Equal(t, "message-updated", MessageUpdated.Name())
	assert.Equal(t, "visitor-updated", VisitorUpdated.Name())
}
