// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticos-ai/realtime-go/pkg/commons"
)

func newTestBus() *Bus {
	return New(commons.NewMockLogger())
}

func TestExactMatchDispatch(t *testing.T) {
	bus := newTestBus()
	var got []string
	bus.On("server.session.created", func(name string, event any) {
		got = append(got, event.(string))
	})
	bus.Dispatch("server.session.created", "hello")
	bus.Dispatch("server.session.updated", "ignored")
	assert.Equal(t, []string{"hello"}, got)
}

func TestWildcardSuffixDispatch(t *testing.T) {
	bus := newTestBus()
	var got []string
	bus.On("server.*", func(name string, event any) {
		got = append(got, name)
	})
	bus.Dispatch("server.session.created", nil)
	bus.Dispatch("server.response.created", nil)
	bus.Dispatch("client.connected", nil)
	assert.Equal(t, []string{"server.session.created", "server.response.created"}, got)
}

func TestGlobalWildcardDispatch(t *testing.T) {
	bus := newTestBus()
	count := 0
	bus.On("*", func(name string, event any) { count++ })
	bus.Dispatch("anything.at.all", nil)
	bus.Dispatch("other", nil)
	assert.Equal(t, 2, count)
}

func TestExactFiresBeforeWildcard(t *testing.T) {
	bus := newTestBus()
	var order []string
	bus.On("server.*", func(name string, event any) { order = append(order, "wildcard") })
	bus.On("server.x", func(name string, event any) { order = append(order, "exact") })
	bus.Dispatch("server.x", nil)
	assert.Equal(t, []string{"exact", "wildcard"}, order)
}

func TestOneShotConsumedOnce(t *testing.T) {
	bus := newTestBus()
	calls := 0
	bus.OnNext("conversation.item.appended", func(name string, event any) { calls++ })
	bus.Dispatch("conversation.item.appended", nil)
	bus.Dispatch("conversation.item.appended", nil)
	assert.Equal(t, 1, calls)
}

func TestPersistentThenOnceOrdering(t *testing.T) {
	bus := newTestBus()
	var order []string
	bus.OnNext("x", func(name string, event any) { order = append(order, "once") })
	bus.On("x", func(name string, event any) { order = append(order, "persistent") })
	bus.Dispatch("x", nil)
	assert.Equal(t, []string{"persistent", "once"}, order)
}

func TestOffRemovesSpecificHandler(t *testing.T) {
	bus := newTestBus()
	calls := 0
	fn := func(name string, event any) { calls++ }
	bus.On("x", fn)
	require.NoError(t, bus.Off("x", fn))
	bus.Dispatch("x", nil)
	assert.Equal(t, 0, calls)
}

func TestOffUnknownHandlerErrors(t *testing.T) {
	bus := newTestBus()
	fn := func(name string, event any) {}
	err := bus.Off("x", fn)
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestOffNilRemovesAll(t *testing.T) {
	bus := newTestBus()
	calls := 0
	bus.On("x", func(name string, event any) { calls++ })
	bus.On("x", func(name string, event any) { calls++ })
	require.NoError(t, bus.Off("x", nil))
	bus.Dispatch("x", nil)
	assert.Equal(t, 0, calls)
}

func TestDispatchSnapshotsHandlerList(t *testing.T) {
	bus := newTestBus()
	var calls int
	var mu sync.Mutex
	bus.On("x", func(name string, event any) {
		mu.Lock()
		calls++
		mu.Unlock()
		// Registering a new handler mid-dispatch should not affect this round.
		bus.On("x", func(name string, event any) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	})
	bus.Dispatch("x", nil)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	bus.Dispatch("x", nil)
	mu.Lock()
	assert.Equal(t, 3, calls) // first original + newly added + original again
	mu.Unlock()
}

func TestHandlerPanicDoesNotAbortSiblings(t *testing.T) {
	bus := newTestBus()
	secondCalled := false
	bus.On("x", func(name string, event any) { panic("boom") })
	bus.On("x", func(name string, event any) { secondCalled = true })
	assert.NotPanics(t, func() { bus.Dispatch("x", nil) })
	assert.True(t, secondCalled)
}

func TestWaitForNextReturnsDispatchedEvent(t *testing.T) {
	bus := newTestBus()
	done := make(chan any, 1)
	go func() {
		event, ok := bus.WaitForNext("conversation.item.completed", 0)
		if ok {
			done <- event
		}
	}()
	time.Sleep(10 * time.Millisecond)
	bus.Dispatch("conversation.item.completed", "item-1")
	select {
	case event := <-done:
		assert.Equal(t, "item-1", event)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWaitForNextTimesOut(t *testing.T) {
	bus := newTestBus()
	event, ok := bus.WaitForNext("never", 20*time.Millisecond)
	assert.False(t, ok)
	assert.Nil(t, event)
}

func TestClearRemovesAllHandlers(t *testing.T) {
	bus := newTestBus()
	calls := 0
	bus.On("x", func(name string, event any) { calls++ })
	bus.OnNext("y", func(name string, event any) { calls++ })
	bus.Clear()
	bus.Dispatch("x", nil)
	bus.Dispatch("y", nil)
	assert.Equal(t, 0, calls)
}
