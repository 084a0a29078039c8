// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_eventbus implements the name-keyed pub/sub substrate the
// rest of this module dispatches through: persistent and one-shot handlers,
// `prefix.*`/`*` wildcard matching, and a blocking waitForNext primitive.
// Handlers run synchronously on the goroutine that calls Dispatch. Dispatch
// calls made from different goroutines (for example the transport read
// loop and a tool worker sending its result) are not serialized against
// each other, so their handlers can run concurrently.
package internal_eventbus

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ticos-ai/realtime-go/pkg/commons"
)

// Handler receives a dispatched event. name is the exact event name the
// dispatch call used (not the subscription pattern), so a wildcard
// subscriber can tell which concrete event fired.
type Handler func(name string, event any)

// ErrHandlerNotFound is returned by Off/OffNext when a specific handler
// reference was requested for removal but isn't registered under name.
var ErrHandlerNotFound = errors.New("eventbus: handler not found")

type handlerEntry struct {
	id int
	fn Handler
}

// Bus is a single-owner event dispatcher. Zero value is not usable; use New.
type Bus struct {
	logger commons.Logger

	mu        sync.Mutex
	nextID    int
	handlers  map[string][]handlerEntry // persistent, keyed by exact pattern
	onceOnly  map[string][]handlerEntry // one-shot, keyed by exact pattern
}

// New constructs an empty Bus.
func New(logger commons.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[string][]handlerEntry),
		onceOnly: make(map[string][]handlerEntry),
	}
}

// On registers a persistent handler for name (exact string, "prefix.*", or "*").
func (b *Bus) On(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[name] = append(b.handlers[name], handlerEntry{id: b.nextID, fn: fn})
}

// OnNext registers a one-shot handler for name, consumed atomically on the
// first dispatch whose name matches the pattern.
func (b *Bus) OnNext(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.onceOnly[name] = append(b.onceOnly[name], handlerEntry{id: b.nextID, fn: fn})
}

// Off removes a persistent handler registered under name. If fn is nil, all
// persistent handlers for name are removed. If fn is non-nil and not found,
// ErrHandlerNotFound is returned.
func (b *Bus) Off(name string, fn Handler) error {
	return b.off(b.handlers, name, fn)
}

// OffNext is the one-shot-list symmetric counterpart of Off.
func (b *Bus) OffNext(name string, fn Handler) error {
	return b.off(b.onceOnly, name, fn)
}

func (b *Bus) off(table map[string][]handlerEntry, name string, fn Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if fn == nil {
		delete(table, name)
		return nil
	}

	entries, ok := table[name]
	if !ok {
		return ErrHandlerNotFound
	}

	target := fnPointer(fn)
	for i, e := range entries {
		if fnPointer(e.fn) == target {
			table[name] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return ErrHandlerNotFound
}

// Dispatch invokes every handler whose subscription matches name, in the
// order: exact persistent, wildcard persistent, exact one-shot, wildcard
// one-shot. Handler panics are recovered and logged; they never abort
// sibling handlers. One-shot handlers that matched this round are removed
// before Dispatch returns.
func (b *Bus) Dispatch(name string, event any) {
	b.mu.Lock()
	exactPersistent := snapshot(b.handlers[name])
	wildcardPersistent := b.matchingWildcards(b.handlers, name)
	exactOnce := snapshot(b.onceOnly[name])
	wildcardOnce := b.matchingWildcards(b.onceOnly, name)

	// Clear matched one-shot entries now so a handler that re-registers
	// during its own invocation doesn't observe stale state, and so the
	// "consumed atomically on first dispatch" guarantee holds even if a
	// handler throws.
	if len(exactOnce) > 0 {
		delete(b.onceOnly, name)
	}
	for _, w := range wildcardOnce {
		delete(b.onceOnly, w.pattern)
	}
	b.mu.Unlock()

	invokeAll(b.logger, name, event, exactPersistent)
	for _, w := range wildcardPersistent {
		invokeAll(b.logger, name, event, w.entries)
	}
	invokeAll(b.logger, name, event, exactOnce)
	for _, w := range wildcardOnce {
		invokeAll(b.logger, name, event, w.entries)
	}
}

type patternMatch struct {
	pattern string
	entries []handlerEntry
}

// matchingWildcards returns, sorted by pattern for deterministic dispatch
// order, the handler lists of every wildcard pattern in table that matches
// name. Exact patterns (no trailing ".*" and not "*") are skipped.
func (b *Bus) matchingWildcards(table map[string][]handlerEntry, name string) []patternMatch {
	var out []patternMatch
	for pattern, entries := range table {
		if !isWildcard(pattern) {
			continue
		}
		if matchesWildcard(pattern, name) {
			out = append(out, patternMatch{pattern: pattern, entries: snapshot(entries)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pattern < out[j].pattern })
	return out
}

func isWildcard(pattern string) bool {
	return pattern == "*" || strings.HasSuffix(pattern, ".*")
}

func matchesWildcard(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	prefix := strings.TrimSuffix(pattern, ".*")
	return strings.HasPrefix(name, prefix+".")
}

func fnPointer(fn Handler) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func snapshot(entries []handlerEntry) []handlerEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]handlerEntry, len(entries))
	copy(out, entries)
	return out
}

func invokeAll(logger commons.Logger, name string, event any, entries []handlerEntry) {
	for _, e := range entries {
		invokeOne(logger, name, event, e.fn)
	}
}

func invokeOne(logger commons.Logger, name string, event any, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Errorf("eventbus: handler for %q panicked: %v", name, r)
			}
		}
	}()
	fn(name, event)
}

// WaitForNext blocks until the next dispatch matching name, returning its
// event. If timeout elapses first it returns (nil, false). timeout<=0
// means wait indefinitely.
func (b *Bus) WaitForNext(name string, timeout time.Duration) (any, bool) {
	result := make(chan any, 1)
	b.OnNext(name, func(_ string, event any) {
		select {
		case result <- event:
		default:
		}
	})

	if timeout <= 0 {
		return <-result, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case event := <-result:
		return event, true
	case <-timer.C:
		return nil, false
	}
}

// Clear removes every persistent and one-shot handler.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]handlerEntry)
	b.onceOnly = make(map[string][]handlerEntry)
}
