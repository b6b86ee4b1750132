// Package events provides a publish/subscribe event bus for block
// processing observability. Events flow from the document processor to
// subscribers (CLI progress output, sound or notification hooks). The
// bus is nil-safe: calling Publish on a nil *Bus is a no-op, so
// components do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceProcessor identifies events from the block processor.
	SourceProcessor = "processor"
	// SourceSession identifies events from live transcript writes.
	SourceSession = "session"
)

// Kind constants describe the type of event within a source.
const (
	// KindFileStart signals the beginning of a document pass.
	// Data: file.
	KindFileStart = "file_start"
	// KindFileComplete signals the end of a document pass.
	// Data: file, blocks, changed.
	KindFileComplete = "file_complete"

	// KindBlockStart signals a reply-armed block entering the turn loop.
	// Data: file, model, option.
	KindBlockStart = "block_start"
	// KindModelCall signals the start of a backend call.
	// Data: file, model, round.
	KindModelCall = "model_call"
	// KindModelResponse signals completion of a backend call.
	// Data: file, model, round, tool_calls.
	KindModelResponse = "model_response"
	// KindToolCall signals the start of a tool execution.
	// Data: file, tool.
	KindToolCall = "tool_call"
	// KindToolDone signals completion of a tool execution.
	// Data: file, tool, ok, duration_ms.
	KindToolDone = "tool_done"
	// KindBlockComplete signals a block finished and was spliced back.
	// Data: file, rounds, tokens_in, tokens_out.
	KindBlockComplete = "block_complete"
	// KindBlockError signals a block that ended in an error marker.
	// Data: file, error.
	KindBlockError = "block_error"

	// KindSessionAppend signals a live feedback write to the note.
	// Data: file, bytes.
	KindSessionAppend = "session_append"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking the processor mid-block.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 covers a progress printer
// comfortably.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
