// Package watch republishes a tree's native change notifications as a
// cancelable event stream.
package watch

import (
	"sync"

	"stash/internal/tree"

	"go.uber.org/zap"
)

// Event is one republished change notification.
type Event struct {
	Path string `json:"path"`
}

// Stream is a thin republishing layer over one tree subscription. No
// batching or de-duplication is performed; events preserve arrival
// order. Streams are independent per subscriber.
type Stream struct {
	events      chan Event
	done        chan struct{}
	once        sync.Once
	unsubscribe func() error
	logger      *zap.Logger
}

// NewStream subscribes to t's change notifications at its root.
func NewStream(t tree.Tree, logger *zap.Logger) (*Stream, error) {
	s := &Stream{
		events: make(chan Event, 256),
		done:   make(chan struct{}),
		logger: logger,
	}

	unsubscribe, err := t.Watch(func(path string) {
		select {
		case <-s.done:
		case s.events <- Event{Path: path}:
		}
	})
	if err != nil {
		return nil, err
	}
	s.unsubscribe = unsubscribe

	return s, nil
}

// Events returns the consumer-facing channel. It is never closed; use
// Done to detect stream shutdown.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done is closed when the stream has been shut down.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close releases the underlying subscription exactly once. Teardown
// never fails from the caller's perspective: if the underlying
// unsubscribe errors (for example the watched root no longer exists),
// the error is logged and swallowed.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
		if err := s.unsubscribe(); err != nil {
			s.logger.Debug("watch teardown error ignored", zap.Error(err))
		}
	})
}
