// Package source provides event sources feeding the correlation pipeline.
package source

import (
	"context"
	"io"
	"sync"

	"github.com/okian/azicorr/internal/domain/model"
)

// Source yields events one at a time. Next returns io.EOF after the last
// event. An error wrapping ErrDecode concerns a single event; the caller
// may skip it and keep reading.
type Source interface {
	Next(ctx context.Context) (model.Event, error)
	Close() error
}

// Static serves a fixed list of events. It is mostly useful in tests.
type Static struct {
	mu     sync.Mutex
	events []model.Event
	pos    int
}

// NewStatic returns a source over events.
func NewStatic(events ...model.Event) *Static {
	return &Static{events: events}
}

// Next implements Source.
func (s *Static) Next(ctx context.Context) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.events) {
		return model.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// Close implements Source.
func (s *Static) Close() error { return nil }
