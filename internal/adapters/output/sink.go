// Package output persists finished distributions.
package output

import (
	"context"
	"errors"

	"github.com/okian/azicorr/internal/domain/correlation"
)

// Sink receives every finished distribution of a run once, after Finalize.
type Sink interface {
	Write(ctx context.Context, r correlation.Result) error
	Close() error
}

// Multi fans results out to several sinks. A failing sink does not stop
// the others; their errors are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti returns a sink writing to every non-nil sink.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write implements Sink.
func (m *Multi) Write(ctx context.Context, r correlation.Result) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteAll writes every result of rep to s.
func WriteAll(ctx context.Context, s Sink, rep correlation.Report) error {
	var errs []error
	for _, r := range rep.Results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
