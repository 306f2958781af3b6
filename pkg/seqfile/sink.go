package seqfile

import (
	"errors"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

// Sink receives CBOR items. Implementations must be safe for concurrent use.
type Sink interface {
	Write(v cbor.Value) error
}

// Discard drops every item.
type Discard struct{}

// Write drops v.
func (Discard) Write(cbor.Value) error { return nil }

// MultiSink sends items to several sinks, for example a Writer and a
// SlogAdapter at the same time.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink that sends items to all provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write sends v to every sink, even when an earlier one fails, and joins
// the errors.
func (m *MultiSink) Write(v cbor.Value) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Sink = Discard{}
	_ Sink = (*MultiSink)(nil)
)
