package seqfile

import (
	"context"
	"log/slog"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

// SlogAdapter writes items to an slog.Logger in diagnostic notation.
// Useful for development when you want to see items in the console.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates a SlogAdapter that logs to the given logger at
// Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter that logs at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Write logs v. It never fails.
func (a *SlogAdapter) Write(v cbor.Value) error {
	if v == nil {
		v = cbor.Null{}
	}
	attrs := []slog.Attr{
		slog.String("major", v.MajorType().String()),
		slog.Int("size", len(cbor.Encode(v))),
	}

	// Add container sizes and tag numbers
	switch x := v.(type) {
	case cbor.Array:
		attrs = append(attrs, slog.Int("len", len(x)))
	case cbor.Map:
		attrs = append(attrs, slog.Int("len", len(x)))
	case cbor.Tagged:
		attrs = append(attrs, slog.Uint64("tag", x.Number))
	}
	attrs = append(attrs, slog.String("value", cbor.Diagnose(v)))

	a.logger.LogAttrs(context.Background(), a.level, "cbor item", attrs...)
	return nil
}

// Compile-time interface satisfaction check.
var _ Sink = (*SlogAdapter)(nil)
