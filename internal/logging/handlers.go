package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes stamped on every record, such as the
// current simulation time.
type ContextProvider func() []slog.Attr

// fanoutHandler writes each record to every enabled output.
type fanoutHandler struct {
	outputs []slog.Handler
}

// Fanout joins outputs into one handler. Nil outputs are skipped.
func Fanout(outputs ...slog.Handler) slog.Handler {
	f := &fanoutHandler{outputs: make([]slog.Handler, 0, len(outputs))}
	for _, h := range outputs {
		if h != nil {
			f.outputs = append(f.outputs, h)
		}
	}
	return f
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.outputs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to all outputs. A failing output does not stop the
// others; the failures are joined.
func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.outputs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanoutHandler) each(fn func(slog.Handler) slog.Handler) *fanoutHandler {
	next := &fanoutHandler{outputs: make([]slog.Handler, len(f.outputs))}
	for i, h := range f.outputs {
		next.outputs[i] = fn(h)
	}
	return next
}

// stampHandler adds the provider's attributes at handle time, so values
// like the simulation clock are current for each record.
type stampHandler struct {
	inner slog.Handler
	stamp ContextProvider
}

// WithContext wraps inner so that every record carries stamp's attributes.
func WithContext(inner slog.Handler, stamp ContextProvider) slog.Handler {
	if stamp == nil {
		return inner
	}
	return &stampHandler{inner: inner, stamp: stamp}
}

func (h *stampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *stampHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.stamp()...)
	return h.inner.Handle(ctx, r)
}

func (h *stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stampHandler{inner: h.inner.WithAttrs(attrs), stamp: h.stamp}
}

func (h *stampHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &stampHandler{inner: h.inner.WithGroup(name), stamp: h.stamp}
}
