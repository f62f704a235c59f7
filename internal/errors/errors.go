// Package errors provides a structured error type shared across streamcore's
// components. It wraps a plain Go error with a component name, a category
// drawn from the player's error taxonomy, and arbitrary key/value context,
// without hiding the original error from errors.Is/errors.As.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Category is one of the error kinds the player's state machine and
// observers reason about.
type Category string

const (
	CategoryConnectionTimeout  Category = "connection_timeout"
	CategoryConnectionFailed   Category = "connection_failed"
	CategoryNetworkDisconnect  Category = "network_disconnected"
	CategoryUnsupportedFormat  Category = "unsupported_format"
	CategoryResourceAlloc      Category = "resource_allocation_failed"
	CategoryDecodingFailed     Category = "decoding_failed"
	CategoryNoAudioStream      Category = "no_audio_stream"
	CategoryFingerprintBackend Category = "fingerprint_backend_not_ready"
	CategoryInvalidParameter   Category = "invalid_parameter"
	CategoryGeneric            Category = "generic"
)

// ComponentUnknown marks an error whose originating component was never set.
const ComponentUnknown = "unknown"

// EnhancedError wraps an underlying error with component/category/context.
type EnhancedError struct {
	err       error
	component string
	category  Category
	context   map[string]any
	timestamp time.Time
	mu        sync.RWMutex
}

func (e *EnhancedError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s", e.component, e.category)
	}
	return e.err.Error()
}

// Unwrap exposes the wrapped error to errors.Is / errors.As.
func (e *EnhancedError) Unwrap() error { return e.err }

// Category returns the error's category.
func (e *EnhancedError) Category() Category { return e.category }

// Component returns the component name that produced the error.
func (e *EnhancedError) Component() string { return e.component }

// Timestamp returns when the error was built.
func (e *EnhancedError) Timestamp() time.Time { return e.timestamp }

// Context returns a copy of the error's context map.
func (e *EnhancedError) Context() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.context == nil {
		return nil
	}
	cp := make(map[string]any, len(e.context))
	maps.Copy(cp, e.context)
	return cp
}

// Builder assembles an EnhancedError with a fluent interface.
type Builder struct {
	err       error
	component string
	category  Category
	context   map[string]any
}

// New starts a builder wrapping err. err may be nil for a sentinel-style
// error constructed purely from component/category/context.
func New(err error) *Builder {
	return &Builder{err: err}
}

// Newf is New(fmt.Errorf(format, args...)).
func Newf(format string, args ...any) *Builder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the owning component name.
func (b *Builder) Component(component string) *Builder {
	b.component = component
	return b
}

// Category sets the error category.
func (b *Builder) Category(category Category) *Builder {
	b.category = category
	return b
}

// Context attaches a key/value pair to the error.
func (b *Builder) Context(key string, value any) *Builder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the EnhancedError.
func (b *Builder) Build() *EnhancedError {
	component := b.component
	if component == "" {
		component = ComponentUnknown
	}
	category := b.category
	if category == "" {
		category = CategoryGeneric
	}
	return &EnhancedError{
		err:       b.err,
		component: component,
		category:  category,
		context:   b.context,
		timestamp: time.Now(),
	}
}

// Is reports whether err is an EnhancedError of the same category as target,
// or delegates to the standard library otherwise.
func Is(err, target error) bool {
	var e1, e2 *EnhancedError
	if stderrors.As(err, &e1) && stderrors.As(target, &e2) {
		return e1.category == e2.category
	}
	return stderrors.Is(err, target)
}

// As is a passthrough to the standard library for drop-in compatibility.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap is a passthrough to the standard library.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join is a passthrough to the standard library.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// CategoryOf returns the category of err if it is (or wraps) an
// EnhancedError, and CategoryGeneric otherwise.
func CategoryOf(err error) Category {
	var e *EnhancedError
	if stderrors.As(err, &e) {
		return e.category
	}
	return CategoryGeneric
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category Category) bool {
	return CategoryOf(err) == category
}
