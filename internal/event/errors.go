package event

import (
	"errors"
	"fmt"

	"github.com/dshills/nflow/internal/event/dispatch"
)

var (
	ErrNilNode              = errors.New("nil node")
	ErrNilHandler           = errors.New("nil handler")
	ErrInvalidTopic         = errors.New("invalid topic")
	ErrInvalidDirection     = errors.New("invalid direction")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrDisposed is returned when subscribing on or emitting from a
	// disposed node.
	ErrDisposed = errors.New("node is disposed")

	// ErrHandlerTimeout wraps the error of a handler that outlived the
	// emitter's handler timeout.
	ErrHandlerTimeout = errors.New("handler timeout exceeded")

	// ErrHandlerPanic matches a DeliveryError for a recovered panic.
	ErrHandlerPanic = errors.New("handler panicked")
)

// DeliveryError records one handler that did not complete cleanly.
type DeliveryError struct {
	Subscription string
	Topic        string
	// Node is the receiving node's String form.
	Node    string
	Outcome dispatch.Outcome
	// Err is nil for panics.
	Err error
	// Panic and Stack are set when Outcome is dispatch.OutcomePanicked.
	Panic any
	Stack string
}

func (e *DeliveryError) Error() string {
	if e.Outcome == dispatch.OutcomePanicked {
		return fmt.Sprintf("handler %s on %s for %s panicked: %v", e.Subscription, e.Node, e.Topic, e.Panic)
	}
	return fmt.Sprintf("handler %s on %s for %s: %v", e.Subscription, e.Node, e.Topic, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is matches ErrHandlerPanic for panics.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrHandlerPanic && e.Outcome == dispatch.OutcomePanicked
}
