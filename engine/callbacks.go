package engine

import (
	"context"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/registry"
)

// CallbackType names the lifecycle points where callbacks run.
type CallbackType string

const (
	// CallbackBeforeCall fires before a call is placed. A callback error
	// aborts the placement, so this is the hook for custom admission rules
	// (suppression lists, spend caps, per-territory throttles).
	CallbackBeforeCall CallbackType = "before_call"

	// CallbackAfterCall fires after a session's finalize pipeline has
	// completed, with a detached session snapshot. Errors are logged and
	// never affect the already-finalized call.
	CallbackAfterCall CallbackType = "after_call"

	// CallbackDailyReset fires at each local-midnight counter reset with
	// the pre-reset counter snapshot.
	CallbackDailyReset CallbackType = "daily_reset"
)

// CallbackContext carries the data available at a lifecycle point. Fields
// are populated per callback type; unrelated fields are zero.
type CallbackContext struct {
	Type CallbackType

	// AgentID and Lead are set for before_call.
	AgentID string
	Lead    *core.Lead

	// Session is the finalized snapshot, set for after_call.
	Session *core.CallSession

	// Counters is the pre-reset snapshot, set for daily_reset.
	Counters []registry.CounterSnapshot
}

// Callback is a lifecycle hook. Implementations must be fast and safe for
// concurrent use; before_call callbacks run on the caller's goroutine and
// block placement until they return.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, cc *CallbackContext) error
}

// FunctionCallback adapts a plain function into a Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cc *CallbackContext) error
}

// NewFunctionCallback wraps fn as a callback for the given type.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, cc *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the lifecycle point this callback handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute invokes the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cc *CallbackContext) error {
	return c.fn(ctx, cc)
}

// callbackRegistry routes lifecycle events to registered callbacks in
// registration order. Registration is not synchronized: register everything
// before Start, as the engine fires callbacks from its own goroutines.
type callbackRegistry struct {
	callbacks map[CallbackType][]Callback
}

func newCallbackRegistry() *callbackRegistry {
	return &callbackRegistry{callbacks: make(map[CallbackType][]Callback)}
}

func (r *callbackRegistry) register(cb Callback) {
	r.callbacks[cb.Type()] = append(r.callbacks[cb.Type()], cb)
}

// fire runs every callback for the type in order, stopping at the first
// error.
func (r *callbackRegistry) fire(ctx context.Context, cc *CallbackContext) error {
	for _, cb := range r.callbacks[cc.Type] {
		if err := cb.Execute(ctx, cc); err != nil {
			return err
		}
	}
	return nil
}
