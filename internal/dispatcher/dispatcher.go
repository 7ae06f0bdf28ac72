// Package dispatcher implements the request dispatcher: validate a
// structured {method, params} request, resolve the handler, and
// convert its result or error into the client-visible envelope
// ({result: ...} or {error: {message}}).
//
// The handler-registry shape — a method-name-keyed map of functions
// invoked uniformly, with per-call error-to-envelope conversion — is a
// plain in-process registry over the daemon socket's own {method,
// params} envelope. Nothing about method routing here needs a wire
// connection's id/notification machinery: the dispatcher is the
// daemon's own transport, not an LSP connection.
package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/leta-lsp/leta/internal/rpcerr"
)

// Handler processes one request's params and returns either a result
// value (marshaled into the envelope's "result" field) or a
// structured error.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, *rpcerr.Error)

// Envelope is the daemon socket's reply shape: exactly one of Result
// or Error is populated.
type Envelope struct {
	Result interface{}    `json:"result,omitempty"`
	Error  *ErrorEnvelope `json:"error,omitempty"`
}

// ErrorEnvelope carries only a message to the client: `{error:
// {message}}`, with no kind/code exposed over the wire. Kind-specific
// behavior is entirely the dispatcher's concern.
type ErrorEnvelope struct {
	Message string `json:"message"`
}

// Dispatcher routes {method, params} requests to registered handlers.
type Dispatcher struct {
	handlers map[string]Handler
}

// New constructs an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds method to handler. Re-registering a method replaces
// its handler, which test setup relies on.
func (d *Dispatcher) Register(method string, handler Handler) {
	d.handlers[method] = handler
}

// Dispatch validates that method is known and invokes its handler,
// converting the result into the reply envelope. An Informational
// error (NoResultAtPosition, PathNotFound) is not a failure: it
// becomes a successful result carrying {message: ...}, since a call
// hierarchy query with nothing to report is a normal outcome, not an
// error condition.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) Envelope {
	handler, ok := d.handlers[method]
	if !ok {
		return errorEnvelope(rpcerr.MalformedRequest("unknown method %q", method))
	}

	result, rerr := handler(ctx, params)
	if rerr == nil {
		return Envelope{Result: result}
	}
	if rerr.Informational() {
		return Envelope{Result: map[string]string{"message": rerr.Message}}
	}
	return errorEnvelope(rerr)
}

func errorEnvelope(err error) Envelope {
	return Envelope{Error: &ErrorEnvelope{Message: err.Error()}}
}
