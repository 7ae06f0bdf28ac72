// Package rpcerr gives the dispatch core's error taxonomy concrete Go
// types: a Kind enum plus a struct carrying it, a message, and
// optional fields, satisfying the error interface and remaining
// errors.As-friendly.
package rpcerr

import "fmt"

// Kind identifies one of the taxonomy's error categories. Kind values
// are not type names; they describe failure modes a client needs to
// react to differently.
type Kind string

const (
	// KindMalformedRequest means required params were missing or
	// ill-typed. Propagated to the client verbatim.
	KindMalformedRequest Kind = "malformed_request"

	// KindSessionStartFailed means the LSP child failed to spawn or
	// complete its handshake. Recoverable: a later get_or_create for
	// the same key retries after the failed entry is cleared.
	KindSessionStartFailed Kind = "session_start_failed"

	// KindRPCTransport means the framer or child process failed
	// mid-request, or the request could not be sent. lspclient wraps
	// every request error other than -32601 in this kind and returns it
	// to the caller; the owning LSP client's state is not changed, so
	// it is not marked failed by such an error.
	KindRPCTransport Kind = "rpc_transport_error"

	// KindMethodNotSupported means the server replied -32601 to a
	// call-hierarchy method. Other methods bubble their error
	// unchanged; this kind exists for the walker's surfaced message.
	KindMethodNotSupported Kind = "method_not_supported"

	// KindNoResultAtPosition is informational: prepareCallHierarchy
	// returned an empty result. Not a failure of the request itself.
	KindNoResultAtPosition Kind = "no_result_at_position"

	// KindPathNotFound is informational: the walker's path search
	// exhausted max_depth without reaching the target.
	KindPathNotFound Kind = "path_not_found"
)

// Error is the taxonomy's single carrier type.
type Error struct {
	Kind    Kind
	Message string

	// Depth is set for KindPathNotFound, naming the depth bound that
	// was exhausted, for diagnostics.
	Depth int

	// Cause is the underlying error, if any, wrapped for errors.Is/As.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Informational reports whether this error kind represents a
// structured message rather than a request failure — the dispatcher
// still returns {message: ...} for these, never {error: ...}.
func (e *Error) Informational() bool {
	return e.Kind == KindNoResultAtPosition || e.Kind == KindPathNotFound
}

// MalformedRequest builds a KindMalformedRequest error.
func MalformedRequest(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedRequest, Message: fmt.Sprintf(format, args...)}
}

// SessionStartFailed wraps a spawn/handshake failure.
func SessionStartFailed(cause error) *Error {
	return &Error{Kind: KindSessionStartFailed, Message: "failed to start language server", Cause: cause}
}

// RPCTransport wraps a framer/process failure.
func RPCTransport(cause error) *Error {
	return &Error{Kind: KindRPCTransport, Message: "language server transport failed", Cause: cause}
}

// MethodNotSupported builds the call-hierarchy "not supported" message.
func MethodNotSupported(method string) *Error {
	return &Error{
		Kind:    KindMethodNotSupported,
		Message: fmt.Sprintf("%s not supported by this language server", method),
	}
}

// NoResultAtPosition builds the informational "nothing here" message.
func NoResultAtPosition(where string) *Error {
	return &Error{Kind: KindNoResultAtPosition, Message: fmt.Sprintf("No call hierarchy found at %s position", where)}
}

// PathNotFound builds the informational path-search-exhausted message.
func PathNotFound(fromSymbol, toSymbol string, depth int) *Error {
	return &Error{
		Kind:    KindPathNotFound,
		Message: fmt.Sprintf("No path found from %s to %s within depth %d", fromSymbol, toSymbol, depth),
		Depth:   depth,
	}
}
