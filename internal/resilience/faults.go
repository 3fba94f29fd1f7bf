// Package resilience provides the failure taxonomy and retry policy shared
// by the inference client, phase pipeline, and reconciler.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Kind is the fixed failure taxonomy. Every error crossing a component
// boundary is classified into exactly one kind, which determines the
// recovery action.
type Kind string

const (
	// Unreachable: the endpoint is not listening. No retry; degrade to
	// heuristics-only immediately.
	Unreachable Kind = "unreachable"

	// ModelUnavailable: the endpoint answered but the named model is not
	// loaded. No retry; degrade with a user-actionable message.
	ModelUnavailable Kind = "model-unavailable"

	// TimeoutExceeded: a bounded request ran out of time. Retried with
	// backoff up to the configured bound, then degrade.
	TimeoutExceeded Kind = "timeout-exceeded"

	// MalformedResponse: the model answered but the response could not be
	// parsed even leniently. Re-parsed once, then the phase is marked failed.
	MalformedResponse Kind = "malformed-response"

	// InputError: the raw email input was empty or unparseable. Surfaced to
	// the caller immediately; no pipeline run is attempted.
	InputError Kind = "input-error"
)

// Action is what the caller should do about a classified failure.
type Action string

const (
	ActionRetry   Action = "retry"
	ActionDegrade Action = "degrade"
	ActionSurface Action = "surface"
)

// Fault carries a classified failure through the pipeline.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err with a taxonomy kind.
func NewFault(kind Kind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

// Faultf builds a classified failure from a message.
func Faultf(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Err: eris.Errorf(format, args...)}
}

// Classify maps an arbitrary error to its taxonomy kind. Errors already
// carrying a Fault keep their kind; everything else is inspected for the
// transport-level signatures the local endpoint produces.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutExceeded
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutExceeded
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return Unreachable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection reset"):
		return Unreachable
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return TimeoutExceeded
	}

	return MalformedResponse
}

// RecoveryFor returns the policy action for a failure kind.
func RecoveryFor(kind Kind) Action {
	switch kind {
	case TimeoutExceeded:
		return ActionRetry
	case Unreachable, ModelUnavailable, MalformedResponse:
		return ActionDegrade
	case InputError:
		return ActionSurface
	default:
		return ActionDegrade
	}
}

// Guidance returns an actionable message for a failure kind, shown to the
// user alongside a degraded verdict.
func Guidance(kind Kind) string {
	switch kind {
	case Unreachable:
		return "inference endpoint is not reachable; start it (e.g. `ollama serve`) and verify the base URL"
	case ModelUnavailable:
		return "endpoint is running but the configured model is not loaded; pull it (e.g. `ollama pull <model>`) or pick a loaded one"
	case TimeoutExceeded:
		return "inference requests timed out after retries; the model may still be loading, or increase the phase timeout"
	case MalformedResponse:
		return "model output could not be parsed as the expected structure; the phase was skipped"
	case InputError:
		return "input is empty or not recognizable as an email; paste the full source or upload a mail container file"
	default:
		return ""
	}
}

// Retryable reports whether the failure kind is worth another attempt.
func Retryable(err error) bool {
	return RecoveryFor(Classify(err)) == ActionRetry
}
