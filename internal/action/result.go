package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// #region errors
var (
	// ErrNotFound means an unknown subject or record id. Always a caller bug.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the action is illegal given status or time window.
	ErrInvalidState = errors.New("invalid state")
	// ErrBlocked means the policy gate refused the action.
	ErrBlocked = errors.New("blocked by policy")
	// ErrCompleted is returned when advancing a finished scenario.
	ErrCompleted = errors.New("scenario completed")
)

// #endregion errors

// #region outcome
// Outcome selects which of the four mutually exclusive result shapes applies.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeBlocked Outcome = "blocked"
	OutcomeInfo    Outcome = "info"
)

// #endregion outcome

// #region result
// Result is what every handler returns.
type Result struct {
	Outcome Outcome
	Message string
	Fields  map[string]any // success payload only

	kind error // sentinel for OutcomeError
}

// Success builds a success result carrying fields.
func Success(fields map[string]any) Result {
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{Outcome: OutcomeSuccess, Fields: fields}
}

// NotFound builds an error result for an unknown id.
func NotFound(format string, args ...any) Result {
	return Result{Outcome: OutcomeError, Message: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

// Invalid builds an error result for a structural precondition failure.
func Invalid(format string, args ...any) Result {
	return Result{Outcome: OutcomeError, Message: fmt.Sprintf(format, args...), kind: ErrInvalidState}
}

// Blocked builds a policy refusal carrying the rule's reason verbatim.
func Blocked(reason string) Result {
	return Result{Outcome: OutcomeBlocked, Message: reason, kind: ErrBlocked}
}

// Info builds an idempotent no-op response such as "already done".
func Info(format string, args ...any) Result {
	return Result{Outcome: OutcomeInfo, Message: fmt.Sprintf(format, args...)}
}

// OK reports whether the action was applied.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Err returns nil for success and info, otherwise an error wrapping the
// matching sentinel so callers can use errors.Is.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeError, OutcomeBlocked:
		if r.kind == nil {
			return errors.New(r.Message)
		}
		return fmt.Errorf("%w: %s", r.kind, r.Message)
	default:
		return nil
	}
}

// MarshalJSON renders the host-facing shape:
// {success:true,...} | {error} | {blocked:true,message} | {info}.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Outcome {
	case OutcomeSuccess:
		out := make(map[string]any, len(r.Fields)+1)
		for k, v := range r.Fields {
			out[k] = v
		}
		out["success"] = true
		return json.Marshal(out)
	case OutcomeError:
		return json.Marshal(map[string]string{"error": r.Message})
	case OutcomeBlocked:
		return json.Marshal(map[string]any{"blocked": true, "message": r.Message})
	case OutcomeInfo:
		return json.Marshal(map[string]string{"info": r.Message})
	default:
		return nil, fmt.Errorf("unknown outcome %q", r.Outcome)
	}
}

// #endregion result
