package replay

import "fmt"

// Error is a kind-3 error: the log fails to verify against the
// interpreter's expected sequence of accesses, or against itself
// (proofs, root hash). Message wording mirrors the original machine's
// step_state_access so tooling built against either can match on text.
type Error struct {
	Access int // index of the access being checked: 1-based if the replayer was built oneBased, else 0-based; Error omits it when 0
	Reason string
}

func (e *Error) Error() string {
	if e.Access == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (access %d)", e.Reason, e.Access)
}

func errf(access int, format string, args ...any) *Error {
	return &Error{Access: access, Reason: fmt.Sprintf(format, args...)}
}
