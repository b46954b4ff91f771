// Package tfvcerrors defines the error categories of §7: distinct,
// non-conflated failure modes surfaced with changeset/operation context
// rather than recovered locally.
package tfvcerrors

import "github.com/pkg/errors"

// Category identifies which of §7's error categories a failure belongs to.
type Category int

const (
	// Configuration covers unmapped authors, malformed root-path-change
	// arguments, and ambiguous/conflicting CLI input.
	Configuration Category = iota
	// Precondition covers a non-empty or already-populated target.
	Precondition
	// Invariant covers defects either in the analyzer or in the History
	// Source's data: an out-of-order registry operation, a required
	// branch lookup that returned nil, or a commit index miss after a
	// successful topological sort. Fatal.
	Invariant
	// PoorlyUnderstoodCombination covers a change whose flag combination
	// (rename/delete alongside other flags) the model has not validated.
	// Fatal by design — the operator inspects rather than the tool
	// guessing.
	PoorlyUnderstoodCombination
	// NotImplemented covers symbolic links, a rename of a subdir-mapped
	// view, and a root-path move outside the original root.
	NotImplemented
	// TransientIO covers History Source failures: network errors, 5xx
	// responses and failed content fetches or reads. The REST client
	// returns the first such failure; it does not retry.
	TransientIO
)

func (c Category) String() string {
	switch c {
	case Configuration:
		return "ConfigurationError"
	case Precondition:
		return "PreconditionFailure"
	case Invariant:
		return "InvariantViolation"
	case PoorlyUnderstoodCombination:
		return "PoorlyUnderstoodCombination"
	case NotImplemented:
		return "NotImplemented"
	case TransientIO:
		return "TransientIOFailure"
	default:
		return "UnknownCategory"
	}
}

// Error is a categorized failure, optionally carrying the changeset and
// operation description active when it was raised.
type Error struct {
	Category  Category
	Changeset int // 0 if not applicable
	Operation string
	cause     error
}

func (e *Error) Error() string {
	msg := e.Category.String()
	if e.Operation != "" {
		msg += ": " + e.Operation
	}
	if e.Changeset != 0 {
		msg += fmtChangeset(e.Changeset)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func fmtChangeset(cs int) string {
	return " (changeset " + itoa(cs) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Category, so
// callers can do errors.Is(err, tfvcerrors.New(tfvcerrors.Invariant, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Category == e.Category
}

// New constructs a bare categorized error describing operation.
func New(category Category, operation string) *Error {
	return &Error{Category: category, Operation: operation}
}

// Wrap attaches changeset context and a cause to a categorized error.
func Wrap(cause error, category Category, changeset int, operation string) *Error {
	return &Error{Category: category, Changeset: changeset, Operation: operation, cause: errors.WithStack(cause)}
}

// WithChangeset returns a copy of e annotated with a changeset, for
// propagation up through layers that did not originate the error but know
// which changeset was active (§7's propagation policy).
func WithChangeset(err error, changeset int) error {
	if e, ok := err.(*Error); ok {
		cp := *e
		if cp.Changeset == 0 {
			cp.Changeset = changeset
		}
		return &cp
	}
	return errors.Wrapf(err, "changeset %d", changeset)
}
