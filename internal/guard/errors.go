package guard

// Code is the caller-visible error category. Callers never learn which
// pipeline stage rejected them beyond this category.
type Code int

const (
	CodeUnauthenticated Code = iota + 1
	CodeInvalidArgument
	CodePermissionDenied
	CodeFailedPrecondition
	CodeInternal
)

var codeMessages = map[Code]string{
	CodeUnauthenticated:    "authentication required",
	CodeInvalidArgument:    "invalid request",
	CodePermissionDenied:   "access denied",
	CodeFailedPrecondition: "service not configured for this operation",
	CodeInternal:           "internal error",
}

// Error is the only error type the pipeline returns to callers. The message
// is generic by construction; stage detail goes to the log, not the caller.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	if m, ok := codeMessages[e.Code]; ok {
		return m
	}
	return codeMessages[CodeInternal]
}

func errUnauthenticated() *Error    { return &Error{Code: CodeUnauthenticated} }
func errInvalidArgument() *Error    { return &Error{Code: CodeInvalidArgument} }
func errPermissionDenied() *Error   { return &Error{Code: CodePermissionDenied} }
func errFailedPrecondition() *Error { return &Error{Code: CodeFailedPrecondition} }

// CodeOf extracts the category from an error, defaulting to CodeInternal for
// anything that did not come out of the pipeline.
func CodeOf(err error) Code {
	if ge, ok := err.(*Error); ok {
		return ge.Code
	}
	return CodeInternal
}
