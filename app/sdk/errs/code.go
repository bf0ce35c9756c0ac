package errs

import "net/http"

// Code represents an error code in the system.
type Code struct {
	value int
}

// Value returns the integer value of the code.
func (c Code) Value() int {
	return c.value
}

// String returns the string representation of the code.
func (c Code) String() string {
	return codeNames[c]
}

// UnmarshalText implement the unmarshal interface for JSON conversions.
func (c *Code) UnmarshalText(data []byte) error {
	errName := string(data)

	v, exists := codeNumbers[errName]
	if !exists {
		return nil
	}

	*c = v

	return nil
}

// MarshalText implement the marshal interface for JSON conversions.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Equal provides support for the go-cmp package and testing.
func (c Code) Equal(c2 Code) bool {
	return c.value == c2.value
}

// =============================================================================

// The set of error codes used by the service.
var (
	OK                 = Code{value: 0}
	NoResponse         = Code{value: 1}
	Canceled           = Code{value: 2}
	Unknown            = Code{value: 3}
	InvalidArgument    = Code{value: 4}
	DeadlineExceeded   = Code{value: 5}
	NotFound           = Code{value: 6}
	AlreadyExists      = Code{value: 7}
	PermissionDenied   = Code{value: 8}
	ResourceExhausted  = Code{value: 9}
	FailedPrecondition = Code{value: 10}
	Aborted            = Code{value: 11}
	OutOfRange         = Code{value: 12}
	Unimplemented      = Code{value: 13}
	Internal           = Code{value: 14}
	Unavailable        = Code{value: 15}
	DataLoss           = Code{value: 16}
	Unauthenticated    = Code{value: 17}
	InternalOnlyLog    = Code{value: 18}
)

var codeNumbers = map[string]Code{
	"ok":                  OK,
	"no_response":         NoResponse,
	"canceled":            Canceled,
	"unknown":             Unknown,
	"invalid_argument":    InvalidArgument,
	"deadline_exceeded":   DeadlineExceeded,
	"not_found":           NotFound,
	"already_exists":      AlreadyExists,
	"permission_denied":   PermissionDenied,
	"resource_exhausted":  ResourceExhausted,
	"failed_precondition": FailedPrecondition,
	"aborted":             Aborted,
	"out_of_range":        OutOfRange,
	"unimplemented":       Unimplemented,
	"internal":            Internal,
	"unavailable":         Unavailable,
	"data_loss":           DataLoss,
	"unauthenticated":     Unauthenticated,
	"internal_only_log":   InternalOnlyLog,
}

var codeNames map[Code]string

func init() {
	codeNames = make(map[Code]string, len(codeNumbers))
	for k, v := range codeNumbers {
		codeNames[v] = k
	}
}

var httpStatus = map[int]int{
	OK.value:                 http.StatusOK,
	NoResponse.value:         http.StatusNoContent,
	Canceled.value:           http.StatusGatewayTimeout,
	Unknown.value:            http.StatusInternalServerError,
	InvalidArgument.value:    http.StatusBadRequest,
	DeadlineExceeded.value:   http.StatusGatewayTimeout,
	NotFound.value:           http.StatusNotFound,
	AlreadyExists.value:      http.StatusConflict,
	PermissionDenied.value:   http.StatusForbidden,
	ResourceExhausted.value:  http.StatusTooManyRequests,
	FailedPrecondition.value: http.StatusBadRequest,
	Aborted.value:            http.StatusConflict,
	OutOfRange.value:         http.StatusBadRequest,
	Unimplemented.value:      http.StatusNotImplemented,
	Internal.value:           http.StatusInternalServerError,
	Unavailable.value:        http.StatusServiceUnavailable,
	DataLoss.value:           http.StatusInternalServerError,
	Unauthenticated.value:    http.StatusUnauthorized,
	InternalOnlyLog.value:    http.StatusInternalServerError,
}
