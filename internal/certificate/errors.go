package certificate

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned before any fetch when the identifier is blank.
	ErrEmptyQuery = errors.New("certificate id is required")

	// ErrEmptyTable means the sheet parsed but holds no usable records. It points
	// at the data source, not at the query.
	ErrEmptyTable = errors.New("empty table: sheet has no usable records")

	// ErrMalformedTable wraps parser failures.
	ErrMalformedTable = errors.New("malformed table")
)

// NotFoundError reports that no record carries the queried identifier.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("certificate not found: %q", e.Query)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
