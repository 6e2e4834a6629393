package export

import (
	"fmt"

	"github.com/JonMunkholm/certgen/internal/certificate"
)

// RasterizationError reports that the browser could not produce an export.
// The certificate itself is unaffected and can be exported again or printed.
type RasterizationError struct {
	Format string
	Err    error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("rasterization failed (%s): %v", e.Format, e.Err)
}

func (e *RasterizationError) Unwrap() error {
	return e.Err
}

// UserMessage implements certificate.UserFacing. The cause is included so the
// user can report it.
func (e *RasterizationError) UserMessage() certificate.UserMessage {
	return certificate.UserMessage{
		Message: fmt.Sprintf("Error creating certificate image: %v", e.Err),
		Action:  "Try again, or use Print and save as PDF",
		Code:    "EXP001",
	}
}
