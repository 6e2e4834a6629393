package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/certgen/internal/sheet"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// UserFacing is implemented by errors that know how to describe themselves to
// users, typically because the message depends on the error's fields.
type UserFacing interface {
	UserMessage() UserMessage
}

// PopupBlockedMessage is shown by the page when the print window cannot open.
var PopupBlockedMessage = UserMessage{
	Message: "The print window was blocked",
	Action:  "Allow popups for this site and try again",
	Code:    "EXP004",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// First match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// Data source (SRC)
	{
		pattern: "empty table",
		msg: UserMessage{
			Message: "The certificate sheet has no records",
			Action:  "Contact the organizer; the data source may be misconfigured",
			Code:    "SRC002",
		},
	},
	{
		pattern: "malformed table",
		msg: UserMessage{
			Message: "The certificate sheet could not be read",
			Action:  "Contact the organizer; the sheet export may be broken",
			Code:    "SRC003",
		},
	},

	// Query (CERT)
	{
		pattern: "certificate id is required",
		msg: UserMessage{
			Message: "Please enter Certificate ID",
			Action:  "Type the ID printed on your confirmation",
			Code:    "CERT002",
		},
	},

	// Export (EXP)
	{
		pattern: "too many renders",
		msg: UserMessage{
			Message: "The export service is busy",
			Action:  "Please wait a moment and try again",
			Code:    "EXP002",
		},
	},
	{
		pattern: "no certificate rendered",
		msg: UserMessage{
			Message: "There is no certificate to export",
			Action:  "Look up your certificate first",
			Code:    "EXP003",
		},
	},

	// Request (RATE, REQ)
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Typed errors
// are checked first, then the pattern table, then the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		return UserMessage{
			Message: fmt.Sprintf("Certificate ID %q not found", nf.Query),
			Action:  "Check the ID for typos and try again",
			Code:    "CERT001",
		}
	}

	// A fetch abandoned because the caller went away is a cancellation, not a
	// data source problem.
	var te *sheet.TransportError
	if errors.As(err, &te) && !errors.Is(err, context.Canceled) {
		return UserMessage{
			Message: "Error loading certificate data",
			Action:  "Check your connection and try again later",
			Code:    "SRC001",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
