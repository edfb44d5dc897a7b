package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support looks it up here.
//
// Codes by category:
//
//	FILE001-FILE006  file handling: size, format, corruption, missing, empty
//	VAL001-VAL009    per-row validation: types, required, categories, rules, matching
//	EXP001-EXP002    export: serialization, invalid column schema
//	DB001-DB005      persistence: constraints, connectivity
//	DS001            unknown dataset
//	UPL001-UPL003    request cancellation, timeout and busy system
//	RATE001          throttling
//	ERR000           fallback, check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller files", "FILE001"}},
	{"unsupported file format", UserMessage{"This file type is not supported", "Upload an .xlsx, .csv or .json file", "FILE002"}},
	{"corrupt file", UserMessage{"The file could not be read", "Re-export the file from your spreadsheet application and try again", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file has no data rows", "Add at least one row below the header", "FILE005"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with consistent columns", "FILE006"}},

	// Validation
	{"invalid number", UserMessage{"Invalid number format detected", "Remove text and use a plain decimal number", "VAL001"}},
	{"invalid email", UserMessage{"Invalid e-mail address", "Use a single address such as name@example.com", "VAL002"}},
	{"invalid phone", UserMessage{"Invalid phone number", "Use digits with optional spaces, dashes or a leading +", "VAL003"}},
	{"required field", UserMessage{"Required field is empty", "Ensure all required columns have values", "VAL004"}},
	{"missing required column", UserMessage{"Required column is missing from the file", "Download a fresh template and keep its header row", "VAL005"}},
	{"invalid boolean", UserMessage{"Value is not a yes/no token", "Use + or - (also TRUE, FALSE, X, YES, NO, 1, 0)", "VAL006"}},
	{"unknown category", UserMessage{"Category does not exist", "Create the category first or fix its spelling", "VAL007"}},
	{"rule failed", UserMessage{"Row violates a business rule", "Review the highlighted values", "VAL008"}},
	{"multiple existing records", UserMessage{"More than one existing record matches this row", "Make the match fields unique before importing", "VAL009"}},

	// Export
	{"serialization failed", UserMessage{"The export file could not be generated", "Please try again or export as CSV", "EXP001"}},
	{"invalid column schema", UserMessage{"The export columns are misconfigured", "Contact support with this code", "EXP002"}},

	// Persistence
	{"duplicate key", UserMessage{"A record with this ID already exists", "Review the file for duplicate rows", "DB001"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Ensure parent records are imported first", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB003"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB004"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB005"}},

	{"unknown dataset", UserMessage{"Unknown dataset", "This dataset is not configured", "DS001"}},

	{"too many concurrent imports", UserMessage{"The system is busy processing other imports", "Please wait a moment and try again", "UPL003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL002"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
