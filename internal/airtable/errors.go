package airtable

import (
	"errors"
	"fmt"
)

// Remote error type identifiers used for classification.
const (
	typeTableNotFound  = "TABLE_NOT_FOUND"
	typeModelNotFound  = "MODEL_ID_NOT_FOUND"
	typeNotFound       = "NOT_FOUND"
	typeUnknownField   = "UNKNOWN_FIELD_NAME"
	typeInvalidChoices = "INVALID_MULTIPLE_CHOICE_OPTIONS"
)

// TableMissingError reports that the named table does not exist in the
// remote base. Callers react to this differently from other failures:
// it means the remote schema was never set up, not that the request or
// the network are broken.
type TableMissingError struct {
	// Table is the configured table name that was not found.
	Table string
}

func (e *TableMissingError) Error() string {
	return fmt.Sprintf("remote table %q does not exist", e.Table)
}

// UnknownFieldError reports that the remote rejected a write because an
// expected field name is absent from the table's schema.
type UnknownFieldError struct {
	Table   string
	Message string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("remote table %q is missing an expected field: %s", e.Table, e.Message)
}

// ChoiceOptionError reports that an enumerated field's allowed values
// are not provisioned remotely (e.g. the Weight Unit single-select
// lacks "kg").
type ChoiceOptionError struct {
	Table   string
	Message string
}

func (e *ChoiceOptionError) Error() string {
	return fmt.Sprintf("remote table %q rejects a choice value: %s", e.Table, e.Message)
}

// APIError is any other non-success response from the remote.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("remote request failed: %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("remote request failed: %d: %s", e.StatusCode, e.Message)
}

// IsTableMissing reports whether err is a TableMissingError.
func IsTableMissing(err error) bool {
	var tm *TableMissingError
	return errors.As(err, &tm)
}

// classify turns a non-2xx response into a typed error.
func classify(table string, statusCode int, errType, message string) error {
	switch errType {
	case typeTableNotFound, typeModelNotFound:
		return &TableMissingError{Table: table}
	case typeUnknownField:
		return &UnknownFieldError{Table: table, Message: message}
	case typeInvalidChoices:
		return &ChoiceOptionError{Table: table, Message: message}
	}
	// A plain 404 on the table path is the sentinel for a missing table
	// even when the body carries no recognized error type.
	if statusCode == 404 {
		return &TableMissingError{Table: table}
	}
	return &APIError{StatusCode: statusCode, Type: errType, Message: message}
}
