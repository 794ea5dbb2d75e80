// Package failure defines the typed failure a command raises and the classifier
// that decides how the bot answers it.
package failure

import (
	"errors"
	"fmt"
)

// Failure identities. Commands wrap one of these in an *Error.
var (
	ErrChecksFailed     = errors.New("checks failed")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrMissingArguments = errors.New("missing arguments")
	ErrCommandNotFound  = errors.New("command not found")
)

// Field is one entry of a failure payload.
type Field struct {
	Key   string
	Value string
}

// Data is an ordered key/value payload. Keys are unique; an empty Value
// means the caller did not supply it.
type Data []Field

// Get returns the value for key and whether the key is present.
func (d Data) Get(key string) (string, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the value for key in place, or appends a new entry.
func (d *Data) Set(key, value string) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, Field{Key: key, Value: value})
}

// Keys returns the keys in insertion order.
func (d Data) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Error is a command failure with its identity and payload.
type Error struct {
	Kind    error
	Message string
	Data    Data
}

// New builds a failure of the given kind.
func New(kind error, message string, data Data) *Error {
	return &Error{Kind: kind, Message: message, Data: data}
}

func (e *Error) Error() string {
	kind := "command failed"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}
	if e.Message == "" {
		return kind
	}
	return fmt.Sprintf("%s: %s", kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

// DataOf extracts the payload of err, if it carries one.
func DataOf(err error) Data {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Data
	}
	return nil
}

// Identify names the failure for log records.
func Identify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrChecksFailed):
		return "checks_failed"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrMissingArguments):
		return "missing_arguments"
	case errors.Is(err, ErrCommandNotFound):
		return "command_not_found"
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != nil {
		return fmt.Sprintf("%T", fe.Kind)
	}
	return fmt.Sprintf("%T", err)
}
