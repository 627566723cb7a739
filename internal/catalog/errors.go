package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies every failure that crosses the Store boundary.
type Kind int

const (
	KindConnection Kind = iota + 1
	KindSelect
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Kind sentinels. errors.Is(err, ErrInsert) is true for any *Error of KindInsert.
var (
	ErrConnection = &Error{Kind: KindConnection, Msg: "connection error"}
	ErrSelect     = &Error{Kind: KindSelect, Msg: "select error"}
	ErrInsert     = &Error{Kind: KindInsert, Msg: "insert error"}
)

// Reasons carried as the cause of business-rule failures.
var (
	ErrNotConnected        = errors.New("not connected to the database")
	ErrMissingUser         = errors.New("an acting user is required")
	ErrUnresolvedReference = errors.New("referenced record does not exist")
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("record already exists")
)

// Error wraps a storage or validation failure. Err holds the original cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so callers can test the error family without errors.As.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnection, ErrSelect, ErrInsert:
		return e.Kind == target.(*Error).Kind
	}
	return false
}

func ConnectionError(msg string, err error) error {
	return &Error{Kind: KindConnection, Msg: msg, Err: err}
}

func SelectError(msg string, err error) error {
	return &Error{Kind: KindSelect, Msg: msg, Err: err}
}

func InsertError(msg string, err error) error {
	return &Error{Kind: KindInsert, Msg: msg, Err: err}
}

// KindOf reports the kind of a contract error, or 0 for anything else.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
