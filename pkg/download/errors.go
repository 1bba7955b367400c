package download

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure.
type Kind int

const (
	KindInvalidURL Kind = iota + 1
	KindInvalidState
	KindTransport
	KindBackgroundExpired
	KindDecode
	KindFileSystem
	KindUsage
)

// Sentinel errors matched with errors.Is against any *Error of that kind.
var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidState      = errors.New("session already started")
	ErrTransport         = errors.New("transport failure")
	ErrBackgroundExpired = errors.New("background execution expired")
	ErrDecode            = errors.New("decode failure")
	ErrFileSystem        = errors.New("file system failure")
	ErrUsage             = errors.New("invalid usage")

	// ErrCancelled is returned by Wait for a cancelled session. It is never
	// delivered to an error callback.
	ErrCancelled = errors.New("session cancelled")
)

var kindSentinels = map[Kind]error{
	KindInvalidURL:        ErrInvalidURL,
	KindInvalidState:      ErrInvalidState,
	KindTransport:         ErrTransport,
	KindBackgroundExpired: ErrBackgroundExpired,
	KindDecode:            ErrDecode,
	KindFileSystem:        ErrFileSystem,
	KindUsage:             ErrUsage,
}

var kindNames = map[Kind]string{
	KindInvalidURL:        "invalid_url",
	KindInvalidState:      "invalid_state",
	KindTransport:         "transport",
	KindBackgroundExpired: "background_expired",
	KindDecode:            "decode",
	KindFileSystem:        "file_system",
	KindUsage:             "usage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type of every session failure.
type Error struct {
	Kind Kind
	Op   string // e.g. "start", "read", "decode"
	URL  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		msg = sentinel.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && kindSentinels[e.Kind] == target
}

func newError(kind Kind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// KindOf returns the kind of err, or zero when err is not a session error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
