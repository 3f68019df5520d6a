package exaplot

import "fmt"

// Kind classifies the outcome of a boundary operation.
type Kind int

const (
	KindNone Kind = iota
	KindImport
	KindRuntime
	KindReload
	KindSystem
	KindArgument
	KindInterrupt
	KindUndefined
)

var kindNames = [...]string{
	KindNone:      "NONE",
	KindImport:    "IMPORT",
	KindRuntime:   "RUNTIME",
	KindReload:    "RELOAD",
	KindSystem:    "SYSTEM",
	KindArgument:  "ARGUMENT",
	KindInterrupt: "INTERRUPT",
	KindUndefined: "UNDEFINED",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is the result of a load or run. It is returned by value; the zero
// value means success.
type Error struct {
	Kind      Kind
	Msg       string
	Traceback string
}

// None is the successful result.
var None = Error{}

// Ok reports whether e is a success.
func (e Error) Ok() bool { return e.Kind == KindNone }

// Interrupted reports whether the run stopped cooperatively or was
// terminated.
func (e Error) Interrupted() bool { return e.Kind == KindInterrupt }

func (e Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Err returns nil for a success and e otherwise, for callers that want a
// plain error.
func (e Error) Err() error {
	if e.Ok() {
		return nil
	}
	return e
}

// FatalInitError is returned by Initialize when the runtime cannot start.
type FatalInitError struct {
	Func string
	Msg  string
}

func (e *FatalInitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Func, e.Msg)
}
