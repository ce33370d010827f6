package crew

import "fmt"

// Error reports a crew-scheduling failure, the same Component/Operation/
// Message/Err shape as event.Error.
type Error struct {
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op, msg string, err error) *Error {
	return &Error{Component: "crew.Crew", Operation: op, Message: msg, Err: err}
}
