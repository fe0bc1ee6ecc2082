package event

import "time"

// Event is implemented by everything published on a session bus.
type Event interface {
	Type() string
}

const (
	TypeOutput = "session.output"
	TypeTitle  = "session.title"
	TypeBell   = "session.bell"
	TypeResize = "session.resize"
	TypeExit   = "session.exit"
)

// OutputEvent carries a chunk of decoded session output. Data is owned by
// the event and safe to retain.
type OutputEvent struct {
	SessionID string
	Data      []byte
	Timestamp time.Time
}

func (OutputEvent) Type() string { return TypeOutput }

// TitleEvent carries a window-title change requested by the guest program.
type TitleEvent struct {
	SessionID string
	Title     string
	Timestamp time.Time
}

func (TitleEvent) Type() string { return TypeTitle }

// BellEvent signals an audible bell from the guest program.
type BellEvent struct {
	SessionID string
	Timestamp time.Time
}

func (BellEvent) Type() string { return TypeBell }

// ResizeEvent records a size change applied to the session PTY.
type ResizeEvent struct {
	SessionID  string
	Rows, Cols uint16
	Timestamp  time.Time
}

func (ResizeEvent) Type() string { return TypeResize }

// ExitEvent signals that the session's child process ended.
type ExitEvent struct {
	SessionID string
	Err       error
	Timestamp time.Time
}

func (ExitEvent) Type() string { return TypeExit }
