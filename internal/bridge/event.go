package bridge

// TerminalID identifies a terminal slot. IDs are externally supplied and
// bounded by the bridge's terminal capacity.
type TerminalID int

// CallbackID identifies a platform callback registered while an event was
// being processed.
type CallbackID uint32

// EventID uniquely identifies an event across the bridge's lifetime. The
// zero value means "unassigned"; HandleEvent fills it in.
type EventID uint64

// EventKind discriminates the event payload.
type EventKind uint8

const (
	KindCreateTerminal EventKind = iota
	KindDestroyTerminal
	KindInput
	KindResize
	KindRender
	KindRequestCallback
	KindShutdown
)

func (k EventKind) String() string {
	switch k {
	case KindCreateTerminal:
		return "create-terminal"
	case KindDestroyTerminal:
		return "destroy-terminal"
	case KindInput:
		return "input"
	case KindResize:
		return "resize"
	case KindRender:
		return "render"
	case KindRequestCallback:
		return "request-callback"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the bridge's owner loop. Shutdown events
// carry no terminal; every other kind belongs to exactly one terminal.
type Event struct {
	ID       EventID
	Kind     EventKind
	Terminal TerminalID

	// Payload fields, populated per kind.
	Data       []byte
	Rows, Cols uint16
	Callback   CallbackID
}

func NewCreateTerminal(id TerminalID) Event {
	return Event{Kind: KindCreateTerminal, Terminal: id}
}

func NewDestroyTerminal(id TerminalID) Event {
	return Event{Kind: KindDestroyTerminal, Terminal: id}
}

func NewInput(id TerminalID, data []byte) Event {
	return Event{Kind: KindInput, Terminal: id, Data: data}
}

func NewResize(id TerminalID, rows, cols uint16) Event {
	return Event{Kind: KindResize, Terminal: id, Rows: rows, Cols: cols}
}

func NewRender(id TerminalID) Event {
	return Event{Kind: KindRender, Terminal: id}
}

func NewRequestCallback(id TerminalID, cb CallbackID) Event {
	return Event{Kind: KindRequestCallback, Terminal: id, Callback: cb}
}

func NewShutdown() Event {
	return Event{Kind: KindShutdown}
}
