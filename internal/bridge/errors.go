package bridge

import "errors"

var (
	// ErrQueueFull means the event queue is at capacity; the caller should
	// process events before enqueueing more.
	ErrQueueFull = errors.New("bridge: event queue full")
	// ErrTooManyCallbacks means the callback table is at capacity.
	ErrTooManyCallbacks = errors.New("bridge: too many callbacks")
	// ErrShuttingDown means the bridge no longer accepts events.
	ErrShuttingDown = errors.New("bridge: shutting down")
	// ErrNotFound means the terminal or callback id is unknown.
	ErrNotFound = errors.New("bridge: not found")
	// ErrInvalidState means the operation is not legal in the current
	// bridge or terminal state.
	ErrInvalidState = errors.New("bridge: invalid state")
	// ErrNoEventPending means StartProcessing found an empty queue.
	ErrNoEventPending = errors.New("bridge: no event pending")
	// ErrDuplicateCallback means the callback id is already registered or
	// already queued.
	ErrDuplicateCallback = errors.New("bridge: duplicate callback id")
	// ErrDuplicateEvent means the event id was already accepted once.
	ErrDuplicateEvent = errors.New("bridge: duplicate event id")
)
