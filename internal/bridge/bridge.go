// Package bridge is the event-driven state machine between the platform
// front-end and the terminal engine. It owns the event queue, per-terminal
// lifecycle, and the render/callback bookkeeping the owner loop drives
// through StartProcessing/CompleteProcessing.
//
// The bridge is a pure sequential state machine: it is not internally
// synchronized and must be driven by a single owner (one event-loop
// goroutine). Events are processed in strict FIFO enqueue order.
package bridge

// UIState is the bridge's own lifecycle position. Exactly one holds at
// any time.
type UIState uint8

const (
	Idle UIState = iota
	Processing
	Rendering
	WaitingForCallback
	ShuttingDown

	uiStateCount = int(ShuttingDown) + 1
)

func (s UIState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Rendering:
		return "rendering"
	case WaitingForCallback:
		return "waiting-for-callback"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "invalid"
	}
}

// TerminalState is a terminal slot's lifecycle. Disposed is monotonic:
// once reached it is never left.
type TerminalState uint8

const (
	Inactive TerminalState = iota
	Active
	Disposed
)

func (s TerminalState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Disposed:
		return "disposed"
	default:
		return "invalid"
	}
}

const (
	DefaultMaxQueue     = 1024
	DefaultMaxCallbacks = 64
	DefaultMaxTerminals = 256
)

// Options bound the bridge's resources. Zero or negative fields fall back
// to the defaults.
type Options struct {
	MaxQueue     int
	MaxCallbacks int
	MaxTerminals int
}

func (o Options) normalized() Options {
	if o.MaxQueue <= 0 {
		o.MaxQueue = DefaultMaxQueue
	}
	if o.MaxCallbacks <= 0 {
		o.MaxCallbacks = DefaultMaxCallbacks
	}
	if o.MaxTerminals <= 0 {
		o.MaxTerminals = DefaultMaxTerminals
	}
	return o
}

// UIBridge mediates between the platform's input layer (which enqueues
// events) and the owner loop (which dequeues and processes them).
type UIBridge struct {
	state UIState

	maxQueue     int
	maxCallbacks int

	terminals []TerminalState

	queue []Event
	head  int
	count int

	callbacks      map[CallbackID]TerminalID
	pendingRenders map[TerminalID]struct{}

	// Enqueue-time reservations so validation can see queued work that
	// has not been applied yet.
	pendingCreates   map[TerminalID]struct{}
	pendingCallbacks map[CallbackID]struct{}

	seen   map[EventID]struct{}
	nextID EventID

	received  uint64
	processed uint64
}

// New returns an idle bridge with default bounds.
func New() *UIBridge {
	return NewWithOptions(Options{})
}

// NewWithOptions returns an idle bridge with the given bounds.
func NewWithOptions(opts Options) *UIBridge {
	opts = opts.normalized()
	return &UIBridge{
		state:            Idle,
		maxQueue:         opts.MaxQueue,
		maxCallbacks:     opts.MaxCallbacks,
		terminals:        make([]TerminalState, opts.MaxTerminals),
		queue:            make([]Event, opts.MaxQueue),
		callbacks:        make(map[CallbackID]TerminalID),
		pendingRenders:   make(map[TerminalID]struct{}),
		pendingCreates:   make(map[TerminalID]struct{}),
		pendingCallbacks: make(map[CallbackID]struct{}),
		seen:             make(map[EventID]struct{}),
		nextID:           1,
	}
}

// HandleEvent validates the event, assigns it a fresh unique id when unset,
// and enqueues it. It never processes; processing happens only through
// StartProcessing/CompleteProcessing.
func (b *UIBridge) HandleEvent(ev Event) (EventID, error) {
	if b.state == ShuttingDown && ev.Kind != KindDestroyTerminal {
		return 0, ErrShuttingDown
	}
	if b.count == b.maxQueue {
		return 0, ErrQueueFull
	}
	if err := b.validate(ev); err != nil {
		return 0, err
	}

	if ev.ID == 0 {
		for {
			if _, taken := b.seen[b.nextID]; !taken {
				break
			}
			b.nextID++
		}
		ev.ID = b.nextID
		b.nextID++
	} else if _, dup := b.seen[ev.ID]; dup {
		return 0, ErrDuplicateEvent
	}

	b.seen[ev.ID] = struct{}{}
	b.queue[(b.head+b.count)%b.maxQueue] = ev
	b.count++
	b.received++

	switch ev.Kind {
	case KindCreateTerminal:
		b.pendingCreates[ev.Terminal] = struct{}{}
	case KindRequestCallback:
		b.pendingCallbacks[ev.Callback] = struct{}{}
	}
	return ev.ID, nil
}

func (b *UIBridge) validate(ev Event) error {
	if ev.Kind == KindShutdown {
		return nil
	}
	if int(ev.Terminal) < 0 || int(ev.Terminal) >= len(b.terminals) {
		return ErrNotFound
	}
	state := b.terminals[ev.Terminal]

	if ev.Kind == KindCreateTerminal {
		if state != Inactive {
			return ErrInvalidState
		}
		if _, queued := b.pendingCreates[ev.Terminal]; queued {
			return ErrInvalidState
		}
		return nil
	}

	// Remaining kinds target a live terminal: Active now, or Inactive
	// with a create still queued ahead of this event.
	switch state {
	case Disposed:
		return ErrInvalidState
	case Inactive:
		if _, queued := b.pendingCreates[ev.Terminal]; !queued {
			return ErrNotFound
		}
	}

	if ev.Kind == KindRequestCallback {
		return b.validateCallback(ev.Callback)
	}
	return nil
}

func (b *UIBridge) validateCallback(cb CallbackID) error {
	if int(cb) >= b.maxCallbacks {
		return ErrInvalidState
	}
	if _, dup := b.callbacks[cb]; dup {
		return ErrDuplicateCallback
	}
	if _, dup := b.pendingCallbacks[cb]; dup {
		return ErrDuplicateCallback
	}
	if len(b.callbacks)+len(b.pendingCallbacks) >= b.maxCallbacks {
		return ErrTooManyCallbacks
	}
	return nil
}

// CreateTerminal enqueues a create event for the slot.
func (b *UIBridge) CreateTerminal(id TerminalID) error {
	_, err := b.HandleEvent(NewCreateTerminal(id))
	return err
}

// DestroyTerminal enqueues a destroy event. Destroying an unknown terminal
// returns ErrNotFound; destroying a disposed one returns ErrInvalidState.
func (b *UIBridge) DestroyTerminal(id TerminalID) error {
	_, err := b.HandleEvent(NewDestroyTerminal(id))
	return err
}

// StartProcessing dequeues the oldest event, applies its internal
// bookkeeping, and returns it for external side-effecting work. Legal only
// when Idle with a non-empty queue. A dequeued Shutdown event disposes all
// terminals, drains the queue, and leaves the bridge ShuttingDown; every
// other kind leaves it Processing until CompleteProcessing.
func (b *UIBridge) StartProcessing() (Event, error) {
	if b.state != Idle {
		return Event{}, ErrInvalidState
	}
	if b.count == 0 {
		return Event{}, ErrNoEventPending
	}

	ev := b.dequeue()
	switch ev.Kind {
	case KindCreateTerminal:
		if b.terminals[ev.Terminal] == Inactive {
			b.terminals[ev.Terminal] = Active
		}
	case KindDestroyTerminal:
		if b.terminals[ev.Terminal] == Active {
			b.dispose(ev.Terminal)
		}
	case KindRender:
		if b.terminals[ev.Terminal] == Active {
			b.pendingRenders[ev.Terminal] = struct{}{}
		}
	case KindRequestCallback:
		if b.terminals[ev.Terminal] == Active {
			b.callbacks[ev.Callback] = ev.Terminal
		}
	case KindShutdown:
		b.executeShutdown()
		return ev, nil
	}

	b.state = Processing
	return ev, nil
}

func (b *UIBridge) dequeue() Event {
	ev := b.queue[b.head]
	b.queue[b.head] = Event{}
	b.head = (b.head + 1) % b.maxQueue
	b.count--
	b.processed++

	switch ev.Kind {
	case KindCreateTerminal:
		delete(b.pendingCreates, ev.Terminal)
	case KindRequestCallback:
		delete(b.pendingCallbacks, ev.Callback)
	}
	return ev
}

func (b *UIBridge) dispose(id TerminalID) {
	b.terminals[id] = Disposed
	delete(b.pendingRenders, id)
	for cb, owner := range b.callbacks {
		if owner == id {
			delete(b.callbacks, cb)
		}
	}
}

func (b *UIBridge) executeShutdown() {
	for id, state := range b.terminals {
		if state == Active {
			b.terminals[id] = Disposed
		}
	}
	// Drained events count as processed so the received/processed ledger
	// stays balanced.
	b.processed += uint64(b.count)
	for i := range b.queue {
		b.queue[i] = Event{}
	}
	b.head = 0
	b.count = 0
	b.callbacks = make(map[CallbackID]TerminalID)
	b.pendingRenders = make(map[TerminalID]struct{})
	b.pendingCreates = make(map[TerminalID]struct{})
	b.pendingCallbacks = make(map[CallbackID]struct{})
	b.state = ShuttingDown
}

// CompleteProcessing finishes the current event's external work and
// transitions on the accumulated bookkeeping: Rendering if renders are
// pending, else WaitingForCallback if callbacks are registered, else Idle.
func (b *UIBridge) CompleteProcessing() error {
	if b.state != Processing {
		return ErrInvalidState
	}
	switch {
	case len(b.pendingRenders) > 0:
		b.state = Rendering
	case len(b.callbacks) > 0:
		b.state = WaitingForCallback
	default:
		b.state = Idle
	}
	return nil
}

// RequestRender records a pending render for the terminal. Legal only while
// Processing; the transition is taken by CompleteProcessing.
func (b *UIBridge) RequestRender(id TerminalID) error {
	if b.state != Processing {
		return ErrInvalidState
	}
	if err := b.requireActive(id); err != nil {
		return err
	}
	b.pendingRenders[id] = struct{}{}
	return nil
}

// RegisterCallback records a callback owned by the terminal. Legal only
// while Processing.
func (b *UIBridge) RegisterCallback(cb CallbackID, id TerminalID) error {
	if b.state != Processing {
		return ErrInvalidState
	}
	if err := b.requireActive(id); err != nil {
		return err
	}
	if err := b.validateCallback(cb); err != nil {
		return err
	}
	b.callbacks[cb] = id
	return nil
}

func (b *UIBridge) requireActive(id TerminalID) error {
	if int(id) < 0 || int(id) >= len(b.terminals) {
		return ErrNotFound
	}
	switch b.terminals[id] {
	case Inactive:
		return ErrNotFound
	case Disposed:
		return ErrInvalidState
	}
	return nil
}

// CompleteRender removes the terminal from the pending-render set. Once the
// set drains the bridge moves to WaitingForCallback if callbacks remain,
// else Idle.
func (b *UIBridge) CompleteRender(id TerminalID) error {
	if b.state != Rendering {
		return ErrInvalidState
	}
	if _, ok := b.pendingRenders[id]; !ok {
		return ErrNotFound
	}
	delete(b.pendingRenders, id)
	if len(b.pendingRenders) == 0 {
		if len(b.callbacks) > 0 {
			b.state = WaitingForCallback
		} else {
			b.state = Idle
		}
	}
	return nil
}

// CompleteCallback removes the callback from the table. Once the table
// drains the bridge returns to Idle.
func (b *UIBridge) CompleteCallback(cb CallbackID) error {
	if b.state != WaitingForCallback {
		return ErrInvalidState
	}
	if _, ok := b.callbacks[cb]; !ok {
		return ErrNotFound
	}
	delete(b.callbacks, cb)
	if len(b.callbacks) == 0 {
		b.state = Idle
	}
	return nil
}

// State returns the bridge's lifecycle position.
func (b *UIBridge) State() UIState { return b.state }

// TerminalState returns the slot's lifecycle; out-of-range ids read as
// Inactive.
func (b *UIBridge) TerminalState(id TerminalID) TerminalState {
	if int(id) < 0 || int(id) >= len(b.terminals) {
		return Inactive
	}
	return b.terminals[id]
}

// PendingCount returns the number of queued events.
func (b *UIBridge) PendingCount() int { return b.count }

// CallbackCount returns the number of registered callbacks.
func (b *UIBridge) CallbackCount() int { return len(b.callbacks) }

// RenderPendingCount returns the number of terminals awaiting a render.
func (b *UIBridge) RenderPendingCount() int { return len(b.pendingRenders) }

// IsConsistent evaluates the bridge's full invariant set in one call.
// A false return is an internal bug; tests assert it after every mutation.
func (b *UIBridge) IsConsistent() bool {
	if int(b.state) >= uiStateCount {
		return false
	}
	if b.count < 0 || b.count > b.maxQueue {
		return false
	}
	if b.head < 0 || b.head >= b.maxQueue {
		return false
	}
	if len(b.callbacks) > b.maxCallbacks {
		return false
	}
	if b.state == Rendering && len(b.pendingRenders) == 0 {
		return false
	}
	if b.state == WaitingForCallback && len(b.callbacks) == 0 {
		return false
	}
	if b.received != b.processed+uint64(b.count) {
		return false
	}
	return true
}
