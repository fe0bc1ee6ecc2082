package bridge

import (
	"errors"
	"math/rand"
	"testing"
)

func mustConsistent(t *testing.T, b *UIBridge) {
	t.Helper()
	if !b.IsConsistent() {
		t.Fatalf("bridge inconsistent: state=%v pending=%d callbacks=%d renders=%d",
			b.State(), b.PendingCount(), b.CallbackCount(), b.RenderPendingCount())
	}
}

// drain runs StartProcessing/CompleteProcessing cycles until the queue is
// empty, failing on any error.
func drain(t *testing.T, b *UIBridge) {
	t.Helper()
	for b.PendingCount() > 0 {
		if _, err := b.StartProcessing(); err != nil {
			t.Fatalf("start processing: %v", err)
		}
		if b.State() == ShuttingDown {
			return
		}
		if err := b.CompleteProcessing(); err != nil {
			t.Fatalf("complete processing: %v", err)
		}
		mustConsistent(t, b)
	}
}

func TestNewBridgeIsConsistent(t *testing.T) {
	t.Parallel()

	b := New()
	mustConsistent(t, b)
	if b.State() != Idle {
		t.Fatalf("expected idle, got %v", b.State())
	}
	if b.PendingCount() != 0 || b.CallbackCount() != 0 || b.RenderPendingCount() != 0 {
		t.Fatal("expected empty bookkeeping")
	}
}

func TestCreateInputProcessCycle(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.HandleEvent(NewInput(0, []byte("ls\n"))); err != nil {
		t.Fatalf("input: %v", err)
	}
	mustConsistent(t, b)

	ev, err := b.StartProcessing()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ev.Kind != KindCreateTerminal {
		t.Fatalf("expected create first, got %v", ev.Kind)
	}
	if b.State() != Processing {
		t.Fatalf("expected processing, got %v", b.State())
	}
	if err := b.CompleteProcessing(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.TerminalState(0) != Active {
		t.Fatalf("expected active terminal, got %v", b.TerminalState(0))
	}

	ev, err = b.StartProcessing()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ev.Kind != KindInput || string(ev.Data) != "ls\n" {
		t.Fatalf("unexpected event %v %q", ev.Kind, ev.Data)
	}
	if b.State() != Processing {
		t.Fatalf("expected processing, got %v", b.State())
	}
	if err := b.CompleteProcessing(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.State() != Idle {
		t.Fatalf("expected idle, got %v", b.State())
	}
	mustConsistent(t, b)
}

func TestCallbackCycle(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.HandleEvent(NewInput(0, []byte("x"))); err != nil {
		t.Fatalf("input: %v", err)
	}
	drain(t, b)

	if _, err := b.HandleEvent(NewInput(0, []byte("y"))); err != nil {
		t.Fatalf("input: %v", err)
	}
	if _, err := b.StartProcessing(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.RegisterCallback(5, 0); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	if err := b.CompleteProcessing(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.State() != WaitingForCallback || b.CallbackCount() != 1 {
		t.Fatalf("expected waiting-for-callback with 1 callback, got %v/%d", b.State(), b.CallbackCount())
	}
	mustConsistent(t, b)

	if err := b.CompleteCallback(5); err != nil {
		t.Fatalf("complete callback: %v", err)
	}
	if b.State() != Idle || b.CallbackCount() != 0 {
		t.Fatalf("expected idle with 0 callbacks, got %v/%d", b.State(), b.CallbackCount())
	}
	mustConsistent(t, b)
}

func TestRenderCycle(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.HandleEvent(NewRender(0)); err != nil {
		t.Fatalf("render: %v", err)
	}

	if _, err := b.StartProcessing(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.CompleteProcessing(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	ev, err := b.StartProcessing()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ev.Kind != KindRender {
		t.Fatalf("expected render event, got %v", ev.Kind)
	}
	if err := b.CompleteProcessing(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.State() != Rendering || b.RenderPendingCount() != 1 {
		t.Fatalf("expected rendering with 1 pending, got %v/%d", b.State(), b.RenderPendingCount())
	}
	mustConsistent(t, b)

	if err := b.CompleteRender(0); err != nil {
		t.Fatalf("complete render: %v", err)
	}
	if b.State() != Idle {
		t.Fatalf("expected idle, got %v", b.State())
	}
	mustConsistent(t, b)
}

func TestRenderThenCallbackCascade(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.HandleEvent(NewInput(0, []byte("x"))); err != nil {
		t.Fatalf("input: %v", err)
	}
	drain(t, b)

	if _, err := b.HandleEvent(NewInput(0, []byte("y"))); err != nil {
		t.Fatalf("input: %v", err)
	}
	if _, err := b.StartProcessing(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.RequestRender(0); err != nil {
		t.Fatalf("request render: %v", err)
	}
	if err := b.RegisterCallback(7, 0); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	if err := b.CompleteProcessing(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.State() != Rendering {
		t.Fatalf("expected rendering to win over callback, got %v", b.State())
	}
	if err := b.CompleteRender(0); err != nil {
		t.Fatalf("complete render: %v", err)
	}
	if b.State() != WaitingForCallback {
		t.Fatalf("expected waiting-for-callback after render, got %v", b.State())
	}
	if err := b.CompleteCallback(7); err != nil {
		t.Fatalf("complete callback: %v", err)
	}
	if b.State() != Idle {
		t.Fatalf("expected idle, got %v", b.State())
	}
	mustConsistent(t, b)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()

	b := NewWithOptions(Options{MaxQueue: 4})
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := b.HandleEvent(NewInput(0, nil)); err != nil {
			t.Fatalf("input %d: %v", i, err)
		}
	}
	if _, err := b.HandleEvent(NewInput(0, nil)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	mustConsistent(t, b)
}

func TestCallbackTableSaturation(t *testing.T) {
	t.Parallel()

	b := NewWithOptions(Options{MaxCallbacks: 2})
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.HandleEvent(NewRequestCallback(0, 0)); err != nil {
		t.Fatalf("callback 0: %v", err)
	}
	if _, err := b.HandleEvent(NewRequestCallback(0, 1)); err != nil {
		t.Fatalf("callback 1: %v", err)
	}
	// With ids bounded below MaxCallbacks, a saturated table leaves only
	// duplicate or out-of-range ids to try.
	if _, err := b.HandleEvent(NewRequestCallback(0, 2)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := b.HandleEvent(NewRequestCallback(0, 0)); !errors.Is(err, ErrDuplicateCallback) {
		t.Fatalf("expected ErrDuplicateCallback, got %v", err)
	}
	mustConsistent(t, b)
}

func TestCallbackIDBeyondBoundRejected(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.HandleEvent(NewRequestCallback(0, CallbackID(1000000))); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for huge id, got %v", err)
	}
	if _, err := b.HandleEvent(NewRequestCallback(0, CallbackID(DefaultMaxCallbacks))); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState at the bound, got %v", err)
	}
	if _, err := b.HandleEvent(NewRequestCallback(0, CallbackID(DefaultMaxCallbacks-1))); err != nil {
		t.Fatalf("expected highest valid id to be accepted, got %v", err)
	}
	if b.CallbackCount() != 0 {
		t.Fatalf("rejected ids must not occupy the table, got %d", b.CallbackCount())
	}
	mustConsistent(t, b)
}

func TestRegisterCallbackBeyondBoundRejected(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.StartProcessing(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.RegisterCallback(CallbackID(DefaultMaxCallbacks), 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	mustConsistent(t, b)
}

func TestDestroyUnknownAndDisposed(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.DestroyTerminal(3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := b.DestroyTerminal(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for out-of-range id, got %v", err)
	}

	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.DestroyTerminal(0); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	drain(t, b)
	if b.TerminalState(0) != Disposed {
		t.Fatalf("expected disposed, got %v", b.TerminalState(0))
	}

	if err := b.DestroyTerminal(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if b.TerminalState(0) != Disposed {
		t.Fatal("failed destroy must not change terminal state")
	}
}

func TestDisposedIsMonotonic(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(1); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.DestroyTerminal(1); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	drain(t, b)

	if err := b.CreateTerminal(1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected recreate to fail, got %v", err)
	}
	if _, err := b.HandleEvent(NewInput(1, nil)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected input on disposed to fail, got %v", err)
	}
	for i := 0; i < 10; i++ {
		if b.TerminalState(1) != Disposed {
			t.Fatalf("terminal left disposed on query %d", i)
		}
	}
}

func TestDuplicateCreateRejected(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.CreateTerminal(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected queued duplicate create to fail, got %v", err)
	}
	drain(t, b)
	if err := b.CreateTerminal(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected create on active terminal to fail, got %v", err)
	}
}

func TestInputRequiresKnownTerminal(t *testing.T) {
	t.Parallel()

	b := New()
	if _, err := b.HandleEvent(NewInput(0, []byte("x"))); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before create, got %v", err)
	}
}

func TestDuplicateEventID(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	ev := NewInput(0, nil)
	ev.ID = 42
	if _, err := b.HandleEvent(ev); err != nil {
		t.Fatalf("input: %v", err)
	}
	if _, err := b.HandleEvent(ev); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	// Drain, then replaying the same id must still be rejected.
	drain(t, b)
	if _, err := b.HandleEvent(ev); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent after processing, got %v", err)
	}
}

func TestFIFOOrder(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	payloads := []string{"a", "b", "c", "d"}
	for _, p := range payloads {
		if _, err := b.HandleEvent(NewInput(0, []byte(p))); err != nil {
			t.Fatalf("input %q: %v", p, err)
		}
	}

	var got []string
	for b.PendingCount() > 0 {
		ev, err := b.StartProcessing()
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if ev.Kind == KindInput {
			got = append(got, string(ev.Data))
		}
		if err := b.CompleteProcessing(); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	if len(got) != len(payloads) {
		t.Fatalf("expected %d inputs, got %d", len(payloads), len(got))
	}
	for i, p := range payloads {
		if got[i] != p {
			t.Fatalf("order violated at %d: expected %q, got %q", i, p, got[i])
		}
	}
}

func TestStartProcessingErrors(t *testing.T) {
	t.Parallel()

	b := New()
	if _, err := b.StartProcessing(); !errors.Is(err, ErrNoEventPending) {
		t.Fatalf("expected ErrNoEventPending, got %v", err)
	}
	if err := b.CompleteProcessing(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := b.CompleteRender(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := b.CompleteCallback(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := b.RequestRender(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState outside processing, got %v", err)
	}

	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.StartProcessing(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := b.StartProcessing(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState while processing, got %v", err)
	}
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	b := New()
	for id := TerminalID(0); id < 3; id++ {
		if err := b.CreateTerminal(id); err != nil {
			t.Fatalf("create %d: %v", id, err)
		}
	}
	drain(t, b)

	if _, err := b.HandleEvent(NewShutdown()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := b.HandleEvent(NewInput(0, []byte("late"))); err != nil {
		t.Fatalf("input before shutdown processed: %v", err)
	}

	ev, err := b.StartProcessing()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ev.Kind != KindShutdown {
		t.Fatalf("expected shutdown event, got %v", ev.Kind)
	}
	if b.State() != ShuttingDown {
		t.Fatalf("expected shutting-down, got %v", b.State())
	}
	if b.PendingCount() != 0 {
		t.Fatalf("expected drained queue, got %d pending", b.PendingCount())
	}
	for id := TerminalID(0); id < 3; id++ {
		if b.TerminalState(id) != Disposed {
			t.Fatalf("terminal %d not disposed", id)
		}
	}
	mustConsistent(t, b)

	if _, err := b.HandleEvent(NewInput(0, nil)); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
	if err := b.CreateTerminal(9); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown for create, got %v", err)
	}
}

func TestQueueWrapsAround(t *testing.T) {
	t.Parallel()

	b := NewWithOptions(Options{MaxQueue: 4})
	if err := b.CreateTerminal(0); err != nil {
		t.Fatalf("create: %v", err)
	}
	drain(t, b)

	// Cycle enough events through a tiny queue to wrap the ring twice.
	for i := 0; i < 10; i++ {
		if _, err := b.HandleEvent(NewInput(0, []byte{byte('0' + i)})); err != nil {
			t.Fatalf("input %d: %v", i, err)
		}
		ev, err := b.StartProcessing()
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if string(ev.Data) != string(byte('0'+i)) {
			t.Fatalf("expected payload %q, got %q", byte('0'+i), ev.Data)
		}
		if err := b.CompleteProcessing(); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
		mustConsistent(t, b)
	}
}

// TestRandomOpsPreserveInvariants drives the full public API with random
// operations and asserts IsConsistent after every call. Errors are legal;
// inconsistency is not.
func TestRandomOpsPreserveInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	b := NewWithOptions(Options{MaxQueue: 32, MaxCallbacks: 8, MaxTerminals: 8})

	for i := 0; i < 5000; i++ {
		id := TerminalID(rng.Intn(10) - 1)
		cb := CallbackID(rng.Intn(12))
		switch rng.Intn(12) {
		case 0:
			b.CreateTerminal(id)
		case 1:
			b.DestroyTerminal(id)
		case 2:
			b.HandleEvent(NewInput(id, []byte("x")))
		case 3:
			b.HandleEvent(NewResize(id, uint16(rng.Intn(200)), uint16(rng.Intn(200))))
		case 4:
			b.HandleEvent(NewRender(id))
		case 5:
			b.HandleEvent(NewRequestCallback(id, cb))
		case 6, 7, 8:
			b.StartProcessing()
		case 9:
			b.CompleteProcessing()
		case 10:
			b.CompleteRender(id)
		case 11:
			b.CompleteCallback(cb)
		}
		mustConsistent(t, b)
		if b.State() == ShuttingDown {
			return
		}
	}
}
