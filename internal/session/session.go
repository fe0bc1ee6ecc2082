// Package session owns one shell under a pseudo-terminal: it spawns the
// child, pumps PTY output through the VT parser into the caller's sink,
// and publishes title, bell, output, and exit notifications on the bus.
package session

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"termcore/internal/event"
	"termcore/internal/logging"
	"termcore/internal/metrics"
	"termcore/internal/vt"
)

var ErrSessionClosed = errors.New("session closed")

const readBufferSize = 4096

// Options configure a session. Shell is required; everything else has a
// usable default.
type Options struct {
	Shell string
	Args  []string

	Rows, Cols uint16

	// Sink receives the parsed terminal actions. Nil discards them.
	Sink vt.ActionSink

	// Bus receives session events. Nil disables publishing.
	Bus *event.Bus[event.Event]

	Logger   *logging.Logger
	Registry *metrics.Registry

	// Factory overrides the PTY implementation, mainly for tests.
	Factory PtyFactory
}

// Session is one live terminal. Its read loop runs until the child exits
// or Close is called.
type Session struct {
	id        string
	createdAt time.Time

	pty Pty
	cmd *exec.Cmd

	bus      *event.Bus[event.Event]
	logger   *logging.Logger
	registry *metrics.Registry

	mu         sync.Mutex
	rows, cols uint16
	closed     bool

	closing sync.Once
	done    chan struct{}
}

// Start spawns the shell and begins reading its output.
func Start(opts Options) (*Session, error) {
	if opts.Shell == "" {
		return nil, fmt.Errorf("session: no shell configured")
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	if opts.Factory == nil {
		opts.Factory = DefaultPtyFactory()
	}
	if opts.Registry == nil {
		opts.Registry = metrics.Default
	}

	p, cmd, err := opts.Factory.Start(opts.Shell, opts.Args, opts.Rows, opts.Cols)
	if err != nil {
		return nil, fmt.Errorf("session: start %s: %w", opts.Shell, err)
	}

	s := &Session{
		id:        uuid.NewString(),
		createdAt: time.Now().UTC(),
		pty:       p,
		cmd:       cmd,
		bus:       opts.Bus,
		registry:  opts.Registry,
		rows:      opts.Rows,
		cols:      opts.Cols,
		done:      make(chan struct{}),
	}
	s.logger = opts.Logger.With(map[string]string{"session": s.id})
	s.logger.Info("session started", map[string]string{
		"shell": opts.Shell,
		"rows":  fmt.Sprint(opts.Rows),
		"cols":  fmt.Sprint(opts.Cols),
	})

	sink := opts.Sink
	if sink == nil {
		sink = vt.NullSink{}
	}
	go s.readLoop(&dispatchSink{inner: sink, session: s})
	return s, nil
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Size returns the current PTY size.
func (s *Session) Size() (rows, cols uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// Done closes when the read loop has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// Write sends input bytes to the child.
func (s *Session) Write(data []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrSessionClosed
	}
	return s.pty.Write(data)
}

// Resize changes the PTY size and publishes the new geometry.
func (s *Session) Resize(rows, cols uint16) error {
	if rows == 0 || cols == 0 {
		return fmt.Errorf("session: invalid size %dx%d", rows, cols)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.rows, s.cols = rows, cols
	s.mu.Unlock()

	if err := s.pty.Resize(rows, cols); err != nil {
		return fmt.Errorf("session: resize: %w", err)
	}
	s.publish(event.ResizeEvent{
		SessionID: s.id,
		Rows:      rows,
		Cols:      cols,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Close tears the session down. It is idempotent; the first call closes
// the PTY, which unblocks the read loop.
func (s *Session) Close() error {
	var err error
	s.closing.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		err = s.pty.Close()
		if s.cmd != nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.logger.Info("session closed", nil)
	})
	return err
}

func (s *Session) readLoop(sink vt.ActionSink) {
	defer close(s.done)

	parser := vt.New()
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			s.registry.RecordSessionRead(s.id, n)
			s.registry.AddParserBytes(n)
			parser.Advance(buf[:n], sink)
			s.publishOutput(buf[:n])
		}
		if err != nil {
			s.finish(err)
			return
		}
	}
}

func (s *Session) finish(readErr error) {
	var exitErr error
	if s.cmd != nil {
		exitErr = s.cmd.Wait()
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		switch {
		case exitErr != nil:
			s.logger.Warn("session ended", map[string]string{"error": exitErr.Error()})
		case readErr != nil && !errors.Is(readErr, io.EOF):
			s.logger.Warn("session ended", map[string]string{"read_error": readErr.Error()})
		default:
			s.logger.Info("session ended", nil)
		}
	}

	s.publish(event.ExitEvent{
		SessionID: s.id,
		Err:       exitErr,
		Timestamp: time.Now().UTC(),
	})
	s.Close()
}

func (s *Session) publish(ev event.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Session) publishOutput(chunk []byte) {
	if s.bus == nil {
		return
	}
	data := make([]byte, len(chunk))
	copy(data, chunk)
	s.bus.Publish(event.OutputEvent{
		SessionID: s.id,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}
