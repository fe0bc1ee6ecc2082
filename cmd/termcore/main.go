// Command termcore runs a shell inside a minimal terminal front-end. It is
// the reference wiring for the engine: PTY output flows through the VT
// parser into a cell grid, the UI bridge serializes platform events, and
// the frame sync paces every redraw.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"

	"termcore/internal/bridge"
	"termcore/internal/config"
	"termcore/internal/event"
	"termcore/internal/framesync"
	"termcore/internal/logging"
	"termcore/internal/metrics"
	"termcore/internal/session"
)

const terminal = bridge.TerminalID(0)

func main() {
	configPath := flag.String("config", "", "path to a termcore YAML config")
	shellFlag := flag.String("shell", "", "shell to run (overrides config)")
	metricsPath := flag.String("metrics", "", "write Prometheus metrics to this file on exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "termcore:", err)
		os.Exit(1)
	}
	if *shellFlag != "" {
		cfg.Shell = *shellFlag
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	// The screen belongs to the UI, so log lines go to the ring buffer
	// only; -metrics gives a way to inspect counters afterwards.
	logger := logging.NewLoggerWithOutput(logging.NewBuffer(logging.DefaultBufferSize), level, io.Discard)

	if *configPath != "" {
		watcher, err := config.Watch(*configPath, 0, logger, func(next config.Config) {
			if lvl, ok := logging.ParseLevel(next.LogLevel); ok {
				logger.SetMinLevel(lvl)
			}
		})
		if err != nil {
			logger.Warn("config watch unavailable", map[string]string{"error": err.Error()})
		} else {
			defer watcher.Close()
		}
	}

	code := 0
	if err := run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, "termcore:", err)
		code = 1
	}

	if *metricsPath != "" {
		if err := dumpMetrics(*metricsPath); err != nil {
			fmt.Fprintln(os.Stderr, "termcore:", err)
			code = 1
		}
	}
	os.Exit(code)
}

func dumpMetrics(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer file.Close()
	return metrics.Default.WritePrometheus(file)
}

type app struct {
	cfg    config.Config
	logger *logging.Logger

	screen tcell.Screen
	grid   *Grid
	ui     *bridge.UIBridge
	frames *framesync.FrameSync
	sess   *session.Session
}

func run(cfg config.Config, logger *logging.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()

	width, height := screen.Size()
	rows, cols := height-1, width
	if rows < 1 {
		rows = 1
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		screen: screen,
		grid:   NewGrid(rows, cols),
		ui: bridge.NewWithOptions(bridge.Options{
			MaxQueue:     cfg.QueueSize,
			MaxCallbacks: cfg.MaxCallbacks,
			MaxTerminals: cfg.MaxTerminals,
		}),
		frames: framesync.New(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := event.NewBus[event.Event](ctx, event.BusOptions{Name: "session"})

	sess, err := session.Start(session.Options{
		Shell:  cfg.Shell,
		Rows:   uint16(rows),
		Cols:   uint16(cols),
		Sink:   a.grid,
		Bus:    bus,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	a.sess = sess
	defer sess.Close()

	a.enqueue(bridge.NewCreateTerminal(terminal))
	a.drainBridge()

	sessionEvents, cancelSub := bus.Subscribe()
	defer cancelSub()

	screenEvents := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(screenEvents)
				return
			}
			screenEvents <- ev
		}
	}()

	a.renderFrame()

	for {
		select {
		case ev := <-sessionEvents:
			quit := a.handleSessionEvent(ev)
			a.drainBridge()
			if quit {
				return nil
			}
		case tev, ok := <-screenEvents:
			if !ok {
				return nil
			}
			quit := a.handleScreenEvent(tev)
			a.drainBridge()
			if quit {
				return nil
			}
		}
	}
}

func (a *app) handleSessionEvent(ev event.Event) (quit bool) {
	switch e := ev.(type) {
	case event.OutputEvent:
		a.enqueue(bridge.NewRender(terminal))
	case event.TitleEvent:
		a.grid.SetTitle(e.Title)
		a.enqueue(bridge.NewRender(terminal))
	case event.BellEvent:
		a.screen.Beep()
	case event.ExitEvent:
		a.logger.Info("shell exited", nil)
		return true
	}
	return false
}

func (a *app) handleScreenEvent(tev tcell.Event) (quit bool) {
	switch e := tev.(type) {
	case *tcell.EventKey:
		if e.Key() == tcell.KeyCtrlQ {
			a.shutdown()
			return true
		}
		if data := keyBytes(e); len(data) > 0 {
			a.enqueue(bridge.NewInput(terminal, data))
		}
	case *tcell.EventResize:
		width, height := e.Size()
		rows, cols := height-1, width
		if rows < 1 {
			rows = 1
		}
		a.grid.Resize(rows, cols)
		a.enqueue(bridge.NewResize(terminal, uint16(rows), uint16(cols)))
	}
	return false
}

// drainBridge runs processing cycles until the queue is empty, applying
// each event's side effects and completing any render the cycle left
// pending.
func (a *app) drainBridge() {
	for a.ui.State() == bridge.Idle && a.ui.PendingCount() > 0 {
		ev, err := a.ui.StartProcessing()
		if err != nil {
			a.logger.Error("start processing", map[string]string{"error": err.Error()})
			return
		}
		metrics.Default.IncEventsProcessed()
		if a.ui.State() == bridge.ShuttingDown {
			return
		}

		switch ev.Kind {
		case bridge.KindInput:
			if _, err := a.sess.Write(ev.Data); err != nil {
				a.logger.Warn("input dropped", map[string]string{"error": err.Error()})
			}
		case bridge.KindResize:
			if err := a.sess.Resize(ev.Rows, ev.Cols); err != nil {
				a.logger.Warn("resize failed", map[string]string{"error": err.Error()})
			}
		}

		if err := a.ui.CompleteProcessing(); err != nil {
			a.logger.Error("complete processing", map[string]string{"error": err.Error()})
			return
		}
		if a.ui.State() == bridge.Rendering {
			a.renderFrame()
			if err := a.ui.CompleteRender(terminal); err != nil {
				a.logger.Error("complete render", map[string]string{"error": err.Error()})
				return
			}
		}
	}
}

// renderFrame pairs a frame request with its completion: the producer
// side stands in for drawable acquisition and resolves from its own
// goroutine, the consumer side draws only when the frame arrives in time.
func (a *app) renderFrame() {
	req := a.frames.RequestFrame()
	go req.Complete()

	switch a.frames.WaitForFrame(a.cfg.FrameTimeout()) {
	case framesync.Ready:
		metrics.Default.IncFramesReady()
		if a.grid.Dirty() {
			a.screen.Clear()
		}
		a.grid.Draw(a.screen)
		a.screen.Show()
	case framesync.Timeout:
		metrics.Default.IncFramesTimeout()
	case framesync.Cancelled:
		metrics.Default.IncFramesCancelled()
	}
}

func (a *app) shutdown() {
	a.enqueue(bridge.NewShutdown())
	for a.ui.State() == bridge.Idle && a.ui.PendingCount() > 0 {
		if _, err := a.ui.StartProcessing(); err != nil {
			return
		}
		metrics.Default.IncEventsProcessed()
		if a.ui.State() == bridge.ShuttingDown {
			return
		}
		if err := a.ui.CompleteProcessing(); err != nil {
			return
		}
	}
}

func (a *app) enqueue(ev bridge.Event) {
	if _, err := a.ui.HandleEvent(ev); err != nil {
		metrics.Default.IncEventsRejected()
		a.logger.Debug("event rejected", map[string]string{
			"kind":  ev.Kind.String(),
			"error": err.Error(),
		})
		return
	}
	metrics.Default.IncEventsEnqueued()
}

func keyBytes(ev *tcell.EventKey) []byte {
	switch ev.Key() {
	case tcell.KeyRune:
		return []byte(string(ev.Rune()))
	case tcell.KeyEnter:
		return []byte{'\r'}
	case tcell.KeyTab:
		return []byte{'\t'}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return []byte{0x7F}
	case tcell.KeyEscape:
		return []byte{0x1B}
	case tcell.KeyUp:
		return []byte("\x1b[A")
	case tcell.KeyDown:
		return []byte("\x1b[B")
	case tcell.KeyRight:
		return []byte("\x1b[C")
	case tcell.KeyLeft:
		return []byte("\x1b[D")
	case tcell.KeyHome:
		return []byte("\x1b[H")
	case tcell.KeyEnd:
		return []byte("\x1b[F")
	case tcell.KeyDelete:
		return []byte("\x1b[3~")
	case tcell.KeyPgUp:
		return []byte("\x1b[5~")
	case tcell.KeyPgDn:
		return []byte("\x1b[6~")
	default:
		if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
			return []byte{byte(ev.Key())}
		}
	}
	return nil
}
