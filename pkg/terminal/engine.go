package terminal

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/JimmyDurandWesolowski/pycom/pkg/completion"
	"github.com/JimmyDurandWesolowski/pycom/pkg/config"
	"github.com/JimmyDurandWesolowski/pycom/pkg/history"
	"github.com/JimmyDurandWesolowski/pycom/pkg/layout"
	"github.com/JimmyDurandWesolowski/pycom/pkg/pane"
	"github.com/JimmyDurandWesolowski/pycom/pkg/serialio"
)

// RedrawInterval is the screen refresh period.
const RedrawInterval = 50 * time.Millisecond

// shutdownTimeout bounds the wait for workers when stopping.
const shutdownTimeout = 2 * time.Second

// Options carries the injectable collaborators of an Engine. Zero
// values select the real screen and the real serial device.
type Options struct {
	Screen     tcell.Screen
	Port       serialio.Port
	InputFiles []string
}

// Engine owns the interactive session: screen, panes, history, the
// serial reader and the rate limited transmitter.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	screen  tcell.Screen
	manager *pane.Manager
	command *pane.Pane
	serial  *pane.Pane
	info    *pane.Pane

	editor *Editor
	router *Router
	hist   *history.Store
	dict   *completion.Dictionary

	port serialio.Port
	tx   *serialio.Transmitter
	rx   *serialio.Reader

	inputFiles []string
	lineNo     int

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New builds an engine from a validated configuration. The screen is
// not initialized and the port is not opened until Run.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Engine {
	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		screen:     opts.Screen,
		port:       opts.Port,
		inputFiles: opts.InputFiles,
		editor:     NewEditor(),
		hist:       history.NewStore(),
	}
	if e.port == nil {
		e.port = serialio.NewDevicePort()
	}
	return e
}

// Run starts the session and blocks until the user quits, the context
// is canceled or startup fails.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.runCtx = ctx
	e.cancel = cancel
	defer cancel()

	if err := e.initScreen(); err != nil {
		return err
	}
	defer e.screen.Fini()

	if err := e.initPanes(); err != nil {
		return err
	}
	e.initRouter()
	e.loadHistory()
	defer e.hist.Close()
	e.loadCompletion()

	if !e.port.IsOpen() {
		if err := e.port.Open(e.cfg.Serial); err != nil {
			return fmt.Errorf("failed to open serial port %s: %w", e.cfg.Serial.Port, err)
		}
	}
	defer e.port.Close()

	if e.cfg.Serial.RateLimit > 0 && e.cfg.Serial.Interval() == 0 {
		e.logger.Warn("rate limit exceeds baud rate, pacing disabled",
			"ratelimit", e.cfg.Serial.RateLimit, "baudrate", e.cfg.Serial.BaudRate)
		e.inform("rate limit exceeds baud rate, pacing disabled")
	}
	e.tx = serialio.NewTransmitter(e.port, e.cfg.Serial.Interval(),
		serialio.DefaultQueueCapacity, e.logger, func(err error) {
			e.inform("transmit error: " + err.Error())
		})
	e.rx = serialio.NewReader(e.port, e.serial, serialio.DefaultRetryConfig(),
		e.logger, e.inform)
	e.tx.Start(ctx)
	e.rx.Start(ctx)

	e.replayInputFiles(ctx)
	e.syncEdit()

	err := e.eventLoop(ctx)

	cancel()
	e.stopWorkers()
	return err
}

// Stop requests shutdown from another goroutine. Run returns once the
// workers have stopped.
func (e *Engine) Stop() {
	e.once.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		if e.screen != nil {
			e.screen.PostEvent(tcell.NewEventInterrupt(nil))
		}
	})
}

func (e *Engine) initScreen() error {
	if e.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		e.screen = screen
	}
	if err := e.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	style := tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset)
	e.screen.SetStyle(style)
	e.screen.Clear()
	return nil
}

func (e *Engine) initPanes() error {
	cols, lines := e.screen.Size()
	dims := layout.ScreenDimensions{Lines: lines, Cols: cols}

	manager, err := pane.NewManager(e.cfg.Interface, dims)
	if err != nil {
		return fmt.Errorf("failed to lay out panes: %w", err)
	}
	e.manager = manager
	manager.SetColors(e.cfg.Colors)
	for _, p := range manager.Panes() {
		p.SetScrollback(e.cfg.Scrollback)
	}

	e.serial = manager.Pane(config.PaneSerial)
	e.info = manager.Pane(config.PaneError)
	for _, p := range manager.Panes() {
		if p.Spec().Prompt {
			e.command = p
			break
		}
	}
	if e.command == nil {
		return fmt.Errorf("no pane accepts a prompt")
	}
	return nil
}

func (e *Engine) initRouter() {
	e.router = NewRouter(e.editor, e.hist,
		e.submit,
		e.inform,
		func(lines []string, sel int) { e.command.SetOverlay(lines, sel) },
		func() { e.command.ClearOverlay() },
	)
}

func (e *Engine) loadHistory() {
	if !e.cfg.HistorySave {
		return
	}
	path := history.DefaultPath(e.cfg.Project)
	if err := e.hist.Load(path); err != nil {
		e.logger.Warn("history load failed", "path", path, "error", err)
		e.inform("history unavailable: " + err.Error())
	}
	e.lineNo = e.hist.Len()
}

// loadCompletion reads the project completion dictionary. Completion
// itself has no interaction yet; an unavailable dictionary is only
// reported once.
func (e *Engine) loadCompletion() {
	dict, err := completion.Load(completion.DefaultPath(), e.cfg.Project)
	if err != nil {
		e.logger.Info("completion disabled", "project", e.cfg.Project, "error", err)
		e.inform("completion disabled: " + err.Error())
		return
	}
	e.dict = dict
	e.logger.Debug("completion dictionary loaded",
		"project", e.cfg.Project, "commands", len(dict.Entries(nil)))
}

// replayInputFiles pushes every line of the given files through the
// regular submit path, in argument order, before interactive input.
func (e *Engine) replayInputFiles(ctx context.Context) {
	for _, path := range e.inputFiles {
		if ctx.Err() != nil {
			return
		}
		f, err := os.Open(path)
		if err != nil {
			e.logger.Warn("input file skipped", "path", path, "error", err)
			e.inform("input file skipped: " + err.Error())
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}
			e.submit(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			e.inform("input file read error: " + err.Error())
		}
		f.Close()
	}
}

// submit sends one finished command line: append to the history, queue
// for transmission with the configured terminator, advance the prompt.
// When the transmit queue is full the call blocks until room frees up.
// Enqueue fails only once the engine is shutting down.
func (e *Engine) submit(line string) {
	line = strings.TrimSpace(line)
	if err := e.hist.Append(line); err != nil {
		e.logger.Warn("history append failed", "error", err)
		e.inform("history not saved: " + err.Error())
	}
	if line == "" {
		return
	}
	data := []byte(line + e.cfg.Serial.LineTerminator())
	if err := e.tx.Enqueue(e.runCtx, data); err != nil {
		e.logger.Warn("transmit abandoned", "error", err)
		return
	}
	e.lineNo++
	e.command.Append(fmt.Sprintf(pane.PromptFormat, e.lineNo) + line)
}

// inform appends a one line message to the information pane, falling
// back to the log when the layout has none.
func (e *Engine) inform(msg string) {
	if e.info != nil {
		e.info.Append(msg)
		return
	}
	e.logger.Warn(msg)
}

// syncEdit pushes the editor state into the command pane so the next
// redraw shows the prompt, the line and the cursor.
func (e *Engine) syncEdit() {
	e.command.SetEditPrompt(fmt.Sprintf(pane.PromptFormat, e.lineNo+1))
	e.command.SetEdit(e.editor.Text(), e.editor.Pos())
}

func (e *Engine) eventLoop(ctx context.Context) error {
	events := make(chan tcell.Event, 8)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			ev := e.screen.PollEvent()
			if ev == nil || ctx.Err() != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(RedrawInterval)
	defer ticker.Stop()

	e.manager.Redraw(e.screen)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.manager.Redraw(e.screen)
		case ev := <-events:
			switch tev := ev.(type) {
			case *tcell.EventKey:
				if tev.Key() == tcell.KeyCtrlD || tev.Key() == tcell.KeyCtrlC {
					return nil
				}
				e.router.HandleKey(tev)
				e.syncEdit()
			case *tcell.EventResize:
				e.handleResize()
			case *tcell.EventInterrupt:
				return nil
			}
		}
	}
}

// handleResize recomputes the layout for the new screen size. When the
// geometry no longer fits, the old layout stays and the failure is
// reported to the information pane.
func (e *Engine) handleResize() {
	cols, lines := e.screen.Size()
	dims := layout.ScreenDimensions{Lines: lines, Cols: cols}
	if err := e.manager.Resize(dims); err != nil {
		e.logger.Warn("resize rejected", "lines", lines, "cols", cols, "error", err)
		e.inform("resize failed: " + err.Error())
		return
	}
	e.screen.Clear()
	e.manager.Redraw(e.screen)
}

// stopWorkers joins the reader, the transmitter and the event pump,
// giving up after a bounded wait.
func (e *Engine) stopWorkers() {
	// Unblock PollEvent so the pump goroutine can exit.
	e.screen.PostEvent(tcell.NewEventInterrupt(nil))

	done := make(chan struct{})
	go func() {
		e.tx.Wait()
		e.rx.Wait()
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		e.logger.Warn("workers did not stop in time")
	}
}
