package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/JimmyDurandWesolowski/pycom/pkg/history"
)

// Mode identifies the input mode of the command pane.
type Mode int

const (
	// ModeNormal is plain line editing.
	ModeNormal Mode = iota
	// ModeHistory browses past commands with up/down.
	ModeHistory
	// ModeEscape would handle escape sequences. Not implemented.
	ModeEscape
	// ModeCompletion would complete the current word. Not implemented.
	ModeCompletion
	// ModeSearch would search the history. Not implemented.
	ModeSearch
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeHistory:
		return "history"
	case ModeEscape:
		return "escape"
	case ModeCompletion:
		return "completion"
	case ModeSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Router dispatches key events to the line editor according to the
// current input mode. It never touches the screen directly; the engine
// observes the editor, history and overlay callbacks.
type Router struct {
	mode    Mode
	editor  *Editor
	hist    *history.Store
	submit  func(line string)
	inform  func(msg string)
	overlay func(lines []string, sel int)
	closeOv func()
}

// NewRouter wires a router to its editor and history store. submit is
// called with the finished line on enter, inform receives one line
// messages for the information pane, overlay and closeOverlay control
// the history browsing view on the command pane.
func NewRouter(editor *Editor, hist *history.Store, submit func(string), inform func(string), overlay func([]string, int), closeOverlay func()) *Router {
	return &Router{
		mode:    ModeNormal,
		editor:  editor,
		hist:    hist,
		submit:  submit,
		inform:  inform,
		overlay: overlay,
		closeOv: closeOverlay,
	}
}

// Mode returns the current input mode.
func (r *Router) Mode() Mode { return r.mode }

// HandleKey routes one key event. Quit keys are filtered out by the
// caller before routing.
func (r *Router) HandleKey(ev *tcell.EventKey) {
	switch r.mode {
	case ModeHistory:
		r.handleHistoryKey(ev)
	default:
		r.handleNormalKey(ev)
	}
}

func (r *Router) handleNormalKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		r.editor.Insert(ev.Rune())
	case tcell.KeyEnter:
		r.finish()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		r.editor.Backspace()
	case tcell.KeyDelete:
		r.editor.Delete()
	case tcell.KeyLeft:
		r.editor.Left()
	case tcell.KeyRight:
		r.editor.Right()
	case tcell.KeyHome, tcell.KeyCtrlA:
		r.editor.Home()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		r.editor.End()
	case tcell.KeyUp:
		r.enterHistory()
	case tcell.KeyDown:
		// Nothing below the blank line.
	case tcell.KeyEscape:
		r.inform("escape mode not implemented")
	case tcell.KeyTab:
		r.inform("completion mode not implemented")
	case tcell.KeyCtrlR:
		r.inform("search mode not implemented")
	default:
		r.inform("key not implemented: " + ev.Name())
	}
}

// enterHistory switches to history mode on the most recent entry. With
// an empty history it stays in normal mode.
func (r *Router) enterHistory() {
	text, ok := r.hist.Recall(history.Prev)
	if !ok {
		return
	}
	r.mode = ModeHistory
	r.editor.Set(text)
	r.overlay(r.hist.Texts(), r.hist.Pos())
}

func (r *Router) handleHistoryKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyUp:
		if text, ok := r.hist.Recall(history.Prev); ok {
			r.editor.Set(text)
			r.overlay(r.hist.Texts(), r.hist.Pos())
		}
	case tcell.KeyDown:
		text, ok := r.hist.Recall(history.Next)
		if !ok {
			// Stepped past the newest entry: back to a blank line.
			r.leaveHistory()
			r.editor.Clear()
			return
		}
		r.editor.Set(text)
		r.overlay(r.hist.Texts(), r.hist.Pos())
	case tcell.KeyEnter:
		r.leaveHistory()
		r.finish()
	case tcell.KeyRune:
		r.leaveHistory()
		r.editor.Insert(ev.Rune())
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		r.leaveHistory()
		r.editor.Backspace()
	case tcell.KeyEscape:
		r.leaveHistory()
		r.editor.Clear()
	default:
		r.leaveHistory()
		r.handleNormalKey(ev)
	}
}

func (r *Router) leaveHistory() {
	r.mode = ModeNormal
	r.closeOv()
}

// finish hands the current line to the submit callback and resets the
// editor and the history cursor.
func (r *Router) finish() {
	line := r.editor.Text()
	r.editor.Clear()
	r.hist.Reset()
	r.submit(line)
}
