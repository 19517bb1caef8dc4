// Package pane implements the rectangular, titled viewports composing the
// terminal interface, and the manager that lays them out and redraws them.
package pane

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/JimmyDurandWesolowski/pycom/pkg/layout"
)

// DefaultScrollback is the scrollback cap used when the caller does not
// configure one.
const DefaultScrollback = 1000

// PromptFormat is the prompt prefix of numbered command lines.
const PromptFormat = "line %5d: "

// Pane is a rectangular viewport with its own bounded scrollback. Each pane
// has exactly one producer (serial reader, input router or error reporter);
// the redraw loop is the only reader. All accessors are safe for that
// single-writer/single-reader pairing.
type Pane struct {
	mu sync.Mutex

	spec layout.PaneSpec
	rect layout.Rect

	lines   []string // committed scrollback, oldest first
	partial string   // trailing line still being received
	maxbuf  int
	colors  bool

	// Live edit line of a prompt pane, rendered below the scrollback.
	editLine   string
	editPos    int
	editPrompt string

	// Transient full-pane content (history selection view). When set it
	// replaces the scrollback until cleared.
	overlay    []string
	overlaySel int
	hasOverlay bool
}

// New creates a pane for the given spec with the default scrollback cap.
// The rectangle is assigned later by the manager.
func New(spec layout.PaneSpec) *Pane {
	return &Pane{spec: spec, maxbuf: DefaultScrollback}
}

// Name returns the configured pane name.
func (p *Pane) Name() string { return p.spec.Name }

// Spec returns the immutable pane specification.
func (p *Pane) Spec() layout.PaneSpec { return p.spec }

// Rect returns the currently resolved rectangle.
func (p *Pane) Rect() layout.Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rect
}

// SetScrollback changes the scrollback cap, evicting the oldest lines if the
// buffer already exceeds it.
func (p *Pane) SetScrollback(max int) {
	if max <= 0 {
		max = DefaultScrollback
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxbuf = max
	p.evict()
}

// SetColors toggles colored rendering. Off, everything draws in the
// terminal default colors with attributes only.
func (p *Pane) SetColors(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.colors = enabled
}

func (p *Pane) setRect(rect layout.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rect = rect
}

// Append commits one line to the scrollback.
func (p *Pane) Append(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
	p.evict()
}

// AppendText feeds decoded text into the pane, committing a line on every
// newline and keeping the remainder as the partial trailing line. Carriage
// returns are stripped.
func (p *Pane) AppendText(text string) {
	text = strings.ReplaceAll(text, "\r", "")
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			p.partial += text
			return
		}
		p.lines = append(p.lines, p.partial+text[:idx])
		p.partial = ""
		p.evict()
		text = text[idx+1:]
	}
}

// Lines returns a copy of the committed scrollback.
func (p *Pane) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.lines))
	copy(out, p.lines)
	return out
}

// LineCount returns the number of committed scrollback lines.
func (p *Pane) LineCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lines)
}

// Clear drops the scrollback and the partial line.
func (p *Pane) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = nil
	p.partial = ""
}

// SetEdit updates the live edit line of a prompt pane. pos is the cursor
// offset in runes within line.
func (p *Pane) SetEdit(line string, pos int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editLine = line
	p.editPos = pos
}

// SetEditPrompt overrides the prompt prefix shown before the edit line.
func (p *Pane) SetEditPrompt(prompt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editPrompt = prompt
}

// SetOverlay replaces the rendered content with the given lines until
// ClearOverlay, highlighting the line at sel. Used for the history
// selection view.
func (p *Pane) SetOverlay(lines []string, sel int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = lines
	p.overlaySel = sel
	p.hasOverlay = true
}

// ClearOverlay restores normal scrollback rendering.
func (p *Pane) ClearOverlay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = nil
	p.hasOverlay = false
}

func (p *Pane) evict() {
	if excess := len(p.lines) - p.maxbuf; excess > 0 {
		p.lines = append(p.lines[:0], p.lines[excess:]...)
	}
}

// Render draws the pane into its rectangle: bold title on the top row, then
// the newest visible content filling the remaining rows. It returns the
// cursor position for prompt panes, or ok=false when no cursor applies.
func (p *Pane) Render(screen tcell.Screen) (cursorX, cursorY int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rect := p.rect
	if rect.Height <= 0 || rect.Width <= 0 {
		return 0, 0, false
	}

	row := rect.Top
	quota := rect.Height
	if p.spec.Title != "" {
		titleStyle := tcell.StyleDefault.Bold(true)
		if p.colors {
			titleStyle = titleStyle.Foreground(tcell.ColorYellow)
		}
		drawString(screen, rect.Left, row, rect.Width,
			runewidth.Truncate(p.spec.Title, rect.Width, ""),
			titleStyle)
		row++
		quota--
	}

	if p.hasOverlay {
		p.renderOverlay(screen, rect, row, quota)
		return 0, 0, false
	}

	type renderRow struct {
		text  string
		style tcell.Style
	}
	var rows []renderRow

	visible := p.lines
	if p.partial != "" {
		visible = append(append([]string{}, p.lines...), p.partial)
	}
	for _, line := range visible {
		for _, chunk := range wrap(line, rect.Width) {
			rows = append(rows, renderRow{text: chunk, style: tcell.StyleDefault})
		}
	}

	cursorOffset := -1
	if p.spec.Prompt {
		prompt := p.editPrompt
		full := prompt + p.editLine
		chunks := wrap(full, rect.Width)
		offset := -1
		if p.spec.Cursor {
			offset = cellOffset(full, len([]rune(prompt))+p.editPos)
			// A cursor at the end of an exactly full row sits on the
			// next row, which wrap does not emit.
			if offset/rect.Width >= len(chunks) {
				chunks = append(chunks, "")
			}
		}
		start := len(rows)
		for _, chunk := range chunks {
			rows = append(rows, renderRow{text: chunk, style: tcell.StyleDefault})
		}
		if p.spec.Cursor {
			cursorX = rect.Left + offset%rect.Width
			cursorOffset = start + offset/rect.Width
		}
	}

	start := 0
	if len(rows) > quota {
		start = len(rows) - quota
	}
	for i := start; i < len(rows); i++ {
		drawString(screen, rect.Left, row, rect.Width, rows[i].text, rows[i].style)
		row++
	}
	for ; row < rect.Top+rect.Height; row++ {
		drawString(screen, rect.Left, row, rect.Width, "", tcell.StyleDefault)
	}

	if cursorOffset >= start {
		titleRows := rect.Height - quota
		cursorY = rect.Top + titleRows + (cursorOffset - start)
		return cursorX, cursorY, true
	}
	return 0, 0, false
}

func (p *Pane) renderOverlay(screen tcell.Screen, rect layout.Rect, row, quota int) {
	start := 0
	if len(p.overlay) > quota {
		// Keep the selection visible, preferring the tail of the list.
		start = len(p.overlay) - quota
		if p.overlaySel < start {
			start = p.overlaySel
		}
	}
	for i := start; i < len(p.overlay) && quota > 0; i++ {
		style := tcell.StyleDefault
		if i == p.overlaySel {
			style = style.Reverse(true)
		}
		drawString(screen, rect.Left, row, rect.Width, p.overlay[i], style)
		row++
		quota--
	}
	for ; row < rect.Top+rect.Height; row++ {
		drawString(screen, rect.Left, row, rect.Width, "", tcell.StyleDefault)
	}
}

// drawString writes one row of text, padding the remainder of the width
// with spaces so stale cells never survive a redraw.
func drawString(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > width {
			break
		}
		screen.SetContent(x+col, y, r, nil, style)
		col += w
	}
	for ; col < width; col++ {
		screen.SetContent(x+col, y, ' ', nil, style)
	}
}

// wrap splits text into display rows of at most width cells. An empty text
// still occupies one row.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	if text == "" {
		return []string{""}
	}
	var chunks []string
	var b strings.Builder
	col := 0
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if col+w > width {
			chunks = append(chunks, b.String())
			b.Reset()
			col = 0
		}
		b.WriteRune(r)
		col += w
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// cellOffset converts a rune index within text to a display cell offset.
func cellOffset(text string, runeIdx int) int {
	offset := 0
	for i, r := range []rune(text) {
		if i >= runeIdx {
			break
		}
		offset += runewidth.RuneWidth(r)
	}
	return offset
}
