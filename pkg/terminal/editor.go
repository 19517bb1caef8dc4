// Package terminal drives the interactive session: it owns the screen,
// routes key events by input mode and connects the command pane to the
// serial transmit path.
package terminal

// Editor is a single line editor with a movable cursor. Positions are
// rune indices, not byte offsets.
type Editor struct {
	runes []rune
	pos   int
}

// NewEditor returns an empty editor.
func NewEditor() *Editor {
	return &Editor{}
}

// Insert places r at the cursor and advances the cursor past it.
func (e *Editor) Insert(r rune) {
	e.runes = append(e.runes, 0)
	copy(e.runes[e.pos+1:], e.runes[e.pos:])
	e.runes[e.pos] = r
	e.pos++
}

// Backspace removes the rune before the cursor. At the line start it
// does nothing.
func (e *Editor) Backspace() {
	if e.pos == 0 {
		return
	}
	e.runes = append(e.runes[:e.pos-1], e.runes[e.pos:]...)
	e.pos--
}

// Delete removes the rune under the cursor. At the line end it does
// nothing.
func (e *Editor) Delete() {
	if e.pos >= len(e.runes) {
		return
	}
	e.runes = append(e.runes[:e.pos], e.runes[e.pos+1:]...)
}

// Left moves the cursor one rune left, stopping at the line start.
func (e *Editor) Left() {
	if e.pos > 0 {
		e.pos--
	}
}

// Right moves the cursor one rune right, stopping past the last rune.
func (e *Editor) Right() {
	if e.pos < len(e.runes) {
		e.pos++
	}
}

// Home moves the cursor to the line start.
func (e *Editor) Home() { e.pos = 0 }

// End moves the cursor past the last rune.
func (e *Editor) End() { e.pos = len(e.runes) }

// Set replaces the line content and parks the cursor at the end.
func (e *Editor) Set(text string) {
	e.runes = []rune(text)
	e.pos = len(e.runes)
}

// Clear empties the line and resets the cursor.
func (e *Editor) Clear() {
	e.runes = e.runes[:0]
	e.pos = 0
}

// Text returns the current line content.
func (e *Editor) Text() string { return string(e.runes) }

// Pos returns the cursor position as a rune index in [0, Len].
func (e *Editor) Pos() int { return e.pos }

// Len returns the number of runes in the line.
func (e *Editor) Len() int { return len(e.runes) }
