package pane

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/JimmyDurandWesolowski/pycom/pkg/layout"
)

// Manager owns the full set of panes, recomputes their rectangles on resize
// and composites them into a single redraw pass.
type Manager struct {
	panes []*Pane
	dims  layout.ScreenDimensions
}

// NewManager builds the panes for the given specs and resolves their initial
// layout. A spec set that does not fit the initial dimensions is a startup
// failure.
func NewManager(specs []layout.PaneSpec, dims layout.ScreenDimensions) (*Manager, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no panes configured")
	}
	rects, err := layout.ResolveAll(specs, dims)
	if err != nil {
		return nil, err
	}
	m := &Manager{dims: dims}
	for i, spec := range specs {
		p := New(spec)
		p.setRect(rects[i])
		m.panes = append(m.panes, p)
	}
	return m, nil
}

// SetColors toggles colored rendering on every pane.
func (m *Manager) SetColors(enabled bool) {
	for _, p := range m.panes {
		p.SetColors(enabled)
	}
}

// Pane returns the pane with the given name, or nil.
func (m *Manager) Pane(name string) *Pane {
	for _, p := range m.panes {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Panes returns all managed panes.
func (m *Manager) Panes() []*Pane { return m.panes }

// Dimensions returns the screen size of the current valid layout.
func (m *Manager) Dimensions() layout.ScreenDimensions { return m.dims }

// Resize revalidates every pane against the new dimensions. On success all
// rectangles are replaced at once; on failure the previous layout stays in
// place and the error is returned for reporting.
func (m *Manager) Resize(dims layout.ScreenDimensions) error {
	specs := make([]layout.PaneSpec, len(m.panes))
	for i, p := range m.panes {
		specs[i] = p.Spec()
	}
	rects, err := layout.ResolveAll(specs, dims)
	if err != nil {
		return err
	}
	for i, p := range m.panes {
		p.setRect(rects[i])
	}
	m.dims = dims
	return nil
}

// Redraw renders every pane and shows the result in one composited pass.
// The cursor is placed on the last pane that reports one.
func (m *Manager) Redraw(screen tcell.Screen) {
	showCursor := false
	var cx, cy int
	for _, p := range m.panes {
		if x, y, ok := p.Render(screen); ok {
			cx, cy, showCursor = x, y, true
		}
	}
	if showCursor {
		screen.ShowCursor(cx, cy)
	} else {
		screen.HideCursor()
	}
	screen.Show()
}
