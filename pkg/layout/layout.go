// Package layout resolves declarative pane geometry into concrete screen
// rectangles.
package layout

import "fmt"

// ScreenDimensions holds the current terminal size in character cells.
type ScreenDimensions struct {
	Lines int
	Cols  int
}

// PaneSpec is the declarative geometry of one pane, loaded from the
// configuration and immutable afterwards. The geometry fields are
// expressions over the screen dimensions.
type PaneSpec struct {
	Name   string `mapstructure:"name"`
	Title  string `mapstructure:"title"`
	Lines  Expr   `mapstructure:"lines"`
	Cols   Expr   `mapstructure:"cols"`
	PosY   Expr   `mapstructure:"posy"`
	PosX   Expr   `mapstructure:"posx"`
	Cursor bool   `mapstructure:"cursor"`
	Prompt bool   `mapstructure:"prompt"`
}

// Rect is a resolved pane rectangle in character cells.
type Rect struct {
	Top    int
	Left   int
	Height int
	Width  int
}

// Error reports geometry that cannot be realized on the current screen.
// It is recoverable: callers keep the previous valid layout.
type Error struct {
	Pane   string
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("layout error for pane %q: %s", e.Pane, e.Reason)
}

// Resolve evaluates the geometry expressions of spec against dims and
// validates the result. The resolver does not reflow or clamp: geometry
// that does not fit yields an *Error and the caller decides what to keep.
func Resolve(spec PaneSpec, dims ScreenDimensions) (Rect, error) {
	if dims.Lines <= 0 || dims.Cols <= 0 {
		return Rect{}, &Error{Pane: spec.Name, Reason: fmt.Sprintf("screen too small (%dx%d)", dims.Lines, dims.Cols)}
	}

	fields := []struct {
		name string
		expr Expr
		dst  *int
	}{
		{"lines", spec.Lines, nil},
		{"cols", spec.Cols, nil},
		{"posy", spec.PosY, nil},
		{"posx", spec.PosX, nil},
	}
	var rect Rect
	fields[0].dst = &rect.Height
	fields[1].dst = &rect.Width
	fields[2].dst = &rect.Top
	fields[3].dst = &rect.Left

	for _, f := range fields {
		val, err := f.expr.Eval(dims)
		if err != nil {
			return Rect{}, &Error{Pane: spec.Name, Reason: fmt.Sprintf("%s: %v", f.name, err)}
		}
		*f.dst = val
	}

	if rect.Height <= 0 {
		return Rect{}, &Error{Pane: spec.Name, Reason: fmt.Sprintf("non-positive height %d", rect.Height)}
	}
	if rect.Width <= 0 {
		return Rect{}, &Error{Pane: spec.Name, Reason: fmt.Sprintf("non-positive width %d", rect.Width)}
	}
	if rect.Top < 0 || rect.Left < 0 {
		return Rect{}, &Error{Pane: spec.Name, Reason: fmt.Sprintf("negative origin %d,%d", rect.Top, rect.Left)}
	}
	if rect.Top+rect.Height > dims.Lines || rect.Left+rect.Width > dims.Cols {
		return Rect{}, &Error{
			Pane: spec.Name,
			Reason: fmt.Sprintf("%dx%d@%d,%d exceeds screen %dx%d",
				rect.Height, rect.Width, rect.Top, rect.Left, dims.Lines, dims.Cols),
		}
	}
	return rect, nil
}

// ResolveAll resolves every spec or fails on the first invalid one, leaving
// callers free to apply the result atomically.
func ResolveAll(specs []PaneSpec, dims ScreenDimensions) ([]Rect, error) {
	rects := make([]Rect, len(specs))
	for i, spec := range specs {
		rect, err := Resolve(spec, dims)
		if err != nil {
			return nil, err
		}
		rects[i] = rect
	}
	return rects, nil
}
