package engine

import (
	"fmt"
	"strings"
)

// StretchMode selects how content is fitted into the panel.
type StretchMode int

const (
	// StretchNone leaves content at its natural size.
	StretchNone StretchMode = iota
	// StretchFill scales each axis independently to fill the panel.
	StretchFill
	// StretchUniform scales uniformly so content fits entirely inside the panel.
	StretchUniform
	// StretchUniformToFill scales uniformly so content covers the panel, cropping overflow.
	StretchUniformToFill
)

var stretchNames = [...]string{"none", "fill", "uniform", "uniformtofill"}

func (s StretchMode) String() string {
	if s < 0 || int(s) >= len(stretchNames) {
		return fmt.Sprintf("StretchMode(%d)", int(s))
	}
	return stretchNames[s]
}

// Next returns the following mode in the toggle cycle.
func (s StretchMode) Next() StretchMode {
	switch s {
	case StretchNone:
		return StretchFill
	case StretchFill:
		return StretchUniform
	case StretchUniform:
		return StretchUniformToFill
	default:
		return StretchNone
	}
}

// ParseStretchMode parses a case-insensitive mode name.
func ParseStretchMode(name string) (StretchMode, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "", "_", "").Replace(key)
	for i, n := range stretchNames {
		if n == key {
			return StretchMode(i), nil
		}
	}
	return StretchNone, fmt.Errorf("unknown stretch mode %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s StretchMode) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StretchMode) UnmarshalText(text []byte) error {
	mode, err := ParseStretchMode(string(text))
	if err != nil {
		return err
	}
	*s = mode
	return nil
}

// ComputeFit returns the transform that fits content into panel using mode.
// The scale is anchored at the content center. Degenerate extents yield the
// identity transform alongside an error wrapping ErrDegenerateSize, so a bad
// layout pass never leaks NaN or Inf into later compositions.
func ComputeFit(panel, content Size, mode StretchMode) (Matrix2D, error) {
	if mode == StretchNone {
		return Identity(), nil
	}
	if panel.IsDegenerate() || content.IsDegenerate() {
		return Identity(), fmt.Errorf("fit %v into %v: %w", content, panel, ErrDegenerateSize)
	}

	zx := panel.Width / content.Width
	zy := panel.Height / content.Height
	c := content.Center()

	switch mode {
	case StretchFill:
		return ScaleAt(zx, zy, c.X, c.Y), nil
	case StretchUniform:
		zoom := min(zx, zy)
		return ScaleAt(zoom, zoom, c.X, c.Y), nil
	case StretchUniformToFill:
		zoom := max(zx, zy)
		return ScaleAt(zoom, zoom, c.X, c.Y), nil
	default:
		return Identity(), fmt.Errorf("fit: unknown stretch mode %d", int(mode))
	}
}
