package input

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies a pointer or gesture event delivered by a host.
type Kind string

const (
	KindPress       Kind = "press"
	KindMove        Kind = "move"
	KindRelease     Kind = "release"
	KindCaptureLost Kind = "capturelost"
	KindWheel       Kind = "wheel"
	KindGesture     Kind = "gesture"
	KindScroll      Kind = "scroll"
)

// Button is a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b Button) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Button) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "left", "primary", "":
		*b = ButtonLeft
	case "middle", "auxiliary":
		*b = ButtonMiddle
	case "right", "secondary":
		*b = ButtonRight
	default:
		return fmt.Errorf("unknown button %q", string(text))
	}
	return nil
}

// UnmarshalJSON accepts either a name or a DOM-style button number
// (0 left, 1 middle, 2 right).
func (b *Button) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < int(ButtonLeft) || n > int(ButtonRight) {
			return fmt.Errorf("unknown button %d", n)
		}
		*b = Button(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("button: %w", err)
	}
	return b.UnmarshalText([]byte(s))
}

// Event is a host input sample. X and Y are viewport coordinates relative
// to the panel's top-left corner.
type Event struct {
	Kind   Kind    `json:"kind"`
	Button Button  `json:"button"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`

	// Wheel: signed delta, positive zooms in.
	Delta float64 `json:"delta,omitempty"`

	// Scroll gesture / gesture translation in viewport units.
	DeltaX float64 `json:"deltaX,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`

	// Gesture: scale factor of this step about (X, Y).
	Scale float64 `json:"scale,omitempty"`
}
