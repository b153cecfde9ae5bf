package engine

import "encoding/json"

// Operation tags the public call that produced a ChangeEvent.
type Operation string

const (
	OpZoomAbsolute Operation = "zoom.absolute"
	OpZoomRelative Operation = "zoom.relative"
	OpZoomWheel    Operation = "zoom.wheel"
	OpZoomIn       Operation = "zoom.in"
	OpZoomOut      Operation = "zoom.out"
	OpPan          Operation = "pan"
	OpPanDelta     Operation = "pan.delta"
	OpScroll       Operation = "scroll"
	OpGesture      Operation = "gesture"
	OpFit          Operation = "fit"
	OpAutoFit      Operation = "autofit"
	OpReset        Operation = "reset"
	OpRestore      Operation = "restore"
	OpConstraints  Operation = "constraints"
)

// ChangeEvent is the snapshot delivered to listeners after every commit.
type ChangeEvent struct {
	ZoomX           float64   `json:"zoomX"`
	ZoomY           float64   `json:"zoomY"`
	OffsetX         float64   `json:"offsetX"`
	OffsetY         float64   `json:"offsetY"`
	PreviousZoomX   float64   `json:"previousZoomX"`
	PreviousZoomY   float64   `json:"previousZoomY"`
	PreviousOffsetX float64   `json:"previousOffsetX"`
	PreviousOffsetY float64   `json:"previousOffsetY"`
	Operation       Operation `json:"operation"`

	// Clamped is set when constraints altered the requested transform.
	Clamped bool `json:"clamped,omitempty"`
	// Transition hints that the host may animate towards the new transform.
	Transition bool `json:"transition,omitempty"`
}

// Changed reports whether the event moved or scaled the content.
func (e ChangeEvent) Changed() bool {
	return e.ZoomX != e.PreviousZoomX || e.ZoomY != e.PreviousZoomY ||
		e.OffsetX != e.PreviousOffsetX || e.OffsetY != e.PreviousOffsetY
}

// EventJSON serializes a ChangeEvent.
func EventJSON(e ChangeEvent) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
