package engine

import "encoding/json"

// State is the pull-side snapshot a host applies to its render transform.
type State struct {
	Transform   []float64   `json:"transform"` // [m11, m12, m21, m22, dx, dy]
	ZoomX       float64     `json:"zoomX"`
	ZoomY       float64     `json:"zoomY"`
	OffsetX     float64     `json:"offsetX"`
	OffsetY     float64     `json:"offsetY"`
	Stretch     StretchMode `json:"stretch"`
	Phase       string      `json:"phase"`
	Constraints bool        `json:"constraints"`
	Scroll      ScrollInfo  `json:"scroll"`
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return State{
		Transform:   c.transform.ToSlice(),
		ZoomX:       c.zoomX,
		ZoomY:       c.zoomY,
		OffsetX:     c.offsetX,
		OffsetY:     c.offsetY,
		Stretch:     c.stretch,
		Phase:       c.phase.String(),
		Constraints: c.constraints,
		Scroll:      c.scroll,
	}
}

// StateJSON returns the current snapshot serialized as JSON.
func (c *Controller) StateJSON() string {
	data, err := json.Marshal(c.State())
	if err != nil {
		c.log.Warn("marshal viewport state", "error", err)
		return "{}"
	}
	return string(data)
}
