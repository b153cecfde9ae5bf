package engine

import "math"

// ScrollInfo is the logical-scroll view of a transform, for hosts that drive
// scroll bars.
type ScrollInfo struct {
	Extent   Size  `json:"extent"`
	Viewport Size  `json:"viewport"`
	Offset   Point `json:"offset"`
}

// Project derives the scroll extent, viewport and offset of content drawn
// through t inside a viewport of the given size.
//
// The offset is only nonzero on an axis where the content has been panned
// past the origin in the negative direction.
func Project(contentBounds Rect, t Matrix2D, viewport Size) ScrollInfo {
	tb := t.TransformRect(contentBounds)
	dx, dy := t.OffsetX(), t.OffsetY()

	info := ScrollInfo{
		Viewport: viewport,
		Extent: Size{
			Width:  tb.Width + math.Abs(dx),
			Height: tb.Height + math.Abs(dy),
		},
	}
	if dx < 0 {
		info.Offset.X = math.Abs(dx)
	}
	if dy < 0 {
		info.Offset.Y = math.Abs(dy)
	}
	return info
}
