package collab

import (
	"encoding/json"

	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/input"
)

type Message struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// PresencePayload is a user's pointer. Clients send Cursor in viewport
// coordinates; the server fills Content and re-derives Cursor from it
// whenever the shared viewport moves.
type PresencePayload struct {
	Cursor      *engine.Point `json:"cursor,omitempty"`
	Content     *engine.Point `json:"content,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	RoomID   string `json:"roomId"`
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	For     string `json:"for,omitempty"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Viewport commands (client → server)
	TypeViewportInput   = "viewport.input"
	TypeViewportLayout  = "viewport.layout"
	TypeViewportContent = "viewport.content"
	TypeViewportFit     = "viewport.fit"
	TypeViewportZoom    = "viewport.zoom"
	TypeViewportReset   = "viewport.reset"
	TypeViewportStretch = "viewport.stretch"
	TypeViewportScroll  = "viewport.scroll"
	TypeViewportRestore = "viewport.restore"

	// Viewport notifications (server → client)
	TypeViewportState   = "viewport.state"
	TypeViewportChanged = "viewport.changed"
)

// --- Viewport payloads ---

// InputPayload is a host input sample in viewport coordinates.
type InputPayload = input.Event

// LayoutPayload reports the panel and content sizes.
type LayoutPayload struct {
	Panel   engine.Size `json:"panel"`
	Content engine.Size `json:"content"`
}

// ContentPayload selects an uploaded asset as the room's content.
type ContentPayload struct {
	AssetID string      `json:"assetId"`
	Panel   engine.Size `json:"panel"`
}

type FitPayload struct {
	Mode engine.StretchMode `json:"mode"`
}

// ZoomPayload sets an absolute zoom about content point (X, Y).
type ZoomPayload struct {
	Zoom float64 `json:"zoom"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ScrollPayload is a scroll bar write: the desired offset within the extent.
type ScrollPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type RestorePayload struct {
	ZoomX   float64 `json:"zoomX"`
	ZoomY   float64 `json:"zoomY"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// StatePayload is sent to a client when it joins.
type StatePayload struct {
	engine.State
	Gates input.Gates `json:"gates"`
}

// newMessage marshals payload into a Message of the given type.
func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
