package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/input"
)

var (
	ErrNoLayout       = errors.New("no layout reported yet")
	ErrNoContent      = errors.New("content lookup not configured")
	ErrUnknownCommand = errors.New("unknown viewport command")
	ErrEmptyPayload   = errors.New("empty payload")
	ErrRoomNotFound   = errors.New("room not found")
)

// ContentSizer resolves an uploaded asset to the size the room fits against.
type ContentSizer interface {
	ContentSize(assetID string) (engine.Size, error)
}

// Recorder observes room and viewport activity.
type Recorder interface {
	ObserveChange(ev engine.ChangeEvent)
	ObserveRejected(msgType string)
	RoomOpened()
	RoomClosed()
}

type nopRecorder struct{}

func (nopRecorder) ObserveChange(engine.ChangeEvent) {}
func (nopRecorder) ObserveRejected(string)           {}
func (nopRecorder) RoomOpened()                      {}
func (nopRecorder) RoomClosed()                      {}

// ViewportState holds the authoritative viewport for a room. Every command
// runs under mu, so listener callbacks (and the sequence numbers they
// stamp) are serialized per room.
type ViewportState struct {
	mu         sync.Mutex
	c          *engine.Controller
	dispatcher *input.Dispatcher
	content    ContentSizer
	serverSeq  int64
	publish    func(*Message)
	log        *slog.Logger
}

// NewViewportState creates a room viewport. publish receives every
// viewport.changed and viewport.scroll notification.
func NewViewportState(roomID string, opts engine.Options, gates input.Gates, content ContentSizer, rec Recorder, publish func(*Message)) (*ViewportState, error) {
	log := slog.Default().With("room", roomID)
	c, err := engine.NewController(engine.WithOptions(opts), engine.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = nopRecorder{}
	}

	vs := &ViewportState{
		c:          c,
		dispatcher: input.NewDispatcher(c, gates, log),
		content:    content,
		publish:    publish,
		log:        log,
	}
	c.OnChange(func(ev engine.ChangeEvent) {
		rec.ObserveChange(ev)
		vs.emit(TypeViewportChanged, ev)
	})
	c.OnScroll(func(si engine.ScrollInfo) {
		vs.emit(TypeViewportScroll, si)
	})
	return vs, nil
}

// Snapshot returns the full viewport state sent to joining clients.
func (vs *ViewportState) Snapshot() StatePayload {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return StatePayload{State: vs.c.State(), Gates: vs.dispatcher.Gates()}
}

// ContentPoint maps a viewport point into the room's content space.
func (vs *ViewportState) ContentPoint(p engine.Point) (engine.Point, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.c.ContentPoint(p)
}

// ViewportPoint maps a content point through the room's current transform.
func (vs *ViewportState) ViewportPoint(p engine.Point) engine.Point {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.c.Transform().TransformPoint(p)
}

// Seq returns the sequence number of the last notification.
func (vs *ViewportState) Seq() int64 {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.serverSeq
}

// Restore sets the stretch policy and commits a saved transform.
func (vs *ViewportState) Restore(zoomX, zoomY, offsetX, offsetY float64, stretch engine.StretchMode) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.c.SetStretchMode(stretch)
	vs.c.Restore(zoomX, zoomY, offsetX, offsetY)
}

// Apply executes one viewport command.
func (vs *ViewportState) Apply(msg *Message) error {
	// Resolve content outside the lock; it may touch the disk.
	if msg.Type == TypeViewportContent {
		var p ContentPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if vs.content == nil {
			return ErrNoContent
		}
		size, err := vs.content.ContentSize(p.AssetID)
		if err != nil {
			return fmt.Errorf("resolve content %s: %w", p.AssetID, err)
		}
		vs.mu.Lock()
		defer vs.mu.Unlock()
		return vs.c.AutoFit(p.Panel, size)
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()

	switch msg.Type {
	case TypeViewportInput:
		var ev InputPayload
		if err := decode(msg, &ev); err != nil {
			return err
		}
		return vs.dispatcher.Handle(ev)

	case TypeViewportLayout:
		var p LayoutPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return vs.c.AutoFit(p.Panel, p.Content)

	case TypeViewportFit:
		var p FitPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		panel, content, ok := vs.c.Layout()
		if !ok {
			return ErrNoLayout
		}
		return vs.c.Fit(panel, content, p.Mode)

	case TypeViewportZoom:
		var p ZoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		vs.c.ZoomAbsolute(p.Zoom, p.X, p.Y)
		return nil

	case TypeViewportReset:
		vs.c.Reset()
		return nil

	case TypeViewportStretch:
		mode := vs.c.ToggleStretchMode()
		vs.log.Debug("stretch mode toggled", "mode", mode)
		return nil

	case TypeViewportScroll:
		var p ScrollPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		vs.c.SetOffset(engine.Pt(p.X, p.Y))
		return nil

	case TypeViewportRestore:
		var p RestorePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		vs.c.Restore(p.ZoomX, p.ZoomY, p.OffsetX, p.OffsetY)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, msg.Type)
	}
}

// emit is called from controller listeners, with mu held.
func (vs *ViewportState) emit(typ string, payload any) {
	msg, err := newMessage(typ, payload)
	if err != nil {
		vs.log.Error("marshal viewport notification", "error", err, "type", typ)
		return
	}
	vs.serverSeq++
	msg.Seq = vs.serverSeq
	if vs.publish != nil {
		vs.publish(msg)
	}
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return fmt.Errorf("%s: %w", msg.Type, ErrEmptyPayload)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s payload: %w", msg.Type, err)
	}
	return nil
}
