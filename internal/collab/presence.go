package collab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inamate/viewport/internal/engine"
)

// Presence tracks where each user's pointer sits on the room's content.
// Cursors are kept in content coordinates so they stay attached to the
// content when the shared viewport pans or zooms.
type Presence struct {
	mu      sync.RWMutex
	cursors map[string]*PresencePayload // userID -> cursor
}

func NewPresence() *Presence {
	return &Presence{
		cursors: make(map[string]*PresencePayload),
	}
}

// Track records a cursor reported in viewport coordinates and returns the
// payload to broadcast. A nil cursor means the pointer left the panel.
func (p *Presence) Track(userID, displayName string, cursor *engine.Point, vs *ViewportState) (*PresencePayload, error) {
	out := &PresencePayload{DisplayName: displayName}
	if cursor != nil {
		content, err := vs.ContentPoint(*cursor)
		if err != nil {
			return nil, fmt.Errorf("track cursor: %w", err)
		}
		out.Cursor = cursor
		out.Content = &content
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursors[userID] = out
	return out, nil
}

func (p *Presence) Forget(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cursors, userID)
}

// Snapshot returns every cursor with Cursor re-projected through the
// room's current transform.
func (p *Presence) Snapshot(vs *ViewportState) map[string]*PresencePayload {
	p.mu.RLock()
	result := make(map[string]*PresencePayload, len(p.cursors))
	for k, v := range p.cursors {
		cp := *v
		result[k] = &cp
	}
	p.mu.RUnlock()

	for _, v := range result {
		if v.Content != nil {
			pt := vs.ViewportPoint(*v.Content)
			v.Cursor = &pt
		}
	}
	return result
}

func (p *Presence) StateMessage(vs *ViewportState) *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: p.Snapshot(vs)})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
