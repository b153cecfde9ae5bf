package collab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/input"
)

type Room struct {
	roomID   string
	clients  map[string]*Client // clientID -> client
	presence *Presence
	viewport *ViewportState
}

// HubConfig carries what every new room's viewport is created with.
type HubConfig struct {
	Engine   engine.Options
	Gates    input.Gates
	Content  ContentSizer
	Recorder Recorder
}

type Hub struct {
	cfg        HubConfig
	mu         sync.RWMutex
	rooms      map[string]*Room // roomID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(cfg HubConfig) (*Hub, error) {
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Hub{
		cfg:        cfg,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}, nil
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for id, room := range h.rooms {
			for _, c := range room.clients {
				c.closeSend()
			}
			delete(h.rooms, id)
			h.cfg.Recorder.RoomClosed()
		}
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Snapshot returns the viewport state of a live room.
func (h *Hub) Snapshot(roomID string) (StatePayload, bool) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return StatePayload{}, false
	}
	return room.viewport.Snapshot(), true
}

// ViewState returns the engine state of a live room.
func (h *Hub) ViewState(roomID string) (engine.State, bool) {
	snap, ok := h.Snapshot(roomID)
	return snap.State, ok
}

// RestoreView applies a saved view to a live room and broadcasts the change.
func (h *Hub) RestoreView(roomID string, zoomX, zoomY, offsetX, offsetY float64, stretch engine.StretchMode) error {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	room.viewport.Restore(zoomX, zoomY, offsetX, offsetY, stretch)
	return nil
}

func (h *Hub) newRoom(roomID string) (*Room, error) {
	vs, err := NewViewportState(roomID, h.cfg.Engine, h.cfg.Gates, h.cfg.Content, h.cfg.Recorder,
		func(msg *Message) {
			msg.RoomID = roomID
			h.broadcastToRoom(roomID, msg, "")
		})
	if err != nil {
		return nil, err
	}
	return &Room{
		roomID:   roomID,
		clients:  make(map[string]*Client),
		presence: NewPresence(),
		viewport: vs,
	}, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.RoomID]
	if !ok {
		var err error
		room, err = h.newRoom(client.RoomID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("create room", "error", err, "room", client.RoomID)
			client.closeSend()
			return
		}
		h.rooms[client.RoomID] = room
		h.cfg.Recorder.RoomOpened()
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, err := newMessage(TypeWelcome, WelcomePayload{
		RoomID:   client.RoomID,
		ClientID: client.ClientID,
		UserID:   client.UserID,
	})
	if err == nil {
		client.Send(welcome)
	}

	// Send the room's viewport and presence state to the new client
	if stateMsg, err := newMessage(TypeViewportState, room.viewport.Snapshot()); err != nil {
		slog.Error("marshal viewport state", "error", err)
	} else {
		stateMsg.RoomID = client.RoomID
		stateMsg.Seq = room.viewport.Seq()
		client.Send(stateMsg)
	}
	if stateMsg := room.presence.StateMessage(room.viewport); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.RoomID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "room", client.RoomID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.RoomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Forget(client.UserID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.RoomID)
		h.cfg.Recorder.RoomClosed()
	}
	h.mu.Unlock()

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.RoomID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "room", client.RoomID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch {
	case msg.Type == TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case strings.HasPrefix(msg.Type, "viewport."):
		h.handleViewport(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		h.cfg.Recorder.ObserveRejected(msg.Type)
		sender.SendError(msg.Type, "unknown message type")
	}
}

func (h *Hub) handleViewport(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.RoomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := room.viewport.Apply(msg); err != nil {
		slog.Warn("viewport command failed", "error", err, "type", msg.Type, "user", sender.UserID)
		h.cfg.Recorder.ObserveRejected(msg.Type)
		sender.SendError(msg.Type, err.Error())
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.RoomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	out, err := room.presence.Track(sender.UserID, sender.DisplayName, presence.Cursor, room.viewport)
	if err != nil {
		slog.Warn("presence update failed", "error", err, "user", sender.UserID)
		sender.SendError(msg.Type, err.Error())
		return
	}

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(out)
	outMsg := &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}
	h.broadcastToRoom(sender.RoomID, outMsg, sender.ClientID)
}

func (h *Hub) broadcastToRoom(roomID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
