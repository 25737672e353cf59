// Package realtime relays edits, typing indicators, file lifecycle events and
// chat between the connections of a session, and replays the session's live
// state to connections as they join.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/metrics"
	"github.com/YashHaritash/btp-backend/internal/session"
)

// Client is one realtime connection.
type Client interface {
	ID() string
	// Send queues a message without blocking. It returns false when the
	// client cannot keep up or is already closed.
	Send(msg Message) bool
	Close()
}

// Envelope carries broadcast messages between server instances.
type Envelope struct {
	Origin    string    `json:"origin"`
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
}

// Bridge forwards broadcasts to other server instances. Publish must not block.
type Bridge interface {
	Publish(env Envelope)
}

type room struct {
	mu      sync.Mutex
	clients map[string]Client
}

// Hub owns room membership. Every event for a session is handled to
// completion (store update and fan-out) under that session's room lock, so
// all members observe a session's events in the same order.
type Hub struct {
	store       session.Store
	instanceID  string
	legacyAlias bool
	logger      *zap.Logger

	mu      sync.Mutex
	rooms   map[string]*room
	members map[string]string
	bridge  Bridge
}

// Option configures a Hub.
type Option func(*Hub)

// WithLegacyCodeAlias makes every file change also go out as a "code" event
// for clients that only listen on the legacy name.
func WithLegacyCodeAlias(enabled bool) Option {
	return func(h *Hub) { h.legacyAlias = enabled }
}

// WithBridge relays broadcasts to other instances.
func WithBridge(b Bridge) Option {
	return func(h *Hub) { h.bridge = b }
}

// NewHub creates a hub over the given store. instanceID identifies this
// process on the bridge.
func NewHub(store session.Store, instanceID string, logger *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		store:      store,
		instanceID: instanceID,
		logger:     logger,
		rooms:      make(map[string]*room),
		members:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetBridge attaches a bridge after construction.
func (h *Hub) SetBridge(b Bridge) {
	h.mu.Lock()
	h.bridge = b
	h.mu.Unlock()
}

// InstanceID returns the id this hub publishes under.
func (h *Hub) InstanceID() string {
	return h.instanceID
}

func (h *Hub) room(sessionID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[sessionID]
	if !ok {
		r = &room{clients: make(map[string]Client)}
		h.rooms[sessionID] = r
	}
	return r
}

// Join moves the client into the session's room and replays the session's
// current state to that client only.
func (h *Hub) Join(ctx context.Context, c Client, sessionID string) {
	if sessionID == "" {
		h.dropped(EventJoinSession, "missing sessionId")
		return
	}

	h.mu.Lock()
	prev := h.members[c.ID()]
	h.members[c.ID()] = sessionID
	var prevRoom *room
	if prev != "" && prev != sessionID {
		prevRoom = h.rooms[prev]
	}
	h.mu.Unlock()

	if prevRoom != nil {
		prevRoom.mu.Lock()
		delete(prevRoom.clients, c.ID())
		prevRoom.mu.Unlock()
	}

	r := h.room(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID()] = c

	snap, err := h.store.Snapshot(ctx, sessionID)
	if err != nil {
		h.logger.Error("Failed to load session snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}
	if snap.LegacyCode != nil && *snap.LegacyCode != "" {
		h.sendTo(r, c, Message{Event: EventCode, Data: *snap.LegacyCode})
	}
	if snap.Exists {
		h.sendTo(r, c, Message{Event: EventFileStates, Data: snap.Files})
	}

	h.logger.Debug("Client joined session",
		zap.String("client_id", c.ID()),
		zap.String("session_id", sessionID),
	)
}

// Leave removes the client from its room. Session state is kept.
func (h *Hub) Leave(c Client) {
	h.mu.Lock()
	sessionID, ok := h.members[c.ID()]
	delete(h.members, c.ID())
	r := h.rooms[sessionID]
	h.mu.Unlock()

	if !ok || r == nil {
		return
	}
	r.mu.Lock()
	delete(r.clients, c.ID())
	r.mu.Unlock()
}

// Members returns the number of clients in a session's room.
func (h *Hub) Members(sessionID string) int {
	h.mu.Lock()
	r := h.rooms[sessionID]
	h.mu.Unlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Edit applies a "code" event. With a file name it is a file change;
// without one it replaces the session's legacy single buffer.
func (h *Hub) Edit(ctx context.Context, from Client, e CodeEdit) {
	if e.SessionID == "" {
		h.dropped(EventCode, "missing sessionId")
		return
	}
	if e.FileName != "" {
		h.fileChange(ctx, e.SessionID, senderID(from), e.FileName, e.Code, e.sender())
		return
	}

	r := h.room(e.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := h.store.SetLegacyCode(ctx, e.SessionID, e.Code); err != nil {
		h.storeFailed(EventCode, e.SessionID, err)
	}
	h.broadcast(r, e.SessionID, senderID(from), Message{Event: EventCode, Data: e.Code})
}

// ChangeFile applies a "fileContentChanged" event.
func (h *Hub) ChangeFile(ctx context.Context, from Client, e CodeEdit) {
	if e.SessionID == "" || e.FileName == "" {
		h.dropped(EventFileContentChanged, "missing sessionId or fileName")
		return
	}
	content := e.Content
	if content == "" {
		content = e.Code
	}
	h.fileChange(ctx, e.SessionID, senderID(from), e.FileName, content, e.sender())
}

func (h *Hub) fileChange(ctx context.Context, sessionID, exclude, fileName, content, userName string) {
	r := h.room(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := h.store.PutFile(ctx, sessionID, fileName, content); err != nil {
		h.storeFailed(EventFileContentChanged, sessionID, err)
	}
	h.broadcast(r, sessionID, exclude, h.fileChangeMessages(sessionID, fileName, content, userName)...)
}

// fileChangeMessages encodes the canonical file change, plus the legacy alias
// when enabled.
func (h *Hub) fileChangeMessages(sessionID, fileName, content, userName string) []Message {
	msgs := []Message{{
		Event: EventFileContentChanged,
		Data:  fileChangeOut{SessionID: sessionID, FileName: fileName, Content: content, UserName: userName},
	}}
	if h.legacyAlias {
		msgs = append(msgs, Message{
			Event: EventCode,
			Data:  legacyCodeOut{SessionID: sessionID, FileName: fileName, Code: content, UserName: userName},
		})
	}
	return msgs
}

// Typing relays a typing indicator to the other members. Nothing is stored.
func (h *Hub) Typing(from Client, t Typing, stopped bool) {
	event := EventUserTyping
	if stopped {
		event = EventUserStoppedTyping
	}
	if t.SessionID == "" || t.UserName == "" {
		h.dropped(event, "missing sessionId or userName")
		return
	}

	r := h.room(t.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	h.broadcast(r, t.SessionID, senderID(from), Message{Event: event, Data: typingOut{UserName: t.UserName}})
}

// CreateFile relays a file creation. The store learns about the file on its
// first content change.
func (h *Hub) CreateFile(ctx context.Context, from Client, e FileCreated) {
	if e.SessionID == "" || e.FileName == "" {
		h.dropped(EventFileCreated, "missing sessionId or fileName")
		return
	}

	r := h.room(e.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	h.broadcast(r, e.SessionID, senderID(from), Message{
		Event: EventFileCreated,
		Data:  fileCreatedOut{FileName: e.FileName, Language: e.Language, CreatedBy: e.UserName},
	})
}

// DeleteFile removes the file from the store and relays the deletion.
// A store failure does not stop the relay.
func (h *Hub) DeleteFile(ctx context.Context, from Client, e FileDeleted) {
	if e.SessionID == "" || e.FileName == "" {
		h.dropped(EventFileDeleted, "missing sessionId or fileName")
		return
	}

	r := h.room(e.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := h.store.RemoveFile(ctx, e.SessionID, e.FileName); err != nil {
		h.storeFailed(EventFileDeleted, e.SessionID, err)
	}
	h.broadcast(r, e.SessionID, senderID(from), Message{
		Event: EventFileDeleted,
		Data:  fileDeletedOut{FileName: e.FileName, DeletedBy: e.UserName},
	})
}

// RenameFile moves the file's content in the store and relays the rename.
// A store failure does not stop the relay.
func (h *Hub) RenameFile(ctx context.Context, from Client, e FileRenamed) {
	if e.SessionID == "" || e.OldFileName == "" || e.NewFileName == "" {
		h.dropped(EventFileRenamed, "missing sessionId or file names")
		return
	}

	r := h.room(e.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := h.store.RenameFile(ctx, e.SessionID, e.OldFileName, e.NewFileName); err != nil {
		h.storeFailed(EventFileRenamed, e.SessionID, err)
	}
	h.broadcast(r, e.SessionID, senderID(from), Message{
		Event: EventFileRenamed,
		Data:  fileRenamedOut{OldFileName: e.OldFileName, NewFileName: e.NewFileName, RenamedBy: e.UserName},
	})
}

// Chat delivers a chat message to every member, the sender included.
func (h *Hub) Chat(c Chat) {
	if c.SessionID == "" || c.Message == "" || c.Name == "" {
		h.dropped(EventChat, "missing sessionId, message or name")
		return
	}
	kind := "text"
	if strings.EqualFold(c.Type, "audio") {
		kind = "audio"
	}

	r := h.room(c.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	h.broadcast(r, c.SessionID, "", Message{Event: EventChat, Data: chatOut{Message: c.Message, Name: c.Name, Type: kind}})
}

// DropSession forgets a session's live state. Connected members stay in the room.
func (h *Hub) DropSession(ctx context.Context, sessionID string) error {
	r := h.room(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return h.store.Drop(ctx, sessionID)
}

// DeliverRemote fans out a broadcast that originated on another instance.
func (h *Hub) DeliverRemote(env Envelope) {
	if env.Origin == h.instanceID || env.SessionID == "" {
		return
	}

	r := h.room(env.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		for _, msg := range env.Messages {
			if !h.sendTo(r, c, msg) {
				break
			}
		}
	}
}

// HandleMessage decodes one inbound frame and dispatches it. Malformed frames
// are dropped without a reply.
func (h *Hub) HandleMessage(ctx context.Context, from Client, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		h.dropped("unknown", "malformed frame")
		return
	}

	switch in.Event {
	case EventJoinSession:
		var sessionID string
		if err := json.Unmarshal(in.Data, &sessionID); err != nil {
			var obj struct {
				SessionID string `json:"sessionId"`
			}
			if err := json.Unmarshal(in.Data, &obj); err != nil {
				h.dropped(in.Event, "malformed payload")
				return
			}
			sessionID = obj.SessionID
		}
		h.Join(ctx, from, sessionID)
	case EventCode:
		var e CodeEdit
		if decode(in, &e, h) {
			h.Edit(ctx, from, e)
		}
	case EventFileContentChanged:
		var e CodeEdit
		if decode(in, &e, h) {
			h.ChangeFile(ctx, from, e)
		}
	case EventUserTyping, EventUserStoppedTyping:
		var t Typing
		if decode(in, &t, h) {
			h.Typing(from, t, in.Event == EventUserStoppedTyping)
		}
	case EventFileCreated:
		var e FileCreated
		if decode(in, &e, h) {
			h.CreateFile(ctx, from, e)
		}
	case EventFileDeleted:
		var e FileDeleted
		if decode(in, &e, h) {
			h.DeleteFile(ctx, from, e)
		}
	case EventFileRenamed:
		var e FileRenamed
		if decode(in, &e, h) {
			h.RenameFile(ctx, from, e)
		}
	case EventChat:
		var c Chat
		if decode(in, &c, h) {
			h.Chat(c)
		}
	default:
		h.dropped("unknown", "unknown event "+in.Event)
		return
	}
	metrics.RealtimeEvents.WithLabelValues(in.Event, "handled").Inc()
}

func decode(in inbound, v any, h *Hub) bool {
	if err := json.Unmarshal(in.Data, v); err != nil {
		h.dropped(in.Event, "malformed payload")
		return false
	}
	return true
}

// broadcast sends to every member except exclude and forwards to the bridge.
// The room lock must be held.
func (h *Hub) broadcast(r *room, sessionID, exclude string, msgs ...Message) {
	for id, c := range r.clients {
		if id == exclude {
			continue
		}
		for _, msg := range msgs {
			if !h.sendTo(r, c, msg) {
				break
			}
		}
	}

	h.mu.Lock()
	bridge := h.bridge
	h.mu.Unlock()
	if bridge != nil {
		bridge.Publish(Envelope{Origin: h.instanceID, SessionID: sessionID, Messages: msgs})
	}
}

// sendTo delivers one message and disconnects the client if it cannot keep up.
// The room lock must be held.
func (h *Hub) sendTo(r *room, c Client, msg Message) bool {
	if c.Send(msg) {
		return true
	}
	delete(r.clients, c.ID())
	c.Close()
	metrics.RealtimeSlowClients.Inc()
	h.logger.Warn("Dropping slow realtime client", zap.String("client_id", c.ID()))
	return false
}

func (h *Hub) dropped(event, reason string) {
	metrics.RealtimeEvents.WithLabelValues(event, "dropped").Inc()
	h.logger.Debug("Dropping realtime event", zap.String("event", event), zap.String("reason", reason))
}

func (h *Hub) storeFailed(event, sessionID string, err error) {
	h.logger.Error("Session store update failed",
		zap.String("event", event),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
}

func senderID(c Client) string {
	if c == nil {
		return ""
	}
	return c.ID()
}
