package ws

import (
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/db"
	"github.com/Tk21111/sketchroom/internal/logx"
	"github.com/Tk21111/sketchroom/middleware"
	"github.com/Tk21111/sketchroom/session"
)

// request is a snapshot request waiting for its responder.
type request struct {
	op        string
	requester *Client
}

type Room struct {
	id      string
	clients map[*Client]bool
	// join order; order[0] is the leader that answers snapshot requests
	order   []*Client
	pending map[*Client][]request
	clock   atomic.Int64
}

func (r *Room) NextClock() int64 {
	return r.clock.Add(1)
}

type Hub struct {
	rooms map[string]*Room
	mu    sync.Mutex

	store      *session.Store
	sendBuffer int
	readLimit  int64
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

type Options struct {
	Store           *session.Store
	SendBuffer      int
	MaxMessageBytes int64
}

func NewHub(opts Options) *Hub {
	store := opts.Store
	if store == nil {
		store = session.NewStore()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		store:      store,
		sendBuffer: opts.SendBuffer,
		readLimit:  opts.MaxMessageBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logx.Named("hub"),
	}
}

// Join adds c to its room, welcomes it and announces it to everyone else.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.roomId]
	if !ok {
		room = &Room{
			id:      c.roomId,
			clients: make(map[*Client]bool),
			pending: make(map[*Client][]request),
		}
		h.rooms[c.roomId] = room
	}

	existing := slices.Clone(room.order)
	room.clients[c] = true
	room.order = append(room.order, c)

	h.sendLocked(room, c, config.NetworkMsg{
		Operation: config.OpWelcome,
		ID:        c.userId,
		Name:      c.name,
		Color:     c.color,
		Room:      room.id,
		Peers:     len(existing),
	})

	// existing members -> new client
	for _, other := range existing {
		h.sendLocked(room, c, config.NetworkMsg{Operation: config.OpUserJoin, ID: other.userId, Name: other.name, Color: other.color})
	}

	// new client -> others
	h.broadcastLocked(room, config.NetworkMsg{Operation: config.OpUserJoin, ID: c.userId, Name: c.name, Color: c.color}, c)

	h.presence(room.id, c, config.OpUserJoin)
	h.log.Info("join room",
		zap.String("roomId", room.id),
		zap.String("userId", c.userId),
		zap.Int("peers", len(existing)),
	)
}

// Leave is safe to call more than once.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.roomId]
	if !ok {
		return
	}
	h.removeLocked(room, c)
}

func (h *Hub) removeLocked(room *Room, c *Client) {
	if !room.clients[c] {
		return
	}
	delete(room.clients, c)
	room.order = slices.DeleteFunc(room.order, func(x *Client) bool { return x == c })
	close(c.send)
	h.store.Delete(c.userId)

	// requests c made no longer need an answer
	for responder, reqs := range room.pending {
		room.pending[responder] = slices.DeleteFunc(reqs, func(r request) bool { return r.requester == c })
	}
	// requests c was answering go to the next oldest member
	orphaned := room.pending[c]
	delete(room.pending, c)
	for _, r := range orphaned {
		h.routeLocked(room, r)
	}

	h.broadcastLocked(room, config.NetworkMsg{Operation: config.OpUserLeave, ID: c.userId, Name: c.name}, nil)
	h.presence(room.id, c, config.OpUserLeave)
	h.log.Info("leave room", zap.String("roomId", room.id), zap.String("userId", c.userId))

	if len(room.clients) == 0 {
		delete(h.rooms, room.id)
	}
}

// Broadcast relays msg to everyone in roomID except the sender.
func (h *Hub) Broadcast(roomID string, msg config.NetworkMsg, except *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	h.broadcastLocked(room, msg, except)
}

func (h *Hub) broadcastLocked(room *Room, msg config.NetworkMsg, except *Client) {
	env := []config.ServerMsg{{Clock: room.NextClock(), Payload: msg}}
	frames := make(map[string][]byte, 2)

	for _, c := range slices.Clone(room.order) {
		if c == except {
			continue
		}
		frame, ok := frames[c.codec.Name()]
		if !ok {
			var err error
			if frame, err = c.codec.Encode(env); err != nil {
				h.log.Error("encode", zap.String("op", msg.Operation), zap.Error(err))
				return
			}
			frames[c.codec.Name()] = frame
		}
		h.deliverLocked(room, c, frame)
	}
}

func (h *Hub) sendLocked(room *Room, c *Client, msg config.NetworkMsg) {
	frame, err := c.codec.Encode([]config.ServerMsg{{Clock: room.NextClock(), Payload: msg}})
	if err != nil {
		h.log.Error("encode", zap.String("op", msg.Operation), zap.Error(err))
		return
	}
	h.deliverLocked(room, c, frame)
}

// deliverLocked never blocks: a client that cannot keep up is dropped.
func (h *Hub) deliverLocked(room *Room, c *Client, frame []byte) {
	if !room.clients[c] {
		return
	}
	select {
	case c.send <- frame:
	default:
		h.log.Warn("send buffer full, dropping client",
			zap.String("roomId", room.id),
			zap.String("userId", c.userId),
		)
		h.removeLocked(room, c)
	}
}

// routeLocked hands a snapshot request to the oldest member other than the
// requester. With nobody else in the room the request is dropped.
func (h *Hub) routeLocked(room *Room, r request) {
	if !room.clients[r.requester] {
		return
	}
	for _, c := range room.order {
		if c == r.requester {
			continue
		}
		room.pending[c] = append(room.pending[c], r)
		h.sendLocked(room, c, config.NetworkMsg{Operation: r.op, ID: r.requester.userId})
		return
	}
}

// answers maps a snapshot reply to the request it resolves.
var answers = map[string]string{
	config.OpReceiveCanvas:           config.OpCanvasRequest,
	config.OpReceiveBackgroundCanvas: config.OpBackgroundCanvasRequest,
}

func (h *Hub) replyLocked(room *Room, from *Client, msg config.NetworkMsg) {
	op := answers[msg.Operation]
	room.pending[from] = slices.DeleteFunc(room.pending[from], func(r request) bool {
		return r.op == op && r.requester.userId == msg.To
	})

	for _, c := range room.order {
		if c.userId == msg.To {
			h.sendLocked(room, c, msg)
			return
		}
	}
}

// Route relays what c sent. The relay stamps the sender id, so clients
// cannot speak for each other.
func (h *Hub) Route(c *Client, msgs []config.NetworkMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.roomId]
	if !ok || !room.clients[c] {
		return
	}

	for _, m := range msgs {
		m.ID = c.userId

		switch m.Operation {
		case config.OpDraw:
			if m.Event == nil {
				c.log.Debug("draw without event")
				continue
			}
			h.broadcastLocked(room, m, c)

		case config.OpReceiveBackgroundCanvasAll:
			h.broadcastLocked(room, m, c)

		case config.OpUserNameChange:
			if m.Name == "" {
				continue
			}
			c.name = m.Name
			h.store.Rename(c.userId, m.Name)
			h.broadcastLocked(room, m, c)
			h.presence(room.id, c, config.OpUserNameChange)

		case config.OpCanvasRequest, config.OpBackgroundCanvasRequest:
			h.routeLocked(room, request{op: m.Operation, requester: c})

		case config.OpReceiveCanvas, config.OpReceiveBackgroundCanvas:
			h.replyLocked(room, c, m)

		default:
			c.log.Debug("ignored operation", zap.String("op", m.Operation))
		}

		if !room.clients[c] {
			return
		}
	}
}

func (h *Hub) presence(roomID string, c *Client, op string) {
	db.WritePresence(config.PresenceEvent{
		RoomID:    roomID,
		UserID:    c.userId,
		Name:      c.name,
		Op:        op,
		CreatedAt: time.Now().UnixMilli(),
	})
}

type RoomInfo struct {
	ID      string                `json:"roomId"`
	Clock   int64                 `json:"clock"`
	Leader  string                `json:"leader,omitempty"`
	Members []session.Participant `json:"members"`
}

// Rooms lists live rooms, members oldest first.
func (h *Hub) Rooms() []RoomInfo {
	members := h.store.Rooms()

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]RoomInfo, 0, len(h.rooms))
	for id, room := range h.rooms {
		out = append(out, RoomInfo{
			ID:      id,
			Clock:   room.clock.Load(),
			Leader:  leaderLocked(room),
			Members: members[id],
		})
	}
	slices.SortFunc(out, func(a, b RoomInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Leader returns the id of the member that answers snapshot requests.
func (h *Hub) Leader(roomID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return "", false
	}
	id := leaderLocked(room)
	return id, id != ""
}

func leaderLocked(room *Room) string {
	if len(room.order) == 0 {
		return ""
	}
	return room.order[0].userId
}

func newClient(h *Hub, conn *websocket.Conn, codec middleware.Codec, p session.Participant, log *zap.Logger) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		codec:  codec,
		send:   make(chan []byte, h.sendBuffer),
		roomId: p.Room,
		userId: p.ID,
		name:   p.Name,
		color:  p.Color,
		log:    log,
	}
}
