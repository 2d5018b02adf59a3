package relay

import (
	"sync"

	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"go.uber.org/zap"
)

const sessionRoomPrefix = "session:"

// SessionRoom is the room observers of one device join.
func SessionRoom(deviceID string) string { return sessionRoomPrefix + deviceID }

// Broadcaster delivers an event to a room or to every known connection.
// Delivery is best effort; failures are logged by the implementation.
type Broadcaster interface {
	Broadcast(room, event string, data any)
	BroadcastAll(event string, data any)
}

// Registry maps rooms to member connections. It is the only shared mutable
// state in the relay; sends happen outside the lock.
type Registry struct {
	log     *zap.Logger
	metrics *metrics.Relay

	mu    sync.RWMutex
	conns map[*Conn]map[string]struct{} // every open conn -> rooms it joined
	rooms map[string]map[*Conn]struct{}
}

func NewRegistry(log *zap.Logger, m *metrics.Relay) *Registry {
	return &Registry{
		log:     log.Named("registry"),
		metrics: m,
		conns:   make(map[*Conn]map[string]struct{}),
		rooms:   make(map[string]map[*Conn]struct{}),
	}
}

// Register makes c known for BroadcastAll.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	if _, ok := r.conns[c]; !ok {
		r.conns[c] = make(map[string]struct{})
	}
	r.mu.Unlock()
}

// Unregister removes c from every room it joined. Idempotent.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.conns[c]
	if !ok {
		return
	}
	for room := range joined {
		r.removeLocked(room, c)
	}
	delete(r.conns, c)
}

// Join adds c to room. Joining twice has no additional effect; an
// unregistered (closed) conn is ignored.
func (r *Registry) Join(room string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.conns[c]
	if !ok {
		return false
	}
	members := r.rooms[room]
	if members == nil {
		members = make(map[*Conn]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
	joined[room] = struct{}{}
	return true
}

// Leave removes c from room if present.
func (r *Registry) Leave(room string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if joined, ok := r.conns[c]; ok {
		delete(joined, room)
	}
	r.removeLocked(room, c)
}

// removeLocked drops c from room and reaps the room once empty.
func (r *Registry) removeLocked(room string, c *Conn) {
	members := r.rooms[room]
	if members == nil {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Members returns the number of conns currently in room.
func (r *Registry) Members(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Rooms returns the number of non-empty rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) Broadcast(room, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		r.log.Error("failed to encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	r.deliverRoom(room, event, frame)
}

func (r *Registry) BroadcastAll(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		r.log.Error("failed to encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	r.deliverAll(event, frame)
}

func (r *Registry) deliverRoom(room, event string, frame []byte) {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	r.deliver(targets, event, frame)
}

func (r *Registry) deliverAll(event string, frame []byte) {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	r.deliver(targets, event, frame)
}

// deliver hands the same frame to every target. A conn that closed after the
// snapshot simply refuses the frame.
func (r *Registry) deliver(targets []*Conn, event string, frame []byte) {
	r.metrics.Broadcast(event)
	for _, c := range targets {
		if !c.Send(frame) {
			r.metrics.SendDropped()
			r.log.Debug("send dropped",
				zap.String("conn_id", c.ID()),
				zap.String("event", event),
				zap.Stringer("state", c.State()),
			)
		}
	}
}
