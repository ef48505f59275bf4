package registry

import (
	"context"
	"sync"
)

// Connection is one live subscriber transport. Deliver enqueues a payload
// on the connection's FIFO send queue and must return once the payload is
// accepted or the queue cannot take it within the ctx deadline.
type Connection interface {
	ID() string
	UserID() int64
	Deliver(ctx context.Context, payload []byte) error
}

// Registry tracks, in process memory, which connections are subscribed to
// which channels. It is rebuilt from client re-subscribe calls after a
// restart; nothing here is persisted.
type Registry struct {
	mu sync.RWMutex

	// connections maps connection ID to connection (for teardown)
	connections map[string]Connection

	// channels maps channel name to set of subscribed connections
	channels map[string]map[string]Connection

	// byConn maps connection ID to the channels it subscribes to
	byConn map[string]map[string]struct{}
}

func New() *Registry {
	return &Registry{
		connections: make(map[string]Connection),
		channels:    make(map[string]map[string]Connection),
		byConn:      make(map[string]map[string]struct{}),
	}
}

// Register adds a connection to the registry. Subscriptions are separate:
// a registered connection receives nothing until it subscribes.
func (r *Registry) Register(conn Connection) {
	r.mu.Lock()
	r.connections[conn.ID()] = conn
	r.mu.Unlock()
}

// Subscribe adds the connection to a channel's subscriber set. Re-subscribing
// is a no-op. Unknown connection IDs are ignored.
func (r *Registry) Subscribe(connectionID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok {
		return
	}
	if _, ok := r.channels[channel]; !ok {
		r.channels[channel] = make(map[string]Connection)
	}
	r.channels[channel][connectionID] = conn

	if _, ok := r.byConn[connectionID]; !ok {
		r.byConn[connectionID] = make(map[string]struct{})
	}
	r.byConn[connectionID][channel] = struct{}{}
}

// Unsubscribe removes the connection from a channel. Unsubscribing a
// non-member is a no-op, not an error.
func (r *Registry) Unsubscribe(connectionID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromChannel(connectionID, channel)
	if chans, ok := r.byConn[connectionID]; ok {
		delete(chans, channel)
	}
}

// SubscribersOf returns a point-in-time snapshot of a channel's subscribers.
// Callers must tolerate subscribers disappearing after the snapshot; Resume
// covers any resulting gap.
func (r *Registry) SubscribersOf(channel string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.channels[channel]
	out := make([]Connection, 0, len(subs))
	for _, conn := range subs {
		out = append(out, conn)
	}
	return out
}

// DisconnectAll removes the connection from every channel and from the
// registry. Called once per connection teardown.
func (r *Registry) DisconnectAll(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel := range r.byConn[connectionID] {
		r.removeFromChannel(connectionID, channel)
	}
	delete(r.byConn, connectionID)
	delete(r.connections, connectionID)
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// UserConnectionCount returns how many live connections a user holds.
// Presence is derived from this.
func (r *Registry) UserConnectionCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conn := range r.connections {
		if conn.UserID() == userID {
			n++
		}
	}
	return n
}

// removeFromChannel drops a connection from one channel set. Caller holds mu.
func (r *Registry) removeFromChannel(connectionID, channel string) {
	if subs, ok := r.channels[channel]; ok {
		delete(subs, connectionID)
		if len(subs) == 0 {
			delete(r.channels, channel)
		}
	}
}
