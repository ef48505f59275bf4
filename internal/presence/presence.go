package presence

import "relaychat/internal/registry"

// Tracker derives presence from the subscription registry: a user is online
// while they hold at least one live connection. Liveness is bound to the
// WebSocket keepalive cycle (30s pings, 60s read deadline), so a dead peer
// is observed offline within about a minute. There is no second store to
// keep consistent.
type Tracker struct {
	registry *registry.Registry
}

func New(reg *registry.Registry) *Tracker {
	return &Tracker{registry: reg}
}

func (t *Tracker) Online(userID int64) bool {
	return t.registry.UserConnectionCount(userID) > 0
}

// OnlineAmong filters userIDs down to those currently online.
func (t *Tracker) OnlineAmong(userIDs []int64) []int64 {
	var out []int64
	for _, id := range userIDs {
		if t.Online(id) {
			out = append(out, id)
		}
	}
	return out
}
