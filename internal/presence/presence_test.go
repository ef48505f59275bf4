package presence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"relaychat/internal/presence"
	"relaychat/internal/registry"
)

type fakeConn struct {
	id     string
	userID int64
}

func (f *fakeConn) ID() string    { return f.id }
func (f *fakeConn) UserID() int64 { return f.userID }
func (f *fakeConn) Deliver(ctx context.Context, payload []byte) error {
	return nil
}

func TestOnlineFollowsConnections(t *testing.T) {
	reg := registry.New()
	p := presence.New(reg)

	assert.False(t, p.Online(1))

	reg.Register(&fakeConn{id: "a", userID: 1})
	reg.Register(&fakeConn{id: "b", userID: 1})
	assert.True(t, p.Online(1))

	reg.DisconnectAll("a")
	assert.True(t, p.Online(1))

	reg.DisconnectAll("b")
	assert.False(t, p.Online(1))
}

func TestOnlineAmong(t *testing.T) {
	reg := registry.New()
	p := presence.New(reg)

	reg.Register(&fakeConn{id: "a", userID: 1})
	reg.Register(&fakeConn{id: "c", userID: 3})

	assert.Equal(t, []int64{1, 3}, p.OnlineAmong([]int64{1, 2, 3}))
	assert.Nil(t, p.OnlineAmong([]int64{2}))
}
