package protocol

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/render"
)

// testRoom is an in-memory relay with the same routing rules as the websocket
// hub: broadcasts skip the sender, snapshot requests go to the oldest other
// member and replies go to whoever asked.
type testRoom struct {
	t       *testing.T
	engine  *render.Engine
	members []*member
	pending []delivery
	seq     int
}

type member struct {
	id   string
	name string
	s    *Session
	tr   *roomTransport
}

type delivery struct {
	to  *member
	msg config.NetworkMsg
}

type roomTransport struct {
	room *testRoom
	id   string
	fail error
	sent []config.NetworkMsg
}

func (rt *roomTransport) Emit(_ context.Context, msg config.NetworkMsg) error {
	if rt.fail != nil {
		return rt.fail
	}
	msg.ID = rt.id
	rt.sent = append(rt.sent, msg)
	rt.room.route(rt.id, msg)
	return nil
}

func newTestRoom(t *testing.T) *testRoom {
	e, err := render.NewEngine()
	require.NoError(t, err)
	return &testRoom{t: t, engine: e}
}

func (r *testRoom) join(name string, opts ...func(*Options)) *member {
	r.seq++
	m := &member{id: fmt.Sprintf("p%d", r.seq), name: name}
	m.tr = &roomTransport{room: r, id: m.id}

	o := Options{Width: 64, Height: 48, Engine: r.engine}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := NewSession(m.tr, o)
	require.NoError(r.t, err)
	m.s = s

	peers := len(r.members)
	for _, other := range r.members {
		r.pending = append(r.pending, delivery{other, config.NetworkMsg{Operation: config.OpUserJoin, ID: m.id, Name: name}})
	}
	r.members = append(r.members, m)
	r.pending = append(r.pending, delivery{m, config.NetworkMsg{
		Operation: config.OpWelcome, ID: m.id, Name: name, Room: "room", Peers: peers,
	}})
	return m
}

func (r *testRoom) leave(m *member) {
	for i, x := range r.members {
		if x == m {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	for _, other := range r.members {
		r.pending = append(r.pending, delivery{other, config.NetworkMsg{Operation: config.OpUserLeave, ID: m.id, Name: m.name}})
	}
}

func (r *testRoom) route(from string, msg config.NetworkMsg) {
	switch msg.Operation {
	case config.OpCanvasRequest, config.OpBackgroundCanvasRequest:
		for _, m := range r.members {
			if m.id != from {
				r.pending = append(r.pending, delivery{m, msg})
				return
			}
		}
	case config.OpReceiveCanvas, config.OpReceiveBackgroundCanvas:
		for _, m := range r.members {
			if m.id == msg.To {
				r.pending = append(r.pending, delivery{m, msg})
			}
		}
	default:
		for _, m := range r.members {
			if m.id != from {
				r.pending = append(r.pending, delivery{m, msg})
			}
		}
	}
}

// flush delivers until the room is quiet.
func (r *testRoom) flush() {
	for len(r.pending) > 0 {
		d := r.pending[0]
		r.pending = r.pending[1:]
		err := d.to.s.Handle(context.Background(), d.msg)
		if err != nil && !errors.Is(err, ErrTransportUnavailable) {
			r.t.Logf("%s: %v", d.to.id, err)
		}
	}
}
