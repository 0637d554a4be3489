// Package protocol is the participant side of the room protocol: the message
// set, the Connecting -> Joined -> Synchronized reconciliation, and the event
// queue every input is serialized through.
package protocol

import (
	"context"
	"errors"

	"github.com/Tk21111/sketchroom/config"
)

var ErrTransportUnavailable = errors.New("transport unavailable")

// Transport relays messages to the room. The room never echoes a sender's
// own draw back to it.
type Transport interface {
	Emit(ctx context.Context, msg config.NetworkMsg) error
}

type State int

const (
	Connecting State = iota
	Joined
	Synchronized
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case Synchronized:
		return "synchronized"
	}
	return "unknown"
}

// Presence is a join, leave or rename seen in the room.
type Presence struct {
	Operation string
	ID        string
	Name      string
	Color     string
}
