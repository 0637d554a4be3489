package config

import "github.com/Tk21111/sketchroom/drawing"

// Operations carried in NetworkMsg.Operation.
const (
	OpDraw                       = "draw"
	OpCanvasRequest              = "canvasRequest"
	OpReceiveCanvas              = "receiveCanvas"
	OpBackgroundCanvasRequest    = "backgroundCanvasRequest"
	OpReceiveBackgroundCanvas    = "receiveBackgroundCanvas"
	OpReceiveBackgroundCanvasAll = "receiveBackgroundCanvasAll"
	OpUserJoin                   = "userJoin"
	OpUserLeave                  = "userLeave"
	OpUserNameChange             = "userNameChange"
	OpWelcome                    = "welcome"
)

type NetworkMsg struct {
	Operation string `json:"operation" cbor:"operation"`

	// ID is the sender, stamped by the relay. For snapshot requests it names
	// the participant waiting for the answer.
	ID string `json:"id,omitempty" cbor:"id,omitempty"`
	// To addresses a snapshot reply to the participant that asked for it.
	To string `json:"to,omitempty" cbor:"to,omitempty"`

	// presence / welcome
	Name  string `json:"name,omitempty" cbor:"name,omitempty"`
	Color string `json:"color,omitempty" cbor:"color,omitempty"`
	Room  string `json:"room,omitempty" cbor:"room,omitempty"`
	Peers int    `json:"peers,omitempty" cbor:"peers,omitempty"`

	// draw
	Event *drawing.Event `json:"event,omitempty" cbor:"event,omitempty"`

	// canvas / background snapshots, PNG
	Snapshot []byte `json:"snapshot,omitempty" cbor:"snapshot,omitempty"`
}
