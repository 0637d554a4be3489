package config

// ServerMsg is what the relay sends: a payload stamped with the room clock,
// which increases by one for every relayed message in a room.
type ServerMsg struct {
	Clock   int64      `json:"clock" cbor:"clock"`
	Payload NetworkMsg `json:"payload" cbor:"payload"`
}

// PresenceEvent is one row of the presence log.
type PresenceEvent struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Op        string `json:"op"`
	CreatedAt int64  `json:"ts"`
}
