package middleware

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

	"github.com/Tk21111/sketchroom/config"
)

// Codec frames envelopes on a websocket. Clients send []config.NetworkMsg,
// the relay answers with []config.ServerMsg.
type Codec interface {
	Name() string
	// FrameType is the websocket message type frames are sent as.
	FrameType() int
	Encode(v any) ([]byte, error)
	DecodeNetworkMsg(b []byte) ([]config.NetworkMsg, error)
	DecodeServerMsg(b []byte) ([]config.ServerMsg, error)
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBORCodec()
)

// CodecFor picks a codec by name; empty means JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) DecodeNetworkMsg(msg []byte) ([]config.NetworkMsg, error) {
	var m []config.NetworkMsg

	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}

	return m, nil
}

func (jsonCodec) DecodeServerMsg(msg []byte) ([]config.ServerMsg, error) {
	var m []config.ServerMsg

	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}

	return m, nil
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("middleware: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("middleware: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string   { return "cbor" }
func (cborCodec) FrameType() int { return websocket.BinaryMessage }

func (c cborCodec) Encode(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborCodec) DecodeNetworkMsg(msg []byte) ([]config.NetworkMsg, error) {
	var m []config.NetworkMsg
	if err := c.dec.Unmarshal(msg, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c cborCodec) DecodeServerMsg(msg []byte) ([]config.ServerMsg, error) {
	var m []config.ServerMsg
	if err := c.dec.Unmarshal(msg, &m); err != nil {
		return nil, err
	}
	return m, nil
}
