package drawing

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/Tk21111/sketchroom/tool"
)

// toolWire carries only what a renderer needs. Kind is informational: any
// string decodes, so tools added later stay readable by older peers.
type toolWire struct {
	Kind      string `json:"kind,omitempty" cbor:"kind,omitempty"`
	Size      int    `json:"size" cbor:"size"`
	Color     string `json:"color" cbor:"color"`
	Blur      int    `json:"blur" cbor:"blur"`
	LineCap   string `json:"lineCap" cbor:"lineCap"`
	Operation string `json:"compositeOperation" cbor:"compositeOperation"`
}

type eventWire struct {
	Start Point    `json:"startPos" cbor:"startPos"`
	End   Point    `json:"endPos" cbor:"endPos"`
	Tool  toolWire `json:"tool" cbor:"tool"`
	Text  string   `json:"text" cbor:"text"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// same logical event, same bytes
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("drawing: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("drawing: CBOR decoder initialization failed: " + err.Error())
	}
}

func (e Event) wire() eventWire {
	return eventWire{
		Start: e.Start,
		End:   e.End,
		Tool: toolWire{
			Kind:      e.Tool.Kind,
			Size:      e.Tool.Size,
			Color:     e.Tool.Color.String(),
			Blur:      e.Tool.Blur,
			LineCap:   string(e.Tool.LineCap),
			Operation: string(e.Tool.Composite),
		},
		Text: e.Text,
	}
}

func (w eventWire) event() (Event, error) {
	c, err := tool.ParseColor(w.Tool.Color)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	e := Event{
		Start: w.Start,
		End:   w.End,
		Tool: tool.Params{
			Kind:      w.Tool.Kind,
			Size:      w.Tool.Size,
			Color:     c,
			Blur:      w.Tool.Blur,
			LineCap:   tool.LineCap(w.Tool.LineCap),
			Composite: tool.Composite(w.Tool.Operation),
		},
		Text: w.Text,
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e.wire())
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w eventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	decoded, err := w.event()
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

func (e Event) MarshalCBOR() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return encMode.Marshal(e.wire())
}

func (e *Event) UnmarshalCBOR(b []byte) error {
	var w eventWire
	if err := decMode.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	decoded, err := w.event()
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// Serialize encodes e in the JSON form used on websocket text frames.
func Serialize(e Event) ([]byte, error) {
	return json.Marshal(e)
}

func Deserialize(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, malformed(err)
	}
	return e, nil
}

// SerializeBinary encodes e as deterministic CBOR.
func SerializeBinary(e Event) ([]byte, error) {
	return encMode.Marshal(e)
}

func DeserializeBinary(b []byte) (Event, error) {
	var e Event
	if err := decMode.Unmarshal(b, &e); err != nil {
		return Event{}, malformed(err)
	}
	return e, nil
}

func malformed(err error) error {
	if errors.Is(err, ErrMalformedEvent) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
}
