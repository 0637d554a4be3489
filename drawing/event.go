// Package drawing defines the unit of synchronization: one stroke segment or
// one text character, with the tool parameters captured when it was made.
package drawing

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Tk21111/sketchroom/tool"
)

var ErrMalformedEvent = errors.New("malformed drawing event")

// MaxTextLen bounds the text payload of a single event.
const MaxTextLen = 256

type Point struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
}

func (p Point) valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

type Event struct {
	Start Point
	End   Point
	Tool  tool.Params
	Text  string
}

// MakeEvent snapshots t, so changing t afterwards leaves the event as it was.
func MakeEvent(start, end Point, t *tool.Tool, text ...string) Event {
	e := Event{Start: start, End: end, Tool: t.Params()}
	if len(text) > 0 {
		e.Text = text[0]
	}
	return e
}

func (e Event) IsText() bool { return e.Text != "" }

func (e Event) Validate() error {
	if !e.Start.valid() || !e.End.valid() {
		return fmt.Errorf("%w: non-finite coordinates", ErrMalformedEvent)
	}
	if len(e.Text) > MaxTextLen {
		return fmt.Errorf("%w: text of %d bytes", ErrMalformedEvent, len(e.Text))
	}
	// both codecs must carry the bytes unchanged
	if !utf8.ValidString(e.Text) || !utf8.ValidString(e.Tool.Kind) {
		return fmt.Errorf("%w: invalid utf-8", ErrMalformedEvent)
	}
	if err := e.Tool.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
