// Package interact turns pointer and keyboard input into drawing events.
package interact

import (
	"context"
	"unicode"

	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/protocol"
)

// Loop holds the gesture state of one participant. Every event it produces
// is rendered locally before it is relayed.
type Loop struct {
	s *protocol.Session

	drawing bool
	prev    drawing.Point

	// text cursor and the x a new line returns to
	cursor drawing.Point
	origin drawing.Point
}

func New(s *protocol.Session) *Loop {
	return &Loop{s: s}
}

func (l *Loop) Session() *protocol.Session { return l.s }
func (l *Loop) Cursor() drawing.Point      { return l.cursor }
func (l *Loop) Drawing() bool              { return l.drawing }

// Press starts a stroke with a dot at p, or places the text cursor when the
// current tool is Text.
func (l *Loop) Press(ctx context.Context, p drawing.Point) error {
	l.cursor, l.origin = p, p
	l.prev = p

	t := l.s.Tool()
	if t.IsText() {
		l.drawing = false
		return nil
	}
	l.drawing = true
	return l.s.Draw(ctx, drawing.MakeEvent(p, p, t))
}

// Drag emits one segment per reported position. Positions reported without
// a press are ignored.
func (l *Loop) Drag(ctx context.Context, pts ...drawing.Point) error {
	if !l.drawing {
		return nil
	}
	t := l.s.Tool()
	for _, p := range pts {
		ev := drawing.MakeEvent(l.prev, p, t)
		l.prev = p
		if err := l.s.Draw(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) Release() {
	l.drawing = false
}

// Key types r at the text cursor. Carriage return starts a new line one tool
// size further down. Keys are ignored unless the Text tool is selected.
func (l *Loop) Key(ctx context.Context, r rune) error {
	t := l.s.Tool()
	if !t.IsText() {
		return nil
	}

	switch {
	case r == '\r' || r == '\n':
		l.cursor.X = l.origin.X
		l.cursor.Y += float64(t.Size())
		return nil
	case !unicode.IsPrint(r):
		return nil
	}

	ch := string(r)
	if err := l.s.Draw(ctx, drawing.MakeEvent(l.cursor, l.origin, t, ch)); err != nil {
		return err
	}
	l.cursor.X += l.s.Engine().GlyphWidth(t.Size(), ch)
	return nil
}

// Type feeds every rune of s through Key.
func (l *Loop) Type(ctx context.Context, s string) error {
	for _, r := range s {
		if err := l.Key(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
