package tool

import (
	"errors"
	"fmt"
)

var ErrInvalidParameter = errors.New("invalid tool parameter")

const (
	MaxSize = 500

	DefaultSize = 20
	DefaultKind = Brush
)

var DefaultColor = Black

type Kind int

const (
	Brush Kind = iota
	Pencil
	PaintRoller
	Eraser
	Text
)

type LineCap string

const (
	CapRound  LineCap = "round"
	CapSquare LineCap = "square"
)

type Composite string

const (
	SourceOver     Composite = "source-over"
	DestinationOut Composite = "destination-out"
)

// variant holds the parameters fixed by a tool kind. They never depend on
// size or color.
type variant struct {
	name string
	blur int
	cap  LineCap
	op   Composite
}

var variants = map[Kind]variant{
	Brush:       {name: "Brush", blur: 4, cap: CapRound, op: SourceOver},
	Pencil:      {name: "Pencil", blur: 0, cap: CapRound, op: SourceOver},
	PaintRoller: {name: "PaintRoller", blur: 2, cap: CapSquare, op: SourceOver},
	Eraser:      {name: "Eraser", blur: 0, cap: CapRound, op: DestinationOut},
	Text:        {name: "Text", blur: 0, cap: CapRound, op: SourceOver},
}

func (k Kind) String() string {
	if v, ok := variants[k]; ok {
		return v.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a toolbar name ("Brush", "PaintRoller", ...) to its kind.
func ParseKind(name string) (Kind, error) {
	for k, v := range variants {
		if v.name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown tool %q", ErrInvalidParameter, name)
}

// Params is the rendering-relevant state of a tool at one instant. It is a
// value: holding one never observes later changes to the Tool.
type Params struct {
	Kind      string
	Size      int
	Color     Color
	Blur      int
	LineCap   LineCap
	Composite Composite
}

// Validate checks the fields a renderer depends on.
func (p Params) Validate() error {
	if err := validSize(p.Size); err != nil {
		return err
	}
	if p.Blur < 0 || p.Blur > MaxSize {
		return fmt.Errorf("%w: blur %d", ErrInvalidParameter, p.Blur)
	}
	switch p.LineCap {
	case CapRound, CapSquare:
	default:
		return fmt.Errorf("%w: line cap %q", ErrInvalidParameter, p.LineCap)
	}
	switch p.Composite {
	case SourceOver, DestinationOut:
	default:
		return fmt.Errorf("%w: composite operation %q", ErrInvalidParameter, p.Composite)
	}
	return nil
}

// Tool is a participant's long-lived cursor state.
type Tool struct {
	kind  Kind
	size  int
	color Color
}

func New(kind Kind, size int, color string) (*Tool, error) {
	if _, ok := variants[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown tool kind %d", ErrInvalidParameter, int(kind))
	}
	if err := validSize(size); err != nil {
		return nil, err
	}
	c, err := ParseColor(color)
	if err != nil {
		return nil, err
	}
	return &Tool{kind: kind, size: size, color: c}, nil
}

// Parse builds a tool from the name the toolbar reports.
func Parse(name string, size int, color string) (*Tool, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return New(kind, size, color)
}

// Default returns the tool a participant starts with: a black 20px brush.
func Default() *Tool {
	return &Tool{kind: DefaultKind, size: DefaultSize, color: DefaultColor}
}

func validSize(size int) error {
	if size <= 0 || size > MaxSize {
		return fmt.Errorf("%w: size %d", ErrInvalidParameter, size)
	}
	return nil
}

func (t *Tool) Kind() Kind     { return t.kind }
func (t *Tool) Size() int      { return t.size }
func (t *Tool) Color() Color   { return t.color }
func (t *Tool) IsText() bool   { return t.kind == Text }
func (t *Tool) String() string { return fmt.Sprintf("%s(%d, %s)", t.kind, t.size, t.color) }

// SetSize keeps the previous size when n is rejected.
func (t *Tool) SetSize(n int) error {
	if err := validSize(n); err != nil {
		return err
	}
	t.size = n
	return nil
}

// SetColor keeps the previous color when s is rejected.
func (t *Tool) SetColor(s string) error {
	c, err := ParseColor(s)
	if err != nil {
		return err
	}
	t.color = c
	return nil
}

// Switch changes the variant and keeps size and color, like picking another
// toolbar icon.
func (t *Tool) Switch(kind Kind) error {
	if _, ok := variants[kind]; !ok {
		return fmt.Errorf("%w: unknown tool kind %d", ErrInvalidParameter, int(kind))
	}
	t.kind = kind
	return nil
}

func (t *Tool) Params() Params {
	v := variants[t.kind]
	return Params{
		Kind:      v.name,
		Size:      t.size,
		Color:     t.color,
		Blur:      v.blur,
		LineCap:   v.cap,
		Composite: v.op,
	}
}
