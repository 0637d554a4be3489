package drawing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tk21111/sketchroom/tool"
)

func mustTool(t *testing.T, kind tool.Kind, size int, color string) *tool.Tool {
	t.Helper()
	tl, err := tool.New(kind, size, color)
	require.NoError(t, err)
	return tl
}

func sampleEvents(t *testing.T) map[string]Event {
	return map[string]Event{
		"brush segment":    MakeEvent(Point{10, 10}, Point{50, 10}, mustTool(t, tool.Brush, 20, "#000000")),
		"eraser dot":       MakeEvent(Point{3.5, 4.25}, Point{3.5, 4.25}, mustTool(t, tool.Eraser, 30, "rgba(1,2,3,0.2)")),
		"roller offscreen": MakeEvent(Point{-40, -2}, Point{1e6, 7}, mustTool(t, tool.PaintRoller, 500, "gold")),
		"text glyph":       MakeEvent(Point{12.75, 40}, Point{12, 40}, mustTool(t, tool.Text, 16, "#ff0000"), "H"),
		"unicode glyph":    MakeEvent(Point{0, 0}, Point{0, 0}, mustTool(t, tool.Text, 8, "#00ff00"), "ж"),
	}
}

func TestRoundTripJSON(t *testing.T) {
	for name, e := range sampleEvents(t) {
		t.Run(name, func(t *testing.T) {
			b, err := Serialize(e)
			require.NoError(t, err)

			got, err := Deserialize(b)
			require.NoError(t, err)
			assert.Equal(t, e, got)
		})
	}
}

func TestRoundTripCBOR(t *testing.T) {
	for name, e := range sampleEvents(t) {
		t.Run(name, func(t *testing.T) {
			b, err := SerializeBinary(e)
			require.NoError(t, err)

			got, err := DeserializeBinary(b)
			require.NoError(t, err)
			assert.Equal(t, e, got)

			again, err := SerializeBinary(got)
			require.NoError(t, err)
			assert.Equal(t, b, again, "deterministic encoding")
		})
	}
}

func TestSnapshotAtEmission(t *testing.T) {
	tl := mustTool(t, tool.Brush, 20, "#000000")

	e1 := MakeEvent(Point{0, 0}, Point{1, 1}, tl)
	require.NoError(t, tl.SetSize(5))
	require.NoError(t, tl.SetColor("#ffffff"))
	require.NoError(t, tl.Switch(tool.Eraser))
	e2 := MakeEvent(Point{1, 1}, Point{2, 2}, tl)

	assert.Equal(t, 20, e1.Tool.Size)
	assert.Equal(t, tool.Black, e1.Tool.Color)
	assert.Equal(t, tool.SourceOver, e1.Tool.Composite)
	assert.Equal(t, 5, e2.Tool.Size)
	assert.Equal(t, tool.DestinationOut, e2.Tool.Composite)
}

func TestWireShape(t *testing.T) {
	e := MakeEvent(Point{1, 2}, Point{3, 4}, mustTool(t, tool.Pencil, 2, "#abcdef"))
	b, err := Serialize(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "startPos")
	assert.Contains(t, raw, "endPos")
	assert.Equal(t, "", raw["text"])

	toolFields := raw["tool"].(map[string]any)
	assert.Equal(t, float64(2), toolFields["size"])
	assert.Equal(t, "#abcdef", toolFields["color"])
	assert.Equal(t, float64(0), toolFields["blur"])
	assert.Equal(t, "round", toolFields["lineCap"])
	assert.Equal(t, "source-over", toolFields["compositeOperation"])
}

func TestForeignProducer(t *testing.T) {
	// a producer with a tool we have never heard of, plus extra fields
	in := `{"startPos":{"x":1,"y":1},"endPos":{"x":9,"y":9},"text":"",
		"tool":{"kind":"Airbrush","size":14,"color":"rgb(10, 20, 30)","blur":9,
		"lineCap":"square","compositeOperation":"source-over","pressure":0.4},
		"sender":"someone"}`

	e, err := Deserialize([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, "Airbrush", e.Tool.Kind)
	assert.Equal(t, tool.Color{R: 10, G: 20, B: 30, A: 255}, e.Tool.Color)
	assert.Equal(t, 9, e.Tool.Blur)
	assert.Equal(t, tool.CapSquare, e.Tool.LineCap)

	// no kind at all
	in = `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"text":"",
		"tool":{"size":3,"color":"#000","blur":0,"lineCap":"round","compositeOperation":"destination-out"}}`
	e, err = Deserialize([]byte(in))
	require.NoError(t, err)
	assert.Empty(t, e.Tool.Kind)
	assert.Equal(t, tool.DestinationOut, e.Tool.Composite)
}

func TestMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":      `{"startPos":`,
		"no tool":       `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"text":""}`,
		"zero size":     `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"tool":{"size":0,"color":"#000","lineCap":"round","compositeOperation":"source-over"}}`,
		"bad color":     `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"tool":{"size":3,"color":"#0000","lineCap":"round","compositeOperation":"source-over"}}`,
		"bad cap":       `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"tool":{"size":3,"color":"#000","lineCap":"butt","compositeOperation":"source-over"}}`,
		"bad op":        `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"tool":{"size":3,"color":"#000","lineCap":"round","compositeOperation":"xor"}}`,
		"negative blur": `{"startPos":{"x":1,"y":1},"endPos":{"x":2,"y":2},"tool":{"size":3,"color":"#000","blur":-1,"lineCap":"round","compositeOperation":"source-over"}}`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize([]byte(in))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}

	_, err := DeserializeBinary([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestSerializeRejectsInvalid(t *testing.T) {
	e := MakeEvent(Point{0, 0}, Point{1, 1}, tool.Default())
	e.Tool.Size = 0
	_, err := Serialize(e)
	assert.ErrorIs(t, err, ErrMalformedEvent)

	text := MakeEvent(Point{4, 4}, Point{4, 4}, mustTool(t, tool.Text, 16, "#000"), "\xff")
	kind := MakeEvent(Point{0, 0}, Point{1, 1}, tool.Default())
	kind.Tool.Kind = "Br\xc3ush"

	for name, ev := range map[string]Event{"invalid utf-8 text": text, "invalid utf-8 kind": kind} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ev.Validate(), ErrMalformedEvent)
			_, err := Serialize(ev)
			assert.ErrorIs(t, err, ErrMalformedEvent)
			_, err = SerializeBinary(ev)
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
