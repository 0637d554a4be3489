package ws

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/tool"
)

var palette = []string{"black", "crimson", "royalblue", "seagreen", "darkorange", "#6a0dad"}

// RandomTool picks one of the stroke variants with a random size and color.
func RandomTool(rng *rand.Rand) *tool.Tool {
	kinds := []tool.Kind{tool.Brush, tool.Pencil, tool.PaintRoller, tool.Eraser}
	t, err := tool.New(
		kinds[rng.IntN(len(kinds))],
		2+rng.IntN(30),
		palette[rng.IntN(len(palette))],
	)
	if err != nil {
		// every palette entry and size above is valid
		panic(err)
	}
	return t
}

// RandomGesture is a wandering pointer path of n positions inside the canvas.
func RandomGesture(rng *rand.Rand, width, height, n int) []drawing.Point {
	pts := make([]drawing.Point, n)
	p := drawing.Point{X: rng.Float64() * float64(width), Y: rng.Float64() * float64(height)}
	for i := range pts {
		pts[i] = p
		p.X = clamp(p.X+rng.NormFloat64()*12, 0, float64(width-1))
		p.Y = clamp(p.Y+rng.NormFloat64()*12, 0, float64(height-1))
	}
	return pts
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// genStroke turns a gesture into the events a participant would emit: a dot
// at the press, then one segment per drag position.
func genStroke(rng *rand.Rand, width, height, segments int) []drawing.Event {
	t := RandomTool(rng)
	pts := RandomGesture(rng, width, height, segments+1)

	evs := make([]drawing.Event, 0, len(pts))
	evs = append(evs, drawing.MakeEvent(pts[0], pts[0], t))
	for i := 1; i < len(pts); i++ {
		evs = append(evs, drawing.MakeEvent(pts[i-1], pts[i], t))
	}
	return evs
}

// BurnRoom floods roomID with synthetic strokes from a participant that is
// not in the room. It returns the number of events relayed.
func BurnRoom(h *Hub, roomID string, strokes, segments, width, height int) int {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	sender := "burn-" + uuid.NewString()

	sent := 0
	for i := 0; i < strokes; i++ {
		for _, ev := range genStroke(rng, width, height, segments) {
			ev := ev
			h.Broadcast(roomID, config.NetworkMsg{Operation: config.OpDraw, ID: sender, Event: &ev}, nil)
			sent++
		}
	}
	return sent
}
