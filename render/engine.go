package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/tool"
)

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
	fontErr    error
)

// sans is the face every participant renders text with. It ships inside the
// binary so glyph shapes and advances never depend on installed fonts.
func sans() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSource, fontErr
}

// Engine applies drawing events to surfaces. It is not safe for concurrent
// use; a participant drives it from its event queue.
type Engine struct {
	source *text.FontSource
	faces  map[int]text.Face
}

func NewEngine() (*Engine, error) {
	src, err := sans()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return &Engine{source: src, faces: make(map[int]text.Face)}, nil
}

func (e *Engine) face(size int) text.Face {
	f, ok := e.faces[size]
	if !ok {
		f = e.source.Face(float64(size))
		e.faces[size] = f
	}
	return f
}

// GlyphWidth is the horizontal advance of s at a font size of size pixels.
func (e *Engine) GlyphWidth(size int, s string) float64 {
	return e.face(size).Advance(s)
}

// Apply draws ev onto s. Geometry outside the surface is clipped.
func (e *Engine) Apply(s *Surface, ev drawing.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	p := ev.Tool
	var (
		cov *coverage
		err error
	)
	if ev.IsText() {
		cov, err = e.textCoverage(s.Bounds(), ev)
	} else {
		cov, err = strokeCoverage(s.Bounds(), ev)
	}
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	if cov == nil {
		return nil
	}

	if p.Blur > 0 {
		composite(s.img, cov.blurred(p.Blur), p)
	}
	composite(s.img, cov, p)
	return nil
}

// region is the area an event can touch: its shape bounds grown by the glow
// radius, limited to the surface grown by the same radius so off-surface
// geometry still glows onto the edge. Empty means the event misses.
func region(surface image.Rectangle, minX, minY, maxX, maxY float64, blur int) image.Rectangle {
	if maxX < float64(surface.Min.X-blur) || maxY < float64(surface.Min.Y-blur) ||
		minX > float64(surface.Max.X+blur) || minY > float64(surface.Max.Y+blur) {
		return image.Rectangle{}
	}

	limit := surface.Inset(-blur)
	r := image.Rect(
		int(math.Floor(math.Max(minX, float64(limit.Min.X))))-blur,
		int(math.Floor(math.Max(minY, float64(limit.Min.Y))))-blur,
		int(math.Ceil(math.Min(maxX, float64(limit.Max.X))))+blur,
		int(math.Ceil(math.Min(maxY, float64(limit.Max.Y))))+blur,
	)
	r = r.Intersect(limit)
	if r.Empty() || !r.Overlaps(surface) {
		return image.Rectangle{}
	}
	return r
}

func strokeCoverage(bounds image.Rectangle, ev drawing.Event) (*coverage, error) {
	p := ev.Tool
	half := float64(p.Size) / 2
	// a square cap reaches half the width past the end along the diagonal
	reach := half*math.Sqrt2 + 1

	r := region(bounds,
		math.Min(ev.Start.X, ev.End.X)-reach, math.Min(ev.Start.Y, ev.End.Y)-reach,
		math.Max(ev.Start.X, ev.End.X)+reach, math.Max(ev.Start.Y, ev.End.Y)+reach,
		p.Blur)
	if r.Empty() {
		return nil, nil
	}

	return rasterize(r, func(dc *gg.Context, ox, oy float64) error {
		x1, y1 := ev.Start.X-ox, ev.Start.Y-oy
		x2, y2 := ev.End.X-ox, ev.End.Y-oy

		// a press without movement still leaves a mark the shape of the cap
		if x1 == x2 && y1 == y2 {
			if p.LineCap == tool.CapSquare {
				dc.DrawRectangle(x1-half, y1-half, float64(p.Size), float64(p.Size))
			} else {
				dc.DrawCircle(x1, y1, half)
			}
			return dc.Fill()
		}

		dc.SetLineWidth(float64(p.Size))
		if p.LineCap == tool.CapSquare {
			dc.SetLineCap(gg.LineCapSquare)
		} else {
			dc.SetLineCap(gg.LineCapRound)
		}
		dc.DrawLine(x1, y1, x2, y2)
		return dc.Stroke()
	})
}

// textCoverage renders ev.Text with its baseline starting at ev.Start, using
// the tool size as the font pixel size.
func (e *Engine) textCoverage(bounds image.Rectangle, ev drawing.Event) (*coverage, error) {
	p := ev.Tool
	face := e.face(p.Size)
	size := float64(p.Size)
	advance := face.Advance(ev.Text)

	r := region(bounds,
		ev.Start.X-size, ev.Start.Y-2*size,
		ev.Start.X+advance+size, ev.Start.Y+size,
		p.Blur)
	if r.Empty() {
		return nil, nil
	}

	return rasterize(r, func(dc *gg.Context, ox, oy float64) error {
		dc.SetFont(face)
		dc.DrawString(ev.Text, ev.Start.X-ox, ev.Start.Y-oy)
		return nil
	})
}

func div255(x int) int {
	return (x + 127) / 255
}

// composite blends a coverage mask into dst. source-over paints the tool
// color; destination-out removes alpha where the mask is set and ignores
// the color entirely.
func composite(dst *image.RGBA, cov *coverage, p tool.Params) {
	area := cov.rect.Intersect(dst.Rect)
	c := p.Color

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			m := int(cov.at(x, y))
			if m == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			px := dst.Pix[i : i+4 : i+4]

			switch p.Composite {
			case tool.DestinationOut:
				keep := 255 - m
				for k := 0; k < 4; k++ {
					px[k] = uint8(div255(int(px[k]) * keep))
				}
			default:
				sa := div255(int(c.A) * m)
				keep := 255 - sa
				px[0] = uint8(div255(int(c.R)*sa) + div255(int(px[0])*keep))
				px[1] = uint8(div255(int(c.G)*sa) + div255(int(px[1])*keep))
				px[2] = uint8(div255(int(c.B)*sa) + div255(int(px[2])*keep))
				px[3] = uint8(sa + div255(int(px[3])*keep))
			}
		}
	}
}
