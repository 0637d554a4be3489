package render

import (
	"image"

	"github.com/gogpu/gg"
)

// coverage is an 8-bit alpha mask placed at rect in surface coordinates.
type coverage struct {
	rect image.Rectangle
	a    []uint8
}

func (c *coverage) at(x, y int) uint8 {
	return c.a[(y-c.rect.Min.Y)*c.rect.Dx()+(x-c.rect.Min.X)]
}

// rasterize runs paint on a scratch gg context covering rect, painting in
// opaque white, and keeps the resulting alpha channel.
func rasterize(rect image.Rectangle, paint func(dc *gg.Context, ox, oy float64) error) (*coverage, error) {
	dc := gg.NewContext(rect.Dx(), rect.Dy())
	defer dc.Close()

	dc.SetRGBA(1, 1, 1, 1)
	if err := paint(dc, float64(rect.Min.X), float64(rect.Min.Y)); err != nil {
		return nil, err
	}

	mask := gg.NewMaskFromAlpha(dc.Image())
	c := &coverage{rect: rect, a: make([]uint8, rect.Dx()*rect.Dy())}
	w := rect.Dx()
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < w; x++ {
			c.a[y*w+x] = mask.At(x, y)
		}
	}
	return c, nil
}

// blurred returns a copy of c spread by a separable box blur of the given
// radius. Integer sums keep it reproducible everywhere.
func (c *coverage) blurred(radius int) *coverage {
	w, h := c.rect.Dx(), c.rect.Dy()
	window := 2*radius + 1
	tmp := make([]uint8, len(c.a))
	out := &coverage{rect: c.rect, a: make([]uint8, len(c.a))}

	for y := 0; y < h; y++ {
		row := c.a[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			sum := 0
			for k := x - radius; k <= x+radius; k++ {
				if k >= 0 && k < w {
					sum += int(row[k])
				}
			}
			tmp[y*w+x] = uint8((sum + window/2) / window)
		}
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			sum := 0
			for k := y - radius; k <= y+radius; k++ {
				if k >= 0 && k < h {
					sum += int(tmp[k*w+x])
				}
			}
			out.a[y*w+x] = uint8((sum + window/2) / window)
		}
	}
	return out
}
