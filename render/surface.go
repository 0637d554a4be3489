// Package render applies drawing events to raster surfaces. Output depends
// only on the surface contents and the event, so replaying the same events
// on two participants gives identical pixels.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/tool"
)

// MaxDimension bounds decoded snapshots and surfaces.
const MaxDimension = 8192

var ErrMalformedSnapshot = fmt.Errorf("%w: snapshot", drawing.ErrMalformedEvent)

// Surface is one raster layer (drawable or background), premultiplied RGBA.
type Surface struct {
	img *image.RGBA
}

func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, clampDim(width), clampDim(height)))}
}

func clampDim(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxDimension {
		return MaxDimension
	}
	return n
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Rect }
func (s *Surface) Width() int              { return s.img.Rect.Dx() }
func (s *Surface) Height() int             { return s.img.Rect.Dy() }

// Image exposes the backing raster. Callers must not keep it across events.
func (s *Surface) Image() *image.RGBA { return s.img }

func (s *Surface) Clear() {
	clear(s.img.Pix)
}

func (s *Surface) Fill(c tool.Color) {
	draw.Draw(s.img, s.img.Rect, image.NewUniform(c.NRGBA()), image.Point{}, draw.Src)
}

// Resize changes the dimensions and keeps existing content anchored at the
// origin, cropping what no longer fits.
func (s *Surface) Resize(width, height int) {
	old := s.img
	s.img = image.NewRGBA(image.Rect(0, 0, clampDim(width), clampDim(height)))
	draw.Draw(s.img, s.img.Rect, old, image.Point{}, draw.Src)
}

// Equal reports whether both surfaces hold bit-identical pixels.
func (s *Surface) Equal(o *Surface) bool {
	return s.img.Rect == o.img.Rect && bytes.Equal(s.img.Pix, o.img.Pix)
}

// Snapshot encodes the layer as PNG, which keeps transparency. Pixels are
// widened to 16 bits per channel so that un-premultiplying and decoding again
// gives back exactly the same premultiplied bytes.
func (s *Surface) Snapshot() ([]byte, error) {
	wide := image.NewNRGBA64(s.img.Rect)
	draw.Draw(wide, wide.Rect, s.img, s.img.Rect.Min, draw.Src)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, wide); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Replace swaps the layer contents for the decoded snapshot. Nothing of the
// previous contents survives, so applying the same snapshot twice is the same
// as applying it once.
func (s *Surface) Replace(snapshot []byte) error {
	img, err := decode(snapshot, png.DecodeConfig, png.Decode)
	if err != nil {
		return err
	}
	s.ReplaceImage(img)
	return nil
}

// ReplaceImage clears the layer and blits img at the origin.
func (s *Surface) ReplaceImage(img image.Image) {
	s.Clear()
	b := img.Bounds()
	draw.Draw(s.img, s.img.Rect, img, b.Min, draw.Src)
}

// DecodeImage decodes a user supplied picture (PNG, JPEG or GIF), e.g. a new
// background.
func DecodeImage(b []byte) (image.Image, error) {
	return decode(b,
		func(r io.Reader) (image.Config, error) {
			cfg, _, err := image.DecodeConfig(r)
			return cfg, err
		},
		func(r io.Reader) (image.Image, error) {
			img, _, err := image.Decode(r)
			return img, err
		})
}

func decode(
	b []byte,
	config func(io.Reader) (image.Config, error),
	full func(io.Reader) (image.Image, error),
) (image.Image, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedSnapshot)
	}

	cfg, err := config(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrMalformedSnapshot, cfg.Width, cfg.Height, MaxDimension)
	}

	img, err := full(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return img, nil
}
