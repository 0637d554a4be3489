// Package export saves what a participant sees: the background layer with
// the drawable layer on top.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/Tk21111/sketchroom/render"
)

// Composite flattens the layers. The drawable layer decides the size; the
// background is anchored at the origin beneath it.
func Composite(background, drawable *render.Surface) *image.RGBA {
	out := image.NewRGBA(drawable.Bounds())
	draw.Draw(out, out.Rect, background.Image(), image.Point{}, draw.Src)
	draw.Draw(out, out.Rect, drawable.Image(), image.Point{}, draw.Over)
	return out
}

func PNG(w io.Writer, background, drawable *render.Surface) error {
	if err := png.Encode(w, Composite(background, drawable)); err != nil {
		return fmt.Errorf("export png: %w", err)
	}
	return nil
}

// PDF writes a single page the size of the canvas, one point per pixel.
func PDF(w io.Writer, background, drawable *render.Surface, title string) error {
	img := Composite(background, drawable)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}

	wd, ht := float64(img.Rect.Dx()), float64(img.Rect.Dy())
	orientation := "P"
	if wd > ht {
		orientation = "L"
	}

	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	p.SetTitle(title, true)
	p.SetCreator("sketchroom", true)
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader("canvas", opts, &buf)
	p.ImageOptions("canvas", 0, 0, wd, ht, false, opts, 0, "")

	if err := p.Output(w); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}

// ToFile picks the format from the extension of path (.png or .pdf).
func ToFile(path string, background, drawable *render.Surface) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".pdf" {
		return fmt.Errorf("export: unsupported format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if ext == ".pdf" {
		err = PDF(f, background, drawable, strings.TrimSuffix(filepath.Base(path), ext))
	} else {
		err = PNG(f, background, drawable)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
