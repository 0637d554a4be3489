package tool

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color is an 8-bit straight-alpha color. Every accepted input form is
// canonicalized into it so two participants never disagree on a value.
type Color struct {
	R, G, B, A uint8
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
)

// NRGBA converts c for use with image/draw.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// String returns the wire form: #rrggbb, or #rrggbbaa when not opaque.
func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor accepts hex (#rgb, #rrggbb, #rrggbbaa), rgb(), rgba(), hsl()
// and SVG named colors.
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return Color{}, fmt.Errorf("%w: empty color", ErrInvalidParameter)
	}

	switch {
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:])
	case strings.HasPrefix(v, "rgba("):
		return parseFunc(v, "rgba(", 4)
	case strings.HasPrefix(v, "rgb("):
		return parseFunc(v, "rgb(", 3)
	case strings.HasPrefix(v, "hsl("):
		return parseHSL(v)
	}

	if named, ok := colornames.Map[v]; ok {
		return Color{named.R, named.G, named.B, named.A}, nil
	}
	return Color{}, fmt.Errorf("%w: unknown color %q", ErrInvalidParameter, s)
}

func parseHex(h string) (Color, error) {
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]}) + "ff"
	case 6:
		h += "ff"
	case 8:
	default:
		return Color{}, fmt.Errorf("%w: bad hex color #%s", ErrInvalidParameter, h)
	}

	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: bad hex color #%s", ErrInvalidParameter, h)
	}
	return Color{uint8(n >> 24), uint8(n >> 16), uint8(n >> 8), uint8(n)}, nil
}

func funcArgs(v, prefix string, n int) ([]string, error) {
	if !strings.HasSuffix(v, ")") {
		return nil, fmt.Errorf("%w: unterminated %s", ErrInvalidParameter, v)
	}
	args := strings.Split(v[len(prefix):len(v)-1], ",")
	if len(args) != n {
		return nil, fmt.Errorf("%w: %s wants %d components", ErrInvalidParameter, v, n)
	}
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args, nil
}

func parseFunc(v, prefix string, n int) (Color, error) {
	args, err := funcArgs(v, prefix, n)
	if err != nil {
		return Color{}, err
	}

	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		c, err := strconv.Atoi(args[i])
		if err != nil || c < 0 || c > 255 {
			return Color{}, fmt.Errorf("%w: channel %q out of range", ErrInvalidParameter, args[i])
		}
		rgb[i] = uint8(c)
	}

	alpha := uint8(255)
	if n == 4 {
		a, err := strconv.ParseFloat(args[3], 64)
		if err != nil || math.IsNaN(a) || a < 0 || a > 1 {
			return Color{}, fmt.Errorf("%w: alpha %q out of range", ErrInvalidParameter, args[3])
		}
		alpha = uint8(math.Round(a * 255))
	}
	return Color{rgb[0], rgb[1], rgb[2], alpha}, nil
}

func percent(s string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || !strings.HasSuffix(s, "%") || p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: percentage %q", ErrInvalidParameter, s)
	}
	return p / 100, nil
}

// parseHSL handles the hsl(h, s%, l%) form the relay uses for guest colors.
func parseHSL(v string) (Color, error) {
	args, err := funcArgs(v, "hsl(", 3)
	if err != nil {
		return Color{}, err
	}

	h, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return Color{}, fmt.Errorf("%w: hue %q", ErrInvalidParameter, args[0])
	}
	s, err := percent(args[1])
	if err != nil {
		return Color{}, err
	}
	l, err := percent(args[2])
	if err != nil {
		return Color{}, err
	}

	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	channel := func(t float64) uint8 {
		switch {
		case t < 0:
			t++
		case t > 1:
			t--
		}
		var c float64
		switch {
		case t < 1.0/6:
			c = p + (q-p)*6*t
		case t < 0.5:
			c = q
		case t < 2.0/3:
			c = p + (q-p)*(2.0/3-t)*6
		default:
			c = p
		}
		return uint8(math.Round(c * 255))
	}

	return Color{channel(h + 1.0/3), channel(h), channel(h - 1.0/3), 255}, nil
}
