// Package render rasterizes the agent population into still frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/epidemic"
)

const circleSegments = 48

// Options configures a Renderer.
type Options struct {
	Size        int               // Pixels along the longer axis
	Margin      float64           // World units drawn around the box
	FillAlpha   float64           // Opacity of the type fill
	TypeColors  map[string]string // Type label to hex color
	StageColors []string          // One hex color per stage
}

// Renderer draws frames of a fixed box. It reads agents only.
type Renderer struct {
	box    r2.Vec
	margin float64
	scale  float64
	width  int
	height int

	fillAlpha   uint8
	typeColors  map[string]color.NRGBA
	stageColors [epidemic.NumStages]color.NRGBA
	fallback    color.NRGBA

	raster *vector.Rasterizer
}

// New builds a renderer for a box of the given size.
func New(box r2.Vec, opts Options) (*Renderer, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("frame size %d must be positive", opts.Size)
	}
	if len(opts.StageColors) != epidemic.NumStages {
		return nil, fmt.Errorf("need %d stage colors, got %d", epidemic.NumStages, len(opts.StageColors))
	}

	spanX, spanY := box.X+2*opts.Margin, box.Y+2*opts.Margin
	r := &Renderer{
		box:        box,
		margin:     opts.Margin,
		scale:      float64(opts.Size) / math.Max(spanX, spanY),
		fillAlpha:  uint8(math.Round(255 * math.Min(math.Max(opts.FillAlpha, 0), 1))),
		typeColors: make(map[string]color.NRGBA, len(opts.TypeColors)),
		fallback:   color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
		raster:     vector.NewRasterizer(1, 1),
	}
	r.width = int(math.Ceil(spanX * r.scale))
	r.height = int(math.Ceil(spanY * r.scale))

	for typ, hex := range opts.TypeColors {
		c, err := ParseHexColor(hex)
		if err != nil {
			return nil, fmt.Errorf("type color %s: %w", typ, err)
		}
		r.typeColors[typ] = c
	}
	for i, hex := range opts.StageColors {
		c, err := ParseHexColor(hex)
		if err != nil {
			return nil, fmt.Errorf("stage color %d: %w", i, err)
		}
		r.stageColors[i] = c
	}
	return r, nil
}

// Bounds returns the frame size in pixels.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// TypeColor returns the configured color of a type, or gray.
func (r *Renderer) TypeColor(typ string) color.NRGBA {
	if c, ok := r.typeColors[typ]; ok {
		return c
	}
	return r.fallback
}

// StageColor returns the outline color of a stage.
func (r *Renderer) StageColor(s epidemic.Stage) color.NRGBA {
	return r.stageColors[s]
}

// toPixel maps world coordinates to pixels, y pointing up.
func (r *Renderer) toPixel(p r2.Vec) (float64, float64) {
	return (p.X + r.margin) * r.scale, float64(r.height) - (p.Y+r.margin)*r.scale
}

// Render draws one frame: every agent as a circle filled with its type
// color and outlined with its stage color. Transparent agents get no fill.
func (r *Renderer) Render(tick int, agents []*epidemic.Agent) *image.RGBA {
	img := image.NewRGBA(r.Bounds())
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	r.drawBox(img)

	for _, a := range agents {
		cx, cy := r.toPixel(a.Position)
		radius := a.Size * r.scale
		if !a.Transparent {
			fill := r.TypeColor(a.Type)
			fill.A = r.fillAlpha
			r.disc(img, cx, cy, radius, 0, fill)
		}
		ring := math.Max(1.5, radius*0.15)
		r.disc(img, cx, cy, radius, math.Max(radius-ring, 0), r.StageColor(a.Stage()))
	}

	r.drawLegend(img, tick, agents)
	return img
}

func (r *Renderer) drawBox(img *image.RGBA) {
	x0, y1 := r.toPixel(r2.Vec{})
	x1, y0 := r.toPixel(r.box)
	edge := image.NewUniform(color.NRGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff})
	ix0, iy0, ix1, iy1 := int(x0), int(y0), int(x1), int(y1)
	for _, rect := range []image.Rectangle{
		image.Rect(ix0, iy0, ix1+1, iy0+1),
		image.Rect(ix0, iy1, ix1+1, iy1+1),
		image.Rect(ix0, iy0, ix0+1, iy1+1),
		image.Rect(ix1, iy0, ix1+1, iy1+1),
	} {
		draw.Draw(img, rect, edge, image.Point{}, draw.Src)
	}
}

// disc fills the annulus between inner and outer radius. An inner radius
// of zero fills the whole circle.
func (r *Renderer) disc(img *image.RGBA, cx, cy, outer, inner float64, c color.NRGBA) {
	bounds := image.Rect(
		int(math.Floor(cx-outer)), int(math.Floor(cy-outer)),
		int(math.Ceil(cx+outer))+1, int(math.Ceil(cy+outer))+1,
	)
	clipped := bounds.Intersect(img.Bounds())
	if clipped.Empty() {
		return
	}
	ox, oy := float64(clipped.Min.X), float64(clipped.Min.Y)

	z := r.raster
	z.Reset(clipped.Dx(), clipped.Dy())
	z.DrawOp = draw.Over
	circlePath(z, cx-ox, cy-oy, outer, false)
	if inner > 0 {
		circlePath(z, cx-ox, cy-oy, inner, true)
	}
	z.Draw(img, clipped, image.NewUniform(c), image.Point{})
}

// circlePath adds a closed polygon approximating a circle. Reversed
// winding cuts a hole in an enclosing path.
func circlePath(z *vector.Rasterizer, cx, cy, radius float64, reverse bool) {
	dir := 1.0
	if reverse {
		dir = -1
	}
	for i := 0; i <= circleSegments; i++ {
		theta := dir * 2 * math.Pi * float64(i) / circleSegments
		x := float32(cx + radius*math.Cos(theta))
		y := float32(cy + radius*math.Sin(theta))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func (r *Renderer) drawLegend(img *image.RGBA, tick int, agents []*epidemic.Agent) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(6, 16),
	}
	d.DrawString("tick " + strconv.Itoa(tick))

	var types []string
	for _, a := range agents {
		if !slices.Contains(types, a.Type) {
			types = append(types, a.Type)
		}
	}
	slices.Sort(types)
	for i, typ := range types {
		d.Src = image.NewUniform(r.TypeColor(typ))
		d.Dot = fixed.P(6, 32+14*i)
		d.DrawString(typ)
	}
}

// FrameName returns the file name of the frame taken at tick. The numeric
// suffix orders frames in a directory.
func FrameName(prefix string, tick int, format string) string {
	return prefix + strconv.Itoa(tick) + "." + strings.ToLower(format)
}

// Encode writes img as png or jpeg.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
	return fmt.Errorf("unsupported image format %q", format)
}

// SaveFrame renders and writes the frame for tick into dir.
func (r *Renderer) SaveFrame(dir, prefix, format string, tick int, agents []*epidemic.Agent) (string, error) {
	path := filepath.Join(dir, FrameName(prefix, tick, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create frame: %w", err)
	}
	if err := Encode(f, r.Render(tick, agents), format, 90); err != nil {
		f.Close()
		return "", fmt.Errorf("encode frame %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close frame: %w", err)
	}
	return path, nil
}

// ParseHexColor parses #RGB or #RRGGBB, with or without the leading hash.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
