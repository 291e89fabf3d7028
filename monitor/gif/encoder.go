// Package gif renders weight snapshots into an animated GIF, one frame per
// snapshot, with a caption naming the connection, epoch and batch.
package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/dbn/monitor"
	"github.com/gorgonia/dbn/rbm"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 72.0
	fontsize        = 10.0
	lineheight      = 1.2
	dummyLongString = `W0 E1000 B10000`
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var grays = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{uint8(i)}
	}
	return p
}()

// Encoder implements monitor.Sink.
type Encoder struct {
	Zoom      int     // pixels per weight
	Threshold float32 // see monitor.Scale
	Delay     int     // per frame, in 100ths of a second
	font.Drawer
	io.Writer

	out    *gif.GIF
	frames int
	padW   int
}

// NewEncoder creates an encoder that writes to w on Flush.
func NewEncoder(w io.Writer, zoom int) *Encoder {
	return &Encoder{
		Zoom:   zoom,
		Delay:  20,
		Writer: w,
		padW:   4,
		Drawer: font.Drawer{
			Src: image.Black,
			Face: truetype.NewFace(regular, &truetype.Options{
				Size:    fontsize,
				DPI:     dpi,
				Hinting: font.HintingFull,
			}),
		},
		out: &gif.GIF{LoopCount: 0},
	}
}

// Frames is the number of frames encoded so far.
func (enc *Encoder) Frames() int { return enc.frames }

// Encode adds a frame if s carries a weight snapshot. Reports without one
// are ignored.
func (enc *Encoder) Encode(s rbm.Stats) error {
	if s.Weights == nil {
		return nil
	}
	tex := monitor.Gray(monitor.Scale(s.Weights, enc.Threshold), enc.Zoom)
	caption := fmt.Sprintf("W%d E%d B%d", s.Connection, s.Epoch, s.Batch)
	if s.EpochEnd {
		caption = fmt.Sprintf("W%d E%d end", s.Connection, s.Epoch)
	}

	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
	textW := font.MeasureString(enc.Face, dummyLongString).Ceil() + 2*enc.padW
	b := tex.Bounds()
	w := maxInt(b.Dx(), textW)
	h := b.Dy() + dy + enc.padW

	im := image.NewPaletted(image.Rect(0, 0, w, h), grays)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	enc.Dst = im
	enc.Dot = fixed.P(enc.padW, dy)
	enc.DrawString(caption)
	draw.Draw(im, image.Rect(0, dy+enc.padW, b.Dx(), h), tex, image.Point{}, draw.Src)

	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, enc.Delay)
	enc.frames++
	return nil
}

// Flush writes the gif into the writer.
func (enc *Encoder) Flush() error {
	if enc.frames == 0 {
		return nil
	}
	// connections of different sizes share one canvas
	var w, h int
	for _, im := range enc.out.Image {
		w = maxInt(w, im.Bounds().Dx())
		h = maxInt(h, im.Bounds().Dy())
	}
	enc.out.Config = image.Config{ColorModel: grays, Width: w, Height: h}
	return gif.EncodeAll(enc.Writer, enc.out)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
