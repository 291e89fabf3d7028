package monitor

import (
	"image"
	"image/color"

	"github.com/gorgonia/dbn/internal/linalg"
	"gorgonia.org/tensor"
)

// Scale maps w linearly onto [0,1] and zeroes every value below threshold.
// A constant or non-finite matrix maps to all zeros. w is not modified.
func Scale(w *tensor.Dense, threshold float32) *tensor.Dense {
	retVal := linalg.Clone(w)
	d := linalg.Data(retVal)
	min, max := linalg.MinMax(retVal)
	if max == min || !linalg.Finite(retVal) {
		retVal.Zero()
		return retVal
	}
	// float64, since max-min may not fit a float32
	lo, span := float64(min), float64(max)-float64(min)
	for i, v := range d {
		x := float32((float64(v) - lo) / span)
		if x < threshold {
			x = 0
		}
		d[i] = x
	}
	return retVal
}

// Gray renders a texture with values in [0,1] as an image, one zoom × zoom
// block per entry: a row per hidden unit, a column per visible unit.
func Gray(tex *tensor.Dense, zoom int) *image.Gray {
	if zoom < 1 {
		zoom = 1
	}
	rows, cols := linalg.Dims(tex)
	im := image.NewGray(image.Rect(0, 0, cols*zoom, rows*zoom))
	d := linalg.Data(tex)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c := color.Gray{Y: uint8(d[i*cols+j]*255 + 0.5)}
			for y := i * zoom; y < (i+1)*zoom; y++ {
				for x := j * zoom; x < (j+1)*zoom; x++ {
					im.SetGray(x, y, c)
				}
			}
		}
	}
	return im
}
