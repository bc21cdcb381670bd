// Package tensor holds the shape bookkeeping shared by the layers.
//
// Feature maps are 3-D volumes (depth × height × width) stored in a single
// flat []float64. The canonical order is depth-major, then row-major inside
// each channel: index = (d*Height + h)*Width + w.
package tensor

import "fmt"

// Volume is the shape of a feature map.
type Volume struct {
	Depth  int
	Height int
	Width  int
}

// Vol is shorthand for Volume{Depth: d, Height: h, Width: w}.
func Vol(d, h, w int) Volume {
	return Volume{Depth: d, Height: h, Width: w}
}

// Size returns the number of elements in the volume.
func (v Volume) Size() int {
	return v.Depth * v.Height * v.Width
}

// Area returns the number of elements in one channel.
func (v Volume) Area() int {
	return v.Height * v.Width
}

// Validate checks that all dimensions are positive.
func (v Volume) Validate() error {
	if v.Depth <= 0 || v.Height <= 0 || v.Width <= 0 {
		return fmt.Errorf("invalid volume %s: all dimensions must be > 0", v)
	}
	return nil
}

// String renders the volume as HxWxD, the order used in layer summaries.
func (v Volume) String() string {
	return fmt.Sprintf("%dx%dx%d", v.Height, v.Width, v.Depth)
}

// Index returns the flat offset of (d, h, w).
func (v Volume) Index(d, h, w int) int {
	return (d*v.Height+h)*v.Width + w
}

// Padded returns the volume grown by p cells on every spatial border.
func (v Volume) Padded(p int) Volume {
	return Volume{Depth: v.Depth, Height: v.Height + 2*p, Width: v.Width + 2*p}
}

// Channel returns the sub-slice holding channel d. The result aliases data.
func (v Volume) Channel(data []float64, d int) []float64 {
	a := v.Area()
	return data[d*a : (d+1)*a]
}

// Window copies the size×size window of channel d whose top-left corner is
// (row, col) into dst, row-major, and returns dst.
func (v Volume) Window(data []float64, d, row, col, size int, dst []float64) []float64 {
	k := 0
	for u := 0; u < size; u++ {
		base := v.Index(d, row+u, col)
		for w := 0; w < size; w++ {
			dst[k] = data[base+w]
			k++
		}
	}
	return dst
}

// Pad copies src (shape v) into the interior of dst (shape v.Padded(p)).
// The border of dst is left untouched.
func (v Volume) Pad(src, dst []float64, p int) {
	pv := v.Padded(p)
	for d := 0; d < v.Depth; d++ {
		for h := 0; h < v.Height; h++ {
			s := v.Index(d, h, 0)
			t := pv.Index(d, h+p, p)
			copy(dst[t:t+v.Width], src[s:s+v.Width])
		}
	}
}

// Crop strips a p-cell border from src (shape v.Padded(p)) into dst (shape v).
func (v Volume) Crop(src, dst []float64, p int) {
	pv := v.Padded(p)
	for d := 0; d < v.Depth; d++ {
		for h := 0; h < v.Height; h++ {
			s := pv.Index(d, h+p, p)
			t := v.Index(d, h, 0)
			copy(dst[t:t+v.Width], src[s:s+v.Width])
		}
	}
}

// Split converts a flat volume into per-channel row-major copies.
func (v Volume) Split(data []float64) [][]float64 {
	out := make([][]float64, v.Depth)
	for d := range out {
		out[d] = append([]float64(nil), v.Channel(data, d)...)
	}
	return out
}

// Join is the inverse of Split.
func (v Volume) Join(channels [][]float64) []float64 {
	out := make([]float64, 0, v.Size())
	for _, c := range channels {
		out = append(out, c...)
	}
	return out
}

// OutputDim returns floor((in + 2*padding - window)/stride) + 1, the spatial
// size produced by sliding a window over an input dimension.
func OutputDim(in, window, stride, padding int) int {
	if stride <= 0 {
		return 0
	}
	span := in + 2*padding - window
	if span < 0 {
		return 0
	}
	return span/stride + 1
}
