// Package img converts images to and from the bit streams carried over the
// simulated link. Images are reduced to square grayscale frames; each pixel
// contributes eight bits, most significant first.
package img

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// Load reads an image file, converts it to grayscale and scales it to a
// size x size frame.
func Load(path string, size int) (*image.Gray, error) {
	if size <= 0 {
		return nil, fmt.Errorf("load %s: size %d must be positive", path, size)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return Resize(src, size), nil
}

// Resize converts any image to a size x size grayscale frame using
// bilinear interpolation.
func Resize(src image.Image, size int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), draw.Src, nil)
	return gray
}

// ToBits unpacks the frame row-major into one byte per bit, MSB first.
func ToBits(frame *image.Gray) []byte {
	b := frame.Bounds()
	bits := make([]byte, 0, b.Dx()*b.Dy()*8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := frame.GrayAt(x, y).Y
			for k := 7; k >= 0; k-- {
				bits = append(bits, (v>>k)&1)
			}
		}
	}
	return bits
}

// FromBits packs a bit stream back into a size x size grayscale frame. Extra
// bits beyond size*size*8 are ignored; missing bits read as zero, so a
// truncated stream yields a frame with a black tail rather than an error.
func FromBits(bits []byte, size int) *image.Gray {
	frame := image.NewGray(image.Rect(0, 0, size, size))
	for i := 0; i < size*size; i++ {
		var v byte
		for k := 0; k < 8; k++ {
			v <<= 1
			if idx := i*8 + k; idx < len(bits) {
				v |= bits[idx] & 1
			}
		}
		frame.SetGray(i%size, i/size, color.Gray{Y: v})
	}
	return frame
}

// Save writes the frame as a PNG file.
func Save(path string, frame *image.Gray) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, frame); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// BitErrorRate counts positions where the two streams disagree, over the
// length of the shorter one.
func BitErrorRate(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	errs := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			errs++
		}
	}
	return float64(errs) / float64(n)
}
