package imbuf

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/achilleasa/scanline/asset"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/chewxy/math32"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

type Format uint32

const (
	Rgba8 Format = iota
	Rgba32F
)

// An image buffer with either 8-bit or float RGBA storage. Row 0 is the
// bottom row of the image.
type ImBuf struct {
	Name string

	Width  int
	Height int

	// Exactly one of Rect / RectFloat is populated.
	Rect      []uint8
	RectFloat []float32
}

// Allocate a cleared image buffer.
func New(name string, width, height int, format Format) *ImBuf {
	ib := &ImBuf{
		Name:   name,
		Width:  width,
		Height: height,
	}
	switch format {
	case Rgba32F:
		ib.RectFloat = make([]float32, width*height*4)
	default:
		ib.Rect = make([]uint8, width*height*4)
	}
	return ib
}

// Decode an image buffer from a Resource. 16-bit images are decoded into
// float storage, everything else into 8-bit storage. RGB and luminance
// sources are expanded to RGBA.
func Decode(res *asset.Resource) (*ImBuf, error) {
	img, _, err := image.Decode(res)
	if err != nil {
		return nil, fmt.Errorf("imbuf: could not decode %s: %w", res.Path(), err)
	}
	return FromImage(res.Path(), img), nil
}

// Convert an image.Image into an image buffer flipping rows so that row 0
// becomes the bottom row.
func FromImage(name string, img image.Image) *ImBuf {
	bounds := img.Bounds()
	format := Rgba8
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		format = Rgba32F
	}

	ib := New(name, bounds.Dx(), bounds.Dy(), format)
	for y := 0; y < ib.Height; y++ {
		srcY := bounds.Max.Y - 1 - y
		for x := 0; x < ib.Width; x++ {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, srcY)).(color.NRGBA64)
			ib.SetPixel(x, y, [4]float32{
				float32(c.R) / 0xffff,
				float32(c.G) / 0xffff,
				float32(c.B) / 0xffff,
				float32(c.A) / 0xffff,
			})
		}
	}
	return ib
}

// Get the storage format of this buffer.
func (ib *ImBuf) Format() Format {
	if ib.RectFloat != nil {
		return Rgba32F
	}
	return Rgba8
}

// Returns true if the buffer has pixel storage.
func (ib *ImBuf) Valid() bool {
	return ib != nil && ib.Width > 0 && ib.Height > 0 && (ib.Rect != nil || ib.RectFloat != nil)
}

// Get the RGBA value at (x, y) as floats in [0, 1]. Coordinates are not
// bounds checked.
func (ib *ImBuf) Pixel(x, y int) [4]float32 {
	offset := (y*ib.Width + x) * 4
	if ib.RectFloat != nil {
		return [4]float32{ib.RectFloat[offset], ib.RectFloat[offset+1], ib.RectFloat[offset+2], ib.RectFloat[offset+3]}
	}
	return [4]float32{
		float32(ib.Rect[offset]) / 255,
		float32(ib.Rect[offset+1]) / 255,
		float32(ib.Rect[offset+2]) / 255,
		float32(ib.Rect[offset+3]) / 255,
	}
}

// Set the RGBA value at (x, y). 8-bit buffers clamp and round the value.
func (ib *ImBuf) SetPixel(x, y int, col [4]float32) {
	offset := (y*ib.Width + x) * 4
	if ib.RectFloat != nil {
		copy(ib.RectFloat[offset:offset+4], col[:])
		return
	}
	for i := 0; i < 4; i++ {
		ib.Rect[offset+i] = FloatToByte(col[i])
	}
}

// Fill the whole buffer with a color.
func (ib *ImBuf) Clear(col [4]float32) {
	for y := 0; y < ib.Height; y++ {
		for x := 0; x < ib.Width; x++ {
			ib.SetPixel(x, y, col)
		}
	}
}

// Copy a width x height region starting at (srcX, srcY) into a new buffer
// with the same storage format.
func (ib *ImBuf) Crop(name string, srcX, srcY, width, height int) *ImBuf {
	out := New(name, width, height, ib.Format())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetPixel(x, y, ib.Pixel(srcX+x, srcY+y))
		}
	}
	return out
}

// Copy src into this buffer with its lower-left corner at (dstX, dstY).
// Pixels falling outside the buffer are skipped.
func (ib *ImBuf) Blit(src *ImBuf, dstX, dstY int) {
	for y := 0; y < src.Height; y++ {
		if dstY+y < 0 || dstY+y >= ib.Height {
			continue
		}
		for x := 0; x < src.Width; x++ {
			if dstX+x < 0 || dstX+x >= ib.Width {
				continue
			}
			ib.SetPixel(dstX+x, dstY+y, src.Pixel(x, y))
		}
	}
}

// Convert to an image.Image with row 0 at the top.
func (ib *ImBuf) Image() image.Image {
	bounds := image.Rect(0, 0, ib.Width, ib.Height)
	if ib.RectFloat != nil {
		img := image.NewNRGBA64(bounds)
		for y := 0; y < ib.Height; y++ {
			for x := 0; x < ib.Width; x++ {
				p := ib.Pixel(x, y)
				img.SetNRGBA64(x, ib.Height-1-y, color.NRGBA64{
					R: floatToUint16(p[0]),
					G: floatToUint16(p[1]),
					B: floatToUint16(p[2]),
					A: floatToUint16(p[3]),
				})
			}
		}
		return img
	}

	img := image.NewNRGBA(bounds)
	for y := 0; y < ib.Height; y++ {
		src := ib.Rect[y*ib.Width*4 : (y+1)*ib.Width*4]
		dst := img.Pix[(ib.Height-1-y)*img.Stride:]
		copy(dst[:ib.Width*4], src)
	}
	return img
}

// Save the buffer to a file. The encoder is selected by the file extension
// (png, jpg/jpeg or bmp).
func (ib *ImBuf) Save(path string) error {
	var encoder imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", "":
		encoder = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(95)
	case ".bmp":
		encoder = imgio.BMPEncoder()
	default:
		return fmt.Errorf("imbuf: unsupported output format %q", filepath.Ext(path))
	}

	if err := imgio.Save(path, ib.Image(), encoder); err != nil {
		return fmt.Errorf("imbuf: could not save %s: %w", path, err)
	}
	return nil
}

// Convert a float channel value to a byte with clamping and rounding.
func FloatToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func floatToUint16(v float32) uint16 {
	return uint16(math32.Max(0, math32.Min(1, v))*0xffff + 0.5)
}
