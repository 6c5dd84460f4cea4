package imbuf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/scanline/asset"
)

func TestRgba8Decode(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(0, 1, color.NRGBA{0, 255, 0, 255})

	ib, err := Decode(mockImage(t, img))
	if err != nil {
		t.Fatal(err)
	}

	if ib.Width != 2 || ib.Height != 2 {
		t.Fatalf("expected dims to be 2x2; got %dx%d", ib.Width, ib.Height)
	}
	if ib.Format() != Rgba8 {
		t.Fatalf("expected format to be %d; got %d", Rgba8, ib.Format())
	}
	if len(ib.Rect) != 2*2*4 {
		t.Fatalf("expected rect len to be %d; got %d", 16, len(ib.Rect))
	}

	// Image top row (y=0) ends up at the buffer's last row.
	if got := ib.Pixel(0, 1); got != [4]float32{1, 0, 0, 1} {
		t.Fatalf("expected top-left pixel to be red; got %v", got)
	}
	if got := ib.Pixel(0, 0); got != [4]float32{0, 1, 0, 1} {
		t.Fatalf("expected bottom-left pixel to be green; got %v", got)
	}
}

func TestRgba16DecodesToFloat(t *testing.T) {
	ib, err := Decode(mockImage(t, image.NewRGBA64(image.Rect(0, 0, 1, 1))))
	if err != nil {
		t.Fatal(err)
	}
	if ib.Format() != Rgba32F {
		t.Fatalf("expected format to be %d; got %d", Rgba32F, ib.Format())
	}
	if len(ib.RectFloat) != 4 {
		t.Fatalf("expected float rect len to be 4; got %d", len(ib.RectFloat))
	}
}

func TestStreamHttpImage(t *testing.T) {
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/probe.png" {
			png.Encode(w, image.NewRGBA(image.Rect(0, 0, 6, 4)))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res, err := asset.NewResource(server.URL+"/probe.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	ib, err := Decode(res)
	if err != nil {
		t.Fatal(err)
	}
	if ib.Width != 6 || ib.Height != 4 {
		t.Fatalf("expected dims to be 6x4; got %dx%d", ib.Width, ib.Height)
	}
}

func TestSaveRoundTripFlipsRows(t *testing.T) {
	ib := New("out", 3, 2, Rgba8)
	ib.SetPixel(2, 0, [4]float32{0, 0, 1, 1})

	path := filepath.Join(t.TempDir(), "out.png")
	if err := ib.Save(path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	r, g, b, a := img.At(2, 1).RGBA()
	if r != 0 || g != 0 || b != 0xffff || a != 0xffff {
		t.Fatalf("expected bottom-right pixel to be blue; got (%d, %d, %d, %d)", r, g, b, a)
	}

	if err := ib.Save(filepath.Join(t.TempDir(), "out.xyz")); err == nil {
		t.Fatal("expected save with unknown extension to fail")
	}
}

func TestCropAndBlit(t *testing.T) {
	cross := New("cross", 6, 4, Rgba32F)
	face := New("face", 2, 2, Rgba32F)
	face.Clear([4]float32{0.25, 0.5, 0.75, 1})

	cross.Blit(face, 4, 2)
	out := cross.Crop("face2", 4, 2, 2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := out.Pixel(x, y); got != face.Pixel(x, y) {
				t.Fatalf("expected cropped pixel (%d, %d) to be %v; got %v", x, y, face.Pixel(x, y), got)
			}
		}
	}
	if got := cross.Pixel(0, 0); got != [4]float32{} {
		t.Fatalf("expected untouched pixel to stay clear; got %v", got)
	}
}

func TestFilterExtend(t *testing.T) {
	type spec struct {
		passes   int
		x, y     int
		marked   bool
		expected [4]float32
	}

	specs := []spec{
		{1, 2, 2, true, [4]float32{1, 1, 1, 1}},
		{1, 3, 3, true, [4]float32{1, 1, 1, 1}},
		{1, 4, 4, false, [4]float32{}},
		{2, 4, 4, true, [4]float32{1, 1, 1, 1}},
		{2, 0, 0, true, [4]float32{1, 1, 1, 1}},
	}

	for specIndex, s := range specs {
		ib := New("bake", 5, 5, Rgba32F)
		mask := make([]byte, 25)
		ib.SetPixel(2, 2, [4]float32{1, 1, 1, 1})
		mask[2*5+2] = 1
		// An unmarked pixel value must never contribute.
		ib.SetPixel(0, 4, [4]float32{9, 9, 9, 9})

		for i := 0; i < s.passes; i++ {
			ib.FilterExtend(mask)
		}

		if got := mask[s.y*5+s.x] != 0; got != s.marked {
			t.Fatalf("[spec %d] expected mask at (%d, %d) to be %t; got %t", specIndex, s.x, s.y, s.marked, got)
		}
		if s.marked {
			if got := ib.Pixel(s.x, s.y); got != s.expected {
				t.Fatalf("[spec %d] expected pixel at (%d, %d) to be %v; got %v", specIndex, s.x, s.y, s.expected, got)
			}
		}
	}
}

func TestFilterExtendAveragesNeighbours(t *testing.T) {
	ib := New("bake", 3, 1, Rgba8)
	mask := []byte{1, 0, 1}
	ib.SetPixel(0, 0, [4]float32{1, 0, 0, 1})
	ib.SetPixel(2, 0, [4]float32{0, 0, 0, 1})

	ib.FilterExtend(mask)

	got := ib.Rect[4:8]
	if !bytes.Equal(got, []byte{128, 0, 0, 255}) {
		t.Fatalf("expected averaged pixel; got %v", got)
	}
}

func mockImage(t *testing.T, img image.Image) *asset.Resource {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return asset.NewResourceFromBytes("mock.png", buf.Bytes())
}
