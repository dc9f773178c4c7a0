package compositor

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestWritePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range src.Pix {
		src.Pix[i] = 0xFF
	}
	src.Set(1, 1, color.RGBA{R: 0xFF, A: 0xFF})

	path := filepath.Join(t.TempDir(), "shots", "out.png")
	err := writePNG(path, src)
	if err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if size := img.Bounds().Size(); size != image.Pt(4, 3) {
		t.Fatalf("expected size (4,3) but got %v", size)
	}
	r, g, b, a := img.At(1, 1).RGBA()
	if (r != 0xFFFF) || (g != 0) || (b != 0) || (a != 0xFFFF) {
		t.Fatalf("unexpected pixel (%x, %x, %x, %x)", r, g, b, a)
	}
}
