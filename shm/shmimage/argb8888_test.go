package shmimage_test

import (
	"image"
	"image/color"
	"testing"

	"deedles.dev/wlcomp/shm/shmimage"
)

func TestARGB8888(t *testing.T) {
	img := shmimage.NewARGB8888(image.Rect(0, 0, 4, 4))
	img.Set(1, 2, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xFF})

	got := img.ARGB8888At(1, 2)
	if got != shmimage.NewARGB8888Color(0x11, 0x22, 0x33, 0xFF) {
		t.Fatalf("pixel: %08X", uint32(got))
	}

	i := img.PixOffset(1, 2)
	if (img.Pix[i] != 0x33) || (img.Pix[i+3] != 0xFF) {
		t.Fatalf("byte order: % X", img.Pix[i:i+4])
	}

	if img.ARGB8888At(10, 10) != 0 {
		t.Fatal("out of bounds pixel is not transparent")
	}
}

func TestFill(t *testing.T) {
	img := shmimage.NewARGB8888(image.Rect(0, 0, 8, 8))
	c := shmimage.NewARGB8888Color(0xFF, 0, 0, 0xFF)
	img.Fill(image.Rect(2, 2, 4, 5), c)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := shmimage.ARGB8888Color(0)
			if image.Pt(x, y).In(image.Rect(2, 2, 4, 5)) {
				want = c
			}
			if got := img.ARGB8888At(x, y); got != want {
				t.Fatalf("(%v, %v): got %08X, want %08X", x, y, uint32(got), uint32(want))
			}
		}
	}
}

func TestOver(t *testing.T) {
	dst := shmimage.NewARGB8888Color(0, 0, 0xFF, 0xFF)
	half := shmimage.NewARGB8888Color(0xFF, 0, 0, 0x80)

	got := half.Over(dst)
	if (got.A() != 0xFF) || (got.R() != 0x80) || (got.B() != 0x7F) {
		t.Fatalf("blend: %08X", uint32(got))
	}

	if shmimage.ARGB8888Color(0).Over(dst) != dst {
		t.Fatal("transparent source changed destination")
	}
}

func TestModelTransparent(t *testing.T) {
	c := shmimage.ARGB8888Model.Convert(color.RGBA{})
	if c != shmimage.ARGB8888Color(0) {
		t.Fatalf("transparent conversion: %v", c)
	}
}
