package shm_test

import (
	"errors"
	"image"
	"os"
	"strconv"
	"testing"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/shm"
	"deedles.dev/wlcomp/shm/shmimage"
)

func newPool(t *testing.T, data []byte) *shm.Pool {
	t.Helper()

	file, err := shm.Create("test")
	if err != nil {
		t.Fatal(err)
	}
	_, err = file.Write(data)
	if err != nil {
		t.Fatal(err)
	}

	pool, err := shm.NewPool(file, int32(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestBufferValidation(t *testing.T) {
	pool := newPool(t, make([]byte, 64))
	defer pool.Release()

	tests := []struct {
		name   string
		offset int32
		w, h   int32
		stride int32
		format wl.ShmFormat
		err    error
	}{
		{name: "Valid", w: 4, h: 4, stride: 16, format: wl.ShmFormatArgb8888},
		{name: "BadFormat", w: 4, h: 4, stride: 16, format: 0x34325258, err: shm.ErrInvalidFormat},
		{name: "ShortStride", w: 4, h: 4, stride: 8, format: wl.ShmFormatArgb8888, err: shm.ErrInvalidStride},
		{name: "PastEnd", offset: 16, w: 4, h: 4, stride: 16, format: wl.ShmFormatXrgb8888, err: shm.ErrInvalidStride},
		{name: "Empty", w: 0, h: 4, stride: 16, format: wl.ShmFormatArgb8888, err: shm.ErrInvalidSize},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf, err := pool.NewBuffer(test.offset, test.w, test.h, test.stride, test.format)
			if !errors.Is(err, test.err) {
				t.Fatalf("got %v, want %v", err, test.err)
			}
			if buf != nil {
				buf.Release()
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	data := make([]byte, 3*12)
	for i := range data {
		data[i] = byte(i)
	}
	pool := newPool(t, data)

	// 2x3 image with a stride of 12 bytes, so 4 bytes of padding per
	// row.
	buf, err := pool.NewBuffer(0, 2, 3, 12, wl.ShmFormatArgb8888)
	if err != nil {
		t.Fatal(err)
	}
	pool.Release()

	img, err := buf.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if img.Rect != image.Rect(0, 0, 2, 3) {
		t.Fatalf("bounds: %v", img.Rect)
	}
	if (img.Pix[8] != 12) || (img.Pix[16] != 24) {
		t.Fatalf("rows not copied by stride: % X", img.Pix)
	}

	err = buf.Release()
	if err != nil {
		t.Fatal(err)
	}
	_, err = buf.Snapshot()
	if err == nil {
		t.Fatal("snapshot of released buffer succeeded")
	}
}

func TestResize(t *testing.T) {
	file, err := shm.Create("test")
	if err != nil {
		t.Fatal(err)
	}
	file.Truncate(16)

	pool, err := shm.NewPool(file, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Release()

	err = pool.Resize(8)
	if !errors.Is(err, shm.ErrInvalidSize) {
		t.Fatalf("shrink: %v", err)
	}

	file.Truncate(64)
	err = pool.Resize(64)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Size() != 64 {
		t.Fatalf("size: %v", pool.Size())
	}
}

func TestImageBuffer(t *testing.T) {
	ib, err := shm.NewImageBuffer(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer ib.Destroy()

	red := shmimage.NewARGB8888Color(0xFF, 0, 0, 0xFF)
	ib.Image().Fill(ib.Bounds(), red)

	dup, err := os.Open("/proc/self/fd/" + strconv.Itoa(int(ib.File().Fd())))
	if err != nil {
		t.Skipf("cannot reopen memfd: %v", err)
	}
	pool, err := shm.NewPool(dup, ib.Len())
	if err != nil {
		t.Fatal(err)
	}
	buf, err := pool.NewBuffer(0, 4, 4, ib.Stride(), wl.ShmFormatArgb8888)
	pool.Release()
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	img, err := buf.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	r, _, _, a := img.At(3, 3).RGBA()
	if (r != 0xFFFF) || (a != 0xFFFF) {
		t.Fatalf("color: %v %v", r, a)
	}
}
