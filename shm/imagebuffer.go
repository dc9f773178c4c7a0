package shm

import (
	"errors"
	"fmt"
	"image"
	"os"

	"deedles.dev/wlcomp/shm/shmimage"
	"golang.org/x/sys/unix"
)

// ImageBuffer is a writable ARGB8888 image backed by shared memory.
// Clients draw into Image and share File with the compositor through
// wl_shm.create_pool.
type ImageBuffer struct {
	w, h int32
	file *os.File
	mmap Mmap
}

func NewImageBuffer(w, h int32) (s *ImageBuffer, err error) {
	s = &ImageBuffer{w: w, h: h}
	defer func() {
		if err != nil {
			s.Destroy()
		}
	}()

	file, err := Create("wlcomp-buffer")
	if err != nil {
		return s, fmt.Errorf("create SHM file: %w", err)
	}
	s.file = file

	err = s.file.Truncate(int64(s.Len()))
	if err != nil {
		return s, fmt.Errorf("truncate SHM file: %w", err)
	}

	mmap, err := Map(file, int(s.Len()), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return s, fmt.Errorf("mmap SHM file: %w", err)
	}
	s.mmap = mmap

	return s, nil
}

func (s *ImageBuffer) Destroy() error {
	var errs []error
	if s.mmap != nil {
		errs = append(errs, s.mmap.Unmap())
		s.mmap = nil
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}
	return errors.Join(errs...)
}

// File returns the backing file.
func (s *ImageBuffer) File() *os.File {
	return s.file
}

func (s *ImageBuffer) Stride() int32 {
	return s.w * 4
}

func (s *ImageBuffer) Len() int32 {
	return s.Stride() * s.h
}

func (s *ImageBuffer) Bounds() image.Rectangle {
	return image.Rect(
		0,
		0,
		int(s.w),
		int(s.h),
	)
}

// Resize changes the dimensions of the image, growing the backing
// file if necessary. The pool on the compositor's side must be
// resized to Len afterwards.
func (s *ImageBuffer) Resize(w, h int32) error {
	if (w == s.w) && (h == s.h) {
		return nil
	}

	s.w = w
	s.h = h
	if int(s.Len()) <= cap(s.mmap) {
		s.mmap = s.mmap[:s.Len()]
		return nil
	}

	err := s.file.Truncate(int64(s.Len()))
	if err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	err = s.mmap.Unmap()
	if err != nil {
		return fmt.Errorf("unmap: %w", err)
	}
	mmap, err := Map(s.file, int(s.Len()), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	s.mmap = mmap

	return nil
}

func (s *ImageBuffer) Image() *shmimage.ARGB8888 {
	return &shmimage.ARGB8888{
		Pix:    s.mmap,
		Stride: int(s.Stride()),
		Rect:   s.Bounds(),
	}
}
