package shm

import (
	"errors"
	"fmt"
	"image"
	"os"
	"runtime/debug"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/ximage/format"
	"golang.org/x/sys/unix"
)

var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrInvalidStride = errors.New("invalid stride")
	ErrInvalidSize   = errors.New("invalid size")
	ErrInvalidFD     = errors.New("invalid file descriptor")
)

// Formats lists the wl_shm formats that the compositor accepts.
var Formats = []wl.ShmFormat{
	wl.ShmFormatArgb8888,
	wl.ShmFormatXrgb8888,
}

// PixelFormat returns the pixel layout of a wl_shm format.
func PixelFormat(f wl.ShmFormat) (format.Format, bool) {
	switch f {
	case wl.ShmFormatArgb8888:
		return format.ARGB8888, true
	case wl.ShmFormatXrgb8888:
		return format.XRGB8888, true
	}
	return nil, false
}

// Pool is a client's shared memory pool, mapped read-only into the
// compositor. It stays mapped while any buffer created from it is
// alive, even after the pool itself has been destroyed.
type Pool struct {
	file *os.File
	mmap Mmap
	refs int
}

// NewPool maps size bytes of file. The pool takes ownership of file.
func NewPool(file *os.File, size int32) (*Pool, error) {
	if size <= 0 {
		file.Close()
		return nil, fmt.Errorf("%w: pool size %v", ErrInvalidSize, size)
	}

	mmap, err := Map(file, int(size), unix.PROT_READ)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidFD, err)
	}

	return &Pool{file: file, mmap: mmap, refs: 1}, nil
}

// Size returns the mapped size of the pool.
func (p *Pool) Size() int32 {
	return int32(len(p.mmap))
}

// Resize remaps the pool with a new size. Pools may only grow.
func (p *Pool) Resize(size int32) error {
	if int(size) < len(p.mmap) {
		return fmt.Errorf("%w: pool cannot shrink from %v to %v", ErrInvalidSize, len(p.mmap), size)
	}
	if int(size) == len(p.mmap) {
		return nil
	}

	mmap, err := Map(p.file, int(size), unix.PROT_READ)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFD, err)
	}
	p.mmap.Unmap()
	p.mmap = mmap
	return nil
}

func (p *Pool) ref() {
	p.refs++
}

// Release drops a reference to the pool, unmapping it when the last
// one is gone. The wl_shm_pool object and each of its buffers hold
// one reference.
func (p *Pool) Release() error {
	p.refs--
	if p.refs > 0 {
		return nil
	}

	return errors.Join(
		p.mmap.Unmap(),
		p.file.Close(),
	)
}

// Buffer is a region of a Pool interpreted as an image.
type Buffer struct {
	pool   *Pool
	offset int32
	width  int32
	height int32
	stride int32
	format wl.ShmFormat
}

// NewBuffer validates the layout of a buffer within p and returns it.
// The buffer holds a reference to p until released.
func (p *Pool) NewBuffer(offset, width, height, stride int32, f wl.ShmFormat) (*Buffer, error) {
	pf, ok := PixelFormat(f)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, f)
	}
	if (width <= 0) || (height <= 0) {
		return nil, fmt.Errorf("%w: %vx%v", ErrInvalidSize, width, height)
	}
	if (offset < 0) || (stride < width*int32(pf.Size())) {
		return nil, fmt.Errorf("%w: offset %v, stride %v, width %v", ErrInvalidStride, offset, stride, width)
	}
	if int64(offset)+int64(stride)*int64(height) > int64(len(p.mmap)) {
		return nil, fmt.Errorf("%w: buffer extends past the end of the pool", ErrInvalidStride)
	}

	p.ref()
	return &Buffer{
		pool:   p,
		offset: offset,
		width:  width,
		height: height,
		stride: stride,
		format: f,
	}, nil
}

// Size returns the buffer's size in pixels.
func (b *Buffer) Size() image.Point {
	return image.Pt(int(b.width), int(b.height))
}

func (b *Buffer) Format() wl.ShmFormat {
	return b.format
}

// Release drops the buffer's reference to its pool.
func (b *Buffer) Release() error {
	if b.pool == nil {
		return nil
	}
	err := b.pool.Release()
	b.pool = nil
	return err
}

// Snapshot copies the buffer's current contents. If the client has
// truncated the backing file so that the buffer is no longer
// readable, an error is returned instead of crashing.
func (b *Buffer) Snapshot() (img *format.Image, err error) {
	if b.pool == nil {
		return nil, errors.New("buffer already released")
	}

	pf, _ := PixelFormat(b.format)
	img = &format.Image{
		Format: pf,
		Rect:   image.Rect(0, 0, int(b.width), int(b.height)),
		Pix:    make([]byte, int(b.width)*int(b.height)*pf.Size()),
	}

	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: read buffer: %v", ErrInvalidFD, r)
		}
	}()

	row := int(b.width) * pf.Size()
	src := b.pool.mmap[b.offset:]
	for y := 0; y < int(b.height); y++ {
		copy(img.Pix[y*row:(y+1)*row], src[y*int(b.stride):])
	}
	return img, nil
}
