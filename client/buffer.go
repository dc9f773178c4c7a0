package client

import (
	"fmt"
	"image"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/shm"
	"deedles.dev/wlcomp/shm/shmimage"
	"deedles.dev/wlcomp/wire"
	"golang.org/x/image/draw"
)

// Buffer is a wl_buffer backed by its own shared memory pool.
type Buffer struct {
	Object *Object

	pool *Object
	mem  *shm.ImageBuffer

	// Released is set when the compositor releases the buffer and
	// cleared by Fill.
	Released bool
}

// NewBuffer creates a w by h ARGB8888 buffer through the bound wl_shm
// object.
func NewBuffer(shmObj *Object, w, h int32) (*Buffer, error) {
	mem, err := shm.NewImageBuffer(w, h)
	if err != nil {
		return nil, fmt.Errorf("create buffer memory: %w", err)
	}

	pool, err := shmObj.Create(wl.ShmCreatePool, wl.ShmPoolInterface, func(msg *wire.MessageBuilder) {
		msg.WriteFile(mem.File())
		msg.WriteInt(mem.Len())
	})
	if err != nil {
		mem.Destroy()
		return nil, err
	}

	obj, err := pool.Create(wl.ShmPoolCreateBuffer, wl.BufferInterface, func(msg *wire.MessageBuilder) {
		msg.WriteInt(0)
		msg.WriteInt(w)
		msg.WriteInt(h)
		msg.WriteInt(mem.Stride())
		msg.WriteUint(uint32(wl.ShmFormatArgb8888))
	})
	if err != nil {
		mem.Destroy()
		return nil, err
	}

	b := Buffer{Object: obj, pool: pool, mem: mem}
	obj.On(wl.BufferEventRelease, func(*wire.MessageBuffer) { b.Released = true })
	return &b, nil
}

// Fill paints the whole buffer with c.
func (b *Buffer) Fill(c image.Image) {
	img := b.mem.Image()
	draw.Draw(img, img.Bounds(), c, image.Point{}, draw.Src)
	b.Released = false
}

// Image returns the buffer's memory for drawing into directly.
func (b *Buffer) Image() *shmimage.ARGB8888 {
	b.Released = false
	return b.mem.Image()
}

// Size returns the size of the buffer in pixels.
func (b *Buffer) Size() image.Point {
	return b.mem.Bounds().Size()
}

// Destroy destroys the buffer and its pool and frees the memory.
func (b *Buffer) Destroy() error {
	err := b.Object.Request(wl.BufferDestroy, nil)
	if err != nil {
		return err
	}
	err = b.pool.Request(wl.ShmPoolDestroy, nil)
	if err != nil {
		return err
	}
	return b.mem.Destroy()
}
