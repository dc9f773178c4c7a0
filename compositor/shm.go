package compositor

import (
	"errors"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/shm"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

var (
	shmInterface     = server.NewInterface(wl.ShmInterface, wl.ShmVersion, wl.ShmRequests, wl.ShmEvents)
	shmPoolInterface = server.NewInterface(wl.ShmPoolInterface, wl.ShmPoolVersion, wl.ShmPoolRequests, wl.ShmPoolEvents)
	bufferInterface  = server.NewInterface(wl.BufferInterface, wl.BufferVersion, wl.BufferRequests, wl.BufferEvents)
)

func init() {
	shmInterface.
		Handle(wl.ShmCreatePool, shmCreatePool)
	shmPoolInterface.
		Handle(wl.ShmPoolCreateBuffer, shmPoolCreateBuffer).
		Destructor(wl.ShmPoolDestroy, nil).
		Handle(wl.ShmPoolResize, shmPoolResize)
	bufferInterface.
		Destructor(wl.BufferDestroy, nil)
}

func bindShm(obj *server.Object) error {
	for _, f := range shm.Formats {
		obj.Event(wl.ShmEventFormat, func(msg *wire.MessageBuilder) {
			msg.WriteUint(uint32(f))
		})
	}
	return nil
}

func shmCreatePool(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	file := msg.ReadFile()
	size := msg.ReadInt()
	if err := msg.Err(); err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}

	pobj, err := obj.Client().NewObject(id, shmPoolInterface, obj.Version())
	if err != nil {
		file.Close()
		return err
	}

	pool, err := shm.NewPool(file, size)
	if err != nil {
		if errors.Is(err, shm.ErrInvalidSize) {
			return obj.Error(uint32(wl.ShmErrorInvalidStride), "%v", err)
		}
		return obj.Error(uint32(wl.ShmErrorInvalidFd), "%v", err)
	}

	pobj.Data = pool
	pobj.OnDestroy(func() { releasePool(pool) })
	return nil
}

func releasePool(pool *shm.Pool) {
	err := pool.Release()
	if err != nil {
		logrus.WithError(err).Warnln("release shm pool")
	}
}

func shmPoolCreateBuffer(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	offset := msg.ReadInt()
	width, height := msg.ReadInt(), msg.ReadInt()
	stride := msg.ReadInt()
	format := wl.ShmFormat(msg.ReadUint())
	if err := msg.Err(); err != nil {
		return err
	}

	bobj, err := obj.Client().NewObject(id, bufferInterface, 1)
	if err != nil {
		return err
	}

	pool := obj.Data.(*shm.Pool)
	buf, err := pool.NewBuffer(offset, width, height, stride, format)
	if err != nil {
		if errors.Is(err, shm.ErrInvalidFormat) {
			return obj.Error(uint32(wl.ShmErrorInvalidFormat), "%v", err)
		}
		return obj.Error(uint32(wl.ShmErrorInvalidStride), "%v", err)
	}

	bobj.Data = buf
	bobj.OnDestroy(func() {
		err := buf.Release()
		if err != nil {
			logrus.WithError(err).Warnln("release shm buffer")
		}
	})
	return nil
}

func shmPoolResize(obj *server.Object, msg *wire.MessageBuffer) error {
	size := msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}

	err := obj.Data.(*shm.Pool).Resize(size)
	if err != nil {
		if errors.Is(err, shm.ErrInvalidSize) {
			return obj.Error(uint32(wl.ShmErrorInvalidStride), "%v", err)
		}
		return obj.Error(uint32(wl.ShmErrorInvalidFd), "%v", err)
	}
	return nil
}
