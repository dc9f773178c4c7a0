// Package shm provides helpers for dealing with shared memory, both
// for the compositor's wl_shm implementation and for clients that
// need to hand it buffers.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create returns an anonymous, unlinked file suitable for sharing
// with another process.
func Create(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	return os.NewFile(uintptr(fd), name), nil
}

// CreateWith returns an anonymous file containing data, sealed
// against further modification.
func CreateWith(name string, data []byte) (*os.File, error) {
	file, err := Create(name)
	if err != nil {
		return nil, err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return nil, err
	}

	seals := unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE | unix.F_SEAL_SEAL
	_, err = unix.FcntlInt(file.Fd(), unix.F_ADD_SEALS, seals)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seal: %w", err)
	}
	return file, nil
}

type Mmap []byte

func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}

	return mmap, err
}

func (mmap Mmap) Unmap() error {
	if len(mmap) == 0 {
		return nil
	}
	return unix.Munmap(mmap)
}
