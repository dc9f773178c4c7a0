package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"deedles.dev/wlcomp/internal/set"
	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"
)

// ErrSocketInUse is returned by Listen when another process holds
// the lock for the requested socket.
var ErrSocketInUse = errors.New("socket in use")

// RuntimeDir returns the directory that Wayland sockets live in.
func RuntimeDir() string {
	if dir, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok {
		return dir
	}
	return xdg.RuntimeDir
}

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok {
		v = "wayland-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(RuntimeDir(), v)
}

// socketNames returns the wayland-N numbers that already have
// entries in dir.
func socketNames(dir string) set.Set[int] {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	names := make(set.Set[int], len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "wayland-")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(after, 10, 0)
		if err != nil {
			continue
		}
		names.Add(int(n))
	}
	return names
}

// Listener is a listening Wayland socket together with the lock file
// that claims its name.
type Listener struct {
	*net.UnixListener
	path string
	lock *os.File
}

// Listen claims path by locking path+".lock" and then starts
// listening on it. A stale socket left behind by a dead compositor
// is removed first.
func Listen(path string) (*Listener, error) {
	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0660)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	err = unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lock.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%v: %w", path, ErrSocketInUse)
		}
		return nil, fmt.Errorf("lock %v: %w", path, err)
	}

	err = os.Remove(path)
	if (err != nil) && !errors.Is(err, os.ErrNotExist) {
		lock.Close()
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		lock.Close()
		os.Remove(lock.Name())
		return nil, err
	}

	return &Listener{
		UnixListener: lis,
		path:         path,
		lock:         lock,
	}, nil
}

// ListenAuto picks the first free wayland-N name in the runtime
// directory and listens on it.
func ListenAuto() (*Listener, error) {
	dir := RuntimeDir()
	names := socketNames(dir)

	for num := 0; num < 32; num++ {
		if names.Has(num) {
			continue
		}

		lis, err := Listen(filepath.Join(dir, fmt.Sprintf("wayland-%v", num)))
		if err != nil {
			if errors.Is(err, ErrSocketInUse) {
				continue
			}
			return nil, err
		}
		return lis, nil
	}

	return nil, errors.New("no free socket name")
}

// Path returns the filesystem path of the socket.
func (lis *Listener) Path() string {
	return lis.path
}

// Name returns the socket's name relative to the runtime directory,
// suitable for $WAYLAND_DISPLAY.
func (lis *Listener) Name() string {
	return filepath.Base(lis.path)
}

// Close stops listening and releases the socket name.
func (lis *Listener) Close() error {
	err := lis.UnixListener.Close()
	os.Remove(lis.lock.Name())
	return errors.Join(err, lis.lock.Close())
}

// Conn represents a low-level Wayland connection. Incoming file
// descriptors are queued in arrival order and claimed by messages as
// they are decoded, matching libwayland's batching of descriptors.
type Conn struct {
	conn *net.UnixConn

	in   []byte
	rbuf []byte
	oob  []byte

	fdm sync.Mutex
	fds []int

	wm sync.Mutex
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
		rbuf: make([]byte, 4096),
		oob:  make([]byte, unix.CmsgSpace(MaxFDs*4)),
	}
}

// Close closes the underlying connection along with any received file
// descriptors that no message claimed.
func (c *Conn) Close() error {
	c.fdm.Lock()
	fds := c.fds
	c.fds = nil
	c.fdm.Unlock()

	for _, fd := range fds {
		unix.Close(fd)
	}
	return c.conn.Close()
}

// PeerPID returns the process ID of the other end of the connection.
func (c *Conn) PeerPID() (int32, error) {
	sc, err := c.conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var cred *unix.Ucred
	var cerr error
	err = sc.Control(func(fd uintptr) {
		cred, cerr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return 0, err
	}
	if cerr != nil {
		return 0, cerr
	}
	return cred.Pid, nil
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}

	c.fdm.Lock()
	defer c.fdm.Unlock()

	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

func (c *Conn) popFD() (int, bool) {
	c.fdm.Lock()
	defer c.fdm.Unlock()

	if len(c.fds) == 0 {
		return -1, false
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

// fill reads from the socket until at least n bytes are buffered.
func (c *Conn) fill(n int) error {
	for len(c.in) < n {
		nr, oobn, _, _, err := c.conn.ReadMsgUnix(c.rbuf, c.oob)
		if oobn > 0 {
			ferr := c.readFDs(c.oob[:oobn])
			if ferr != nil {
				return ferr
			}
		}
		if nr > 0 {
			c.in = append(c.in, c.rbuf[:nr]...)
		}
		if err != nil {
			if len(c.in) >= n {
				return nil
			}
			return err
		}
		if (nr == 0) && (oobn == 0) {
			return io.EOF
		}
	}
	return nil
}

func (c *Conn) consume(n int) []byte {
	data := make([]byte, n)
	copy(data, c.in)
	c.in = append(c.in[:0], c.in[n:]...)
	return data
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, errors.New("WAYLAND_SOCKET is not a Unix socket")
		}
		return NewConn(uc), nil
	}

	return DialPath(SocketPath())
}

// DialPath connects to the socket at path.
func DialPath(path string) (*Conn, error) {
	s, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	return NewConn(s), nil
}
