package tap

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Device is a non-blocking TAP interface carrying raw Ethernet frames.
type Device struct {
	fd   int
	name string
}

// Open attaches to (or creates) the TAP interface name.
func Open(name string) (*Device, error) {
	if len(name) >= unix.IFNAMSIZ {
		return nil, errors.Errorf("interface name too long: %s", name)
	}

	fd, err := createFd()
	if err != nil {
		return nil, err
	}

	if err = openDev(uintptr(fd), name); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "open tap failed")
	}

	return &Device{fd: fd, name: name}, nil
}

func createFd() (int, error) {
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Wrap(err, "open /dev/net/tun failed")
	}
	return fd, nil
}

func openDev(fd uintptr, name string) error {
	var r req

	copy(r.Name[:], name)
	r.Flags = unix.IFF_TAP | unix.IFF_NO_PI
	err := ioctl(fd, unix.TUNSETIFF, uintptr(unsafe.Pointer(&r)))
	if err != nil {
		return errors.Wrap(err, "ioctl set IFF_TAP and IFF_NO_PI failed")
	}

	return nil
}

func (d *Device) Name() string { return d.name }

func (d *Device) Fd() int { return d.fd }

// InterruptPending reports whether a frame can be read right now.
func (d *Device) InterruptPending() bool {
	ok, err := poll(d.fd, 0)
	return err == nil && ok
}

// WaitReadable blocks up to timeout for a frame to arrive.
func (d *Device) WaitReadable(timeout time.Duration) (bool, error) {
	return poll(d.fd, int(timeout/time.Millisecond))
}

// Receive reads one frame. An empty queue yields 0 and no error.
func (d *Device) Receive(b []byte) (int, error) {
	n, err := unix.Read(d.fd, b)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read tap failed")
	}
	return n, nil
}

func (d *Device) Transmit(b []byte) error {
	n, err := unix.Write(d.fd, b)
	if err != nil {
		return errors.Wrap(err, "write tap failed")
	}
	if n != len(b) {
		return errors.Errorf("short write on tap: %d of %d", n, len(b))
	}
	return nil
}

func (d *Device) Close() error {
	return unix.Close(d.fd)
}
