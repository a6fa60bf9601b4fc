package tap

import (
	"os"

	"golang.org/x/sys/unix"
)

// struct ifreq, only the name and flags are used by TUNSETIFF
type req struct {
	Name  [unix.IFNAMSIZ]byte
	Flags uint16
	pad   [0x28 - unix.IFNAMSIZ - 2]byte
}

func ioctl(fd uintptr, request uintptr, argp uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, argp)
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

// poll waits up to timeout milliseconds for fd to become readable. An
// interrupted wait counts as not readable.
func poll(fd int, timeout int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeout)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, os.NewSyscallError("poll", err)
	}
	if n > 0 && fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return false, os.NewSyscallError("poll", unix.EIO)
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}
