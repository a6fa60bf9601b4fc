package raw

import (
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"starEcho/utils/binary"
)

var (
	ErrBufferIsFull = errors.New("buffer is full")
)

// Raw is a non-blocking AF_PACKET socket bound to one interface in
// promiscuous mode. Only ARP and IPv4 frames reach it.
type Raw struct {
	fd        int
	linkLayer unix.SockaddrLinklayer
}

func New(interfaceName string) (*Raw, error) {
	protocol := binary.Htons16(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(protocol))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	r, err := setup(fd, interfaceName, protocol)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return r, nil
}

func setup(fd int, interfaceName string, protocol uint16) (*Raw, error) {
	iface, err := net.InterfaceByName(interfaceName)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	prog, err := Filter()
	if err != nil {
		return nil, errors.Wrap(err, "assemble filter failed")
	}
	if err = unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, prog); err != nil {
		return nil, errors.Wrap(err, "attach filter failed")
	}

	ll := unix.SockaddrLinklayer{
		Protocol: protocol,
		Ifindex:  iface.Index,
		Halen:    6,
	}
	copy(ll.Addr[:], iface.HardwareAddr)
	if err = unix.Bind(fd, &ll); err != nil {
		return nil, errors.WithStack(err)
	}

	// 应答的MAC不是网卡自己的，需要混杂模式
	mreq := unix.PacketMreq{Ifindex: int32(iface.Index), Type: unix.PACKET_MR_PROMISC}
	if err = unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		return nil, errors.Wrap(err, "enable promiscuous mode failed")
	}

	return &Raw{fd: fd, linkLayer: ll}, nil
}

func (r *Raw) poll(timeout int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeout)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, os.NewSyscallError("poll", err)
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

func (r *Raw) InterruptPending() bool {
	ok, err := r.poll(0)
	return err == nil && ok
}

func (r *Raw) WaitReadable(timeout time.Duration) (bool, error) {
	return r.poll(int(timeout / time.Millisecond))
}

// Receive reads one frame into buf. Frames this host sent, including our
// own replies, are skipped and reported as length 0.
func (r *Raw) Receive(buf []byte) (int, error) {
	n, from, err := unix.Recvfrom(r.fd, buf, unix.MSG_TRUNC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}

	if ll, ok := from.(*unix.SockaddrLinklayer); ok && ll.Pkttype == unix.PACKET_OUTGOING {
		return 0, nil
	}

	if n > len(buf) {
		return 0, errors.WithStack(ErrBufferIsFull)
	}
	return n, nil
}

func (r *Raw) Transmit(buf []byte) error {
	return errors.WithStack(unix.Sendto(r.fd, buf, 0, &r.linkLayer))
}

func (r *Raw) Close() error {
	return unix.Close(r.fd)
}
