package tap

import (
	"os"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestReqLayout(t *testing.T) {
	assert.Equal(t, uintptr(0x28), unsafe.Sizeof(req{}))
	assert.Equal(t, uintptr(unix.IFNAMSIZ), unsafe.Offsetof(req{}.Flags))
}

func TestOpen_NameTooLong(t *testing.T) {
	_, err := Open("a-very-long-interface-name")
	assert.Error(t, err)
}

func TestPoll_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ok, err := poll(int(r.Fd()), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.Write([]byte{1})
	require.NoError(t, err)
	ok, err = poll(int(r.Fd()), 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDevice(t *testing.T) {
	dev, err := Open("starecho0")
	if err != nil {
		t.Skipf("tap unavailable: %v", err)
	}
	defer dev.Close()

	assert.Equal(t, "starecho0", dev.Name())
	if err := dev.Configure(""); err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}

	// a fresh link may still see router solicitations, so only check the
	// calls behave
	buf := make([]byte, 1514)
	_, err = dev.WaitReadable(10 * time.Millisecond)
	require.NoError(t, err)
	_, err = dev.Receive(buf)
	require.NoError(t, err)
}
