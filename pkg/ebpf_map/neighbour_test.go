package ebpf_map

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starEcho/layers"
	"starEcho/neigh"
)

// newMap skips when the environment cannot create BPF maps (no CAP_BPF).
func newMap(t *testing.T, n int) *NeighbourMap {
	m, err := NewNeighbourMap(n)
	if err != nil {
		t.Skipf("bpf maps unavailable: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNewNeighbourMap_Invalid(t *testing.T) {
	_, err := NewNeighbourMap(0)
	assert.Error(t, err)
}

func TestNeighbourMap_PutLookupDelete(t *testing.T) {
	m := newMap(t, 8)
	ip := layers.IPv4Addr{10, 0, 0, 5}
	mac := layers.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	require.NoError(t, m.Put(ip, mac))
	got, err := m.Lookup(ip)
	require.NoError(t, err)
	assert.Equal(t, mac, got)

	require.NoError(t, m.Delete(ip))
	_, err = m.Lookup(ip)
	assert.Error(t, err)
}

func TestNeighbourMap_MirrorsCache(t *testing.T) {
	m := newMap(t, 2)
	c := neigh.New(2, neigh.PolicyEvictOldest)
	c.SetObserver(m)

	a, b, d := layers.IPv4Addr{10, 0, 0, 1}, layers.IPv4Addr{10, 0, 0, 2}, layers.IPv4Addr{10, 0, 0, 3}
	mac := layers.MAC{2, 0, 0, 0, 0, 1}
	require.NoError(t, c.Insert(a, mac))
	require.NoError(t, c.Insert(b, mac))
	require.NoError(t, c.Insert(d, mac))

	_, err := m.Lookup(a)
	assert.Error(t, err)
	for _, ip := range []layers.IPv4Addr{b, d} {
		got, err := m.Lookup(ip)
		require.NoError(t, err)
		assert.Equal(t, mac, got)
	}
}
