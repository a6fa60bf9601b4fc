package neigh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starEcho/layers"
)

func generateKV(num uint8) (layers.IPv4Addr, layers.MAC) {
	return layers.IPv4Addr{10, 0, 0, num}, layers.MAC{0xEE, 0, 0, 0, 0, num}
}

type recorder struct {
	inserted []layers.IPv4Addr
	evicted  []layers.IPv4Addr
}

func (r *recorder) OnInsert(ip layers.IPv4Addr, _ layers.MAC) { r.inserted = append(r.inserted, ip) }
func (r *recorder) OnEvict(ip layers.IPv4Addr)                { r.evicted = append(r.evicted, ip) }

func TestNew(t *testing.T) {
	c := New(DefaultCapacity, PolicyReject)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 8, c.Cap())
	assert.Equal(t, PolicyReject, c.Policy())

	assert.Equal(t, 1, New(0, PolicyReject).Cap())
}

func TestCache_InsertLookup(t *testing.T) {
	c := New(4, PolicyReject)

	ip, mac := generateKV(1)
	_, ok := c.Lookup(ip)
	assert.False(t, ok)

	require.NoError(t, c.Insert(ip, mac))
	got, ok := c.Lookup(ip)
	assert.True(t, ok)
	assert.Equal(t, mac, got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_InsertIsIdempotent(t *testing.T) {
	c := New(4, PolicyReject)
	ip, mac := generateKV(1)

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Insert(ip, mac))
	}
	assert.Equal(t, 1, c.Len())

	newMAC := layers.MAC{0xEE, 0, 0, 0, 0xff, 0xff}
	require.NoError(t, c.Insert(ip, newMAC))
	got, _ := c.Lookup(ip)
	assert.Equal(t, newMAC, got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_FullRejectsNewKey(t *testing.T) {
	c := New(DefaultCapacity, PolicyReject)
	for i := uint8(1); i <= DefaultCapacity; i++ {
		require.NoError(t, c.Insert(generateKV(i)))
	}
	assert.Equal(t, DefaultCapacity, c.Len())

	err := c.Insert(generateKV(100))
	assert.Equal(t, ErrCacheFull, err)
	_, ok := c.Lookup(layers.IPv4Addr{10, 0, 0, 100})
	assert.False(t, ok)

	// known keys still update while full
	ip, _ := generateKV(3)
	mac := layers.MAC{1, 2, 3, 4, 5, 6}
	require.NoError(t, c.Insert(ip, mac))
	got, ok := c.Lookup(ip)
	assert.True(t, ok)
	assert.Equal(t, mac, got)
	assert.Equal(t, DefaultCapacity, c.Len())
}

func TestCache_EvictOldest(t *testing.T) {
	c := New(3, PolicyEvictOldest)
	rec := &recorder{}
	c.SetObserver(rec)

	for i := uint8(1); i <= 3; i++ {
		require.NoError(t, c.Insert(generateKV(i)))
	}
	// updating the oldest entry does not refresh it
	ip1, _ := generateKV(1)
	require.NoError(t, c.Insert(ip1, layers.MAC{9, 9, 9, 9, 9, 9}))

	require.NoError(t, c.Insert(generateKV(4)))
	assert.Equal(t, 3, c.Len())
	_, ok := c.Lookup(ip1)
	assert.False(t, ok)

	require.NoError(t, c.Insert(generateKV(5)))
	ip2, _ := generateKV(2)
	_, ok = c.Lookup(ip2)
	assert.False(t, ok)

	assert.Equal(t, []layers.IPv4Addr{ip1, ip2}, rec.evicted)

	var order []layers.IPv4Addr
	c.Entries(func(ip layers.IPv4Addr, _ layers.MAC) bool {
		order = append(order, ip)
		return true
	})
	assert.Equal(t, []layers.IPv4Addr{{10, 0, 0, 3}, {10, 0, 0, 4}, {10, 0, 0, 5}}, order)
}

func TestCache_RejectsInvalidEntries(t *testing.T) {
	c := New(2, PolicyReject)

	assert.Equal(t, ErrInvalidEntry, c.Insert(layers.IPv4Addr{10, 0, 0, 1}, layers.BroadcastMAC))
	assert.Equal(t, ErrInvalidEntry, c.Insert(layers.IPv4Addr{}, layers.MAC{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, 0, c.Len())
}

func TestCache_ObserverOnlySeesChanges(t *testing.T) {
	c := New(2, PolicyReject)
	rec := &recorder{}
	c.SetObserver(rec)

	ip, mac := generateKV(1)
	require.NoError(t, c.Insert(ip, mac))
	require.NoError(t, c.Insert(ip, mac))
	require.NoError(t, c.Insert(ip, layers.MAC{1, 1, 1, 1, 1, 1}))
	assert.Len(t, rec.inserted, 2)

	c.SetObserver(nil)
	require.NoError(t, c.Insert(generateKV(2)))
	assert.Len(t, rec.inserted, 2)
}

func TestCache_EntriesStop(t *testing.T) {
	c := New(4, PolicyReject)
	for i := uint8(1); i <= 4; i++ {
		require.NoError(t, c.Insert(generateKV(i)))
	}
	n := 0
	c.Entries(func(layers.IPv4Addr, layers.MAC) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("evict-oldest")
	require.NoError(t, err)
	assert.Equal(t, PolicyEvictOldest, p)
	assert.Equal(t, "evict-oldest", p.String())

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	_, err = ParsePolicy("lru")
	assert.Error(t, err)
}

func BenchmarkCache_Lookup(b *testing.B) {
	c := New(DefaultCapacity, PolicyReject)
	for i := uint8(1); i <= DefaultCapacity; i++ {
		_ = c.Insert(generateKV(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ip, _ := generateKV(uint8(i%DefaultCapacity) + 1)
		if _, ok := c.Lookup(ip); !ok {
			panic("missing entry")
		}
	}
}
