package neigh

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"starEcho/layers"
)

// DefaultCapacity is the number of slots used when nothing else is configured.
const DefaultCapacity = 8

var (
	// ErrCacheFull is returned by Insert when the key is new and every slot
	// is occupied under PolicyReject.
	ErrCacheFull = errors.New("neighbour cache is full")
	// ErrInvalidEntry is returned for broadcast hardware addresses and the
	// unspecified IPv4 address, neither of which is a usable mapping.
	ErrInvalidEntry = errors.New("invalid neighbour entry")
)

// Policy decides what Insert does with a new key once the cache is full.
type Policy int

const (
	// PolicyReject keeps the existing entries and fails the insert.
	PolicyReject Policy = iota
	// PolicyEvictOldest overwrites the entry inserted first.
	PolicyEvictOldest
)

func (p Policy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyEvictOldest:
		return "evict-oldest"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return PolicyReject, nil
	case "evict-oldest", "evict_oldest":
		return PolicyEvictOldest, nil
	}
	return PolicyReject, fmt.Errorf("invalid cache policy: %s", s)
}

// Observer is told about every successful change to the cache.
type Observer interface {
	OnInsert(ip layers.IPv4Addr, mac layers.MAC)
	OnEvict(ip layers.IPv4Addr)
}

type slot struct {
	ip       layers.IPv4Addr
	mac      layers.MAC
	seq      uint64
	occupied bool
}

// Cache maps IPv4 addresses to hardware addresses in a fixed number of slots.
// Lookups are linear scans; nothing is allocated after New. A Cache is owned
// by one goroutine and is not safe for concurrent use.
type Cache struct {
	slots    []slot
	n        int
	seq      uint64
	policy   Policy
	observer Observer
}

// New returns an empty cache with capacity slots. A capacity below one is
// raised to one.
func New(capacity int, policy Policy) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		slots:  make([]slot, capacity),
		policy: policy,
	}
}

// SetObserver installs o. A nil o removes the current one.
func (c *Cache) SetObserver(o Observer) {
	c.observer = o
}

func (c *Cache) find(ip layers.IPv4Addr) int {
	for i := range c.slots {
		if c.slots[i].occupied && c.slots[i].ip == ip {
			return i
		}
	}
	return -1
}

// Lookup returns the hardware address cached for ip.
func (c *Cache) Lookup(ip layers.IPv4Addr) (layers.MAC, bool) {
	if i := c.find(ip); i >= 0 {
		return c.slots[i].mac, true
	}
	return layers.MAC{}, false
}

// Insert adds or updates the mapping for ip. Updating a known key always
// succeeds and keeps its insertion order. The observer only hears about
// actual changes.
func (c *Cache) Insert(ip layers.IPv4Addr, mac layers.MAC) error {
	if ip.IsUnspecified() || mac.IsBroadcast() {
		return ErrInvalidEntry
	}

	if i := c.find(ip); i >= 0 {
		if c.slots[i].mac != mac {
			c.slots[i].mac = mac
			c.notifyInsert(ip, mac)
		}
		return nil
	}

	i := c.free()
	if i < 0 {
		if c.policy != PolicyEvictOldest {
			return ErrCacheFull
		}
		i = c.oldest()
		evicted := c.slots[i].ip
		c.slots[i].occupied = false
		c.n--
		if c.observer != nil {
			c.observer.OnEvict(evicted)
		}
	}

	c.seq++
	c.slots[i] = slot{ip: ip, mac: mac, seq: c.seq, occupied: true}
	c.n++
	c.notifyInsert(ip, mac)
	return nil
}

func (c *Cache) notifyInsert(ip layers.IPv4Addr, mac layers.MAC) {
	if c.observer != nil {
		c.observer.OnInsert(ip, mac)
	}
}

func (c *Cache) free() int {
	if c.n == len(c.slots) {
		return -1
	}
	for i := range c.slots {
		if !c.slots[i].occupied {
			return i
		}
	}
	return -1
}

func (c *Cache) oldest() int {
	idx := -1
	for i := range c.slots {
		if !c.slots[i].occupied {
			continue
		}
		if idx < 0 || c.slots[i].seq < c.slots[idx].seq {
			idx = i
		}
	}
	return idx
}

// Len returns the number of occupied slots.
func (c *Cache) Len() int { return c.n }

// Cap returns the fixed number of slots.
func (c *Cache) Cap() int { return len(c.slots) }

func (c *Cache) Policy() Policy { return c.policy }

// Entries calls fn for each mapping in insertion order until fn returns false.
func (c *Cache) Entries(fn func(ip layers.IPv4Addr, mac layers.MAC) bool) {
	var last uint64
	for k := 0; k < c.n; k++ {
		idx := -1
		for i := range c.slots {
			s := &c.slots[i]
			if !s.occupied || s.seq <= last {
				continue
			}
			if idx < 0 || s.seq < c.slots[idx].seq {
				idx = i
			}
		}
		if idx < 0 {
			return
		}
		last = c.slots[idx].seq
		if !fn(c.slots[idx].ip, c.slots[idx].mac) {
			return
		}
	}
}
