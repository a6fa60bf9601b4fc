package ebpf_map

import (
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"starEcho/layers"
)

// NeighbourMap mirrors the neighbour cache into a BPF hash map, keyed by the
// IPv4 address in network order, so XDP programs can resolve peers without
// a trip to userspace.
type NeighbourMap struct {
	m      *ebpf.Map
	logger *log.Entry
}

func NewNeighbourMap(maxEntries int) (*NeighbourMap, error) {
	if maxEntries <= 0 {
		return nil, errors.New("invalid max entries")
	}

	// 旧内核按memlock计算map内存
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, errors.Wrap(err, "remove memlock failed")
	}

	m, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "neigh_v4",
		Type:       ebpf.Hash,
		KeySize:    4,
		ValueSize:  6,
		MaxEntries: uint32(maxEntries),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create neighbour map failed")
	}

	return &NeighbourMap{
		m:      m,
		logger: log.WithField("module", "ebpf_map"),
	}, nil
}

// Map returns the underlying map, e.g. to hand its fd to a program.
func (n *NeighbourMap) Map() *ebpf.Map {
	return n.m
}

// Pin makes the map reachable under path in bpffs.
func (n *NeighbourMap) Pin(path string) error {
	if err := n.m.Pin(path); err != nil {
		return errors.Wrapf(err, "pin neighbour map to %s failed", path)
	}
	return nil
}

func (n *NeighbourMap) Put(ip layers.IPv4Addr, mac layers.MAC) error {
	if err := n.m.Put(ip[:], mac[:]); err != nil {
		return errors.Wrapf(err, "put neighbour %s failed", ip)
	}
	return nil
}

func (n *NeighbourMap) Delete(ip layers.IPv4Addr) error {
	if err := n.m.Delete(ip[:]); err != nil {
		return errors.Wrapf(err, "delete neighbour %s failed", ip)
	}
	return nil
}

func (n *NeighbourMap) Lookup(ip layers.IPv4Addr) (mac layers.MAC, err error) {
	var value [6]byte
	if err = n.m.Lookup(ip[:], &value); err != nil {
		return mac, errors.Wrapf(err, "lookup neighbour %s failed", ip)
	}
	return layers.MAC(value), nil
}

// OnInsert implements neigh.Observer. Mirror failures are logged only, the
// userspace cache stays authoritative.
func (n *NeighbourMap) OnInsert(ip layers.IPv4Addr, mac layers.MAC) {
	if err := n.Put(ip, mac); err != nil {
		n.logger.Warn(err)
	}
}

// OnEvict implements neigh.Observer.
func (n *NeighbourMap) OnEvict(ip layers.IPv4Addr) {
	if err := n.Delete(ip); err != nil {
		n.logger.Warn(err)
	}
}

func (n *NeighbourMap) Close() error {
	return n.m.Close()
}
