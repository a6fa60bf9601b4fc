package cmd

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"starEcho/irq"
	"starEcho/layers"
	"starEcho/neigh"
	"starEcho/pkg/config"
	"starEcho/pkg/ebpf_map"
	"starEcho/pkg/pcapnic"
	"starEcho/pkg/tap"
	"starEcho/responder"
	"starEcho/utils/raw"
)

// stack is everything the drain worker owns, wired from a config.
type stack struct {
	dev        irq.Device
	closers    []io.Closer
	cache      *neigh.Cache
	dispatcher *responder.Dispatcher
	line       *irq.Line
	drainer    *irq.Drainer
}

func openDevice(cfg *config.Config) (irq.Device, io.Closer, error) {
	dc := cfg.Device
	switch dc.Type {
	case config.DeviceTap:
		dev, err := tap.Open(dc.Name)
		if err != nil {
			return nil, nil, err
		}
		if err = dev.Configure(dc.HostCIDR); err != nil {
			_ = dev.Close()
			return nil, nil, err
		}
		return dev, dev, nil
	case config.DeviceRaw:
		dev, err := raw.New(dc.Name)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open raw socket on %s failed", dc.Name)
		}
		return dev, dev, nil
	case config.DevicePcap:
		dev, err := pcapnic.Open(dc.PcapIn, dc.PcapOut, dc.MaxFrames)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev, nil
	}
	return nil, nil, errors.Errorf("invalid device type: %s", dc.Type)
}

func newStack(cfg *config.Config, dev irq.Device) (*stack, error) {
	id, err := cfg.ResponderIdentity()
	if err != nil {
		return nil, err
	}
	policy, err := neigh.ParsePolicy(cfg.Cache.Policy)
	if err != nil {
		return nil, err
	}
	udpSum, err := responder.ParseUDPChecksum(cfg.Responder.UDPChecksum)
	if err != nil {
		return nil, err
	}

	s := &stack{dev: dev, cache: neigh.New(cfg.Cache.Capacity, policy)}

	if cfg.Cache.BPFMirror {
		mirror, err := ebpf_map.NewNeighbourMap(cfg.Cache.Capacity)
		if err != nil {
			return nil, err
		}
		if cfg.Cache.BPFPinPath != "" {
			if err = mirror.Pin(cfg.Cache.BPFPinPath); err != nil {
				_ = mirror.Close()
				return nil, err
			}
		}
		s.cache.SetObserver(mirror)
		s.closers = append(s.closers, mirror)
	}

	s.dispatcher = responder.New(responder.Config{
		Identity:          id,
		UDPChecksum:       udpSum,
		StrictDestination: cfg.Responder.StrictDestination,
		Logger:            log.WithField("module", "responder"),
	}, s.cache)

	s.line = irq.NewLine()
	s.drainer = irq.NewDrainer(dev, layers.NewBuffer(cfg.Buffer.Size), s.dispatcher, s.line, irq.DrainerConfig{
		MaxReceiveErrors: cfg.Drain.MaxReceiveErrors,
		Logger:           log.WithField("module", "irq"),
	})
	return s, nil
}

// dumpCache logs the learned neighbours.
func (s *stack) dumpCache(logger *log.Entry) {
	logger.Infof("neighbour cache: %d/%d entries", s.cache.Len(), s.cache.Cap())
	s.cache.Entries(func(ip layers.IPv4Addr, mac layers.MAC) bool {
		logger.Infof("  %-15s %s", ip, mac)
		return true
	})
}

func (s *stack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
