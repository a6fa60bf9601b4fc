package tap

import (
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// Configure brings the interface up and, when hostCIDR is not empty, gives
// the host side of the link an address such as "192.168.1.1/24" so the
// kernel can reach the responder.
func (d *Device) Configure(hostCIDR string) error {
	link, err := netlink.LinkByName(d.name)
	if err != nil {
		return errors.Wrapf(err, "find link %s failed", d.name)
	}
	if link.Type() != "tuntap" {
		return errors.Errorf("link %s is %s, not tuntap", d.name, link.Type())
	}

	if err = netlink.LinkSetUp(link); err != nil {
		return errors.Wrapf(err, "set link %s up failed", d.name)
	}

	if hostCIDR == "" {
		return nil
	}
	addr, err := netlink.ParseAddr(hostCIDR)
	if err != nil {
		return errors.Wrapf(err, "parse host address %s failed", hostCIDR)
	}
	if err = netlink.AddrReplace(link, addr); err != nil {
		return errors.Wrapf(err, "add address %s to %s failed", hostCIDR, d.name)
	}
	return nil
}
