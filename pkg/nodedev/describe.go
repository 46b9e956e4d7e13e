package nodedev

import (
	"strconv"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

// Description is the display form of a host device reference.
type Description struct {
	Type    virtxml.HostDevType `json:"type" yaml:"type"`
	Vendor  string              `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Product string              `json:"product,omitempty" yaml:"product,omitempty"`
	Source  map[string]string   `json:"source" yaml:"source"`
	Matches int                 `json:"matches" yaml:"matches"`
}

// Describe labels hostdev using its matching node devices. Fields that differ
// between several matches are reported as Unspecified.
func Describe(hostdev *virtxml.HostDev, matches []*virtxml.NodeDevice) Description {
	desc := Description{Type: hostdev.Type, Source: map[string]string{}, Matches: len(matches)}

	var first *virtxml.NodeDevice
	if len(matches) > 0 {
		first = matches[0]
	}

	switch hostdev.Type {
	case virtxml.HostDevUSB:
		var c *virtxml.USBCapability
		if first != nil {
			c = first.Capability.USB
		}
		if c != nil {
			desc.Vendor, desc.Product = c.Vendor.Label, c.Product.Label
		}
		if len(matches) == 1 && c != nil {
			desc.Source["bus"] = strconv.Itoa(c.Bus)
			desc.Source["device"] = strconv.Itoa(c.Device)
		} else {
			desc.Source["bus"] = Unspecified
			desc.Source["device"] = Unspecified
		}
	case virtxml.HostDevPCI:
		var c *virtxml.PCICapability
		if first != nil {
			c = first.Capability.PCI
		}
		if c != nil {
			desc.Vendor, desc.Product = c.Vendor.Label, c.Product.Label
			desc.Source["address"] = c.Address()
		} else if hostdev.PCI != nil {
			p := hostdev.PCI
			desc.Source["address"] = p.Domain + ":" + p.Bus + ":" + p.Slot + "." + p.Function
		}
	case virtxml.HostDevSCSI:
		if s := hostdev.SCSI; s != nil {
			desc.Source["adapter"] = s.AdapterName
			desc.Source["address"] = s.Bus + ":" + s.Target + ":" + s.Unit
		}
		if len(matches) == 1 && first != nil {
			desc.Product = first.Name
		}
	case virtxml.HostDevSCSIHost:
		if s := hostdev.SCSIHost; s != nil {
			desc.Source["wwpn"] = s.WWPN
		}
	case virtxml.HostDevMDev:
		if m := hostdev.MDev; m != nil {
			desc.Source["uuid"] = m.UUID
			desc.Product = m.Model
		}
		if len(matches) == 1 && first != nil && first.Capability.MDev != nil {
			desc.Product = first.Capability.MDev.TypeID
		}
	case virtxml.HostDevStorage:
		if s := hostdev.Storage; s != nil {
			desc.Source["block"] = s.Block
		}
		if len(matches) == 1 && first != nil && first.Capability.Storage != nil {
			c := first.Capability.Storage
			desc.Vendor, desc.Product = c.Vendor, c.Model
		}
	case virtxml.HostDevMisc:
		if m := hostdev.Misc; m != nil {
			desc.Source["char"] = m.Char
		}
	case virtxml.HostDevNet:
		if n := hostdev.Net; n != nil {
			desc.Source["interface"] = n.Interface
		}
		if len(matches) == 1 && first != nil && first.Capability.Net != nil {
			desc.Source["mac"] = first.Capability.Net.Address
		}
	}

	return desc
}
