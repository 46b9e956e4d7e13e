// Package bootorder merges the legacy os/boot sequence and per-device boot
// elements of a domain into one ordering.
package bootorder

import (
	"fmt"
	"slices"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

type Kind string

const (
	KindDisk     Kind = "disk"
	KindNetwork  Kind = "network"
	KindRedirdev Kind = "redirdev"
	KindHostDev  Kind = "hostdev"
)

// Device is a boot-capable device. Exactly one of the pointers matching Type
// is set. A nil Order means the device has no boot order; 0 is a valid order.
// Index is the position of the device among the domain's devices of its kind.
type Device struct {
	Type  Kind `json:"type" yaml:"type"`
	Order *int `json:"order,omitempty" yaml:"order,omitempty"`
	Index int  `json:"index" yaml:"index"`

	Disk      *virtxml.Disk      `json:"disk,omitempty" yaml:"disk,omitempty"`
	Interface *virtxml.Interface `json:"interface,omitempty" yaml:"interface,omitempty"`
	Redirdev  *virtxml.Redirdev  `json:"redirdev,omitempty" yaml:"redirdev,omitempty"`
	HostDev   *virtxml.HostDev   `json:"hostdev,omitempty" yaml:"hostdev,omitempty"`
}

// Key identifies the device within its domain. Devices without an address
// of their own (a MAC, a USB bus and port) are told apart by Index.
func (d Device) Key() string {
	switch d.Type {
	case KindDisk:
		return "disk/" + d.Disk.Target
	case KindNetwork:
		if d.Interface.MAC == "" {
			return fmt.Sprintf("network/#%d", d.Index)
		}
		return "network/" + d.Interface.MAC
	case KindRedirdev:
		a := d.Redirdev.Address
		if a.Bus == "" && a.Port == "" {
			return fmt.Sprintf("redirdev/%s/#%d", d.Redirdev.Bus, d.Index)
		}
		return fmt.Sprintf("redirdev/%s/%s:%s", d.Redirdev.Bus, a.Bus, a.Port)
	case KindHostDev:
		return "hostdev/" + hostDevKey(d.HostDev, d.Index)
	}
	return string(d.Type)
}

func hostDevKey(h *virtxml.HostDev, index int) string {
	switch {
	case h.USB != nil:
		if h.USB.Bus == "" && h.USB.Device == "" {
			return fmt.Sprintf("usb/%s:%s/#%d", h.USB.VendorID, h.USB.ProductID, index)
		}
		return fmt.Sprintf("usb/%s:%s/%s.%s", h.USB.VendorID, h.USB.ProductID, h.USB.Bus, h.USB.Device)
	case h.PCI != nil:
		return fmt.Sprintf("pci/%s:%s:%s.%s", h.PCI.Domain, h.PCI.Bus, h.PCI.Slot, h.PCI.Function)
	case h.SCSI != nil:
		return fmt.Sprintf("scsi/%s/%s:%s:%s", h.SCSI.AdapterName, h.SCSI.Bus, h.SCSI.Target, h.SCSI.Unit)
	case h.SCSIHost != nil:
		return "scsi_host/" + h.SCSIHost.WWPN
	case h.MDev != nil:
		return "mdev/" + h.MDev.UUID
	case h.Storage != nil:
		return "storage/" + h.Storage.Block
	case h.Misc != nil:
		return "misc/" + h.Misc.Char
	case h.Net != nil:
		return "net/" + h.Net.Interface
	}
	return string(h.Type)
}

// legacyDiskDevice maps a legacy boot dev to the disk device kind it selects.
// An empty result accepts any disk.
func legacyDiskDevice(dev string) string {
	switch dev {
	case "fd":
		return "floppy"
	case "cdrom":
		return "cdrom"
	}
	return ""
}

func takeDisk(pool []*virtxml.Disk, device string) (*virtxml.Disk, []*virtxml.Disk) {
	for i, d := range pool {
		if device == "" || d.Device == device {
			return d, slices.Delete(slices.Clone(pool), i, i+1)
		}
	}
	return nil, pool
}

// Devices lists every boot-capable device of dom: disks and interfaces named
// by the legacy boot sequence first, then the remaining disks and interfaces,
// then redirected devices and host devices.
func Devices(dom *virtxml.Domain) []Device {
	if dom == nil {
		return nil
	}

	disks := dom.DiskList()
	diskIndex := make(map[*virtxml.Disk]int, len(disks))
	for i, d := range disks {
		diskIndex[d] = i
	}
	ifaces := slices.Clone(dom.Interfaces)
	nextIface := 0
	var out []Device

	for _, entry := range dom.Boot {
		order := entry.Order
		switch entry.Type {
		case "disk":
			var disk *virtxml.Disk
			disk, disks = takeDisk(disks, legacyDiskDevice(entry.Dev))
			if disk != nil {
				out = append(out, Device{Type: KindDisk, Order: &order, Index: diskIndex[disk], Disk: disk})
			}
		case "network":
			if len(ifaces) > 0 {
				out = append(out, Device{Type: KindNetwork, Order: &order, Index: nextIface, Interface: ifaces[0]})
				ifaces = ifaces[1:]
				nextIface++
			}
		}
	}

	for _, d := range disks {
		out = append(out, Device{Type: KindDisk, Order: d.BootOrder, Index: diskIndex[d], Disk: d})
	}
	for i, iface := range ifaces {
		out = append(out, Device{Type: KindNetwork, Order: iface.BootOrder, Index: nextIface + i, Interface: iface})
	}
	for i, r := range dom.Redirdevs {
		out = append(out, Device{Type: KindRedirdev, Order: r.BootOrder, Index: i, Redirdev: r})
	}
	for i, h := range dom.HostDevs {
		out = append(out, Device{Type: KindHostDev, Order: h.BootOrder, Index: i, HostDev: h})
	}

	return out
}

func compare(a, b Device) int {
	switch {
	case a.Order != nil && b.Order != nil:
		return *a.Order - *b.Order
	case a.Order != nil:
		return -1
	case b.Order != nil:
		return 1
	}
	return 0
}

// Sorted returns Devices ordered by boot order. Devices without an order
// follow those with one and keep their relative order.
func Sorted(dom *virtxml.Domain) []Device {
	devs := Devices(dom)
	SortDevices(devs)
	return devs
}

func SortDevices(devs []Device) {
	slices.SortStableFunc(devs, compare)
}

// Changed reports whether the devices with a boot order differ between two
// sorted lists, by identity or by order.
func Changed(a, b []Device) bool {
	a = withOrder(a)
	b = withOrder(b)
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].Key() != b[i].Key() || *a[i].Order != *b[i].Order {
			return true
		}
	}
	return false
}

func withOrder(devs []Device) []Device {
	var out []Device
	for _, d := range devs {
		if d.Order != nil {
			out = append(out, d)
		}
	}
	return out
}
