// Package nodedev resolves host device references found in domain XML to the
// node devices the host exposes.
package nodedev

import (
	"strconv"
	"strings"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

// Unspecified is shown for identifying fields that cannot be resolved to a
// single node device.
const Unspecified = "Unspecified"

// parseHex reads a hex id with or without a 0x prefix.
func parseHex(s string) (uint64, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}

func parseDec(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func sameHex(a, b string) bool {
	x, okx := parseHex(a)
	y, oky := parseHex(b)
	return okx && oky && x == y
}

func equalsDec(s string, n int) bool {
	v, ok := parseDec(s)
	return ok && v == n
}

func equalsHex(s string, n int) bool {
	v, ok := parseHex(s)
	return ok && v == uint64(n)
}

// FindMatchingNodeDevices returns every node device consistent with the
// identifying fields present on hostdev. More than one result means the
// reference is ambiguous.
func FindMatchingNodeDevices(hostdev *virtxml.HostDev, devs []*virtxml.NodeDevice) []*virtxml.NodeDevice {
	if hostdev == nil {
		return nil
	}

	var match func(*virtxml.NodeDevice) bool
	switch hostdev.Type {
	case virtxml.HostDevUSB:
		if hostdev.USB == nil {
			return nil
		}
		return matchUSB(hostdev.USB, devs)
	case virtxml.HostDevPCI:
		if hostdev.PCI == nil {
			return nil
		}
		match = func(d *virtxml.NodeDevice) bool {
			c := d.Capability.PCI
			return c != nil &&
				equalsHex(hostdev.PCI.Domain, c.Domain) &&
				equalsHex(hostdev.PCI.Bus, c.Bus) &&
				equalsHex(hostdev.PCI.Slot, c.Slot) &&
				equalsHex(hostdev.PCI.Function, c.Function)
		}
	case virtxml.HostDevSCSI:
		if hostdev.SCSI == nil {
			return nil
		}
		match = func(d *virtxml.NodeDevice) bool {
			c := d.Capability.SCSI
			return c != nil &&
				equalsDec(hostdev.SCSI.Bus, c.Bus) &&
				equalsDec(hostdev.SCSI.Target, c.Target) &&
				equalsDec(hostdev.SCSI.Unit, c.Lun)
		}
	case virtxml.HostDevStorage:
		if hostdev.Storage == nil {
			return nil
		}
		match = func(d *virtxml.NodeDevice) bool {
			c := d.Capability.Storage
			return c != nil && c.Block == hostdev.Storage.Block
		}
	case virtxml.HostDevMisc:
		if hostdev.Misc == nil {
			return nil
		}
		match = func(d *virtxml.NodeDevice) bool {
			if c := d.Capability.Misc; c != nil && c.Char == hostdev.Misc.Char {
				return true
			}
			for _, n := range d.DevNodes {
				if n == hostdev.Misc.Char {
					return true
				}
			}
			return false
		}
	case virtxml.HostDevNet:
		if hostdev.Net == nil {
			return nil
		}
		match = func(d *virtxml.NodeDevice) bool {
			c := d.Capability.Net
			return c != nil && c.Interface == hostdev.Net.Interface
		}
	case virtxml.HostDevMDev:
		if hostdev.MDev == nil {
			return nil
		}
		uuid := strings.ToLower(hostdev.MDev.UUID)
		match = func(d *virtxml.NodeDevice) bool {
			if c := d.Capability.MDev; c != nil && strings.EqualFold(c.UUID, uuid) {
				return true
			}
			// node device names use underscores in place of dashes
			underscored := strings.ReplaceAll(uuid, "-", "_")
			return strings.Contains(strings.ToLower(d.Name), underscored) ||
				strings.Contains(strings.ToLower(d.Path), uuid)
		}
	default:
		return nil
	}

	return filter(devs, match)
}

func filter(devs []*virtxml.NodeDevice, fn func(*virtxml.NodeDevice) bool) []*virtxml.NodeDevice {
	var out []*virtxml.NodeDevice
	for _, d := range devs {
		if d != nil && fn(d) {
			out = append(out, d)
		}
	}
	return out
}

// matchUSB matches on vendor and product, narrowing by bus and device when
// the ids are shared. Without ids, bus and device alone identify the device.
func matchUSB(src *virtxml.USBHostDevSource, devs []*virtxml.NodeDevice) []*virtxml.NodeDevice {
	usb := filter(devs, func(d *virtxml.NodeDevice) bool { return d.Capability.USB != nil })

	byAddress := func(d *virtxml.NodeDevice) bool {
		c := d.Capability.USB
		return equalsDec(src.Bus, c.Bus) && equalsDec(src.Device, c.Device)
	}
	hasAddress := src.Bus != "" && src.Device != ""

	if src.VendorID == "" || src.ProductID == "" {
		if !hasAddress {
			return nil
		}
		return filter(usb, byAddress)
	}

	matches := filter(usb, func(d *virtxml.NodeDevice) bool {
		c := d.Capability.USB
		return sameHex(src.VendorID, c.Vendor.ID) && sameHex(src.ProductID, c.Product.ID)
	})
	if len(matches) > 1 && hasAddress {
		return filter(matches, byAddress)
	}
	return matches
}
