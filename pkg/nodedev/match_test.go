package nodedev_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/libvirt-mcp/pkg/nodedev"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

func usbDev(name string, bus, device int, vendor, product string) *virtxml.NodeDevice {
	return &virtxml.NodeDevice{
		Name: name,
		Capability: virtxml.NodeDeviceCapability{
			Type: "usb_device",
			USB: &virtxml.USBCapability{
				Bus:     bus,
				Device:  device,
				Vendor:  virtxml.IDLabel{ID: vendor, Label: "Logitech, Inc."},
				Product: virtxml.IDLabel{ID: product, Label: "Unifying Receiver"},
			},
		},
	}
}

func pciDev(name string, domain, bus, slot, function int) *virtxml.NodeDevice {
	return &virtxml.NodeDevice{
		Name: name,
		Capability: virtxml.NodeDeviceCapability{
			Type: "pci",
			PCI: &virtxml.PCICapability{
				Domain:   domain,
				Bus:      bus,
				Slot:     slot,
				Function: function,
				Vendor:   virtxml.IDLabel{ID: "0x8086", Label: "Intel Corporation"},
				Product:  virtxml.IDLabel{ID: "0x1533", Label: "I210 Gigabit Network Connection"},
			},
		},
	}
}

func names(devs []*virtxml.NodeDevice) []string {
	var out []string
	for _, d := range devs {
		out = append(out, d.Name)
	}
	return out
}

var hostDevices = []*virtxml.NodeDevice{
	usbDev("usb_1_3", 1, 3, "0x046d", "0xc52b"),
	usbDev("usb_2_5", 2, 5, "0x046d", "0xc52b"),
	usbDev("usb_1_4", 1, 4, "0x0781", "0x5583"),
	pciDev("pci_0000_02_1f_7", 0, 2, 31, 7),
	pciDev("pci_0000_00_02_0", 0, 0, 2, 0),
	{
		Name:       "scsi_0_0_1_0",
		Capability: virtxml.NodeDeviceCapability{Type: "scsi", SCSI: &virtxml.SCSICapability{Host: 0, Bus: 0, Target: 1, Lun: 0}},
	},
	{
		Name:       "block_sdb",
		Capability: virtxml.NodeDeviceCapability{Type: "storage", Storage: &virtxml.StorageCapability{Block: "/dev/sdb", Vendor: "ATA", Model: "Samsung SSD"}},
	},
	{
		Name:       "net_enp3s0",
		Capability: virtxml.NodeDeviceCapability{Type: "net", Net: &virtxml.NetCapability{Interface: "enp3s0", Address: "00:11:22:33:44:55"}},
	},
	{
		Name:     "tty_ttyS0",
		DevNodes: []string{"/dev/ttyS0"},
	},
	{
		Name:       "mdev_4b20d080_1b54_4048_85b3_a6a62d165c01_0000_00_02_0",
		Capability: virtxml.NodeDeviceCapability{Type: "mdev", MDev: &virtxml.MDevCapability{TypeID: "i915-GVTg_V5_4"}},
	},
}

func TestFindMatchingNodeDevices(t *testing.T) {
	tests := []struct {
		name    string
		hostdev *virtxml.HostDev
		want    []string
	}{
		{
			name:    "usb_ambiguous_without_address",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevUSB, USB: &virtxml.USBHostDevSource{VendorID: "0x046d", ProductID: "0xc52b"}},
			want:    []string{"usb_1_3", "usb_2_5"},
		},
		{
			name:    "usb_narrowed_by_address",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevUSB, USB: &virtxml.USBHostDevSource{VendorID: "0x046D", ProductID: "0xC52B", Bus: "2", Device: "5"}},
			want:    []string{"usb_2_5"},
		},
		{
			name:    "usb_by_address_only",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevUSB, USB: &virtxml.USBHostDevSource{Bus: "1", Device: "4"}},
			want:    []string{"usb_1_4"},
		},
		{
			name:    "pci_hex_address",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevPCI, PCI: &virtxml.PCIAddress{Domain: "0x0000", Bus: "0x02", Slot: "0x1f", Function: "0x7"}},
			want:    []string{"pci_0000_02_1f_7"},
		},
		{
			name:    "scsi",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevSCSI, SCSI: &virtxml.SCSIHostDevSource{AdapterName: "scsi_host0", Bus: "0", Target: "1", Unit: "0"}},
			want:    []string{"scsi_0_0_1_0"},
		},
		{
			name:    "storage",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevStorage, Storage: &virtxml.StorageHostDevSource{Block: "/dev/sdb"}},
			want:    []string{"block_sdb"},
		},
		{
			name:    "misc_by_devnode",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevMisc, Misc: &virtxml.MiscHostDevSource{Char: "/dev/ttyS0"}},
			want:    []string{"tty_ttyS0"},
		},
		{
			name:    "net",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevNet, Net: &virtxml.NetHostDevSource{Interface: "enp3s0"}},
			want:    []string{"net_enp3s0"},
		},
		{
			name:    "mdev_by_name",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevMDev, MDev: &virtxml.MDevHostDevSource{UUID: "4b20d080-1b54-4048-85b3-a6a62d165c01"}},
			want:    []string{"mdev_4b20d080_1b54_4048_85b3_a6a62d165c01_0000_00_02_0"},
		},
		{
			name:    "scsi_host_never_matches",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevSCSIHost, SCSIHost: &virtxml.SCSIHostHostDevSource{Protocol: "vhost", WWPN: "naa.5001405df3e54061"}},
			want:    nil,
		},
		{
			name:    "no_match",
			hostdev: &virtxml.HostDev{Type: virtxml.HostDevUSB, USB: &virtxml.USBHostDevSource{VendorID: "0x1234", ProductID: "0x5678"}},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nodedev.FindMatchingNodeDevices(tt.hostdev, hostDevices)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestDescribe(t *testing.T) {
	ambiguous := &virtxml.HostDev{Type: virtxml.HostDevUSB, USB: &virtxml.USBHostDevSource{VendorID: "0x046d", ProductID: "0xc52b"}}
	matches := nodedev.FindMatchingNodeDevices(ambiguous, hostDevices)
	require.Len(t, matches, 2)

	desc := nodedev.Describe(ambiguous, matches)
	assert.Equal(t, "Logitech, Inc.", desc.Vendor)
	assert.Equal(t, "Unifying Receiver", desc.Product)
	assert.Equal(t, nodedev.Unspecified, desc.Source["bus"])
	assert.Equal(t, nodedev.Unspecified, desc.Source["device"])
	assert.Equal(t, 2, desc.Matches)

	pci := &virtxml.HostDev{Type: virtxml.HostDevPCI, PCI: &virtxml.PCIAddress{Domain: "0x0000", Bus: "0x02", Slot: "0x1f", Function: "0x7"}}
	desc = nodedev.Describe(pci, nodedev.FindMatchingNodeDevices(pci, hostDevices))
	assert.Equal(t, "0000:02:1f.7", desc.Source["address"])
	assert.Equal(t, "Intel Corporation", desc.Vendor)
}

func TestDescribeMismatchedCapability(t *testing.T) {
	usb := &virtxml.HostDev{Type: virtxml.HostDevUSB, USB: &virtxml.USBHostDevSource{VendorID: "0x046d", ProductID: "0xc52b"}}
	pci := &virtxml.HostDev{Type: virtxml.HostDevPCI, PCI: &virtxml.PCIAddress{Domain: "0x0000", Bus: "0x02", Slot: "0x1f", Function: "0x7"}}

	var desc nodedev.Description
	require.NotPanics(t, func() {
		desc = nodedev.Describe(usb, []*virtxml.NodeDevice{pciDev("pci_0000_02_1f_7", 0, 2, 31, 7)})
	})
	assert.Empty(t, desc.Vendor)
	assert.Equal(t, nodedev.Unspecified, desc.Source["bus"])
	assert.Equal(t, 1, desc.Matches)

	require.NotPanics(t, func() {
		desc = nodedev.Describe(pci, []*virtxml.NodeDevice{usbDev("usb_1_4", 1, 4, "046d", "c52b")})
	})
	assert.Empty(t, desc.Vendor)
	assert.Equal(t, "0x0000:0x02:0x1f.0x7", desc.Source["address"])

	require.NotPanics(t, func() {
		desc = nodedev.Describe(usb, []*virtxml.NodeDevice{nil})
	})
	assert.Equal(t, nodedev.Unspecified, desc.Source["device"])
}
