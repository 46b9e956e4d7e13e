package virtxml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

func TestParseNodeDevice(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		check func(t *testing.T, dev *virtxml.NodeDevice)
	}{
		{
			name: "pci",
			doc: `<device>
  <name>pci_0000_02_1f_7</name>
  <path>/sys/devices/pci0000:00/0000:02:1f.7</path>
  <parent>computer</parent>
  <driver><name>vfio-pci</name></driver>
  <capability type="pci">
    <class>0x030000</class>
    <domain>0</domain>
    <bus>2</bus>
    <slot>31</slot>
    <function>7</function>
    <product id="0x1c82">GP107 [GeForce GTX 1050 Ti]</product>
    <vendor id="0x10de">NVIDIA Corporation</vendor>
    <iommuGroup number="14"/>
  </capability>
</device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, "pci_0000_02_1f_7", dev.Name)
				assert.Equal(t, "computer", dev.Parent)
				assert.Equal(t, "vfio-pci", dev.Driver)
				require.NotNil(t, dev.Capability.PCI)
				pci := dev.Capability.PCI
				assert.Equal(t, "0000:02:1f.7", pci.Address())
				assert.Equal(t, virtxml.IDLabel{ID: "0x10de", Label: "NVIDIA Corporation"}, pci.Vendor)
				assert.Equal(t, virtxml.IDLabel{ID: "0x1c82", Label: "GP107 [GeForce GTX 1050 Ti]"}, pci.Product)
				require.NotNil(t, pci.IOMMUGroup)
				assert.Equal(t, 14, *pci.IOMMUGroup)
			},
		},
		{
			name: "usb",
			doc: `<device>
  <name>usb_1_3</name>
  <devnode type="dev">/dev/bus/usb/001/003</devnode>
  <capability type="usb_device">
    <bus>1</bus>
    <device>3</device>
    <product id="0x0002">2.0 root hub</product>
    <vendor id="0x1d6b">Linux Foundation</vendor>
  </capability>
</device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, []string{"/dev/bus/usb/001/003"}, dev.DevNodes)
				assert.Equal(t, &virtxml.USBCapability{
					Bus:     1,
					Device:  3,
					Vendor:  virtxml.IDLabel{ID: "0x1d6b", Label: "Linux Foundation"},
					Product: virtxml.IDLabel{ID: "0x0002", Label: "2.0 root hub"},
				}, dev.Capability.USB)
			},
		},
		{
			name: "net",
			doc: `<device><name>net_eth0_00_11_22_33_44_55</name>
  <capability type="net">
    <interface>eth0</interface>
    <address>00:11:22:33:44:55</address>
    <link speed="1000" state="up"/>
  </capability>
</device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, &virtxml.NetCapability{Interface: "eth0", Address: "00:11:22:33:44:55", LinkState: "up"}, dev.Capability.Net)
			},
		},
		{
			name: "storage",
			doc: `<device><name>block_sdf</name>
  <capability type="storage">
    <block>/dev/sdf</block>
    <bus>usb</bus>
    <drive_type>disk</drive_type>
  </capability>
</device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, "/dev/sdf", dev.Capability.Storage.Block)
				assert.Equal(t, "disk", dev.Capability.Storage.DriveType)
			},
		},
		{
			name: "scsi",
			doc: `<device><name>scsi_0_0_1_2</name>
  <capability type="scsi">
    <host>0</host><bus>0</bus><target>1</target><lun>2</lun><type>disk</type>
  </capability>
</device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, &virtxml.SCSICapability{Host: 0, Bus: 0, Target: 1, Lun: 2, Type: "disk"}, dev.Capability.SCSI)
			},
		},
		{
			name: "mdev",
			doc: `<device><name>mdev_c2177883_f1bb_47f0_914d_32a22e3a8804</name>
  <path>/sys/devices/pci0000:00/0000:00:02.0/c2177883-f1bb-47f0-914d-32a22e3a8804</path>
  <capability type="mdev">
    <type id="i915-GVTg_V5_4"/>
    <uuid>c2177883-f1bb-47f0-914d-32a22e3a8804</uuid>
  </capability>
</device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, &virtxml.MDevCapability{TypeID: "i915-GVTg_V5_4", UUID: "c2177883-f1bb-47f0-914d-32a22e3a8804"}, dev.Capability.MDev)
			},
		},
		{
			name: "no capability",
			doc:  `<device><name>computer</name></device>`,
			check: func(t *testing.T, dev *virtxml.NodeDevice) {
				assert.Equal(t, "", dev.Capability.Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := virtxml.ParseNodeDevice(testContext(t), tt.doc)
			require.NoError(t, err)
			tt.check(t, dev)
		})
	}
}

func TestFormatPCIAddress(t *testing.T) {
	assert.Equal(t, "0000:02:1f.7", virtxml.FormatPCIAddress(0, 2, 31, 7))
	assert.Equal(t, "000a:ff:00.0", virtxml.FormatPCIAddress(10, 255, 0, 0))
}
