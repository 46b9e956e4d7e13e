package virtxml_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(t.Context())
}

func ptr[T any](v T) *T {
	return &v
}

const fullDomain = `<domain type="kvm" id="3">
  <name>fedora</name>
  <uuid>6b3b1d3c-4fa3-4f4e-9c11-8c7a0a1e9d11</uuid>
  <title>Fedora VM</title>
  <description>test machine</description>
  <metadata>
    <cockpit_machines:data xmlns:cockpit_machines="https://github.com/cockpit-project/cockpit-machines">
      <cockpit_machines:has_install_phase>true</cockpit_machines:has_install_phase>
      <cockpit_machines:install_source_type>url</cockpit_machines:install_source_type>
      <cockpit_machines:install_source>https://example.com/fedora.iso</cockpit_machines:install_source>
      <cockpit_machines:os_variant>fedora40</cockpit_machines:os_variant>
    </cockpit_machines:data>
  </metadata>
  <memory unit="KiB">2097152</memory>
  <currentMemory unit="MiB">1024</currentMemory>
  <vcpu placement="static" current="2">4</vcpu>
  <os firmware="efi">
    <type arch="x86_64" machine="pc-q35-8.1">hvm</type>
    <loader readonly="yes" type="pflash" secure="no">/usr/share/OVMF/OVMF_CODE.fd</loader>
    <boot dev="hd"/>
    <boot dev="network"/>
    <bootmenu enable="yes"/>
  </os>
  <cpu mode="custom">
    <model fallback="allow">Skylake-Client</model>
    <topology sockets="1" cores="2" threads="2"/>
  </cpu>
  <devices>
    <disk type="file" device="disk">
      <driver name="qemu" type="qcow2" cache="none" discard="unmap"/>
      <source file="/var/lib/libvirt/images/fedora.qcow2"/>
      <target dev="vda" bus="virtio"/>
      <serial>abc123</serial>
      <alias name="virtio-disk0"/>
    </disk>
    <disk type="volume" device="cdrom">
      <driver name="qemu" type="raw"/>
      <source pool="default" volume="fedora.iso"/>
      <target dev="sda" bus="sata"/>
      <readonly/>
      <boot order="0"/>
    </disk>
    <disk type="file" device="disk">
      <source file="/tmp/orphan.img"/>
    </disk>
    <interface type="network">
      <mac address="52:54:00:aa:bb:cc"/>
      <source network="default" portgroup="pg1"/>
      <target dev="vnet0"/>
      <model type="virtio"/>
      <mtu size="1500"/>
      <boot order="2"/>
      <address type="pci" domain="0x0000" bus="0x01" slot="0x00" function="0x0"/>
    </interface>
    <interface type="bridge">
      <mac address="52:54:00:dd:ee:ff"/>
      <source bridge="br0"/>
      <link state="down"/>
    </interface>
    <redirdev bus="usb" type="spicevmc">
      <address type="usb" bus="0" port="2"/>
    </redirdev>
    <redirdev type="tcp">
      <source mode="connect" host="localhost" service="4000"/>
    </redirdev>
    <hostdev mode="subsystem" type="usb" managed="yes">
      <source>
        <vendor id="0x1d6b"/>
        <product id="0x0002"/>
        <address bus="1" device="3"/>
      </source>
    </hostdev>
    <hostdev mode="subsystem" type="pci" managed="yes">
      <source>
        <address domain="0x0000" bus="0x02" slot="0x1f" function="0x7"/>
      </source>
      <boot order="3"/>
    </hostdev>
    <hostdev mode="subsystem" type="mdev" model="vfio-pci">
      <source>
        <address uuid="c2177883-f1bb-47f0-914d-32a22e3a8804"/>
      </source>
    </hostdev>
    <hostdev mode="capabilities" type="storage">
      <source>
        <block>/dev/sdf1</block>
      </source>
    </hostdev>
    <hostdev mode="subsystem" type="usb"/>
    <hostdev mode="subsystem" type="floppy-controller">
      <source/>
    </hostdev>
    <filesystem type="mount" accessmode="passthrough">
      <driver type="virtiofs"/>
      <source dir="/srv/share"/>
      <target dir="share"/>
    </filesystem>
    <filesystem type="mount">
      <source dir="/srv/none"/>
    </filesystem>
    <watchdog model="i6300esb" action="reset"/>
    <vsock model="virtio">
      <cid auto="no" address="3"/>
    </vsock>
    <graphics type="vnc" port="-1" autoport="yes" listen="127.0.0.1"/>
    <graphics type="spice" port="5901" tlsPort="5902">
      <listen type="address" address="0.0.0.0"/>
    </graphics>
    <graphics type="vnc" port="-1" autoport="no"/>
    <console type="pty" tty="/dev/pts/4">
      <target type="serial" port="0"/>
      <alias name="serial0"/>
    </console>
    <video>
      <model type="virtio"/>
    </video>
    <tpm model="tpm-crb"/>
  </devices>
</domain>`

func TestParseDomainIdentityAndResources(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	assert.Equal(t, "system", dom.ConnectionName)
	assert.Equal(t, "/dom/3", dom.ID)
	assert.Equal(t, "fedora", dom.Name)
	assert.Equal(t, "6b3b1d3c-4fa3-4f4e-9c11-8c7a0a1e9d11", dom.UUID)
	assert.Equal(t, "kvm", dom.Type)
	assert.Equal(t, "Fedora VM", dom.Title)
	assert.Equal(t, "test machine", dom.Description)

	assert.Equal(t, "hvm", dom.OSType)
	assert.Equal(t, "x86_64", dom.Arch)
	assert.Equal(t, "pc-q35-8.1", dom.EmulatedMachine)
	assert.Equal(t, "efi", dom.Firmware)
	assert.Equal(t, &virtxml.Loader{
		Path:     "/usr/share/OVMF/OVMF_CODE.fd",
		Type:     "pflash",
		Readonly: "yes",
		Secure:   "no",
	}, dom.Loader)
	assert.True(t, dom.BootMenu)
	assert.Equal(t, []virtxml.BootEntry{
		{Order: 1, Type: "disk", Dev: "hd"},
		{Order: 2, Type: "network", Dev: "network"},
	}, dom.Boot)

	assert.InDelta(t, 2097152, dom.Memory, 1e-9)
	assert.InDelta(t, 1048576, dom.CurrentMemory, 1e-9)

	assert.Equal(t, virtxml.CPU{
		Mode:     virtxml.CPUModeCustom,
		Model:    "Skylake-Client",
		Topology: virtxml.CPUTopology{Sockets: 1, Cores: 2, Threads: 2},
	}, dom.CPU)
	assert.Equal(t, virtxml.VCPUs{Count: 2, Max: 4, Placement: "static"}, dom.VCPUs)

	assert.True(t, dom.HasTPM)
	assert.True(t, dom.HasSpice)
}

func TestParseDomainDisks(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	require.Equal(t, 2, dom.Disks.Len(), "targetless disk is dropped")

	vda, ok := dom.Disks.Get("vda")
	require.True(t, ok)
	want := &virtxml.Disk{
		Target: "vda",
		Bus:    "virtio",
		Device: "disk",
		Type:   "file",
		Driver: virtxml.DiskDriver{Name: "qemu", Type: "qcow2", Cache: "none", Discard: "unmap"},
		Source: virtxml.DiskSource{File: ptr("/var/lib/libvirt/images/fedora.qcow2")},
		Serial: "abc123", AliasName: "virtio-disk0",
	}
	if diff := cmp.Diff(want, vda); diff != "" {
		t.Fatalf("vda mismatch (-want +got):\n%s", diff)
	}

	sda, ok := dom.Disks.Get("sda")
	require.True(t, ok)
	assert.Equal(t, "cdrom", sda.Device)
	assert.True(t, sda.Readonly)
	assert.Equal(t, "default", *sda.Source.Pool)
	assert.Equal(t, "fedora.iso", *sda.Source.Volume)
	require.NotNil(t, sda.BootOrder, "order 0 is a defined order")
	assert.Equal(t, 0, *sda.BootOrder)

	targets := []string{}
	for _, d := range dom.DiskList() {
		targets = append(targets, d.Target)
	}
	assert.Equal(t, []string{"vda", "sda"}, targets)
}

func TestParseDomainDuplicateDiskTarget(t *testing.T) {
	doc := `<domain><name>dup</name><devices>
      <disk type="file" device="disk"><source file="/a.img"/><target dev="vda"/></disk>
      <disk type="file" device="disk"><source file="/c.img"/><target dev="vdb"/></disk>
      <disk type="file" device="disk"><source file="/b.img"/><target dev="vda"/></disk>
    </devices></domain>`

	dom, err := virtxml.ParseDomain(testContext(t), "session", doc, "/dom/dup")
	require.NoError(t, err)

	require.Equal(t, 2, dom.Disks.Len())

	vda, _ := dom.Disks.Get("vda")
	assert.Equal(t, "/b.img", vda.Source.Path(), "last definition wins")
	assert.Equal(t, "vda", dom.Disks.Oldest().Key, "and keeps the first position")
}

func TestParseDomainInterfaces(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	require.Len(t, dom.Interfaces, 2)

	nat := dom.Interfaces[0]
	assert.Equal(t, "network", nat.Type)
	assert.Equal(t, "52:54:00:aa:bb:cc", nat.MAC)
	assert.Equal(t, "vnet0", nat.Target)
	assert.Equal(t, "virtio", nat.Model)
	assert.Equal(t, "1500", nat.MTU)
	assert.Equal(t, "up", nat.State, "link state defaults to up")
	assert.Equal(t, "default", nat.Source.Name(nat.Type))
	assert.Equal(t, "pg1", *nat.Source.Portgroup)
	assert.Nil(t, nat.Source.Bridge)
	require.NotNil(t, nat.BootOrder)
	assert.Equal(t, 2, *nat.BootOrder)
	assert.Equal(t, &virtxml.PCIAddress{Domain: "0x0000", Bus: "0x01", Slot: "0x00", Function: "0x0"}, nat.Address)

	br := dom.Interfaces[1]
	assert.Equal(t, "down", br.State)
	assert.Equal(t, "br0", br.Source.Name(br.Type))
	assert.Nil(t, br.BootOrder)
}

func TestParseDomainRedirdevsAndHostDevs(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	require.Len(t, dom.Redirdevs, 1, "bus-less redirdev is dropped")
	assert.Equal(t, "usb", dom.Redirdevs[0].Bus)
	assert.Equal(t, "spicevmc", dom.Redirdevs[0].Type)
	assert.Equal(t, virtxml.RedirdevAddress{Type: "usb", Bus: "0", Port: "2"}, dom.Redirdevs[0].Address)

	require.Len(t, dom.HostDevs, 4, "source-less and unknown host devices are dropped")

	usb := dom.HostDevs[0]
	assert.Equal(t, virtxml.HostDevUSB, usb.Type)
	assert.Equal(t, &virtxml.USBHostDevSource{VendorID: "0x1d6b", ProductID: "0x0002", Bus: "1", Device: "3"}, usb.USB)
	assert.Nil(t, usb.PCI)

	pci := dom.HostDevs[1]
	assert.Equal(t, virtxml.HostDevPCI, pci.Type)
	assert.Equal(t, &virtxml.PCIAddress{Domain: "0x0000", Bus: "0x02", Slot: "0x1f", Function: "0x7"}, pci.PCI)
	require.NotNil(t, pci.BootOrder)
	assert.Equal(t, 3, *pci.BootOrder)

	mdev := dom.HostDevs[2]
	assert.Equal(t, &virtxml.MDevHostDevSource{Model: "vfio-pci", UUID: "c2177883-f1bb-47f0-914d-32a22e3a8804"}, mdev.MDev)

	storage := dom.HostDevs[3]
	assert.Equal(t, "capabilities", storage.Mode)
	assert.Equal(t, "/dev/sdf1", storage.Storage.Block)
}

func TestParseDomainMiscDevices(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	require.Len(t, dom.Filesystems, 1)
	assert.Equal(t, &virtxml.Filesystem{
		Type:       "mount",
		AccessMode: "passthrough",
		DriverType: "virtiofs",
		SourceDir:  "/srv/share",
		TargetDir:  "share",
	}, dom.Filesystems[0])

	assert.Equal(t, &virtxml.Watchdog{Model: "i6300esb", Action: "reset"}, dom.Watchdog)
	assert.Equal(t, &virtxml.Vsock{Model: "virtio", CID: virtxml.VsockCID{Auto: "no", Address: "3"}}, dom.Vsock)
}

func TestParseDomainDisplays(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	require.Len(t, dom.Displays, 3, "incomplete graphics element is ignored")

	vnc := dom.Displays[0]
	assert.Equal(t, virtxml.DisplayVNC, vnc.Type)
	assert.True(t, vnc.Graphics.Autoport)
	assert.Equal(t, "127.0.0.1", vnc.Graphics.Address)

	spice := dom.Displays[1]
	assert.Equal(t, virtxml.DisplaySpice, spice.Type)
	assert.False(t, spice.Graphics.Autoport)
	assert.Equal(t, "0.0.0.0", spice.Graphics.Address)
	assert.Equal(t, "5901", spice.Graphics.Port)
	assert.Equal(t, "5902", spice.Graphics.TLSPort)

	pty := dom.Displays[2]
	assert.Equal(t, virtxml.DisplayPty, pty.Type)
	assert.Equal(t, &virtxml.PtyConsole{Alias: "serial0", Target: "serial", Path: "/dev/pts/4"}, pty.Pty)
}

func TestHasSpice(t *testing.T) {
	tests := []struct {
		name    string
		devices string
		want    bool
	}{
		{
			name:    "qxl video only",
			devices: `<video><model type="qxl"/></video><graphics type="vnc" autoport="yes"/>`,
			want:    true,
		},
		{
			name:    "spice channel",
			devices: `<channel type="spicevmc"><target type="virtio" name="com.redhat.spice.0"/></channel>`,
			want:    true,
		},
		{
			name:    "spice graphics",
			devices: `<graphics type="spice" autoport="yes"/>`,
			want:    true,
		},
		{
			name:    "vnc with virtio video",
			devices: `<video><model type="virtio"/></video><graphics type="vnc" autoport="yes"/>`,
			want:    false,
		},
		{
			name:    "qxl outside video",
			devices: `<sound model="qxl"/><controller type="usb"><model type="qxl"/></controller>`,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<domain><name>x</name><devices>` + tt.devices + `</devices></domain>`
			dom, err := virtxml.ParseDomain(testContext(t), "system", doc, "/x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, dom.HasSpice)
		})
	}
}

func TestParseDomainMetadata(t *testing.T) {
	dom, err := virtxml.ParseDomain(testContext(t), "system", fullDomain, "/dom/3")
	require.NoError(t, err)

	assert.True(t, dom.Metadata.InstallPhase())
	assert.Equal(t, ptr("url"), dom.Metadata.InstallSourceType)
	assert.Equal(t, ptr("https://example.com/fedora.iso"), dom.Metadata.InstallSource)
	assert.Equal(t, ptr("fedora40"), dom.Metadata.OSVariant)
	assert.Nil(t, dom.Metadata.RootPassword)
	assert.Nil(t, dom.Metadata.UserLogin)
}

func TestParseMachinesMetadataElementNamespaceIsolation(t *testing.T) {
	doc := `<metadata>
      <other:data xmlns:other="https://example.com/another-tool">
        <other:os_variant>rhel9</other:os_variant>
      </other:data>
      <os_variant>plain</os_variant>
    </metadata>`

	root, err := xmldoc.Parse(doc)
	require.NoError(t, err)

	assert.Nil(t, virtxml.ParseMachinesMetadataElement(root, virtxml.MetaOSVariant))
}

func TestParseDomainFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: `<domain><name>x</name><devices></domain>`},
		{name: "missing devices", doc: `<domain><name>x</name></domain>`},
		{name: "wrong root", doc: `<network><name>x</name><devices/></network>`},
		{name: "empty", doc: ``},
		{name: "trailing garbage", doc: `<domain><name>x</name><devices/></domain><garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := virtxml.ParseDomain(testContext(t), "system", tt.doc, "/x")
			require.Error(t, err)
			assert.True(t, xmldoc.IsParseError(err))
		})
	}
}

func TestParseDomainMinimal(t *testing.T) {
	doc := `<domain><name>tiny</name><memory>1073741824</memory><vcpu>1</vcpu><devices/></domain>`

	dom, err := virtxml.ParseDomain(testContext(t), "session", doc, "/tiny")
	require.NoError(t, err)

	assert.InDelta(t, 1048576, dom.Memory, 1e-9, "memory without unit is bytes")
	assert.InDelta(t, dom.Memory, dom.CurrentMemory, 1e-9)
	assert.Equal(t, 0, dom.Disks.Len())
	assert.Empty(t, dom.Interfaces)
	assert.Nil(t, dom.Watchdog)
	assert.Nil(t, dom.Vsock)
	assert.Nil(t, dom.Loader)
	assert.False(t, dom.HasSpice)
	assert.Equal(t, virtxml.Metadata{}, dom.Metadata)
}

func TestParseDomainDecimalMemory(t *testing.T) {
	doc := `<domain><name>dec</name><memory unit="KB">1024000</memory><currentMemory unit="MB">1000</currentMemory><devices/></domain>`

	dom, err := virtxml.ParseDomain(testContext(t), "system", doc, "/dec")
	require.NoError(t, err)

	assert.InDelta(t, 1000000, dom.Memory, 1e-6)
	assert.InDelta(t, 976562.5, dom.CurrentMemory, 1e-6)
}
