package virtxml_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

const hostCapabilities = `<capabilities>
  <host>
    <uuid>2b3c0d3a-0000-0000-0000-000000000000</uuid>
    <cpu>
      <arch>x86_64</arch>
      <model>Skylake-Client-IBRS</model>
    </cpu>
  </host>
  <guest>
    <os_type>hvm</os_type>
    <arch name="x86_64">
      <wordsize>64</wordsize>
      <emulator>/usr/bin/qemu-system-x86_64</emulator>
      <machine maxCpus="255">pc-i440fx-8.1</machine>
      <machine maxCpus="288">pc-q35-8.1</machine>
      <domain type="qemu"/>
      <domain type="kvm"/>
    </arch>
    <features>
      <acpi default="on" toggle="yes"/>
      <disksnapshot default="on" toggle="no"/>
      <externalSnapshot/>
    </features>
  </guest>
  <guest>
    <os_type>hvm</os_type>
    <arch name="aarch64">
      <machine>virt</machine>
      <domain type="qemu"/>
    </arch>
    <features>
      <disksnapshot default="off" toggle="no"/>
    </features>
  </guest>
</capabilities>`

func TestParseCapabilities(t *testing.T) {
	caps, err := virtxml.ParseCapabilities(testContext(t), hostCapabilities)
	require.NoError(t, err)

	assert.Equal(t, "x86_64", caps.HostArch)
	assert.Equal(t, "Skylake-Client-IBRS", caps.HostCPUModel)
	require.Len(t, caps.Guests, 2)

	x86 := caps.Guest("hvm", "x86_64")
	require.NotNil(t, x86)
	assert.True(t, x86.ExternalSnapshot)
	assert.True(t, x86.InternalSnapshot)
	assert.Equal(t, []string{"pc-i440fx-8.1", "pc-q35-8.1"}, x86.Machines)
	assert.Equal(t, []string{"qemu", "kvm"}, x86.DomainTypes)

	arm := caps.Guest("hvm", "aarch64")
	require.NotNil(t, arm)
	assert.False(t, arm.ExternalSnapshot)
	assert.False(t, arm.InternalSnapshot)

	assert.Nil(t, caps.Guest("xen", "x86_64"))
}

const domainCapabilities = `<domainCapabilities>
  <path>/usr/bin/qemu-system-x86_64</path>
  <domain>kvm</domain>
  <machine>pc-q35-8.1</machine>
  <arch>x86_64</arch>
  <vcpu max="288"/>
  <os supported="yes">
    <enum name="firmware">
      <value>bios</value>
      <value>efi</value>
    </enum>
    <loader supported="yes">
      <value>/usr/share/OVMF/OVMF_CODE.fd</value>
      <enum name="type"><value>rom</value><value>pflash</value></enum>
    </loader>
  </os>
  <cpu>
    <mode name="host-passthrough" supported="yes"/>
    <mode name="host-model" supported="yes">
      <model fallback="forbid">Skylake-Client-IBRS</model>
    </mode>
    <mode name="custom" supported="yes">
      <model usable="yes">qemu64</model>
      <model usable="no">Icelake-Server</model>
      <model usable="yes">Skylake-Client</model>
    </mode>
  </cpu>
  <devices>
    <graphics supported="yes">
      <enum name="type"><value>sdl</value><value>vnc</value><value>spice</value></enum>
    </graphics>
    <tpm supported="yes">
      <enum name="model"><value>tpm-tis</value><value>tpm-crb</value></enum>
    </tpm>
  </devices>
</domainCapabilities>`

func TestParseDomainCapabilities(t *testing.T) {
	caps, err := virtxml.ParseDomainCapabilities(testContext(t), domainCapabilities)
	require.NoError(t, err)

	assert.Equal(t, &virtxml.DomainCapabilities{
		Arch:           "x86_64",
		Machine:        "pc-q35-8.1",
		MaxVCPUs:       288,
		LoaderPaths:    []string{"/usr/share/OVMF/OVMF_CODE.fd"},
		CPUModels:      []string{"qemu64", "Skylake-Client"},
		HostCPUModel:   "Skylake-Client-IBRS",
		SupportsSpice:  true,
		SupportsTPM:    true,
		FirmwareValues: []string{"bios", "efi"},
	}, caps)

	_, err = virtxml.ParseDomainCapabilities(testContext(t), "<domainCapabilities>")
	require.Error(t, err)
}

func TestParseSnapshot(t *testing.T) {
	doc := `<domainsnapshot>
  <name>before-upgrade</name>
  <description>pre dnf upgrade</description>
  <state>running</state>
  <creationTime>1700000000</creationTime>
  <parent><name>fresh-install</name></parent>
  <memory snapshot="external" file="/var/lib/libvirt/qemu/snapshot/vm/before-upgrade.mem"/>
  <disks>
    <disk name="vda" snapshot="external"/>
  </disks>
  <domain type="kvm"><name>vm</name></domain>
</domainsnapshot>`

	snap, err := virtxml.ParseSnapshot(testContext(t), doc)
	require.NoError(t, err)

	assert.Equal(t, &virtxml.Snapshot{
		Name:         "before-upgrade",
		Description:  "pre dnf upgrade",
		State:        "running",
		CreationTime: time.Unix(1700000000, 0).UTC(),
		ParentName:   "fresh-install",
		MemoryPath:   "/var/lib/libvirt/qemu/snapshot/vm/before-upgrade.mem",
		External:     true,
	}, snap)

	internal, err := virtxml.ParseSnapshot(testContext(t), `<domainsnapshot><name>s1</name><state>shutoff</state></domainsnapshot>`)
	require.NoError(t, err)
	assert.False(t, internal.External)
	assert.True(t, internal.CreationTime.IsZero())
}
