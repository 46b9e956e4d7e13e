package virtxml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

const natNetwork = `<network>
  <name>default</name>
  <uuid>9b0e4c1e-7a5e-4b0a-8f2d-2b0b5c0c0e11</uuid>
  <forward/>
  <bridge name="virbr0" stp="on" delay="0"/>
  <mtu size="9000"/>
  <domain name="example.lan" localOnly="yes"/>
  <ip address="192.168.122.1" netmask="255.255.255.0">
    <dhcp>
      <range start="192.168.122.2" end="192.168.122.254"/>
      <host mac="52:54:00:6c:3c:01" name="vm1" ip="192.168.122.11"/>
      <host ip="192.168.122.12" id="0:1:0:1:2:3"/>
      <bootp file="pxelinux.0" server="192.168.122.1"/>
    </dhcp>
  </ip>
  <ip family="ipv6" address="fd00::1" prefix="64"/>
</network>`

func TestParseNetwork(t *testing.T) {
	network, err := virtxml.ParseNetwork(testContext(t), "system", natNetwork, "/net/default")
	require.NoError(t, err)

	assert.Equal(t, "default", network.Name)
	assert.Equal(t, "virbr0", network.Bridge)
	assert.Equal(t, "9000", network.MTU)
	assert.Equal(t, "example.lan", network.Domain)
	require.NotNil(t, network.Forward)
	assert.Equal(t, "nat", network.Forward.Mode, "forward without mode is nat")

	require.Len(t, network.IPs, 2)

	v4 := network.IPs[0]
	assert.Equal(t, virtxml.FamilyIPv4, v4.Family)
	assert.Equal(t, "192.168.122.1", v4.Address)
	assert.Equal(t, "255.255.255.0", v4.Netmask)
	require.NotNil(t, v4.DHCP)
	assert.Equal(t, &virtxml.DHCPRange{Start: "192.168.122.2", End: "192.168.122.254"}, v4.DHCP.Range)
	assert.Equal(t, []virtxml.DHCPHost{
		{IP: "192.168.122.11", MAC: "52:54:00:6c:3c:01", Name: "vm1"},
		{IP: "192.168.122.12", ID: "0:1:0:1:2:3"},
	}, v4.DHCP.Hosts)
	assert.Equal(t, &virtxml.Bootp{File: "pxelinux.0", Server: "192.168.122.1"}, v4.DHCP.Bootp)

	v6 := network.IPs[1]
	assert.Equal(t, virtxml.FamilyIPv6, v6.Family)
	assert.Equal(t, "64", v6.Prefix)
	assert.Nil(t, v6.DHCP)
}

func TestParseNetworkForwardModes(t *testing.T) {
	isolated, err := virtxml.ParseNetwork(testContext(t), "system", `<network><name>iso</name></network>`, "/net/iso")
	require.NoError(t, err)
	assert.Nil(t, isolated.Forward)
	assert.Empty(t, isolated.IPs)

	bridged, err := virtxml.ParseNetwork(testContext(t), "system", `<network><name>br</name>
  <forward mode="hostdev" dev="eth0">
    <interface dev="eth0"/>
    <interface dev="eth1"/>
  </forward>
</network>`, "/net/br")
	require.NoError(t, err)
	assert.Equal(t, &virtxml.Forward{Mode: "hostdev", Dev: "eth0", Interfaces: []string{"eth0", "eth1"}}, bridged.Forward)
}
