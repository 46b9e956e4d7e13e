package virtxml

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

type Network struct {
	ConnectionName string      `json:"connectionName" yaml:"connectionName"`
	ID             string      `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	UUID           string      `json:"uuid" yaml:"uuid"`
	Bridge         string      `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	MTU            string      `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	Domain         string      `json:"domain,omitempty" yaml:"domain,omitempty"`
	Forward        *Forward    `json:"forward,omitempty" yaml:"forward,omitempty"`
	IPs            []NetworkIP `json:"ips" yaml:"ips"`

	Active     bool `json:"active" yaml:"active"`
	Persistent bool `json:"persistent" yaml:"persistent"`
	Autostart  bool `json:"autostart" yaml:"autostart"`
}

type Forward struct {
	Mode       string   `json:"mode" yaml:"mode"`
	Dev        string   `json:"dev,omitempty" yaml:"dev,omitempty"`
	Interfaces []string `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

type NetworkIP struct {
	Family   string `json:"family" yaml:"family"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Netmask  string `json:"netmask,omitempty" yaml:"netmask,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	LocalPtr string `json:"localPtr,omitempty" yaml:"localPtr,omitempty"`
	DHCP     *DHCP  `json:"dhcp,omitempty" yaml:"dhcp,omitempty"`
}

type DHCP struct {
	Range *DHCPRange `json:"range,omitempty" yaml:"range,omitempty"`
	Hosts []DHCPHost `json:"hosts" yaml:"hosts"`
	Bootp *Bootp     `json:"bootp,omitempty" yaml:"bootp,omitempty"`
}

type DHCPRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// DHCPHost is a static reservation. Absent attributes are empty strings.
type DHCPHost struct {
	IP   string `json:"ip" yaml:"ip"`
	MAC  string `json:"mac" yaml:"mac"`
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

type Bootp struct {
	File   string `json:"file" yaml:"file"`
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
}

const (
	FamilyIPv4 = "ipv4"
	FamilyIPv6 = "ipv6"
)

func ParseNetwork(ctx context.Context, connectionName string, netXML string, objPath string) (*Network, error) {
	root, err := xmldoc.ParseRoot(netXML, "network")
	if err != nil {
		return nil, errors.Errorf("parsing network %q: %w", objPath, err)
	}

	network := &Network{
		ConnectionName: connectionName,
		ID:             objPath,
		Name:           root.Child("name").Content(),
		UUID:           root.Child("uuid").Content(),
		Bridge:         root.Child("bridge").AttrOr("name", ""),
		MTU:            root.Child("mtu").AttrOr("size", ""),
		Domain:         root.Child("domain").AttrOr("name", ""),
	}

	if fwd := root.Child("forward"); fwd != nil {
		network.Forward = &Forward{
			Mode: fwd.AttrOr("mode", "nat"),
			Dev:  fwd.AttrOr("dev", ""),
		}
		for _, i := range fwd.ChildrenNamed("interface") {
			network.Forward.Interfaces = append(network.Forward.Interfaces, i.AttrOr("dev", ""))
		}
	}

	for _, ipElem := range root.ChildrenNamed("ip") {
		network.IPs = append(network.IPs, parseNetworkIP(ctx, ipElem))
	}

	return network, nil
}

func parseNetworkIP(ctx context.Context, ipElem *xmldoc.Element) NetworkIP {
	ip := NetworkIP{
		Family:   ipElem.AttrOr("family", FamilyIPv4),
		Address:  ipElem.AttrOr("address", ""),
		Netmask:  ipElem.AttrOr("netmask", ""),
		Prefix:   ipElem.AttrOr("prefix", ""),
		LocalPtr: ipElem.AttrOr("localPtr", ""),
	}

	dhcpElem := ipElem.Child("dhcp")
	if dhcpElem == nil {
		return ip
	}

	dhcp := &DHCP{Hosts: []DHCPHost{}}
	if r := dhcpElem.Child("range"); r != nil {
		dhcp.Range = &DHCPRange{Start: r.AttrOr("start", ""), End: r.AttrOr("end", "")}
	}
	for _, h := range dhcpElem.ChildrenNamed("host") {
		host := DHCPHost{
			IP:   h.AttrOr("ip", ""),
			MAC:  h.AttrOr("mac", ""),
			Name: h.AttrOr("name", ""),
			ID:   h.AttrOr("id", ""),
		}
		if host.IP == "" || (host.MAC == "" && host.ID == "") {
			zerolog.Ctx(ctx).Debug().Str("ip", host.IP).Str("name", host.Name).Msg("incomplete dhcp host reservation")
		}
		dhcp.Hosts = append(dhcp.Hosts, host)
	}
	if b := dhcpElem.Child("bootp"); b != nil {
		dhcp.Bootp = &Bootp{File: b.AttrOr("file", ""), Server: b.AttrOr("server", "")}
	}
	ip.DHCP = dhcp

	return ip
}
