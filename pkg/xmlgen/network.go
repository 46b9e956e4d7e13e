package xmlgen

import (
	"strconv"

	"gitlab.com/tozd/go/errors"
	"libvirt.org/go/libvirtxml"
)

// NetworkParams describes a virtual network. Device "automatic" (or empty)
// lets libvirt choose the outbound interface.
type NetworkParams struct {
	Name               string `json:"name"`
	ForwardMode        string `json:"forwardMode" jsonschema:"enum=none,enum=nat,enum=route,enum=open,enum=bridge,enum=private,enum=vepa,enum=passthrough,enum=hostdev"`
	Device             string `json:"device,omitempty"`
	IPv4               string `json:"ipv4,omitempty" jsonschema:"description=gateway address"`
	Netmask            string `json:"netmask,omitempty"`
	IPv6               string `json:"ipv6,omitempty"`
	Prefix             string `json:"prefix,omitempty"`
	IPv4DHCPRangeStart string `json:"ipv4DhcpRangeStart,omitempty"`
	IPv4DHCPRangeEnd   string `json:"ipv4DhcpRangeEnd,omitempty"`
	IPv6DHCPRangeStart string `json:"ipv6DhcpRangeStart,omitempty"`
	IPv6DHCPRangeEnd   string `json:"ipv6DhcpRangeEnd,omitempty"`
}

const automaticDevice = "automatic"

// forward modes for which the host owns a local DNS domain
var localDomainModes = map[string]bool{
	"none":  true,
	"nat":   true,
	"route": true,
	"open":  true,
}

func dhcpRange(start, end string) *libvirtxml.NetworkDHCP {
	if start == "" || end == "" {
		return nil
	}
	return &libvirtxml.NetworkDHCP{Ranges: []libvirtxml.NetworkDHCPRange{{Start: start, End: end}}}
}

// NetworkXML returns a network fragment. The domain element is only written
// for the none, nat, route and open forward modes.
func NetworkXML(p NetworkParams) (string, error) {
	if p.Name == "" {
		return "", errors.New("network name is required")
	}

	mode := p.ForwardMode
	if mode == "" {
		mode = "none"
	}

	n := &libvirtxml.Network{Name: p.Name}

	if mode != "none" {
		n.Forward = &libvirtxml.NetworkForward{Mode: mode}
		if (mode == "nat" || mode == "route") && p.Device != "" && p.Device != automaticDevice {
			n.Forward.Dev = p.Device
		}
	}

	if localDomainModes[mode] {
		n.Domain = &libvirtxml.NetworkDomain{Name: p.Name, LocalOnly: "yes"}
	}

	if p.IPv4 != "" {
		if p.Netmask == "" {
			return "", errors.New("ipv4 address needs a netmask")
		}
		n.DNS = &libvirtxml.NetworkDNS{Host: []libvirtxml.NetworkDNSHost{{
			IP:        p.IPv4,
			Hostnames: []libvirtxml.NetworkDNSHostHostname{{Hostname: "gateway"}},
		}}}
		n.IPs = append(n.IPs, libvirtxml.NetworkIP{
			Address:  p.IPv4,
			Netmask:  p.Netmask,
			LocalPtr: "yes",
			DHCP:     dhcpRange(p.IPv4DHCPRangeStart, p.IPv4DHCPRangeEnd),
		})
	}

	if p.IPv6 != "" {
		if p.Prefix == "" {
			return "", errors.New("ipv6 address needs a prefix")
		}
		prefix, err := strconv.ParseUint(p.Prefix, 10, 8)
		if err != nil || prefix > 128 {
			return "", errors.Errorf("invalid ipv6 prefix %q", p.Prefix)
		}
		n.IPs = append(n.IPs, libvirtxml.NetworkIP{
			Family:  "ipv6",
			Address: p.IPv6,
			Prefix:  uint(prefix),
			DHCP:    dhcpRange(p.IPv6DHCPRangeStart, p.IPv6DHCPRangeEnd),
		})
	}

	return marshal(n)
}
