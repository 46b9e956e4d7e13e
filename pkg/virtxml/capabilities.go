package virtxml

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

// Capabilities is the connection-wide capability advertisement.
type Capabilities struct {
	HostArch     string              `json:"hostArch,omitempty" yaml:"hostArch,omitempty"`
	HostCPUModel string              `json:"hostCpuModel,omitempty" yaml:"hostCpuModel,omitempty"`
	Guests       []GuestCapabilities `json:"guests" yaml:"guests"`
}

// GuestCapabilities describes one guest os type and architecture pair.
type GuestCapabilities struct {
	OSType           string   `json:"osType" yaml:"osType"`
	Arch             string   `json:"arch" yaml:"arch"`
	Machines         []string `json:"machines,omitempty" yaml:"machines,omitempty"`
	DomainTypes      []string `json:"domainTypes,omitempty" yaml:"domainTypes,omitempty"`
	ExternalSnapshot bool     `json:"externalSnapshot" yaml:"externalSnapshot"`
	InternalSnapshot bool     `json:"internalSnapshot" yaml:"internalSnapshot"`
}

func ParseCapabilities(ctx context.Context, capsXML string) (*Capabilities, error) {
	root, err := xmldoc.ParseRoot(capsXML, "capabilities")
	if err != nil {
		return nil, errors.Errorf("parsing capabilities: %w", err)
	}

	host := root.Child("host")
	caps := &Capabilities{
		HostArch:     host.FindPath("cpu", "arch").Content(),
		HostCPUModel: host.FindPath("cpu", "model").Content(),
	}

	for _, g := range root.ChildrenNamed("guest") {
		archElem := g.Child("arch")
		guest := GuestCapabilities{
			OSType: g.Child("os_type").Content(),
			Arch:   archElem.AttrOr("name", ""),
		}
		if guest.OSType == "" || guest.Arch == "" {
			zerolog.Ctx(ctx).Warn().Str("os_type", guest.OSType).Str("arch", guest.Arch).Msg("dropping incomplete guest capability")
			continue
		}

		for _, m := range archElem.ChildrenNamed("machine") {
			guest.Machines = append(guest.Machines, m.Content())
		}
		for _, d := range archElem.ChildrenNamed("domain") {
			guest.DomainTypes = append(guest.DomainTypes, d.AttrOr("type", ""))
		}

		features := g.Child("features")
		guest.ExternalSnapshot = features.Child("externalSnapshot") != nil
		if ds := features.Child("disksnapshot"); ds != nil {
			guest.InternalSnapshot = ds.AttrOr("default", "on") != "off"
		}

		caps.Guests = append(caps.Guests, guest)
	}

	return caps, nil
}

// Guest returns the capabilities for an os type and architecture, or nil.
func (c *Capabilities) Guest(osType string, arch string) *GuestCapabilities {
	if c == nil {
		return nil
	}
	for i := range c.Guests {
		if c.Guests[i].OSType == osType && c.Guests[i].Arch == arch {
			return &c.Guests[i]
		}
	}
	return nil
}
