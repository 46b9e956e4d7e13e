package mcp

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/bootorder"
	"github.com/walteh/libvirt-mcp/pkg/nodedev"
	"github.com/walteh/libvirt-mcp/pkg/units"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
	"github.com/walteh/libvirt-mcp/pkg/xmlgen"
)

type xmlArgs struct {
	XML        string `json:"xml"`
	Connection string `json:"connection,omitempty"`
}

var xmlParam = stringParam{Name: "xml", Description: "the full XML document", Required: true}

var connectionParam = stringParam{Name: "connection", Description: "connection name recorded on the result"}

type VolumeParams struct {
	Name    string  `json:"name"`
	SizeMiB float64 `json:"sizeMiB" jsonschema:"description=capacity in MiB"`
	Format  string  `json:"format,omitempty" jsonschema:"description=qcow2 or raw"`
}

type MatchParams struct {
	DomainXML      string   `json:"domainXml" jsonschema:"description=domain XML holding hostdev elements"`
	NodeDeviceXMLs []string `json:"nodeDeviceXmls" jsonschema:"description=node device XML documents of the host"`
}

type HostDevMatch struct {
	HostDev     *virtxml.HostDev      `json:"hostdev"`
	Description nodedev.Description   `json:"description"`
	Candidates  []*virtxml.NodeDevice `json:"candidates"`
}

type ConvertParams struct {
	Value float64 `json:"value"`
	From  string  `json:"from" jsonschema:"description=unit name such as KiB or GiB"`
	To    string  `json:"to,omitempty" jsonschema:"description=target unit; the best fitting unit when empty"`
}

func (s *Server) registerDocumentTools(_ context.Context) error {
	steps := []func() error{
		func() error {
			return register(s, "parse_domain_xml", "Parse a libvirt domain XML document into its structured model",
				stringsSchema("parse_domain_xml", "", xmlParam, connectionParam),
				func(ctx context.Context, a xmlArgs) (any, error) {
					return virtxml.ParseDomain(ctx, a.Connection, a.XML, "")
				})
		},
		func() error {
			return register(s, "boot_order", "List the boot capable devices of a domain in boot order",
				stringsSchema("boot_order", "", xmlParam),
				func(ctx context.Context, a xmlArgs) (any, error) {
					dom, err := virtxml.ParseDomain(ctx, a.Connection, a.XML, "")
					if err != nil {
						return nil, err
					}
					return bootorder.Sorted(dom), nil
				})
		},
		func() error {
			return register(s, "parse_pool_xml", "Parse a libvirt storage pool XML document",
				stringsSchema("parse_pool_xml", "", xmlParam, connectionParam),
				func(ctx context.Context, a xmlArgs) (any, error) {
					return virtxml.ParseStoragePool(ctx, a.Connection, a.XML, "")
				})
		},
		func() error {
			return register(s, "parse_network_xml", "Parse a libvirt virtual network XML document",
				stringsSchema("parse_network_xml", "", xmlParam, connectionParam),
				func(ctx context.Context, a xmlArgs) (any, error) {
					return virtxml.ParseNetwork(ctx, a.Connection, a.XML, "")
				})
		},
		func() error {
			return register(s, "parse_node_device_xml", "Parse a libvirt node device XML document",
				stringsSchema("parse_node_device_xml", "", xmlParam),
				func(ctx context.Context, a xmlArgs) (any, error) {
					return virtxml.ParseNodeDevice(ctx, a.XML)
				})
		},
		func() error {
			return register(s, "parse_capabilities_xml", "Parse a libvirt host capabilities XML document",
				stringsSchema("parse_capabilities_xml", "", xmlParam),
				func(ctx context.Context, a xmlArgs) (any, error) {
					return virtxml.ParseCapabilities(ctx, a.XML)
				})
		},
		func() error {
			return register(s, "disk_xml", "Build a disk XML fragment for attaching to a domain", nil,
				func(_ context.Context, p xmlgen.DiskParams) (any, error) {
					return xmlgen.DiskXML(p)
				})
		},
		func() error {
			return register(s, "network_xml", "Build a virtual network XML definition", nil,
				func(_ context.Context, p xmlgen.NetworkParams) (any, error) {
					return xmlgen.NetworkXML(p)
				})
		},
		func() error {
			return register(s, "volume_xml", "Build a storage volume XML definition", nil,
				func(_ context.Context, p VolumeParams) (any, error) {
					return xmlgen.VolumeXML(p.Name, p.SizeMiB, p.Format)
				})
		},
		func() error {
			return register(s, "pool_xml", "Build a storage pool XML definition", nil,
				func(_ context.Context, p xmlgen.PoolParams) (any, error) {
					return xmlgen.PoolXML(p)
				})
		},
		func() error {
			return register(s, "snapshot_xml", "Build a domain snapshot XML definition", nil,
				func(_ context.Context, p xmlgen.SnapshotParams) (any, error) {
					return xmlgen.SnapshotXML(p)
				})
		},
		func() error {
			return register(s, "metadata_xml", "Build the machines metadata block stored in a domain", nil,
				func(_ context.Context, m virtxml.Metadata) (any, error) {
					return xmlgen.MetadataXML(m)
				})
		},
		func() error {
			return register(s, "match_node_devices", "Find the host devices referenced by the hostdev elements of a domain", nil,
				func(ctx context.Context, p MatchParams) (any, error) {
					return matchNodeDevices(ctx, p)
				})
		},
		func() error {
			return register(s, "convert_units", "Convert a size between binary byte units", nil,
				func(ctx context.Context, p ConvertParams) (any, error) {
					from, ok := units.ParseUnit(p.From)
					if !ok {
						return nil, errors.Errorf("unknown unit %q", p.From)
					}
					if p.To == "" {
						return units.ConvertToBest(ctx, p.Value, from).String(), nil
					}
					to, ok := units.ParseUnit(p.To)
					if !ok {
						return nil, errors.Errorf("unknown unit %q", p.To)
					}
					return units.Quantity{Value: units.Convert(ctx, p.Value, from, to), Unit: to}.String(), nil
				})
		},
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func matchNodeDevices(ctx context.Context, p MatchParams) ([]HostDevMatch, error) {
	dom, err := virtxml.ParseDomain(ctx, "", p.DomainXML, "")
	if err != nil {
		return nil, err
	}

	devs := make([]*virtxml.NodeDevice, 0, len(p.NodeDeviceXMLs))
	for i, doc := range p.NodeDeviceXMLs {
		dev, err := virtxml.ParseNodeDevice(ctx, doc)
		if err != nil {
			return nil, errors.Errorf("node device %d: %w", i, err)
		}
		devs = append(devs, dev)
	}

	return matchHostDevs(dom, devs), nil
}
