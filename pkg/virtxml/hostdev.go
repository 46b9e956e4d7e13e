package virtxml

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

type HostDevType string

const (
	HostDevUSB      HostDevType = "usb"
	HostDevPCI      HostDevType = "pci"
	HostDevSCSI     HostDevType = "scsi"
	HostDevSCSIHost HostDevType = "scsi_host"
	HostDevMDev     HostDevType = "mdev"
	HostDevStorage  HostDevType = "storage"
	HostDevMisc     HostDevType = "misc"
	HostDevNet      HostDevType = "net"
)

// HostDev is a host device assigned to a domain. Exactly one of the source
// pointers is set, selected by Type.
type HostDev struct {
	Type      HostDevType `json:"type" yaml:"type"`
	Mode      string      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Managed   string      `json:"managed,omitempty" yaml:"managed,omitempty"`
	BootOrder *int        `json:"bootOrder,omitempty" yaml:"bootOrder,omitempty"`

	USB      *USBHostDevSource      `json:"usb,omitempty" yaml:"usb,omitempty"`
	PCI      *PCIAddress            `json:"pci,omitempty" yaml:"pci,omitempty"`
	SCSI     *SCSIHostDevSource     `json:"scsi,omitempty" yaml:"scsi,omitempty"`
	SCSIHost *SCSIHostHostDevSource `json:"scsiHost,omitempty" yaml:"scsiHost,omitempty"`
	MDev     *MDevHostDevSource     `json:"mdev,omitempty" yaml:"mdev,omitempty"`
	Storage  *StorageHostDevSource  `json:"storage,omitempty" yaml:"storage,omitempty"`
	Misc     *MiscHostDevSource     `json:"misc,omitempty" yaml:"misc,omitempty"`
	Net      *NetHostDevSource      `json:"net,omitempty" yaml:"net,omitempty"`
}

type USBHostDevSource struct {
	VendorID  string `json:"vendorId,omitempty" yaml:"vendorId,omitempty"`
	ProductID string `json:"productId,omitempty" yaml:"productId,omitempty"`
	Bus       string `json:"bus,omitempty" yaml:"bus,omitempty"`
	Device    string `json:"device,omitempty" yaml:"device,omitempty"`
	Port      string `json:"port,omitempty" yaml:"port,omitempty"`
}

type SCSIHostDevSource struct {
	Protocol    string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	AdapterName string `json:"adapterName,omitempty" yaml:"adapterName,omitempty"`
	Bus         string `json:"bus,omitempty" yaml:"bus,omitempty"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

type SCSIHostHostDevSource struct {
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	WWPN     string `json:"wwpn,omitempty" yaml:"wwpn,omitempty"`
}

type MDevHostDevSource struct {
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	UUID  string `json:"uuid" yaml:"uuid"`
}

type StorageHostDevSource struct {
	Block string `json:"block" yaml:"block"`
}

type MiscHostDevSource struct {
	Char string `json:"char" yaml:"char"`
}

type NetHostDevSource struct {
	Interface string `json:"interface" yaml:"interface"`
}

func parseHostDevs(ctx context.Context, devices *xmldoc.Element) []*HostDev {
	logger := zerolog.Ctx(ctx)
	var out []*HostDev

	for _, elem := range devices.ChildrenNamed("hostdev") {
		typ := HostDevType(elem.AttrOr("type", ""))
		src := elem.Child("source")
		if src == nil {
			logger.Warn().Str("type", string(typ)).Msg("dropping host device without source")
			continue
		}

		dev := &HostDev{
			Type:      typ,
			Mode:      elem.AttrOr("mode", ""),
			Managed:   elem.AttrOr("managed", ""),
			BootOrder: parseBootOrder(ctx, elem),
		}

		switch typ {
		case HostDevUSB:
			addr := src.Child("address")
			dev.USB = &USBHostDevSource{
				VendorID:  src.Child("vendor").AttrOr("id", ""),
				ProductID: src.Child("product").AttrOr("id", ""),
				Bus:       addr.AttrOr("bus", ""),
				Device:    addr.AttrOr("device", ""),
				Port:      addr.AttrOr("port", ""),
			}
		case HostDevPCI:
			addr := src.Child("address")
			if addr == nil {
				logger.Warn().Msg("dropping pci host device without source address")
				continue
			}
			dev.PCI = &PCIAddress{
				Domain:   addr.AttrOr("domain", ""),
				Bus:      addr.AttrOr("bus", ""),
				Slot:     addr.AttrOr("slot", ""),
				Function: addr.AttrOr("function", ""),
			}
		case HostDevSCSI:
			addr := src.Child("address")
			dev.SCSI = &SCSIHostDevSource{
				Protocol:    src.AttrOr("protocol", ""),
				AdapterName: src.Child("adapter").AttrOr("name", ""),
				Bus:         addr.AttrOr("bus", ""),
				Target:      addr.AttrOr("target", ""),
				Unit:        addr.AttrOr("unit", ""),
			}
		case HostDevSCSIHost:
			dev.SCSIHost = &SCSIHostHostDevSource{
				Protocol: src.AttrOr("protocol", ""),
				WWPN:     src.AttrOr("wwpn", ""),
			}
		case HostDevMDev:
			uuid, ok := src.Child("address").Attr("uuid")
			if !ok {
				logger.Warn().Msg("dropping mdev host device without uuid")
				continue
			}
			dev.MDev = &MDevHostDevSource{Model: elem.AttrOr("model", ""), UUID: uuid}
		case HostDevStorage:
			dev.Storage = &StorageHostDevSource{Block: src.Child("block").Content()}
		case HostDevMisc:
			dev.Misc = &MiscHostDevSource{Char: src.Child("char").Content()}
		case HostDevNet:
			dev.Net = &NetHostDevSource{Interface: src.Child("interface").Content()}
		default:
			logger.Warn().Str("type", string(typ)).Msg("dropping host device of unknown type")
			continue
		}

		out = append(out, dev)
	}

	return out
}
