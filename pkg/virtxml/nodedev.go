package virtxml

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

// NodeDevice is a host device as reported by the node device API.
type NodeDevice struct {
	Name       string               `json:"name" yaml:"name"`
	Path       string               `json:"path,omitempty" yaml:"path,omitempty"`
	Parent     string               `json:"parent,omitempty" yaml:"parent,omitempty"`
	Driver     string               `json:"driver,omitempty" yaml:"driver,omitempty"`
	DevNodes   []string             `json:"devnodes,omitempty" yaml:"devnodes,omitempty"`
	Capability NodeDeviceCapability `json:"capability" yaml:"capability"`
}

// NodeDeviceCapability is keyed by Type; the pointer for that type is set.
type NodeDeviceCapability struct {
	Type     string              `json:"type" yaml:"type"`
	PCI      *PCICapability      `json:"pci,omitempty" yaml:"pci,omitempty"`
	USB      *USBCapability      `json:"usb,omitempty" yaml:"usb,omitempty"`
	Net      *NetCapability      `json:"net,omitempty" yaml:"net,omitempty"`
	Storage  *StorageCapability  `json:"storage,omitempty" yaml:"storage,omitempty"`
	SCSI     *SCSICapability     `json:"scsi,omitempty" yaml:"scsi,omitempty"`
	SCSIHost *SCSIHostCapability `json:"scsiHost,omitempty" yaml:"scsiHost,omitempty"`
	MDev     *MDevCapability     `json:"mdev,omitempty" yaml:"mdev,omitempty"`
	Misc     *MiscCapability     `json:"misc,omitempty" yaml:"misc,omitempty"`
}

type IDLabel struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

type PCICapability struct {
	Domain     int     `json:"domain" yaml:"domain"`
	Bus        int     `json:"bus" yaml:"bus"`
	Slot       int     `json:"slot" yaml:"slot"`
	Function   int     `json:"function" yaml:"function"`
	Class      string  `json:"class,omitempty" yaml:"class,omitempty"`
	Vendor     IDLabel `json:"vendor" yaml:"vendor"`
	Product    IDLabel `json:"product" yaml:"product"`
	IOMMUGroup *int    `json:"iommuGroup,omitempty" yaml:"iommuGroup,omitempty"`
}

// Address is the canonical dddd:bb:ss.f form.
func (p *PCICapability) Address() string {
	return FormatPCIAddress(p.Domain, p.Bus, p.Slot, p.Function)
}

type USBCapability struct {
	Bus     int     `json:"bus" yaml:"bus"`
	Device  int     `json:"device" yaml:"device"`
	Vendor  IDLabel `json:"vendor" yaml:"vendor"`
	Product IDLabel `json:"product" yaml:"product"`
}

type NetCapability struct {
	Interface string `json:"interface" yaml:"interface"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	LinkState string `json:"linkState,omitempty" yaml:"linkState,omitempty"`
}

type StorageCapability struct {
	Block     string `json:"block" yaml:"block"`
	Bus       string `json:"bus,omitempty" yaml:"bus,omitempty"`
	DriveType string `json:"driveType,omitempty" yaml:"driveType,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Vendor    string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
}

type SCSICapability struct {
	Host   int    `json:"host" yaml:"host"`
	Bus    int    `json:"bus" yaml:"bus"`
	Target int    `json:"target" yaml:"target"`
	Lun    int    `json:"lun" yaml:"lun"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
}

type SCSIHostCapability struct {
	Host int `json:"host" yaml:"host"`
}

type MDevCapability struct {
	TypeID string `json:"typeId" yaml:"typeId"`
	UUID   string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
}

type MiscCapability struct {
	Char string `json:"char" yaml:"char"`
}

func ParseNodeDevice(ctx context.Context, devXML string) (*NodeDevice, error) {
	root, err := xmldoc.ParseRoot(devXML, "device")
	if err != nil {
		return nil, errors.Errorf("parsing node device: %w", err)
	}

	dev := &NodeDevice{
		Name:   root.Child("name").Content(),
		Path:   root.Child("path").Content(),
		Parent: root.Child("parent").Content(),
		Driver: root.FindPath("driver", "name").Content(),
	}
	for _, n := range root.ChildrenNamed("devnode") {
		if n.AttrOr("type", "dev") == "dev" {
			dev.DevNodes = append(dev.DevNodes, n.Content())
		}
	}

	capElem := root.Child("capability")
	if capElem == nil {
		zerolog.Ctx(ctx).Debug().Str("name", dev.Name).Msg("node device without capability")
		return dev, nil
	}

	dev.Capability = parseNodeDeviceCapability(ctx, capElem)
	return dev, nil
}

func parseNodeDeviceCapability(ctx context.Context, c *xmldoc.Element) NodeDeviceCapability {
	out := NodeDeviceCapability{Type: c.AttrOr("type", "")}

	idLabel := func(e *xmldoc.Element) IDLabel {
		return IDLabel{ID: e.AttrOr("id", ""), Label: e.Content()}
	}
	num := func(tag string) int {
		return atoiOr(c.Child(tag).Content(), 0)
	}

	switch out.Type {
	case "pci":
		out.PCI = &PCICapability{
			Domain:   num("domain"),
			Bus:      num("bus"),
			Slot:     num("slot"),
			Function: num("function"),
			Class:    c.Child("class").Content(),
			Vendor:   idLabel(c.Child("vendor")),
			Product:  idLabel(c.Child("product")),
		}
		if g, ok := c.Child("iommuGroup").Attr("number"); ok {
			n := atoiOr(g, 0)
			out.PCI.IOMMUGroup = &n
		}
	case "usb_device":
		out.USB = &USBCapability{
			Bus:     num("bus"),
			Device:  num("device"),
			Vendor:  idLabel(c.Child("vendor")),
			Product: idLabel(c.Child("product")),
		}
	case "net":
		out.Net = &NetCapability{
			Interface: c.Child("interface").Content(),
			Address:   c.Child("address").Content(),
			LinkState: c.Child("link").AttrOr("state", ""),
		}
	case "storage":
		out.Storage = &StorageCapability{
			Block:     c.Child("block").Content(),
			Bus:       c.Child("bus").Content(),
			DriveType: c.Child("drive_type").Content(),
			Model:     c.Child("model").Content(),
			Vendor:    c.Child("vendor").Content(),
		}
	case "scsi":
		out.SCSI = &SCSICapability{
			Host:   num("host"),
			Bus:    num("bus"),
			Target: num("target"),
			Lun:    num("lun"),
			Type:   c.Child("type").Content(),
		}
	case "scsi_host":
		out.SCSIHost = &SCSIHostCapability{Host: num("host")}
	case "mdev":
		out.MDev = &MDevCapability{
			TypeID: c.Child("type").AttrOr("id", ""),
			UUID:   c.Child("uuid").Content(),
		}
	case "misc":
		out.Misc = &MiscCapability{Char: c.Child("char").Content()}
	default:
		zerolog.Ctx(ctx).Debug().Str("type", out.Type).Msg("node device capability without typed fields")
	}

	return out
}

// FormatPCIAddress renders a PCI address as dddd:bb:ss.f in lowercase hex.
func FormatPCIAddress(domain, bus, slot, function int) string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", domain, bus, slot, function)
}
