package xmlgen

import (
	"gitlab.com/tozd/go/errors"
	"libvirt.org/go/libvirtxml"
)

const (
	DiskTypeFile   = "file"
	DiskTypeVolume = "volume"
	DiskTypeBlock  = "block"
)

// DiskParams describes a disk to attach. File is used for file disks, Dev for
// block disks and PoolName plus VolumeName for volume disks.
type DiskParams struct {
	Type       string `json:"type" jsonschema:"enum=file,enum=volume,enum=block,description=disk source kind"`
	Device     string `json:"device,omitempty" jsonschema:"description=disk or cdrom (default disk)"`
	File       string `json:"file,omitempty"`
	Dev        string `json:"dev,omitempty"`
	PoolName   string `json:"poolName,omitempty"`
	VolumeName string `json:"volumeName,omitempty"`
	Format     string `json:"format,omitempty" jsonschema:"description=image format; only qcow2 and raw are written"`
	Target     string `json:"target" jsonschema:"description=guest device name such as vdb"`
	Bus        string `json:"bus,omitempty"`
	Cache      string `json:"cache,omitempty"`
	Readonly   bool   `json:"readonly,omitempty"`
	Shareable  bool   `json:"shareable,omitempty"`
	Serial     string `json:"serial,omitempty"`
}

// driver types that are passed through to the fragment
var diskFormats = map[string]bool{
	"qcow2": true,
	"raw":   true,
}

func diskSource(p DiskParams) (*libvirtxml.DomainDiskSource, error) {
	switch p.Type {
	case DiskTypeFile:
		if p.File == "" {
			return nil, errors.New("file disk needs a file path")
		}
		return &libvirtxml.DomainDiskSource{File: &libvirtxml.DomainDiskSourceFile{File: p.File}}, nil
	case DiskTypeBlock:
		if p.Dev == "" {
			return nil, errors.New("block disk needs a device path")
		}
		return &libvirtxml.DomainDiskSource{Block: &libvirtxml.DomainDiskSourceBlock{Dev: p.Dev}}, nil
	case DiskTypeVolume:
		if p.PoolName == "" || p.VolumeName == "" {
			return nil, errors.New("volume disk needs a pool and a volume name")
		}
		return &libvirtxml.DomainDiskSource{Volume: &libvirtxml.DomainDiskSourceVolume{
			Pool:   p.PoolName,
			Volume: p.VolumeName,
		}}, nil
	default:
		return nil, errors.Errorf("unsupported disk type %q", p.Type)
	}
}

// DiskXML returns a disk fragment. The driver type attribute is only written
// for the qcow2 and raw formats.
func DiskXML(p DiskParams) (string, error) {
	if p.Target == "" {
		return "", errors.New("disk target is required")
	}

	src, err := diskSource(p)
	if err != nil {
		return "", err
	}

	d := &libvirtxml.DomainDisk{
		Device: p.Device,
		Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Cache: p.Cache},
		Source: src,
		Target: &libvirtxml.DomainDiskTarget{Dev: p.Target, Bus: p.Bus},
		Serial: p.Serial,
	}
	if d.Device == "" {
		d.Device = "disk"
	}
	if diskFormats[p.Format] {
		d.Driver.Type = p.Format
	}
	if p.Readonly {
		d.ReadOnly = &libvirtxml.DomainDiskReadOnly{}
	}
	if p.Shareable {
		d.Shareable = &libvirtxml.DomainDiskShareable{}
	}

	return marshal(d)
}
