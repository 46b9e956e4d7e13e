package xmlgen

import (
	"gitlab.com/tozd/go/errors"
	"libvirt.org/go/libvirtxml"
)

type PoolSourceParams struct {
	Dir       string `json:"dir,omitempty"`
	Device    string `json:"device,omitempty"`
	Name      string `json:"name,omitempty"`
	Host      string `json:"host,omitempty"`
	Initiator string `json:"initiator,omitempty" jsonschema:"description=iSCSI initiator IQN"`
	Format    string `json:"format,omitempty"`
}

func (s PoolSourceParams) isZero() bool {
	return s == PoolSourceParams{}
}

type PoolParams struct {
	Name   string           `json:"name"`
	Type   string           `json:"type" jsonschema:"enum=dir,enum=fs,enum=netfs,enum=logical,enum=disk,enum=iscsi,enum=iscsi-direct,enum=scsi,enum=mpath,enum=rbd,enum=gluster,enum=zfs"`
	Target string           `json:"target,omitempty" jsonschema:"description=target path"`
	Source PoolSourceParams `json:"source,omitempty"`
}

// PoolXML returns a pool fragment. The source element is omitted when none of
// its fields is set.
func PoolXML(p PoolParams) (string, error) {
	if p.Name == "" || p.Type == "" {
		return "", errors.New("pool name and type are required")
	}

	x := &libvirtxml.StoragePool{Type: p.Type, Name: p.Name}

	if !p.Source.isZero() {
		s := &libvirtxml.StoragePoolSource{Name: p.Source.Name}
		if p.Source.Dir != "" {
			s.Dir = &libvirtxml.StoragePoolSourceDir{Path: p.Source.Dir}
		}
		if p.Source.Device != "" {
			s.Device = []libvirtxml.StoragePoolSourceDevice{{Path: p.Source.Device}}
		}
		if p.Source.Host != "" {
			s.Host = []libvirtxml.StoragePoolSourceHost{{Name: p.Source.Host}}
		}
		if p.Source.Initiator != "" {
			s.Initiator = &libvirtxml.StoragePoolSourceInitiator{
				IQN: libvirtxml.StoragePoolSourceInitiatorIQN{Name: p.Source.Initiator},
			}
		}
		if p.Source.Format != "" {
			s.Format = &libvirtxml.StoragePoolSourceFormat{Type: p.Source.Format}
		}
		x.Source = s
	}

	if p.Target != "" {
		x.Target = &libvirtxml.StoragePoolTarget{Path: p.Target}
	}

	return marshal(x)
}
