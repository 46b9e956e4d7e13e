package machine

import (
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

// DiskVolume finds the storage volume backing disk, either by pool and
// volume name or by path. It returns nil when no pool holds it.
func DiskVolume(disk *virtxml.Disk, pools []*virtxml.StoragePool) (*virtxml.StoragePool, *virtxml.StorageVolume) {
	if disk == nil {
		return nil, nil
	}
	src := disk.Source

	if src.Pool != nil && src.Volume != nil {
		for _, p := range pools {
			if p.Name != *src.Pool {
				continue
			}
			for _, v := range p.Volumes {
				if v.Name == *src.Volume {
					return p, v
				}
			}
		}
		return nil, nil
	}

	path := src.Path()
	if path == "" {
		return nil, nil
	}
	for _, p := range pools {
		for _, v := range p.Volumes {
			if v.Path == path {
				return p, v
			}
		}
	}
	return nil, nil
}

// VolumeUsers returns the names of the machines with a disk backed by vol.
func VolumeUsers(vol *virtxml.StorageVolume, machines []*Machine) []string {
	var out []string
	for _, m := range machines {
		if m.ConnectionName != vol.ConnectionName {
			continue
		}
		for _, dom := range []*virtxml.Domain{m.Config, m.Inactive} {
			if usesVolume(dom, vol) {
				out = append(out, m.Name)
				break
			}
		}
	}
	return out
}

func usesVolume(dom *virtxml.Domain, vol *virtxml.StorageVolume) bool {
	for _, d := range dom.DiskList() {
		src := d.Source
		if src.Pool != nil && src.Volume != nil && *src.Pool == vol.PoolName && *src.Volume == vol.Name {
			return true
		}
		if vol.Path != "" && src.Path() == vol.Path {
			return true
		}
	}
	return false
}
