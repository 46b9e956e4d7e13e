package xmlgen

import (
	"math"

	"gitlab.com/tozd/go/errors"
	"libvirt.org/go/libvirtxml"
)

// VolumeXML returns a file volume fragment. Whole sizes are written in MiB,
// fractional ones are rounded to bytes.
func VolumeXML(name string, sizeMiB float64, format string) (string, error) {
	if name == "" {
		return "", errors.New("volume name is required")
	}
	if sizeMiB <= 0 || math.IsInf(sizeMiB, 0) || math.IsNaN(sizeMiB) {
		return "", errors.Errorf("volume size must be positive, got %v", sizeMiB)
	}

	capacity := &libvirtxml.StorageVolumeSize{Unit: "MiB", Value: uint64(sizeMiB)}
	if sizeMiB != math.Trunc(sizeMiB) {
		capacity = &libvirtxml.StorageVolumeSize{Unit: "bytes", Value: uint64(math.Round(sizeMiB * 1024 * 1024))}
	}

	v := &libvirtxml.StorageVolume{
		Type:     "file",
		Name:     name,
		Capacity: capacity,
	}
	if format != "" {
		v.Target = &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{Type: format},
		}
	}

	return marshal(v)
}
