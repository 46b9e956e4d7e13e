package xmlgen

import (
	"libvirt.org/go/libvirtxml"
)

type SnapshotDisk struct {
	Name       string `json:"name" jsonschema:"description=disk target such as vda"`
	SourceFile string `json:"sourceFile,omitempty"`
}

// SnapshotParams describes a snapshot. A memory path makes the memory state
// external; without one the fragment describes an internal snapshot.
type SnapshotParams struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	MemoryPath  string         `json:"memoryPath,omitempty"`
	Disks       []SnapshotDisk `json:"disks,omitempty" jsonschema:"description=disks to snapshot externally"`
}

func SnapshotXML(p SnapshotParams) (string, error) {
	s := &libvirtxml.DomainSnapshot{Name: p.Name, Description: p.Description}

	if p.MemoryPath != "" {
		s.Memory = &libvirtxml.DomainSnapshotMemory{Snapshot: "external", File: p.MemoryPath}
	}

	if len(p.Disks) > 0 {
		s.Disks = &libvirtxml.DomainSnapshotDisks{}
		for _, d := range p.Disks {
			disk := libvirtxml.DomainSnapshotDisk{Name: d.Name, Snapshot: "external"}
			if d.SourceFile != "" {
				disk.Source = &libvirtxml.DomainDiskSource{
					File: &libvirtxml.DomainDiskSourceFile{File: d.SourceFile},
				}
			}
			s.Disks.Disks = append(s.Disks.Disks, disk)
		}
	}

	return marshal(s)
}
