package virtxml

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

// StorageVolume belongs to exactly one pool on one connection.
type StorageVolume struct {
	ConnectionName string `json:"connectionName" yaml:"connectionName"`
	PoolName       string `json:"poolName" yaml:"poolName"`
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	Path           string `json:"path" yaml:"path"`
	Capacity       string `json:"capacity" yaml:"capacity"`
	Allocation     string `json:"allocation" yaml:"allocation"`
	Physical       string `json:"physical,omitempty" yaml:"physical,omitempty"`
	Format         string `json:"format,omitempty" yaml:"format,omitempty"`
	BackingPath    string `json:"backingPath,omitempty" yaml:"backingPath,omitempty"`
}

func ParseStorageVolume(ctx context.Context, connectionName string, poolName string, volXML string, objPath string) (*StorageVolume, error) {
	root, err := xmldoc.ParseRoot(volXML, "volume")
	if err != nil {
		return nil, errors.Errorf("parsing storage volume %q: %w", objPath, err)
	}

	target := root.Child("target")

	return &StorageVolume{
		ConnectionName: connectionName,
		PoolName:       poolName,
		ID:             objPath,
		Name:           root.Child("name").Content(),
		Type:           root.AttrOr("type", ""),
		Path:           target.Child("path").Content(),
		Capacity:       parseByteCount(ctx, root.Child("capacity")),
		Allocation:     parseByteCount(ctx, root.Child("allocation")),
		Physical:       parseByteCount(ctx, root.Child("physical")),
		Format:         target.Child("format").AttrOr("type", ""),
		BackingPath:    root.FindPath("backingStore", "path").Content(),
	}, nil
}

func (v *StorageVolume) CapacityBytes() (uint64, error)   { return parseBytes(v.Capacity) }
func (v *StorageVolume) AllocationBytes() (uint64, error) { return parseBytes(v.Allocation) }
