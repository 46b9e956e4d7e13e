package virtxml

import (
	"context"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/units"
	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

// StoragePool is a parsed pool document. Size counters are decimal byte
// counts kept as strings and parsed on demand.
type StoragePool struct {
	ConnectionName string     `json:"connectionName" yaml:"connectionName"`
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	UUID           string     `json:"uuid" yaml:"uuid"`
	Type           string     `json:"type" yaml:"type"`
	Capacity       string     `json:"capacity" yaml:"capacity"`
	Allocation     string     `json:"allocation" yaml:"allocation"`
	Available      string     `json:"available" yaml:"available"`
	TargetPath     *string    `json:"targetPath,omitempty" yaml:"targetPath,omitempty"`
	Source         PoolSource `json:"source" yaml:"source"`

	Active     bool             `json:"active" yaml:"active"`
	Persistent bool             `json:"persistent" yaml:"persistent"`
	Autostart  bool             `json:"autostart" yaml:"autostart"`
	Volumes    []*StorageVolume `json:"volumes,omitempty" yaml:"volumes,omitempty"`
}

// PoolSource holds the source fields relevant to the pool type. Fields that
// do not apply to the type are nil.
type PoolSource struct {
	Host      *string `json:"host,omitempty" yaml:"host,omitempty"`
	Dir       *string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Device    *string `json:"device,omitempty" yaml:"device,omitempty"`
	Name      *string `json:"name,omitempty" yaml:"name,omitempty"`
	Format    *string `json:"format,omitempty" yaml:"format,omitempty"`
	Initiator *string `json:"initiator,omitempty" yaml:"initiator,omitempty"`
	Adapter   *string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
}

type poolSourceField uint8

const (
	srcHost poolSourceField = 1 << iota
	srcDir
	srcDevice
	srcName
	srcFormat
	srcInitiator
	srcAdapter
)

var poolSourceFields = map[string]poolSourceField{
	"dir":          0,
	"fs":           srcDevice | srcFormat,
	"netfs":        srcHost | srcDir | srcFormat,
	"logical":      srcName | srcDevice | srcFormat,
	"disk":         srcDevice | srcFormat,
	"iscsi":        srcHost | srcDevice,
	"iscsi-direct": srcHost | srcDevice | srcInitiator,
	"scsi":         srcAdapter,
	"mpath":        0,
	"rbd":          srcHost | srcName,
	"sheepdog":     srcHost | srcName,
	"gluster":      srcHost | srcDir | srcName,
	"zfs":          srcName | srcDevice,
	"vstorage":     srcName,
}

func ParseStoragePool(ctx context.Context, connectionName string, poolXML string, objPath string) (*StoragePool, error) {
	root, err := xmldoc.ParseRoot(poolXML, "pool")
	if err != nil {
		return nil, errors.Errorf("parsing storage pool %q: %w", objPath, err)
	}

	pool := &StoragePool{
		ConnectionName: connectionName,
		ID:             objPath,
		Name:           root.Child("name").Content(),
		UUID:           root.Child("uuid").Content(),
		Type:           root.AttrOr("type", ""),
		Capacity:       parseByteCount(ctx, root.Child("capacity")),
		Allocation:     parseByteCount(ctx, root.Child("allocation")),
		Available:      parseByteCount(ctx, root.Child("available")),
		TargetPath:     root.FindPath("target", "path").ContentPtr(),
	}

	pool.Source = parsePoolSource(root.Child("source"), poolSourceFields[pool.Type])

	return pool, nil
}

func parsePoolSource(src *xmldoc.Element, fields poolSourceField) PoolSource {
	if src == nil {
		return PoolSource{}
	}

	var out PoolSource
	if fields&srcHost != 0 {
		out.Host = src.Child("host").AttrPtr("name")
	}
	if fields&srcDir != 0 {
		out.Dir = src.Child("dir").AttrPtr("path")
	}
	if fields&srcDevice != 0 {
		out.Device = src.Child("device").AttrPtr("path")
	}
	if fields&srcName != 0 {
		out.Name = src.Child("name").ContentPtr()
	}
	if fields&srcFormat != 0 {
		out.Format = src.Child("format").AttrPtr("type")
	}
	if fields&srcInitiator != 0 {
		out.Initiator = src.FindPath("initiator", "iqn").AttrPtr("name")
	}
	if fields&srcAdapter != 0 {
		out.Adapter = src.Child("adapter").AttrPtr("name")
	}
	return out
}

// parseByteCount renders a sized element as a decimal byte count.
func parseByteCount(ctx context.Context, elem *xmldoc.Element) string {
	if elem == nil {
		return ""
	}
	unit := elem.AttrOr("unit", "bytes")
	if u, ok := units.ParseUnit(unit); ok && u == units.B {
		if n, err := strconv.ParseUint(strings.TrimSpace(elem.Content()), 10, 64); err == nil {
			return strconv.FormatUint(n, 10)
		}
	}
	b := units.ConvertString(ctx, elem.Content(), unit, "B")
	return strconv.FormatFloat(b, 'f', 0, 64)
}

func parseBytes(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("parsing byte count %q: %w", s, err)
	}
	return n, nil
}

func (p *StoragePool) CapacityBytes() (uint64, error)   { return parseBytes(p.Capacity) }
func (p *StoragePool) AllocationBytes() (uint64, error) { return parseBytes(p.Allocation) }
func (p *StoragePool) AvailableBytes() (uint64, error)  { return parseBytes(p.Available) }
