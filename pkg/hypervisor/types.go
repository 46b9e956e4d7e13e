package hypervisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/walteh/libvirt-mcp/pkg/machine"
)

// ObjectKind names a class of libvirt object.
type ObjectKind string

const (
	KindDomain             ObjectKind = "domain"
	KindPool               ObjectKind = "pool"
	KindVolume             ObjectKind = "volume"
	KindNetwork            ObjectKind = "network"
	KindNodeDevice         ObjectKind = "nodedev"
	KindSnapshot           ObjectKind = "snapshot"
	KindCapabilities       ObjectKind = "capabilities"
	KindDomainCapabilities ObjectKind = "domcaps"
	// KindDevice is only valid for Define, which attaches the device to the
	// Parent domain.
	KindDevice ObjectKind = "device"
)

// Ref addresses one object. Parent is the pool of a volume or the domain of
// a snapshot or device; it is empty for top-level objects.
type Ref struct {
	Kind   ObjectKind
	Parent string
	Name   string
}

func (r Ref) String() string {
	if r.Parent != "" {
		return fmt.Sprintf("%s %s/%s", r.Kind, r.Parent, r.Name)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.Name)
}

// DomainInfo is the runtime state of a domain.
type DomainInfo struct {
	ID         string
	State      machine.State
	Persistent bool
	Autostart  bool
	Usage      machine.Usage
}

// Connection is the transport to one libvirt daemon.
type Connection interface {
	Name() string
	// GetXML returns the XML description of ref. Inactive selects the
	// persistent definition of a domain.
	GetXML(ctx context.Context, ref Ref, inactive bool) (string, error)
	// Define creates or updates an object from xml.
	Define(ctx context.Context, ref Ref, xml string) error
	// Call runs a QMP command against a running domain.
	Call(ctx context.Context, domain string, command string, args map[string]any) (json.RawMessage, error)
	// List returns the names of the objects of a kind under ref.Parent.
	List(ctx context.Context, ref Ref) ([]string, error)
	DomainInfo(ctx context.Context, name string) (*DomainInfo, error)
}
