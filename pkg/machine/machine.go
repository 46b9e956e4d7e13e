// Package machine holds the view of one virtual machine assembled from its
// live and persistent configurations.
package machine

import (
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

// State is the libvirt domain state.
type State string

const (
	StateNoState     State = "no state"
	StateRunning     State = "running"
	StateBlocked     State = "blocked"
	StatePaused      State = "paused"
	StateShutdown    State = "shutdown"
	StateShutoff     State = "shut off"
	StateCrashed     State = "crashed"
	StatePMSuspended State = "pmsuspended"
)

// Usage is the resource usage reported by the hypervisor. Memory is in KiB
// and CPU time in nanoseconds.
type Usage struct {
	MemoryKiB    uint64 `json:"memoryKiB" yaml:"memoryKiB"`
	MaxMemoryKiB uint64 `json:"maxMemoryKiB" yaml:"maxMemoryKiB"`
	CPUTime      uint64 `json:"cpuTime" yaml:"cpuTime"`
	VCPUs        int    `json:"vcpus" yaml:"vcpus"`
}

// Machine is a snapshot of a domain on one connection. Config is the live
// configuration and Inactive the one applied on next start; Inactive is nil
// for transient domains.
type Machine struct {
	ConnectionName string `json:"connectionName" yaml:"connectionName"`
	Name           string `json:"name" yaml:"name"`
	ID             string `json:"id" yaml:"id"`
	State          State  `json:"state" yaml:"state"`
	Persistent     bool   `json:"persistent" yaml:"persistent"`
	Autostart      bool   `json:"autostart" yaml:"autostart"`

	Config       *virtxml.Domain             `json:"config" yaml:"config"`
	Inactive     *virtxml.Domain             `json:"inactive,omitempty" yaml:"inactive,omitempty"`
	Usage        *Usage                      `json:"usage,omitempty" yaml:"usage,omitempty"`
	Capabilities *virtxml.DomainCapabilities `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Snapshots    []*virtxml.Snapshot         `json:"snapshots,omitempty" yaml:"snapshots,omitempty"`

	// Error is set when part of the machine could not be loaded.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (m *Machine) Running() bool {
	return m.State == StateRunning || m.State == StateBlocked || m.State == StatePaused
}

// NeedsShutdown reports whether the persistent configuration differs from
// the running one in a way that only applies after a restart.
func (m *Machine) NeedsShutdown() bool {
	return len(m.PendingChanges()) > 0
}
