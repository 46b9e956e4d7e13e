package virtxml

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Domain is the parsed configuration of one virtual machine. Memory values are
// in KiB.
type Domain struct {
	ConnectionName string `json:"connectionName" yaml:"connectionName"`
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	UUID           string `json:"uuid" yaml:"uuid"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`

	OSType          string      `json:"osType" yaml:"osType"`
	Arch            string      `json:"arch,omitempty" yaml:"arch,omitempty"`
	EmulatedMachine string      `json:"emulatedMachine,omitempty" yaml:"emulatedMachine,omitempty"`
	Firmware        string      `json:"firmware,omitempty" yaml:"firmware,omitempty"`
	Loader          *Loader     `json:"loader,omitempty" yaml:"loader,omitempty"`
	Boot            []BootEntry `json:"boot,omitempty" yaml:"boot,omitempty"`
	BootMenu        bool        `json:"bootMenu,omitempty" yaml:"bootMenu,omitempty"`

	Memory        float64 `json:"memory" yaml:"memory"`
	CurrentMemory float64 `json:"currentMemory" yaml:"currentMemory"`
	CPU           CPU     `json:"cpu" yaml:"cpu"`
	VCPUs         VCPUs   `json:"vcpus" yaml:"vcpus"`

	Disks       *orderedmap.OrderedMap[string, *Disk] `json:"disks" yaml:"disks"`
	Interfaces  []*Interface                          `json:"interfaces" yaml:"interfaces"`
	Redirdevs   []*Redirdev                           `json:"redirectedDevices" yaml:"redirectedDevices"`
	HostDevs    []*HostDev                            `json:"hostDevices" yaml:"hostDevices"`
	Filesystems []*Filesystem                         `json:"filesystems" yaml:"filesystems"`
	Watchdog    *Watchdog                             `json:"watchdog,omitempty" yaml:"watchdog,omitempty"`
	Vsock       *Vsock                                `json:"vsock,omitempty" yaml:"vsock,omitempty"`
	Displays    []*Display                            `json:"displays" yaml:"displays"`
	HasSpice    bool                                  `json:"hasSpice" yaml:"hasSpice"`
	HasTPM      bool                                  `json:"hasTPM" yaml:"hasTPM"`

	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// DiskList returns the disks in document order.
func (d *Domain) DiskList() []*Disk {
	if d == nil || d.Disks == nil {
		return nil
	}
	out := make([]*Disk, 0, d.Disks.Len())
	for pair := d.Disks.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

type Loader struct {
	Path     string `json:"path" yaml:"path"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Readonly string `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Secure   string `json:"secure,omitempty" yaml:"secure,omitempty"`
}

// BootEntry is one element of the legacy os/boot sequence. Order is 1-based,
// Type is the relabeled kind (disk or network) and Dev the raw attribute.
type BootEntry struct {
	Order int    `json:"order" yaml:"order"`
	Type  string `json:"type" yaml:"type"`
	Dev   string `json:"dev" yaml:"dev"`
}

const (
	CPUModeCustom          = "custom"
	CPUModeHostModel       = "host-model"
	CPUModeHostPassthrough = "host-passthrough"
)

type CPU struct {
	Mode     string      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Model    string      `json:"model,omitempty" yaml:"model,omitempty"`
	Topology CPUTopology `json:"topology" yaml:"topology"`
}

type CPUTopology struct {
	Sockets int `json:"sockets,omitempty" yaml:"sockets,omitempty"`
	Cores   int `json:"cores,omitempty" yaml:"cores,omitempty"`
	Threads int `json:"threads,omitempty" yaml:"threads,omitempty"`
}

type VCPUs struct {
	Count     int    `json:"count" yaml:"count"`
	Max       int    `json:"max" yaml:"max"`
	Placement string `json:"placement,omitempty" yaml:"placement,omitempty"`
}

type Disk struct {
	Target    string      `json:"target" yaml:"target"`
	Bus       string      `json:"bus,omitempty" yaml:"bus,omitempty"`
	Device    string      `json:"device" yaml:"device"`
	Type      string      `json:"type,omitempty" yaml:"type,omitempty"`
	Driver    DiskDriver  `json:"driver" yaml:"driver"`
	Source    DiskSource  `json:"source" yaml:"source"`
	BootOrder *int        `json:"bootOrder,omitempty" yaml:"bootOrder,omitempty"`
	Readonly  bool        `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Shareable bool        `json:"shareable,omitempty" yaml:"shareable,omitempty"`
	Removable bool        `json:"removable,omitempty" yaml:"removable,omitempty"`
	Serial    string      `json:"serial,omitempty" yaml:"serial,omitempty"`
	AliasName string      `json:"aliasName,omitempty" yaml:"aliasName,omitempty"`
	Backing   *DiskSource `json:"backingStore,omitempty" yaml:"backingStore,omitempty"`
}

type DiskDriver struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Cache       string `json:"cache,omitempty" yaml:"cache,omitempty"`
	Discard     string `json:"discard,omitempty" yaml:"discard,omitempty"`
	IO          string `json:"io,omitempty" yaml:"io,omitempty"`
	ErrorPolicy string `json:"errorPolicy,omitempty" yaml:"errorPolicy,omitempty"`
}

type DiskSource struct {
	File          *string `json:"file,omitempty" yaml:"file,omitempty"`
	Dev           *string `json:"dev,omitempty" yaml:"dev,omitempty"`
	Dir           *string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Pool          *string `json:"pool,omitempty" yaml:"pool,omitempty"`
	Volume        *string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Protocol      *string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Name          *string `json:"name,omitempty" yaml:"name,omitempty"`
	HostName      *string `json:"hostName,omitempty" yaml:"hostName,omitempty"`
	HostPort      *string `json:"hostPort,omitempty" yaml:"hostPort,omitempty"`
	StartupPolicy *string `json:"startupPolicy,omitempty" yaml:"startupPolicy,omitempty"`
}

// Path is the host path the source refers to, if it names one directly.
func (s DiskSource) Path() string {
	switch {
	case s.File != nil:
		return *s.File
	case s.Dev != nil:
		return *s.Dev
	case s.Dir != nil:
		return *s.Dir
	}
	return ""
}

type PCIAddress struct {
	Domain   string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Bus      string `json:"bus,omitempty" yaml:"bus,omitempty"`
	Slot     string `json:"slot,omitempty" yaml:"slot,omitempty"`
	Function string `json:"function,omitempty" yaml:"function,omitempty"`
}

type Interface struct {
	Type            string          `json:"type" yaml:"type"`
	Managed         string          `json:"managed,omitempty" yaml:"managed,omitempty"`
	Name            string          `json:"name,omitempty" yaml:"name,omitempty"`
	Target          string          `json:"target,omitempty" yaml:"target,omitempty"`
	MAC             string          `json:"mac,omitempty" yaml:"mac,omitempty"`
	Model           string          `json:"model,omitempty" yaml:"model,omitempty"`
	AliasName       string          `json:"aliasName,omitempty" yaml:"aliasName,omitempty"`
	VirtualportType string          `json:"virtualportType,omitempty" yaml:"virtualportType,omitempty"`
	DriverName      string          `json:"driverName,omitempty" yaml:"driverName,omitempty"`
	State           string          `json:"state" yaml:"state"`
	MTU             string          `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	BootOrder       *int            `json:"bootOrder,omitempty" yaml:"bootOrder,omitempty"`
	Source          InterfaceSource `json:"source" yaml:"source"`
	Address         *PCIAddress     `json:"address,omitempty" yaml:"address,omitempty"`
}

type InterfaceSource struct {
	Bridge       *string `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	Network      *string `json:"network,omitempty" yaml:"network,omitempty"`
	Portgroup    *string `json:"portgroup,omitempty" yaml:"portgroup,omitempty"`
	Dev          *string `json:"dev,omitempty" yaml:"dev,omitempty"`
	Mode         *string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Address      *string `json:"address,omitempty" yaml:"address,omitempty"`
	Port         *string `json:"port,omitempty" yaml:"port,omitempty"`
	LocalAddress *string `json:"localAddress,omitempty" yaml:"localAddress,omitempty"`
	LocalPort    *string `json:"localPort,omitempty" yaml:"localPort,omitempty"`
}

// Name is the source value relevant for the interface type.
func (s InterfaceSource) Name(ifaceType string) string {
	pick := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	switch ifaceType {
	case "network":
		return pick(s.Network)
	case "bridge":
		return pick(s.Bridge)
	case "direct":
		return pick(s.Dev)
	case "mcast", "server", "client", "udp":
		return pick(s.Address)
	}
	return ""
}

type Redirdev struct {
	Bus       string          `json:"bus" yaml:"bus"`
	Type      string          `json:"type,omitempty" yaml:"type,omitempty"`
	BootOrder *int            `json:"bootOrder,omitempty" yaml:"bootOrder,omitempty"`
	Address   RedirdevAddress `json:"address" yaml:"address"`
	Source    RedirdevSource  `json:"source" yaml:"source"`
}

type RedirdevAddress struct {
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Bus  string `json:"bus,omitempty" yaml:"bus,omitempty"`
	Port string `json:"port,omitempty" yaml:"port,omitempty"`
}

type RedirdevSource struct {
	Mode    string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Host    string `json:"host,omitempty" yaml:"host,omitempty"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
}

type Filesystem struct {
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	AccessMode string `json:"accessMode,omitempty" yaml:"accessMode,omitempty"`
	DriverType string `json:"driverType,omitempty" yaml:"driverType,omitempty"`
	SourceDir  string `json:"sourceDir,omitempty" yaml:"sourceDir,omitempty"`
	Socket     string `json:"socket,omitempty" yaml:"socket,omitempty"`
	TargetDir  string `json:"targetDir" yaml:"targetDir"`
	Readonly   bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
}

type Watchdog struct {
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

type Vsock struct {
	Model string   `json:"model,omitempty" yaml:"model,omitempty"`
	CID   VsockCID `json:"cid" yaml:"cid"`
}

type VsockCID struct {
	Auto    string `json:"auto,omitempty" yaml:"auto,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Metadata holds the fields stored in the cockpit-machines metadata namespace.
// Fields absent from the document are nil.
type Metadata struct {
	HasInstallPhase   *string `json:"hasInstallPhase,omitempty" yaml:"hasInstallPhase,omitempty"`
	InstallSourceType *string `json:"installSourceType,omitempty" yaml:"installSourceType,omitempty"`
	InstallSource     *string `json:"installSource,omitempty" yaml:"installSource,omitempty"`
	OSVariant         *string `json:"osVariant,omitempty" yaml:"osVariant,omitempty"`
	RootPassword      *string `json:"rootPassword,omitempty" yaml:"rootPassword,omitempty"`
	UserLogin         *string `json:"userLogin,omitempty" yaml:"userLogin,omitempty"`
	UserPassword      *string `json:"userPassword,omitempty" yaml:"userPassword,omitempty"`
}

func (m Metadata) InstallPhase() bool {
	return m.HasInstallPhase != nil && *m.HasInstallPhase == "true"
}
