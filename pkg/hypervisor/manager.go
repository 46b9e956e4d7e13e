// Package hypervisor talks to a libvirt daemon and assembles machine views
// from the documents it returns.
package hypervisor

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/digitalocean/go-libvirt"
	qemuhv "github.com/digitalocean/go-qemu/hypervisor"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/machine"
)

// libvirt flag values
const (
	domainXMLInactive  = 2
	domainAffectLive   = 1
	domainAffectConfig = 2
	listAll            = 0
	needResults        = 1
)

// ManagerOpts selects the daemon socket. Network is "unix" or "tcp".
type ManagerOpts struct {
	ConnectionName string
	Network        string
	Address        string
	DialTimeout    time.Duration
}

// Manager implements Connection over the libvirt RPC protocol. Object XML goes
// through go-libvirt and QMP commands through the go-qemu RPC driver.
type Manager struct {
	name   string
	virt   *libvirt.Libvirt
	driver *qemuhv.RPCDriver
}

var _ Connection = (*Manager)(nil)

// NewManager connects to the daemon described by opts.
func NewManager(ctx context.Context, opts ManagerOpts) (*Manager, error) {
	logger := zerolog.Ctx(ctx)

	if opts.Network == "" {
		opts.Network = "unix"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ConnectionName == "" {
		opts.ConnectionName = "system"
	}

	logger.Info().
		Str("network", opts.Network).
		Str("address", opts.Address).
		Msg("connecting to libvirt")

	dial := func() (net.Conn, error) {
		conn, err := net.DialTimeout(opts.Network, opts.Address, opts.DialTimeout)
		if err != nil {
			return nil, errors.Errorf("connecting to libvirt at %s: %w", opts.Address, err)
		}
		return conn, nil
	}

	conn, err := dial()
	if err != nil {
		return nil, err
	}

	virt := libvirt.New(conn)
	if err := virt.Connect(); err != nil {
		return nil, errors.Errorf("opening libvirt connection: %w", err)
	}

	driver := qemuhv.NewRPCDriver(dial)
	version, err := driver.Version()
	if err != nil {
		_ = virt.Disconnect()
		return nil, errors.Errorf("probing libvirt version: %w", err)
	}

	logger.Info().
		Str("libvirtVersion", version).
		Str("connection", opts.ConnectionName).
		Msg("connected to libvirt")

	return &Manager{
		name:   opts.ConnectionName,
		virt:   virt,
		driver: driver,
	}, nil
}

func (m *Manager) Name() string {
	return m.name
}

func (m *Manager) Close() error {
	if err := m.virt.Disconnect(); err != nil {
		return errors.Errorf("disconnecting from libvirt: %w", err)
	}
	return nil
}

func (m *Manager) GetXML(ctx context.Context, ref Ref, inactive bool) (string, error) {
	zerolog.Ctx(ctx).Debug().Stringer("ref", ref).Bool("inactive", inactive).Msg("getting xml")

	var (
		doc string
		err error
	)

	switch ref.Kind {
	case KindDomain:
		var dom libvirt.Domain
		if dom, err = m.virt.DomainLookupByName(ref.Name); err == nil {
			if inactive {
				doc, err = m.virt.DomainGetXMLDesc(dom, domainXMLInactive)
			} else {
				doc, err = m.virt.DomainGetXMLDesc(dom, 0)
			}
		}
	case KindPool:
		var pool libvirt.StoragePool
		if pool, err = m.virt.StoragePoolLookupByName(ref.Name); err == nil {
			doc, err = m.virt.StoragePoolGetXMLDesc(pool, 0)
		}
	case KindVolume:
		var pool libvirt.StoragePool
		if pool, err = m.virt.StoragePoolLookupByName(ref.Parent); err == nil {
			var vol libvirt.StorageVol
			if vol, err = m.virt.StorageVolLookupByName(pool, ref.Name); err == nil {
				doc, err = m.virt.StorageVolGetXMLDesc(vol, 0)
			}
		}
	case KindNetwork:
		var nw libvirt.Network
		if nw, err = m.virt.NetworkLookupByName(ref.Name); err == nil {
			if inactive {
				doc, err = m.virt.NetworkGetXMLDesc(nw, 1)
			} else {
				doc, err = m.virt.NetworkGetXMLDesc(nw, 0)
			}
		}
	case KindNodeDevice:
		doc, err = m.virt.NodeDeviceGetXMLDesc(ref.Name, 0)
	case KindSnapshot:
		var dom libvirt.Domain
		if dom, err = m.virt.DomainLookupByName(ref.Parent); err == nil {
			var snap libvirt.DomainSnapshot
			if snap, err = m.virt.DomainSnapshotLookupByName(dom, ref.Name, 0); err == nil {
				doc, err = m.virt.DomainSnapshotGetXMLDesc(snap, 0)
			}
		}
	case KindCapabilities:
		doc, err = m.virt.ConnectGetCapabilities()
	case KindDomainCapabilities:
		doc, err = m.virt.ConnectGetDomainCapabilities(nil, nil, nil, nil, 0)
	default:
		return "", errors.Errorf("getting xml: unsupported object kind %q", ref.Kind)
	}

	if err != nil {
		return "", errors.Errorf("getting %s xml: %w", ref, err)
	}
	return doc, nil
}

func (m *Manager) Define(ctx context.Context, ref Ref, doc string) error {
	zerolog.Ctx(ctx).Info().Stringer("ref", ref).Msg("defining object")

	var err error
	switch ref.Kind {
	case KindDomain:
		_, err = m.virt.DomainDefineXML(doc)
	case KindPool:
		_, err = m.virt.StoragePoolDefineXML(doc, 0)
	case KindVolume:
		var pool libvirt.StoragePool
		if pool, err = m.virt.StoragePoolLookupByName(ref.Parent); err == nil {
			_, err = m.virt.StorageVolCreateXML(pool, doc, 0)
		}
	case KindNetwork:
		_, err = m.virt.NetworkDefineXML(doc)
	case KindSnapshot:
		var dom libvirt.Domain
		if dom, err = m.virt.DomainLookupByName(ref.Parent); err == nil {
			_, err = m.virt.DomainSnapshotCreateXML(dom, doc, 0)
		}
	case KindDevice:
		err = m.attachDevice(ref.Parent, doc)
	default:
		return errors.Errorf("defining object: unsupported object kind %q", ref.Kind)
	}

	if err != nil {
		return errors.Errorf("defining %s: %w", ref, err)
	}
	return nil
}

// attachDevice adds the device to the persistent definition, and to the live
// one when the domain is running.
func (m *Manager) attachDevice(domain string, doc string) error {
	dom, err := m.virt.DomainLookupByName(domain)
	if err != nil {
		return err
	}
	state, _, _, _, _, err := m.virt.DomainGetInfo(dom)
	if err != nil {
		return err
	}
	flags := uint32(domainAffectConfig)
	if convertState(state) == machine.StateRunning {
		flags |= domainAffectLive
	}
	return m.virt.DomainAttachDeviceFlags(dom, doc, flags)
}

func (m *Manager) List(ctx context.Context, ref Ref) ([]string, error) {
	var names []string

	switch ref.Kind {
	case KindDomain:
		doms, _, err := m.virt.ConnectListAllDomains(needResults, listAll)
		if err != nil {
			return nil, errors.Errorf("listing domains: %w", err)
		}
		for _, d := range doms {
			names = append(names, d.Name)
		}
	case KindPool:
		pools, _, err := m.virt.ConnectListAllStoragePools(needResults, listAll)
		if err != nil {
			return nil, errors.Errorf("listing storage pools: %w", err)
		}
		for _, p := range pools {
			names = append(names, p.Name)
		}
	case KindVolume:
		pool, err := m.virt.StoragePoolLookupByName(ref.Parent)
		if err != nil {
			return nil, errors.Errorf("looking up pool %q: %w", ref.Parent, err)
		}
		vols, _, err := m.virt.StoragePoolListAllVolumes(pool, needResults, listAll)
		if err != nil {
			return nil, errors.Errorf("listing volumes of %q: %w", ref.Parent, err)
		}
		for _, v := range vols {
			names = append(names, v.Name)
		}
	case KindNetwork:
		nets, _, err := m.virt.ConnectListAllNetworks(needResults, listAll)
		if err != nil {
			return nil, errors.Errorf("listing networks: %w", err)
		}
		for _, n := range nets {
			names = append(names, n.Name)
		}
	case KindNodeDevice:
		devs, _, err := m.virt.ConnectListAllNodeDevices(needResults, listAll)
		if err != nil {
			return nil, errors.Errorf("listing node devices: %w", err)
		}
		for _, d := range devs {
			names = append(names, d.Name)
		}
	case KindSnapshot:
		dom, err := m.virt.DomainLookupByName(ref.Parent)
		if err != nil {
			return nil, errors.Errorf("looking up domain %q: %w", ref.Parent, err)
		}
		snaps, _, err := m.virt.DomainListAllSnapshots(dom, needResults, listAll)
		if err != nil {
			return nil, errors.Errorf("listing snapshots of %q: %w", ref.Parent, err)
		}
		for _, s := range snaps {
			names = append(names, s.Name)
		}
	default:
		return nil, errors.Errorf("listing: unsupported object kind %q", ref.Kind)
	}

	zerolog.Ctx(ctx).Debug().Str("kind", string(ref.Kind)).Int("count", len(names)).Msg("listed objects")
	return names, nil
}

func (m *Manager) DomainInfo(ctx context.Context, name string) (*DomainInfo, error) {
	dom, err := m.virt.DomainLookupByName(name)
	if err != nil {
		return nil, errors.Errorf("looking up domain %q: %w", name, err)
	}

	state, maxMem, mem, nrVirtCPU, cpuTime, err := m.virt.DomainGetInfo(dom)
	if err != nil {
		return nil, errors.Errorf("getting info of %q: %w", name, err)
	}
	persistent, err := m.virt.DomainIsPersistent(dom)
	if err != nil {
		return nil, errors.Errorf("getting persistence of %q: %w", name, err)
	}
	autostart, err := m.virt.DomainGetAutostart(dom)
	if err != nil {
		return nil, errors.Errorf("getting autostart of %q: %w", name, err)
	}

	info := &DomainInfo{
		State:      convertState(state),
		Persistent: persistent == 1,
		Autostart:  autostart == 1,
		Usage: machine.Usage{
			MemoryKiB:    mem,
			MaxMemoryKiB: maxMem,
			CPUTime:      cpuTime,
			VCPUs:        int(nrVirtCPU),
		},
	}
	if dom.ID > 0 {
		info.ID = strconv.Itoa(int(dom.ID))
	}
	return info, nil
}

// Call runs a QMP command through the libvirt QEMU monitor of domain.
func (m *Manager) Call(ctx context.Context, domain string, command string, args map[string]any) (json.RawMessage, error) {
	zerolog.Ctx(ctx).Debug().Str("domain", domain).Str("command", command).Msg("running qmp command")

	monitor, err := m.driver.NewMonitor(domain)
	if err != nil {
		return nil, errors.Errorf("creating monitor for %q: %w", domain, err)
	}
	if err := monitor.Connect(); err != nil {
		return nil, errors.Errorf("connecting to monitor: %w", err)
	}
	defer monitor.Disconnect()

	req := map[string]any{"execute": command}
	if len(args) > 0 {
		req["arguments"] = args
	}
	cmd, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Errorf("marshaling %s command: %w", command, err)
	}

	out, err := monitor.Run(cmd)
	if err != nil {
		return nil, errors.Errorf("running %s on %q: %w", command, domain, err)
	}
	return json.RawMessage(out), nil
}

// convertState maps the virDomainState codes.
func convertState(state uint8) machine.State {
	switch state {
	case 1:
		return machine.StateRunning
	case 2:
		return machine.StateBlocked
	case 3:
		return machine.StatePaused
	case 4:
		return machine.StateShutdown
	case 5:
		return machine.StateShutoff
	case 6:
		return machine.StateCrashed
	case 7:
		return machine.StatePMSuspended
	default:
		return machine.StateNoState
	}
}
