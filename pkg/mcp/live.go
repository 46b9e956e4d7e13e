package mcp

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/bootorder"
	"github.com/walteh/libvirt-mcp/pkg/diff"
	"github.com/walteh/libvirt-mcp/pkg/hypervisor"
	"github.com/walteh/libvirt-mcp/pkg/machine"
	"github.com/walteh/libvirt-mcp/pkg/nodedev"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
	"github.com/walteh/libvirt-mcp/pkg/xmlgen"
)

type nameArgs struct {
	Name string `json:"name" jsonschema:"description=domain name"`
}

type noArgs struct{}

type MachineSummary struct {
	Name          string        `json:"name"`
	State         machine.State `json:"state"`
	Persistent    bool          `json:"persistent"`
	NeedsShutdown bool          `json:"needsShutdown"`
	Error         string        `json:"error,omitempty"`
}

type PendingChanges struct {
	Changes []machine.Change `json:"changes"`
	Summary string           `json:"summary,omitempty"`
	XMLDiff string           `json:"xmlDiff,omitempty"`
}

type AttachDiskParams struct {
	Domain string `json:"domain" jsonschema:"description=domain to attach the disk to"`
	xmlgen.DiskParams
}

type CreateVolumeParams struct {
	Pool string `json:"pool" jsonschema:"description=storage pool that receives the volume"`
	VolumeParams
}

type CreateSnapshotParams struct {
	Domain string `json:"domain"`
	xmlgen.SnapshotParams
}

type QMPParams struct {
	Domain  string         `json:"domain"`
	Command string         `json:"command" jsonschema:"description=QMP command such as query-status"`
	Args    map[string]any `json:"args,omitempty"`
}

type Defined struct {
	Ref string `json:"ref"`
	XML string `json:"xml"`
}

func (s *Server) registerLiveTools(_ context.Context) error {
	steps := []func() error{
		func() error {
			return register(s, "list_machines", "List the domains of the connection", nil,
				func(ctx context.Context, _ noArgs) (any, error) {
					return s.listMachines(ctx)
				})
		},
		func() error {
			return register(s, "get_machine", "Load a domain with its live and persistent configuration", nil,
				func(ctx context.Context, a nameArgs) (any, error) {
					return s.loader.Machine(ctx, a.Name)
				})
		},
		func() error {
			return register(s, "pending_changes", "List configuration changes that only apply after the domain restarts", nil,
				func(ctx context.Context, a nameArgs) (any, error) {
					return s.pendingChanges(ctx, a.Name)
				})
		},
		func() error {
			return register(s, "machine_boot_order", "List the boot devices of the persistent domain definition", nil,
				func(ctx context.Context, a nameArgs) (any, error) {
					m, err := s.loader.Machine(ctx, a.Name)
					if err != nil {
						return nil, err
					}
					dom := m.Inactive
					if dom == nil {
						dom = m.Config
					}
					return bootorder.Sorted(dom), nil
				})
		},
		func() error {
			return register(s, "list_pools", "List storage pools with their volumes", nil,
				func(ctx context.Context, _ noArgs) (any, error) {
					return s.loader.Pools(ctx)
				})
		},
		func() error {
			return register(s, "host_devices", "Resolve the hostdev elements of a domain against the host node devices", nil,
				func(ctx context.Context, a nameArgs) (any, error) {
					return s.hostDevices(ctx, a.Name)
				})
		},
		func() error {
			return register(s, "attach_disk", "Attach a disk to a domain", nil,
				func(ctx context.Context, p AttachDiskParams) (any, error) {
					doc, err := xmlgen.DiskXML(p.DiskParams)
					if err != nil {
						return nil, err
					}
					return s.define(ctx, hypervisor.Ref{Kind: hypervisor.KindDevice, Parent: p.Domain, Name: p.Target}, doc)
				})
		},
		func() error {
			return register(s, "define_network", "Define a virtual network", nil,
				func(ctx context.Context, p xmlgen.NetworkParams) (any, error) {
					doc, err := xmlgen.NetworkXML(p)
					if err != nil {
						return nil, err
					}
					return s.define(ctx, hypervisor.Ref{Kind: hypervisor.KindNetwork, Name: p.Name}, doc)
				})
		},
		func() error {
			return register(s, "define_pool", "Define a storage pool", nil,
				func(ctx context.Context, p xmlgen.PoolParams) (any, error) {
					doc, err := xmlgen.PoolXML(p)
					if err != nil {
						return nil, err
					}
					return s.define(ctx, hypervisor.Ref{Kind: hypervisor.KindPool, Name: p.Name}, doc)
				})
		},
		func() error {
			return register(s, "create_volume", "Create a storage volume in a pool", nil,
				func(ctx context.Context, p CreateVolumeParams) (any, error) {
					if p.Pool == "" {
						return nil, errors.New("pool is required")
					}
					doc, err := xmlgen.VolumeXML(p.Name, p.SizeMiB, p.Format)
					if err != nil {
						return nil, err
					}
					return s.define(ctx, hypervisor.Ref{Kind: hypervisor.KindVolume, Parent: p.Pool, Name: p.Name}, doc)
				})
		},
		func() error {
			return register(s, "create_snapshot", "Create a snapshot of a domain", nil,
				func(ctx context.Context, p CreateSnapshotParams) (any, error) {
					doc, err := xmlgen.SnapshotXML(p.SnapshotParams)
					if err != nil {
						return nil, err
					}
					return s.define(ctx, hypervisor.Ref{Kind: hypervisor.KindSnapshot, Parent: p.Domain, Name: p.Name}, doc)
				})
		},
		func() error {
			return register(s, "qmp", "Run a QMP command against a running domain", nil,
				func(ctx context.Context, p QMPParams) (any, error) {
					return s.conn.Call(ctx, p.Domain, p.Command, p.Args)
				})
		},
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) define(ctx context.Context, ref hypervisor.Ref, doc string) (*Defined, error) {
	if err := s.conn.Define(ctx, ref, doc); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Stringer("ref", ref).Msg("object defined")
	return &Defined{Ref: ref.String(), XML: doc}, nil
}

func (s *Server) listMachines(ctx context.Context) ([]MachineSummary, error) {
	machines, err := s.loader.Machines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MachineSummary, 0, len(machines))
	for _, m := range machines {
		out = append(out, MachineSummary{
			Name:          m.Name,
			State:         m.State,
			Persistent:    m.Persistent,
			NeedsShutdown: m.NeedsShutdown(),
			Error:         m.Error,
		})
	}
	return out, nil
}

func (s *Server) pendingChanges(ctx context.Context, name string) (*PendingChanges, error) {
	m, err := s.loader.Machine(ctx, name)
	if err != nil {
		return nil, err
	}

	changes := m.PendingChanges()
	out := &PendingChanges{Changes: changes, Summary: diff.RenderChanges(changes)}
	if len(changes) == 0 {
		return out, nil
	}

	ref := hypervisor.Ref{Kind: hypervisor.KindDomain, Name: name}
	live, err := s.conn.GetXML(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	next, err := s.conn.GetXML(ctx, ref, true)
	if err != nil {
		return nil, err
	}
	if out.XMLDiff, err = diff.XMLDiff(live, next); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) hostDevices(ctx context.Context, name string) ([]HostDevMatch, error) {
	m, err := s.loader.Machine(ctx, name)
	if err != nil {
		return nil, err
	}
	devs, err := s.loader.NodeDevices(ctx)
	if err != nil {
		return nil, err
	}
	return matchHostDevs(m.Config, devs), nil
}

func matchHostDevs(dom *virtxml.Domain, devs []*virtxml.NodeDevice) []HostDevMatch {
	if dom == nil {
		return nil
	}
	out := make([]HostDevMatch, 0, len(dom.HostDevs))
	for _, h := range dom.HostDevs {
		matches := nodedev.FindMatchingNodeDevices(h, devs)
		out = append(out, HostDevMatch{
			HostDev:     h,
			Description: nodedev.Describe(h, matches),
			Candidates:  matches,
		})
	}
	return out
}
