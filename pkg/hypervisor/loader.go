package hypervisor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/libvirt-mcp/pkg/machine"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

const loadConcurrency = 4

// Loader fetches documents from a Connection and parses them. Nothing is
// cached; every call re-reads the daemon.
type Loader struct {
	conn Connection
}

func NewLoader(conn Connection) *Loader {
	return &Loader{conn: conn}
}

// Machine loads one domain with its live and persistent definitions.
// Failures to load capabilities or snapshots are recorded in Machine.Error.
func (l *Loader) Machine(ctx context.Context, name string) (*machine.Machine, error) {
	logger := zerolog.Ctx(ctx).With().Str("domain", name).Logger()
	ctx = logger.WithContext(ctx)

	info, err := l.conn.DomainInfo(ctx, name)
	if err != nil {
		return nil, errors.Errorf("loading machine %q: %w", name, err)
	}

	m := &machine.Machine{
		ConnectionName: l.conn.Name(),
		Name:           name,
		ID:             info.ID,
		State:          info.State,
		Persistent:     info.Persistent,
		Autostart:      info.Autostart,
	}
	usage := info.Usage
	m.Usage = &usage

	ref := Ref{Kind: KindDomain, Name: name}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dom, err := l.domain(gctx, ref, false)
		m.Config = dom
		return err
	})

	if info.Persistent {
		g.Go(func() error {
			dom, err := l.domain(gctx, ref, true)
			m.Inactive = dom
			return err
		})
	}

	var (
		mu       sync.Mutex
		softErrs []error
	)
	soft := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		logger.Warn().Err(err).Msg("partial machine load")
		softErrs = append(softErrs, err)
	}

	g.Go(func() error {
		doc, err := l.conn.GetXML(gctx, Ref{Kind: KindDomainCapabilities}, false)
		if err != nil {
			soft(err)
			return nil
		}
		caps, err := virtxml.ParseDomainCapabilities(gctx, doc)
		if err != nil {
			soft(err)
			return nil
		}
		m.Capabilities = caps
		return nil
	})

	g.Go(func() error {
		snaps, err := l.Snapshots(gctx, name)
		if err != nil {
			soft(err)
			return nil
		}
		m.Snapshots = snaps
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("loading machine %q: %w", name, err)
	}

	if len(softErrs) > 0 {
		m.Error = errors.Join(softErrs...).Error()
	}
	return m, nil
}

func (l *Loader) domain(ctx context.Context, ref Ref, inactive bool) (*virtxml.Domain, error) {
	doc, err := l.conn.GetXML(ctx, ref, inactive)
	if err != nil {
		return nil, err
	}
	dom, err := virtxml.ParseDomain(ctx, l.conn.Name(), doc, ref.Name)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", ref, err)
	}
	return dom, nil
}

// Machines loads every domain on the connection. A domain that fails to load
// is logged and skipped.
func (l *Loader) Machines(ctx context.Context) ([]*machine.Machine, error) {
	names, err := l.conn.List(ctx, Ref{Kind: KindDomain})
	if err != nil {
		return nil, err
	}

	out := make([]*machine.Machine, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i, name := range names {
		g.Go(func() error {
			m, err := l.Machine(gctx, name)
			if err != nil {
				zerolog.Ctx(gctx).Warn().Err(err).Str("domain", name).Msg("skipping machine")
				return nil
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return compact(out), nil
}

func (l *Loader) Snapshots(ctx context.Context, domain string) ([]*virtxml.Snapshot, error) {
	names, err := l.conn.List(ctx, Ref{Kind: KindSnapshot, Parent: domain})
	if err != nil {
		return nil, err
	}
	var out []*virtxml.Snapshot
	for _, name := range names {
		doc, err := l.conn.GetXML(ctx, Ref{Kind: KindSnapshot, Parent: domain, Name: name}, false)
		if err != nil {
			return nil, err
		}
		snap, err := virtxml.ParseSnapshot(ctx, doc)
		if err != nil {
			return nil, errors.Errorf("parsing snapshot %q: %w", name, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Pools loads every storage pool with its volumes.
func (l *Loader) Pools(ctx context.Context) ([]*virtxml.StoragePool, error) {
	names, err := l.conn.List(ctx, Ref{Kind: KindPool})
	if err != nil {
		return nil, err
	}

	out := make([]*virtxml.StoragePool, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i, name := range names {
		g.Go(func() error {
			pool, err := l.Pool(gctx, name)
			if err != nil {
				return err
			}
			out[i] = pool
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) Pool(ctx context.Context, name string) (*virtxml.StoragePool, error) {
	ref := Ref{Kind: KindPool, Name: name}
	doc, err := l.conn.GetXML(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	pool, err := virtxml.ParseStoragePool(ctx, l.conn.Name(), doc, name)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", ref, err)
	}

	vols, err := l.conn.List(ctx, Ref{Kind: KindVolume, Parent: name})
	if err != nil {
		return nil, err
	}
	for _, v := range vols {
		vref := Ref{Kind: KindVolume, Parent: name, Name: v}
		doc, err := l.conn.GetXML(ctx, vref, false)
		if err != nil {
			return nil, err
		}
		vol, err := virtxml.ParseStorageVolume(ctx, l.conn.Name(), name, doc, name+"/"+v)
		if err != nil {
			return nil, errors.Errorf("parsing %s: %w", vref, err)
		}
		pool.Volumes = append(pool.Volumes, vol)
	}
	return pool, nil
}

func (l *Loader) Network(ctx context.Context, name string) (*virtxml.Network, error) {
	ref := Ref{Kind: KindNetwork, Name: name}
	doc, err := l.conn.GetXML(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	nw, err := virtxml.ParseNetwork(ctx, l.conn.Name(), doc, name)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", ref, err)
	}
	return nw, nil
}

// NodeDevices loads every node device. Devices that fail to parse are
// skipped.
func (l *Loader) NodeDevices(ctx context.Context) ([]*virtxml.NodeDevice, error) {
	names, err := l.conn.List(ctx, Ref{Kind: KindNodeDevice})
	if err != nil {
		return nil, err
	}
	var out []*virtxml.NodeDevice
	for _, name := range names {
		doc, err := l.conn.GetXML(ctx, Ref{Kind: KindNodeDevice, Name: name}, false)
		if err != nil {
			return nil, err
		}
		dev, err := virtxml.ParseNodeDevice(ctx, doc)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("nodedev", name).Msg("skipping node device")
			continue
		}
		out = append(out, dev)
	}
	return out, nil
}

func compact[T any](in []*T) []*T {
	out := in[:0]
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
