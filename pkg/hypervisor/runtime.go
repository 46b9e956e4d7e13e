package hypervisor

import (
	"context"
	"fmt"

	"github.com/digitalocean/go-qemu/qemu"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Runtime is the state QEMU reports for a running domain, as opposed to the
// state libvirt records in its XML.
type Runtime struct {
	Status       string        `json:"status" yaml:"status"`
	VCPUs        int           `json:"vcpus" yaml:"vcpus"`
	BlockDevices []BlockDevice `json:"blockDevices" yaml:"blockDevices"`
}

type BlockDevice struct {
	Device string `json:"device" yaml:"device"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
}

// Runtime queries the QEMU process of a running domain.
func (m *Manager) Runtime(ctx context.Context, name string) (*Runtime, error) {
	zerolog.Ctx(ctx).Debug().Str("domain", name).Msg("querying qemu runtime")

	monitor, err := m.driver.NewMonitor(name)
	if err != nil {
		return nil, errors.Errorf("creating monitor for %q: %w", name, err)
	}
	if err := monitor.Connect(); err != nil {
		return nil, errors.Errorf("connecting to monitor: %w", err)
	}
	defer monitor.Disconnect()

	domain, err := qemu.NewDomain(monitor, name)
	if err != nil {
		return nil, errors.Errorf("opening qemu domain %q: %w", name, err)
	}

	status, err := domain.Status()
	if err != nil {
		return nil, errors.Errorf("getting status of %q: %w", name, err)
	}
	cpus, err := domain.CPUs()
	if err != nil {
		return nil, errors.Errorf("getting vcpus of %q: %w", name, err)
	}
	blocks, err := domain.BlockDevices()
	if err != nil {
		return nil, errors.Errorf("getting block devices of %q: %w", name, err)
	}

	rt := &Runtime{
		Status:       fmt.Sprint(status),
		VCPUs:        len(cpus),
		BlockDevices: make([]BlockDevice, 0, len(blocks)),
	}
	for _, b := range blocks {
		rt.BlockDevices = append(rt.BlockDevices, BlockDevice{
			Device: b.Device,
			File:   b.Inserted.File,
			Driver: b.Inserted.Driver,
		})
	}
	return rt, nil
}
