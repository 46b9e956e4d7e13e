package machine

import (
	"fmt"
	"strconv"

	"github.com/google/go-cmp/cmp"

	"github.com/walteh/libvirt-mcp/pkg/bootorder"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

type Aspect string

const (
	AspectVCPUs     Aspect = "vcpus"
	AspectMemory    Aspect = "memory"
	AspectCPU       Aspect = "cpu"
	AspectBootOrder Aspect = "boot-order"
	AspectInterface Aspect = "interface"
	AspectWatchdog  Aspect = "watchdog"
	AspectVsock     Aspect = "vsock"
	AspectSpice     Aspect = "spice"
)

// Change is one aspect of the configuration that differs between the live
// and the persistent definition.
type Change struct {
	Aspect Aspect `json:"aspect" yaml:"aspect"`
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
	Live   string `json:"live" yaml:"live"`
	Next   string `json:"next" yaml:"next"`
}

func (c Change) String() string {
	name := string(c.Aspect)
	if c.Device != "" {
		name += " " + c.Device
	}
	return fmt.Sprintf("%s: %s -> %s", name, c.Live, c.Next)
}

// PendingChanges lists the differences that take effect on next start. It is
// empty for machines that are not running or not persistent.
func (m *Machine) PendingChanges() []Change {
	if m.Inactive == nil || m.Config == nil || !m.Running() {
		return nil
	}
	live, next := m.Config, m.Inactive
	var out []Change

	if live.VCPUs.Count != next.VCPUs.Count || live.VCPUs.Max != next.VCPUs.Max {
		out = append(out, Change{
			Aspect: AspectVCPUs,
			Live:   fmt.Sprintf("%d/%d", live.VCPUs.Count, live.VCPUs.Max),
			Next:   fmt.Sprintf("%d/%d", next.VCPUs.Count, next.VCPUs.Max),
		})
	}

	if live.Memory != next.Memory {
		out = append(out, Change{
			Aspect: AspectMemory,
			Live:   strconv.FormatFloat(live.Memory, 'f', -1, 64) + " KiB",
			Next:   strconv.FormatFloat(next.Memory, 'f', -1, 64) + " KiB",
		})
	}

	if live.CPU.Mode != next.CPU.Mode || live.CPU.Model != next.CPU.Model || live.CPU.Topology != next.CPU.Topology {
		out = append(out, Change{Aspect: AspectCPU, Live: describeCPU(live.CPU), Next: describeCPU(next.CPU)})
	}

	liveBoot, nextBoot := bootorder.Sorted(live), bootorder.Sorted(next)
	if bootorder.Changed(liveBoot, nextBoot) {
		out = append(out, Change{Aspect: AspectBootOrder, Live: describeBoot(liveBoot), Next: describeBoot(nextBoot)})
	}

	out = append(out, interfaceChanges(live.Interfaces, next.Interfaces)...)

	if !cmp.Equal(live.Watchdog, next.Watchdog) {
		out = append(out, Change{Aspect: AspectWatchdog, Live: describeWatchdog(live.Watchdog), Next: describeWatchdog(next.Watchdog)})
	}

	if !cmp.Equal(live.Vsock, next.Vsock) {
		out = append(out, Change{Aspect: AspectVsock, Live: describeVsock(live.Vsock), Next: describeVsock(next.Vsock)})
	}

	if live.HasSpice != next.HasSpice {
		out = append(out, Change{Aspect: AspectSpice, Live: strconv.FormatBool(live.HasSpice), Next: strconv.FormatBool(next.HasSpice)})
	}

	return out
}

// interfaceChanges pairs interfaces by MAC address. Interfaces only present
// in the live definition were hot-plugged and are not reported.
func interfaceChanges(live, next []*virtxml.Interface) []Change {
	byMAC := make(map[string]*virtxml.Interface, len(next))
	for _, iface := range next {
		byMAC[iface.MAC] = iface
	}

	var out []Change
	for _, l := range live {
		n, ok := byMAC[l.MAC]
		if !ok {
			continue
		}
		if l.Type != n.Type || l.Source.Name(l.Type) != n.Source.Name(n.Type) || l.Model != n.Model {
			out = append(out, Change{
				Aspect: AspectInterface,
				Device: l.MAC,
				Live:   describeInterface(l),
				Next:   describeInterface(n),
			})
		}
	}
	return out
}

func describeCPU(c virtxml.CPU) string {
	s := c.Mode
	if c.Model != "" {
		s += " " + c.Model
	}
	if t := c.Topology; t != (virtxml.CPUTopology{}) {
		s += fmt.Sprintf(" (%d sockets, %d cores, %d threads)", t.Sockets, t.Cores, t.Threads)
	}
	return s
}

func describeBoot(devs []bootorder.Device) string {
	s := ""
	for _, d := range devs {
		if d.Order == nil {
			continue
		}
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("%d:%s", *d.Order, d.Key())
	}
	return "[" + s + "]"
}

func describeInterface(i *virtxml.Interface) string {
	return fmt.Sprintf("%s %s (%s)", i.Type, i.Source.Name(i.Type), i.Model)
}

func describeWatchdog(w *virtxml.Watchdog) string {
	if w == nil {
		return "none"
	}
	return w.Model + "/" + w.Action
}

func describeVsock(v *virtxml.Vsock) string {
	if v == nil {
		return "none"
	}
	if v.CID.Auto == "yes" {
		return "auto"
	}
	return v.CID.Address
}
