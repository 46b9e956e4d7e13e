// Package virtxml maps libvirt XML documents (domains, pools, volumes,
// networks, node devices, capabilities and snapshots) to typed Go values.
//
// The parsers are defensive: beyond the few elements a document cannot be
// used without, every lookup is optional. Device entries missing their
// identifying field are dropped with a warning instead of failing the parse.
package virtxml

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/units"
	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

var bootLabels = map[string]string{
	"hd":      "disk",
	"fd":      "disk",
	"cdrom":   "disk",
	"network": "network",
}

// ParseDomain parses a full domain document. objPath is the opaque id the
// transport uses for the object.
func ParseDomain(ctx context.Context, connectionName string, domXML string, objPath string) (*Domain, error) {
	root, err := xmldoc.ParseRoot(domXML, "domain")
	if err != nil {
		return nil, errors.Errorf("parsing domain %q: %w", objPath, err)
	}

	devices := root.Child("devices")
	if devices == nil {
		return nil, errors.Errorf("parsing domain %q: %w", objPath, xmldoc.Missing("devices"))
	}

	name := root.Child("name").Content()
	logger := zerolog.Ctx(ctx).With().Str("domain", name).Logger()
	ctx = logger.WithContext(ctx)

	dom := &Domain{
		ConnectionName: connectionName,
		ID:             objPath,
		Name:           name,
		UUID:           root.Child("uuid").Content(),
		Type:           root.AttrOr("type", ""),
		Title:          root.Child("title").Content(),
		Description:    root.Child("description").Content(),
	}

	parseOS(ctx, root.Child("os"), dom)

	dom.Memory = parseMemoryKiB(ctx, root.Child("memory"))
	dom.CurrentMemory = parseMemoryKiB(ctx, root.Child("currentMemory"))
	if root.Child("currentMemory") == nil {
		dom.CurrentMemory = dom.Memory
	}

	dom.CPU = parseCPU(root.Child("cpu"))
	dom.VCPUs = parseVCPUs(ctx, root.Child("vcpu"))

	dom.Disks = parseDisks(ctx, devices)
	dom.Interfaces = parseInterfaces(ctx, devices)
	dom.Redirdevs = parseRedirdevs(ctx, devices)
	dom.HostDevs = parseHostDevs(ctx, devices)
	dom.Filesystems = parseFilesystems(ctx, devices)
	dom.Watchdog = parseWatchdog(devices)
	dom.Vsock = parseVsock(devices)
	dom.Displays = parseDisplays(ctx, devices)
	dom.HasSpice = hasSpice(devices)
	dom.HasTPM = devices.Child("tpm") != nil

	dom.Metadata = parseMetadata(root.Child("metadata"))

	return dom, nil
}

func parseOS(ctx context.Context, osElem *xmldoc.Element, dom *Domain) {
	if osElem == nil {
		return
	}

	typeElem := osElem.Child("type")
	dom.OSType = typeElem.Content()
	dom.Arch = typeElem.AttrOr("arch", "")
	dom.EmulatedMachine = typeElem.AttrOr("machine", "")
	dom.Firmware = osElem.AttrOr("firmware", "")

	if loader := osElem.Child("loader"); loader != nil {
		dom.Loader = &Loader{
			Path:     loader.Content(),
			Type:     loader.AttrOr("type", ""),
			Readonly: loader.AttrOr("readonly", ""),
			Secure:   loader.AttrOr("secure", ""),
		}
	}

	for i, b := range osElem.ChildrenNamed("boot") {
		dev := b.AttrOr("dev", "")
		label, ok := bootLabels[dev]
		if !ok {
			zerolog.Ctx(ctx).Debug().Str("dev", dev).Msg("unknown legacy boot device kind")
			label = dev
		}
		dom.Boot = append(dom.Boot, BootEntry{Order: i + 1, Type: label, Dev: dev})
	}

	dom.BootMenu = osElem.Child("bootmenu").AttrOr("enable", "") == "yes"
}

// parseMemoryKiB normalizes a sized element to KiB. The unit defaults to bytes.
func parseMemoryKiB(ctx context.Context, elem *xmldoc.Element) float64 {
	if elem == nil {
		return 0
	}
	return units.ConvertString(ctx, elem.Content(), elem.AttrOr("unit", "B"), "KiB")
}

func parseCPU(cpuElem *xmldoc.Element) CPU {
	if cpuElem == nil {
		return CPU{}
	}

	cpu := CPU{Mode: cpuElem.AttrOr("mode", "")}
	if cpu.Mode == "" && cpuElem.Child("model") != nil {
		cpu.Mode = CPUModeCustom
	}
	if cpu.Mode == CPUModeCustom {
		cpu.Model = cpuElem.Child("model").Content()
	}

	if topo := cpuElem.Child("topology"); topo != nil {
		cpu.Topology = CPUTopology{
			Sockets: atoiOr(topo.AttrOr("sockets", ""), 0),
			Cores:   atoiOr(topo.AttrOr("cores", ""), 0),
			Threads: atoiOr(topo.AttrOr("threads", ""), 0),
		}
	}

	return cpu
}

func parseVCPUs(ctx context.Context, vcpuElem *xmldoc.Element) VCPUs {
	if vcpuElem == nil {
		return VCPUs{}
	}

	maxVCPUs := atoiOr(vcpuElem.Content(), 0)
	count := maxVCPUs
	if cur, ok := vcpuElem.Attr("current"); ok {
		count = atoiOr(cur, maxVCPUs)
	}
	if count > maxVCPUs {
		zerolog.Ctx(ctx).Debug().Int("count", count).Int("max", maxVCPUs).Msg("current vcpu count exceeds maximum")
	}

	return VCPUs{
		Count:     count,
		Max:       maxVCPUs,
		Placement: vcpuElem.AttrOr("placement", ""),
	}
}

func parseDisks(ctx context.Context, devices *xmldoc.Element) *orderedmap.OrderedMap[string, *Disk] {
	logger := zerolog.Ctx(ctx)
	disks := orderedmap.New[string, *Disk]()

	for _, diskElem := range devices.ChildrenNamed("disk") {
		targetElem := diskElem.Child("target")
		target, ok := targetElem.Attr("dev")
		if !ok || target == "" {
			logger.Warn().Str("device", diskElem.AttrOr("device", "")).Msg("dropping disk without target")
			continue
		}

		sourceElem := diskElem.Child("source")
		driverElem := diskElem.Child("driver")

		disk := &Disk{
			Target: target,
			Bus:    targetElem.AttrOr("bus", ""),
			Device: diskElem.AttrOr("device", "disk"),
			Type:   diskElem.AttrOr("type", ""),
			Driver: DiskDriver{
				Name:        driverElem.AttrOr("name", ""),
				Type:        driverElem.AttrOr("type", ""),
				Cache:       driverElem.AttrOr("cache", ""),
				Discard:     driverElem.AttrOr("discard", ""),
				IO:          driverElem.AttrOr("io", ""),
				ErrorPolicy: driverElem.AttrOr("error_policy", ""),
			},
			Source:    parseDiskSource(sourceElem),
			BootOrder: parseBootOrder(ctx, diskElem),
			Readonly:  diskElem.Child("readonly") != nil,
			Shareable: diskElem.Child("shareable") != nil,
			Removable: targetElem.AttrOr("removable", "") == "on",
			Serial:    diskElem.Child("serial").Content(),
			AliasName: diskElem.Child("alias").AttrOr("name", ""),
		}

		if backing := diskElem.Child("backingStore"); backing != nil && backing.Child("source") != nil {
			src := parseDiskSource(backing.Child("source"))
			disk.Backing = &src
		}

		if _, dup := disks.Get(target); dup {
			logger.Warn().Str("target", target).Msg("duplicate disk target, keeping the last definition")
		}
		disks.Set(target, disk)
	}

	return disks
}

func parseDiskSource(src *xmldoc.Element) DiskSource {
	if src == nil {
		return DiskSource{}
	}
	host := src.Child("host")
	return DiskSource{
		File:          src.AttrPtr("file"),
		Dev:           src.AttrPtr("dev"),
		Dir:           src.AttrPtr("dir"),
		Pool:          src.AttrPtr("pool"),
		Volume:        src.AttrPtr("volume"),
		Protocol:      src.AttrPtr("protocol"),
		Name:          src.AttrPtr("name"),
		HostName:      host.AttrPtr("name"),
		HostPort:      host.AttrPtr("port"),
		StartupPolicy: src.AttrPtr("startupPolicy"),
	}
}

// parseBootOrder reads the inline boot order of a device. Order 0 is valid.
func parseBootOrder(ctx context.Context, dev *xmldoc.Element) *int {
	raw, ok := dev.Child("boot").Attr("order")
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Str("order", raw).Str("device", dev.Name()).Msg("ignoring non-numeric boot order")
		return nil
	}
	return &n
}

func parsePCIAddress(addr *xmldoc.Element) *PCIAddress {
	if addr == nil || addr.AttrOr("type", "pci") != "pci" {
		return nil
	}
	return &PCIAddress{
		Domain:   addr.AttrOr("domain", ""),
		Bus:      addr.AttrOr("bus", ""),
		Slot:     addr.AttrOr("slot", ""),
		Function: addr.AttrOr("function", ""),
	}
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
