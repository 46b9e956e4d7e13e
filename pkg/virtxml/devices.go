package virtxml

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

func parseInterfaces(ctx context.Context, devices *xmldoc.Element) []*Interface {
	var out []*Interface

	for _, ifaceElem := range devices.ChildrenNamed("interface") {
		src := ifaceElem.Child("source")
		local := src.Child("local")

		iface := &Interface{
			Type:            ifaceElem.AttrOr("type", ""),
			Managed:         ifaceElem.AttrOr("managed", ""),
			Name:            src.AttrOr("dev", ""),
			Target:          ifaceElem.Child("target").AttrOr("dev", ""),
			MAC:             ifaceElem.Child("mac").AttrOr("address", ""),
			Model:           ifaceElem.Child("model").AttrOr("type", ""),
			AliasName:       ifaceElem.Child("alias").AttrOr("name", ""),
			VirtualportType: ifaceElem.Child("virtualport").AttrOr("type", ""),
			DriverName:      ifaceElem.Child("driver").AttrOr("name", ""),
			State:           ifaceElem.Child("link").AttrOr("state", "up"),
			MTU:             ifaceElem.Child("mtu").AttrOr("size", ""),
			BootOrder:       parseBootOrder(ctx, ifaceElem),
			Source: InterfaceSource{
				Bridge:       src.AttrPtr("bridge"),
				Network:      src.AttrPtr("network"),
				Portgroup:    src.AttrPtr("portgroup"),
				Dev:          src.AttrPtr("dev"),
				Mode:         src.AttrPtr("mode"),
				Address:      src.AttrPtr("address"),
				Port:         src.AttrPtr("port"),
				LocalAddress: local.AttrPtr("address"),
				LocalPort:    local.AttrPtr("port"),
			},
			Address: parsePCIAddress(ifaceElem.Child("address")),
		}

		out = append(out, iface)
	}

	return out
}

func parseRedirdevs(ctx context.Context, devices *xmldoc.Element) []*Redirdev {
	logger := zerolog.Ctx(ctx)
	var out []*Redirdev

	for _, redirElem := range devices.ChildrenNamed("redirdev") {
		bus, ok := redirElem.Attr("bus")
		if !ok || bus == "" {
			logger.Warn().Str("type", redirElem.AttrOr("type", "")).Msg("dropping redirected device without bus")
			continue
		}

		addr := redirElem.Child("address")
		src := redirElem.Child("source")

		out = append(out, &Redirdev{
			Bus:       bus,
			Type:      redirElem.AttrOr("type", ""),
			BootOrder: parseBootOrder(ctx, redirElem),
			Address: RedirdevAddress{
				Type: addr.AttrOr("type", ""),
				Bus:  addr.AttrOr("bus", ""),
				Port: addr.AttrOr("port", ""),
			},
			Source: RedirdevSource{
				Mode:    src.AttrOr("mode", ""),
				Host:    src.AttrOr("host", ""),
				Service: src.AttrOr("service", ""),
			},
		})
	}

	return out
}

func parseFilesystems(ctx context.Context, devices *xmldoc.Element) []*Filesystem {
	logger := zerolog.Ctx(ctx)
	var out []*Filesystem

	for _, fsElem := range devices.ChildrenNamed("filesystem") {
		targetDir, ok := fsElem.Child("target").Attr("dir")
		if !ok || targetDir == "" {
			logger.Warn().Str("type", fsElem.AttrOr("type", "")).Msg("dropping filesystem without target dir")
			continue
		}

		src := fsElem.Child("source")

		out = append(out, &Filesystem{
			Type:       fsElem.AttrOr("type", "mount"),
			AccessMode: fsElem.AttrOr("accessmode", ""),
			DriverType: fsElem.Child("driver").AttrOr("type", ""),
			SourceDir:  src.AttrOr("dir", ""),
			Socket:     src.AttrOr("socket", ""),
			TargetDir:  targetDir,
			Readonly:   fsElem.Child("readonly") != nil,
		})
	}

	return out
}

func parseWatchdog(devices *xmldoc.Element) *Watchdog {
	wd := devices.Child("watchdog")
	if wd == nil {
		return nil
	}
	return &Watchdog{
		Model:  wd.AttrOr("model", ""),
		Action: wd.AttrOr("action", ""),
	}
}

func parseVsock(devices *xmldoc.Element) *Vsock {
	vs := devices.Child("vsock")
	if vs == nil {
		return nil
	}
	cid := vs.Child("cid")
	return &Vsock{
		Model: vs.AttrOr("model", ""),
		CID: VsockCID{
			Auto:    cid.AttrOr("auto", ""),
			Address: cid.AttrOr("address", ""),
		},
	}
}
