package virtxml

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"libvirt.org/go/libvirtxml"
)

// DomainCapabilities summarizes what the hypervisor supports for one
// emulator, architecture and machine type.
type DomainCapabilities struct {
	Arch           string   `json:"arch" yaml:"arch"`
	Machine        string   `json:"machine,omitempty" yaml:"machine,omitempty"`
	MaxVCPUs       uint     `json:"maxVcpus" yaml:"maxVcpus"`
	LoaderPaths    []string `json:"loaderPaths,omitempty" yaml:"loaderPaths,omitempty"`
	CPUModels      []string `json:"cpuModels,omitempty" yaml:"cpuModels,omitempty"`
	HostCPUModel   string   `json:"hostCpuModel,omitempty" yaml:"hostCpuModel,omitempty"`
	SupportsSpice  bool     `json:"supportsSpice" yaml:"supportsSpice"`
	SupportsTPM    bool     `json:"supportsTpm" yaml:"supportsTpm"`
	FirmwareValues []string `json:"firmwareValues,omitempty" yaml:"firmwareValues,omitempty"`
}

func ParseDomainCapabilities(ctx context.Context, capsXML string) (*DomainCapabilities, error) {
	var raw libvirtxml.DomainCaps
	if err := raw.Unmarshal(capsXML); err != nil {
		return nil, errors.Errorf("parsing domain capabilities: %w", err)
	}

	caps := &DomainCapabilities{
		Arch:    raw.Arch,
		Machine: raw.Machine,
	}

	if raw.VCPU != nil {
		caps.MaxVCPUs = raw.VCPU.Max
	}

	if raw.OS != nil {
		for _, e := range raw.OS.Enums {
			if e.Name == "firmware" {
				caps.FirmwareValues = append(caps.FirmwareValues, e.Values...)
			}
		}
		if raw.OS.Loader != nil && raw.OS.Loader.Supported == "yes" {
			caps.LoaderPaths = append(caps.LoaderPaths, raw.OS.Loader.Values...)
		}
	}

	if raw.CPU != nil {
		for _, mode := range raw.CPU.Modes {
			if mode.Supported != "yes" {
				continue
			}
			switch mode.Name {
			case CPUModeCustom:
				for _, m := range mode.Models {
					if m.Usable == "" || m.Usable == "yes" {
						caps.CPUModels = append(caps.CPUModels, m.Name)
					}
				}
			case CPUModeHostModel:
				if len(mode.Models) > 0 {
					caps.HostCPUModel = mode.Models[0].Name
				}
			}
		}
	}

	if raw.Devices != nil {
		caps.SupportsSpice = enumHas(raw.Devices.Graphics, "type", DisplaySpice)
		caps.SupportsTPM = raw.Devices.TPM != nil && raw.Devices.TPM.Supported == "yes"
	}

	zerolog.Ctx(ctx).Debug().
		Str("arch", caps.Arch).
		Int("cpuModels", len(caps.CPUModels)).
		Msg("parsed domain capabilities")

	return caps, nil
}

func enumHas(dev *libvirtxml.DomainCapsDevice, name string, value string) bool {
	if dev == nil || dev.Supported != "yes" {
		return false
	}
	for _, e := range dev.Enums {
		if e.Name != name {
			continue
		}
		for _, v := range e.Values {
			if v == value {
				return true
			}
		}
	}
	return false
}
