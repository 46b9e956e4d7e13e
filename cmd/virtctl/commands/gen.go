package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/xmlgen"
)

var genGroup = &cobra.Group{
	ID:    "gen",
	Title: "XML Generation",
}

var (
	diskParams     xmlgen.DiskParams
	networkParams  xmlgen.NetworkParams
	poolParams     xmlgen.PoolParams
	snapshotParams xmlgen.SnapshotParams
	volumeSizeMiB  float64
	volumeFormat   string
)

func init() {
	rootCmd.AddGroup(genGroup)
	rootCmd.AddCommand(genCmd)
	genCmd.AddCommand(genDiskCmd, genVolumeCmd, genPoolCmd, genNetworkCmd, genSnapshotCmd)

	f := genDiskCmd.Flags()
	f.StringVar(&diskParams.Type, "type", xmlgen.DiskTypeFile, "Source kind (file, volume or block)")
	f.StringVar(&diskParams.Device, "device", "disk", "Guest device kind (disk or cdrom)")
	f.StringVar(&diskParams.File, "file", "", "Image path for file disks")
	f.StringVar(&diskParams.Dev, "dev", "", "Device path for block disks")
	f.StringVar(&diskParams.PoolName, "pool", "", "Pool of a volume disk")
	f.StringVar(&diskParams.VolumeName, "volume", "", "Volume of a volume disk")
	f.StringVar(&diskParams.Format, "format", "", "Image format")
	f.StringVar(&diskParams.Target, "target", "", "Guest device name such as vdb")
	f.StringVar(&diskParams.Bus, "bus", "virtio", "Target bus")
	f.StringVar(&diskParams.Cache, "cache", "", "Cache mode")
	f.BoolVar(&diskParams.Readonly, "readonly", false, "Attach read only")
	f.BoolVar(&diskParams.Shareable, "shareable", false, "Allow sharing between domains")
	f.StringVar(&diskParams.Serial, "serial", "", "Disk serial")

	f = genVolumeCmd.Flags()
	f.Float64Var(&volumeSizeMiB, "size", 0, "Capacity in MiB")
	f.StringVar(&volumeFormat, "format", "qcow2", "Volume format")

	f = genPoolCmd.Flags()
	f.StringVar(&poolParams.Type, "type", "dir", "Pool type")
	f.StringVar(&poolParams.Target, "target", "", "Target path")
	f.StringVar(&poolParams.Source.Dir, "source-dir", "", "Source directory")
	f.StringVar(&poolParams.Source.Device, "source-device", "", "Source device path")
	f.StringVar(&poolParams.Source.Name, "source-name", "", "Source name such as a volume group")
	f.StringVar(&poolParams.Source.Host, "source-host", "", "Source host")
	f.StringVar(&poolParams.Source.Initiator, "initiator", "", "iSCSI initiator IQN")
	f.StringVar(&poolParams.Source.Format, "source-format", "", "Source format")

	f = genNetworkCmd.Flags()
	f.StringVar(&networkParams.ForwardMode, "forward", "nat", "Forward mode")
	f.StringVar(&networkParams.Device, "device", "automatic", "Outbound device for nat and route")
	f.StringVar(&networkParams.IPv4, "ipv4", "", "IPv4 gateway address")
	f.StringVar(&networkParams.Netmask, "netmask", "", "IPv4 netmask")
	f.StringVar(&networkParams.IPv4DHCPRangeStart, "dhcp-start", "", "IPv4 DHCP range start")
	f.StringVar(&networkParams.IPv4DHCPRangeEnd, "dhcp-end", "", "IPv4 DHCP range end")
	f.StringVar(&networkParams.IPv6, "ipv6", "", "IPv6 gateway address")
	f.StringVar(&networkParams.Prefix, "prefix", "", "IPv6 prefix length")
	f.StringVar(&networkParams.IPv6DHCPRangeStart, "dhcp6-start", "", "IPv6 DHCP range start")
	f.StringVar(&networkParams.IPv6DHCPRangeEnd, "dhcp6-end", "", "IPv6 DHCP range end")

	f = genSnapshotCmd.Flags()
	f.StringVar(&snapshotParams.Description, "description", "", "Snapshot description")
	f.StringVar(&snapshotParams.MemoryPath, "memory-path", "", "File for an external memory snapshot")
}

var genCmd = &cobra.Command{
	Use:     "gen",
	Short:   "Generate libvirt XML fragments",
	GroupID: genGroup.ID,
}

var genDiskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Generate a disk device fragment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := xmlgen.DiskXML(diskParams)
		if err != nil {
			return err
		}
		return printText(cmd, out)
	},
}

var genVolumeCmd = &cobra.Command{
	Use:   "volume <name>",
	Short: "Generate a storage volume definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := xmlgen.VolumeXML(args[0], volumeSizeMiB, volumeFormat)
		if err != nil {
			return err
		}
		return printText(cmd, out)
	},
}

var genPoolCmd = &cobra.Command{
	Use:   "pool <name>",
	Short: "Generate a storage pool definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := poolParams
		p.Name = args[0]
		out, err := xmlgen.PoolXML(p)
		if err != nil {
			return err
		}
		return printText(cmd, out)
	},
}

var genNetworkCmd = &cobra.Command{
	Use:   "network <name>",
	Short: "Generate a virtual network definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := networkParams
		p.Name = args[0]
		out, err := xmlgen.NetworkXML(p)
		if err != nil {
			return err
		}
		return printText(cmd, out)
	},
}

var genSnapshotCmd = &cobra.Command{
	Use:   "snapshot [name] [disk=file]...",
	Short: "Generate a domain snapshot definition",
	Long: `Generate a domain snapshot definition. Each disk=file argument
adds an external disk snapshot of the named target written to file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := snapshotParams
		p.Disks = nil
		for i, arg := range args {
			target, file, ok := strings.Cut(arg, "=")
			if !ok {
				if i == 0 {
					p.Name = arg
					continue
				}
				return errors.Errorf("disk argument %q must be target=file", arg)
			}
			p.Disks = append(p.Disks, xmlgen.SnapshotDisk{Name: target, SourceFile: file})
		}
		out, err := xmlgen.SnapshotXML(p)
		if err != nil {
			return err
		}
		return printText(cmd, out)
	},
}
