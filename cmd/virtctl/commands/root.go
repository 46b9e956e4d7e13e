package commands

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/libvirt-mcp/pkg/hypervisor"
)

var (
	// Debug enables debug logging.
	Debug bool

	output     string
	libvirtNet string
	libvirtAdr string
	connName   string
)

var rootCmd = &cobra.Command{
	Use:   "virtctl",
	Short: "Inspect and generate libvirt XML",
	Long: `A command line utility for working with libvirt XML documents.
Documents can be read from files (or - for stdin) or loaded from a
running libvirt daemon, and fragments for disks, volumes, pools,
networks and snapshots can be generated.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if Debug {
			level = zerolog.DebugLevel
		}

		ctx := zerolog.Ctx(cmd.Context()).With().Str("command", cmd.Name()).Logger().Level(level).WithContext(cmd.Context())
		cmd.SetContext(ctx)

		switch output {
		case "yaml", "json":
			return nil
		default:
			return errors.Errorf("unsupported output format %q", output)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&Debug, "debug", "d", false, "Enable debug logging")
	flags.StringVarP(&output, "output", "o", "yaml", "Output format (yaml or json)")
	flags.StringVar(&libvirtNet, "libvirt-network", "unix", "Network of the libvirt endpoint")
	flags.StringVar(&libvirtAdr, "libvirt", "/var/run/libvirt/libvirt-sock", "Address of the libvirt endpoint")
	flags.StringVar(&connName, "connection", "system", "Connection name recorded on parsed objects")
}

func RootCmd() *cobra.Command {
	return rootCmd
}

// readDoc reads a document from path, or from stdin when path is "-".
func readDoc(cmd *cobra.Command, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}
	return string(raw), nil
}

// printValue writes v in the selected output format.
func printValue(cmd *cobra.Command, v any) error {
	w := cmd.OutOrStdout()
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func printText(cmd *cobra.Command, s string) error {
	_, err := io.WriteString(cmd.OutOrStdout(), s+"\n")
	return err
}

func connect(cmd *cobra.Command) (*hypervisor.Manager, error) {
	return hypervisor.NewManager(cmd.Context(), hypervisor.ManagerOpts{
		ConnectionName: connName,
		Network:        libvirtNet,
		Address:        libvirtAdr,
		DialTimeout:    5 * time.Second,
	})
}
