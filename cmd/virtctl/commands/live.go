package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/diff"
	"github.com/walteh/libvirt-mcp/pkg/hypervisor"
)

var liveGroup = &cobra.Group{
	ID:    "live",
	Title: "Libvirt Daemon",
}

func init() {
	rootCmd.AddGroup(liveGroup)
	rootCmd.AddCommand(machinesCmd)
	rootCmd.AddCommand(machineCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(poolsCmd)
	rootCmd.AddCommand(qmpCmd)
	rootCmd.AddCommand(runtimeCmd)
}

// withLoader connects to libvirt for the duration of fn.
func withLoader(cmd *cobra.Command, fn func(*hypervisor.Manager, *hypervisor.Loader) error) error {
	mgr, err := connect(cmd)
	if err != nil {
		return err
	}
	defer mgr.Close()
	return fn(mgr, hypervisor.NewLoader(mgr))
}

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List the domains of the connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(cmd, func(_ *hypervisor.Manager, l *hypervisor.Loader) error {
			machines, err := l.Machines(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range machines {
				line := m.Name + "\t" + string(m.State)
				if m.NeedsShutdown() {
					line += "\tneeds shutdown"
				}
				if err := printText(cmd, line); err != nil {
					return err
				}
			}
			return nil
		})
	},
	GroupID: liveGroup.ID,
}

var machineCmd = &cobra.Command{
	Use:   "machine <name>",
	Short: "Show a domain with its live and persistent configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(cmd, func(_ *hypervisor.Manager, l *hypervisor.Loader) error {
			m, err := l.Machine(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printValue(cmd, m)
		})
	},
	GroupID: liveGroup.ID,
}

var pendingCmd = &cobra.Command{
	Use:   "pending <name>",
	Short: "Show changes that apply after the domain restarts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(cmd, func(_ *hypervisor.Manager, l *hypervisor.Loader) error {
			m, err := l.Machine(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			changes := m.PendingChanges()
			if len(changes) == 0 {
				return printText(cmd, "no pending changes")
			}
			return printText(cmd, diff.RenderChanges(changes))
		})
	},
	GroupID: liveGroup.ID,
}

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List storage pools with their volumes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(cmd, func(_ *hypervisor.Manager, l *hypervisor.Loader) error {
			pools, err := l.Pools(cmd.Context())
			if err != nil {
				return err
			}
			return printValue(cmd, pools)
		})
	},
	GroupID: liveGroup.ID,
}

var qmpCmd = &cobra.Command{
	Use:   "qmp <domain> <command> [json-args]",
	Short: "Run a QMP command against a running domain",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var qargs map[string]any
		if len(args) == 3 {
			if err := json.Unmarshal([]byte(args[2]), &qargs); err != nil {
				return errors.Errorf("parsing command arguments: %w", err)
			}
		}
		return withLoader(cmd, func(mgr *hypervisor.Manager, _ *hypervisor.Loader) error {
			raw, err := mgr.Call(cmd.Context(), args[0], args[1], qargs)
			if err != nil {
				return err
			}
			return printText(cmd, string(raw))
		})
	},
	GroupID: liveGroup.ID,
}

var runtimeCmd = &cobra.Command{
	Use:   "runtime <domain>",
	Short: "Show the status and block devices QEMU reports for a running domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLoader(cmd, func(mgr *hypervisor.Manager, _ *hypervisor.Loader) error {
			rt, err := mgr.Runtime(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printValue(cmd, rt)
		})
	},
	GroupID: liveGroup.ID,
}
