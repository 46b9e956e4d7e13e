package commands

import (
	"strconv"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/bootorder"
	"github.com/walteh/libvirt-mcp/pkg/diff"
	"github.com/walteh/libvirt-mcp/pkg/nodedev"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

var docGroup = &cobra.Group{
	ID:    "doc",
	Title: "XML Documents",
}

func init() {
	rootCmd.AddGroup(docGroup)
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(bootOrderCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(nodedevCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffModel, "model", false, "Compare the parsed models instead of the XML text")
}

var diffModel bool

var domainCmd = &cobra.Command{
	Use:   "domain <file>",
	Short: "Parse a domain XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dom, err := parseDomainFile(cmd, args[0])
		if err != nil {
			return err
		}
		return printValue(cmd, dom)
	},
	GroupID: docGroup.ID,
}

var bootOrderCmd = &cobra.Command{
	Use:   "boot-order <file>",
	Short: "List the boot devices of a domain in boot order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dom, err := parseDomainFile(cmd, args[0])
		if err != nil {
			return err
		}
		for _, dev := range bootorder.Sorted(dom) {
			order := "-"
			if dev.Order != nil {
				order = strconv.Itoa(*dev.Order)
			}
			if err := printText(cmd, order+"\t"+dev.Key()); err != nil {
				return err
			}
		}
		return nil
	},
	GroupID: docGroup.ID,
}

var poolCmd = &cobra.Command{
	Use:   "pool <file>",
	Short: "Parse a storage pool XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDoc(cmd, args[0])
		if err != nil {
			return err
		}
		pool, err := virtxml.ParseStoragePool(cmd.Context(), connName, doc, "")
		if err != nil {
			return err
		}
		return printValue(cmd, pool)
	},
	GroupID: docGroup.ID,
}

var networkCmd = &cobra.Command{
	Use:   "network <file>",
	Short: "Parse a virtual network XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDoc(cmd, args[0])
		if err != nil {
			return err
		}
		network, err := virtxml.ParseNetwork(cmd.Context(), connName, doc, "")
		if err != nil {
			return err
		}
		return printValue(cmd, network)
	},
	GroupID: docGroup.ID,
}

var nodedevCmd = &cobra.Command{
	Use:   "nodedev <file>",
	Short: "Parse a node device XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDoc(cmd, args[0])
		if err != nil {
			return err
		}
		dev, err := virtxml.ParseNodeDevice(cmd.Context(), doc)
		if err != nil {
			return err
		}
		return printValue(cmd, dev)
	},
	GroupID: docGroup.ID,
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities <file>",
	Short: "Parse a host capabilities XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDoc(cmd, args[0])
		if err != nil {
			return err
		}
		caps, err := virtxml.ParseCapabilities(cmd.Context(), doc)
		if err != nil {
			return err
		}
		return printValue(cmd, caps)
	},
	GroupID: docGroup.ID,
}

var matchCmd = &cobra.Command{
	Use:   "match <domain-file> <nodedev-file>...",
	Short: "Match the hostdev elements of a domain against node devices",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dom, err := parseDomainFile(cmd, args[0])
		if err != nil {
			return err
		}

		var devs []*virtxml.NodeDevice
		for _, path := range args[1:] {
			doc, err := readDoc(cmd, path)
			if err != nil {
				return err
			}
			dev, err := virtxml.ParseNodeDevice(cmd.Context(), doc)
			if err != nil {
				return errors.Errorf("%s: %w", path, err)
			}
			devs = append(devs, dev)
		}

		type match struct {
			Description nodedev.Description `json:"description" yaml:"description"`
			Candidates  []string            `json:"candidates" yaml:"candidates"`
		}
		out := make([]match, 0, len(dom.HostDevs))
		for _, h := range dom.HostDevs {
			found := nodedev.FindMatchingNodeDevices(h, devs)
			m := match{Description: nodedev.Describe(h, found), Candidates: []string{}}
			for _, d := range found {
				m.Candidates = append(m.Candidates, d.Name)
			}
			out = append(out, m)
		}
		return printValue(cmd, out)
	},
	GroupID: docGroup.ID,
}

var diffCmd = &cobra.Command{
	Use:   "diff <live-file> <next-file>",
	Short: "Show how two domain definitions differ",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		live, err := readDoc(cmd, args[0])
		if err != nil {
			return err
		}
		next, err := readDoc(cmd, args[1])
		if err != nil {
			return err
		}

		var out string
		if diffModel {
			a, err := virtxml.ParseDomain(cmd.Context(), connName, live, "")
			if err != nil {
				return errors.Errorf("%s: %w", args[0], err)
			}
			b, err := virtxml.ParseDomain(cmd.Context(), connName, next, "")
			if err != nil {
				return errors.Errorf("%s: %w", args[1], err)
			}
			out = diff.ConfigDiff(a, b)
		} else if out, err = diff.XMLDiff(live, next); err != nil {
			return err
		}
		if out == "" {
			return printText(cmd, "no differences")
		}
		return printText(cmd, out)
	},
	GroupID: docGroup.ID,
}

func parseDomainFile(cmd *cobra.Command, path string) (*virtxml.Domain, error) {
	doc, err := readDoc(cmd, path)
	if err != nil {
		return nil, err
	}
	return virtxml.ParseDomain(cmd.Context(), connName, doc, "")
}
