// Package diff renders the differences between a machine's live and
// persistent configurations for terminal output.
package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/walteh/libvirt-mcp/pkg/machine"
	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

const (
	liveLabel = "live"
	nextLabel = "next"
)

var domainCmpOpts = []cmp.Option{
	cmp.Transformer("DiskList", func(m *orderedmap.OrderedMap[string, *virtxml.Disk]) []*virtxml.Disk {
		if m == nil {
			return nil
		}
		out := make([]*virtxml.Disk, 0, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, pair.Value)
		}
		return out
	}),
	// the id only exists while running
	cmpopts.IgnoreFields(virtxml.Domain{}, "ID"),
	cmpopts.EquateEmpty(),
}

// ConfigDiff compares two parsed domains field by field. It returns "" when
// they are equal.
func ConfigDiff(live, next *virtxml.Domain) string {
	return EnrichCmpDiff(cmp.Diff(live, next, domainCmpOpts...))
}

// XMLDiff returns a highlighted unified diff of two documents, or "" when
// they are equal.
func XMLDiff(live, next string) (string, error) {
	unified := unifiedDiff(live, next)
	if unified == "" {
		return "", nil
	}
	ud, err := ParseUnifiedDiff(unified)
	if err != nil {
		return "", err
	}
	return ud.PrettyPrint(), nil
}

func unifiedDiff(live, next string) string {
	out, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(live),
		B:        difflib.SplitLines(next),
		FromFile: liveLabel,
		ToFile:   nextLabel,
		Context:  3,
	})
	return out
}

// InlineDiff marks the changed characters between two short values.
func InlineDiff(live, next string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(live, next, false)
	return dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))
}

// RenderChanges lists pending changes one per line.
func RenderChanges(changes []machine.Change) string {
	if len(changes) == 0 {
		return ""
	}

	prevNoColor := color.NoColor
	defer func() {
		color.NoColor = prevNoColor
	}()
	color.NoColor = false

	var sb strings.Builder
	for _, c := range changes {
		name := string(c.Aspect)
		if c.Device != "" {
			name += " " + c.Device
		}
		fmt.Fprintf(&sb, "%s %s\n", color.New(color.Bold).Sprint(name+":"), InlineDiff(c.Live, c.Next))
	}
	return sb.String()
}

// formatStartingWhitespace makes leading whitespace visible: spaces become
// "∙" and tabs "→".
func formatStartingWhitespace(s string, colord *color.Color) string {
	out := color.New(color.Bold).Sprint(" | ")
	for j, char := range s {
		switch char {
		case ' ':
			out += color.New(color.Faint, color.FgHiGreen).Sprint("∙")
		case '\t':
			out += color.New(color.Faint, color.FgHiGreen).Sprint("→   ")
		default:
			return out + colord.Sprint(s[j:])
		}
	}
	return out
}
