package virtxml

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

type Snapshot struct {
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	State        string    `json:"state,omitempty" yaml:"state,omitempty"`
	CreationTime time.Time `json:"creationTime" yaml:"creationTime"`
	ParentName   string    `json:"parentName,omitempty" yaml:"parentName,omitempty"`
	MemoryPath   string    `json:"memoryPath,omitempty" yaml:"memoryPath,omitempty"`
	External     bool      `json:"external" yaml:"external"`
}

func ParseSnapshot(ctx context.Context, snapXML string) (*Snapshot, error) {
	root, err := xmldoc.ParseRoot(snapXML, "domainsnapshot")
	if err != nil {
		return nil, errors.Errorf("parsing snapshot: %w", err)
	}

	memory := root.Child("memory")
	snap := &Snapshot{
		Name:        root.Child("name").Content(),
		Description: root.Child("description").Content(),
		State:       root.Child("state").Content(),
		ParentName:  root.FindPath("parent", "name").Content(),
		MemoryPath:  memory.AttrOr("file", ""),
		External:    memory.AttrOr("snapshot", "") == "external",
	}

	if raw := root.Child("creationTime").Content(); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Str("creationTime", raw).Msg("ignoring malformed snapshot creation time")
		} else {
			snap.CreationTime = time.Unix(secs, 0).UTC()
		}
	}

	for _, d := range root.FindPath("disks").ChildrenNamed("disk") {
		if d.AttrOr("snapshot", "") == "external" {
			snap.External = true
		}
	}

	return snap, nil
}
