// Package xmlgen builds single-element libvirt XML fragments (disk, network,
// volume, pool, domainsnapshot and application metadata) to be handed to a
// define or attach call. All but the metadata block are libvirtxml documents
// and come out indented the way libvirtxml marshals them.
package xmlgen

import (
	"encoding/xml"

	"gitlab.com/tozd/go/errors"
)

type fragment interface {
	Marshal() (string, error)
}

func marshal(f fragment) (string, error) {
	s, err := f.Marshal()
	if err != nil {
		return "", errors.Errorf("marshaling fragment: %w", err)
	}
	return s, nil
}

// marshalCompact encodes elements libvirtxml has no model for.
func marshalCompact(v any) (string, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return "", errors.Errorf("marshaling fragment: %w", err)
	}
	return string(b), nil
}
