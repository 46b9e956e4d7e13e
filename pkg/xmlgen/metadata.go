package xmlgen

import (
	"encoding/xml"

	"github.com/walteh/libvirt-mcp/pkg/virtxml"
)

type metadataXML struct {
	XMLName           xml.Name `xml:"https://github.com/cockpit-project/cockpit-machines data"`
	HasInstallPhase   *string  `xml:"has_install_phase,omitempty"`
	InstallSourceType *string  `xml:"install_source_type,omitempty"`
	InstallSource     *string  `xml:"install_source,omitempty"`
	OSVariant         *string  `xml:"os_variant,omitempty"`
	RootPassword      *string  `xml:"root_password,omitempty"`
	UserLogin         *string  `xml:"user_login,omitempty"`
	UserPassword      *string  `xml:"user_password,omitempty"`
}

// MetadataXML returns the application metadata block for a domain's metadata
// element. Nil fields are omitted.
func MetadataXML(m virtxml.Metadata) (string, error) {
	return marshalCompact(metadataXML{
		HasInstallPhase:   m.HasInstallPhase,
		InstallSourceType: m.InstallSourceType,
		InstallSource:     m.InstallSource,
		OSVariant:         m.OSVariant,
		RootPassword:      m.RootPassword,
		UserLogin:         m.UserLogin,
		UserPassword:      m.UserPassword,
	})
}
