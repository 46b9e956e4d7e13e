package virtxml

import "github.com/walteh/libvirt-mcp/pkg/xmldoc"

// MetadataNamespace scopes the application fields stored in a domain's
// metadata element. It is part of the wire format shared with the host.
const MetadataNamespace = "https://github.com/cockpit-project/cockpit-machines"

const (
	MetaHasInstallPhase   = "has_install_phase"
	MetaInstallSourceType = "install_source_type"
	MetaInstallSource     = "install_source"
	MetaOSVariant         = "os_variant"
	MetaRootPassword      = "root_password"
	MetaUserLogin         = "user_login"
	MetaUserPassword      = "user_password"
)

// ParseMachinesMetadataElement returns the content of the named field in the
// application namespace, or nil. Elements of the same name in other
// namespaces are ignored.
func ParseMachinesMetadataElement(metadata *xmldoc.Element, name string) *string {
	elems := metadata.FindAllNS(MetadataNamespace, name)
	if len(elems) == 0 {
		return nil
	}
	return elems[0].ContentPtr()
}

func parseMetadata(metadata *xmldoc.Element) Metadata {
	if metadata == nil {
		return Metadata{}
	}
	return Metadata{
		HasInstallPhase:   ParseMachinesMetadataElement(metadata, MetaHasInstallPhase),
		InstallSourceType: ParseMachinesMetadataElement(metadata, MetaInstallSourceType),
		InstallSource:     ParseMachinesMetadataElement(metadata, MetaInstallSource),
		OSVariant:         ParseMachinesMetadataElement(metadata, MetaOSVariant),
		RootPassword:      ParseMachinesMetadataElement(metadata, MetaRootPassword),
		UserLogin:         ParseMachinesMetadataElement(metadata, MetaUserLogin),
		UserPassword:      ParseMachinesMetadataElement(metadata, MetaUserPassword),
	}
}
