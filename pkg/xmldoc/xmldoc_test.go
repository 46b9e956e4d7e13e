package xmldoc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

const sample = `<?xml version="1.0"?>
<domain type="kvm">
  <name>vm1</name>
  <devices>
    <disk type="file" device="disk">
      <target dev="vda" bus="virtio"/>
      <boot order="1"/>
    </disk>
    <disk type="file" device="cdrom">
      <target dev="sda" bus="sata"/>
    </disk>
  </devices>
  <metadata>
    <cockpit_machines:data xmlns:cockpit_machines="https://example.com/ns">
      <cockpit_machines:os_variant>fedora40</cockpit_machines:os_variant>
    </cockpit_machines:data>
  </metadata>
</domain>`

func TestParse(t *testing.T) {
	root, err := xmldoc.ParseRoot(sample, "domain")
	require.NoError(t, err)

	assert.Equal(t, "domain", root.Name())
	assert.Equal(t, "vm1", root.Child("name").Content())

	typ, ok := root.Attr("type")
	require.True(t, ok)
	assert.Equal(t, "kvm", typ)

	_, ok = root.Attr("missing")
	assert.False(t, ok)
	assert.Nil(t, root.AttrPtr("missing"))
	assert.Equal(t, "fallback", root.AttrOr("missing", "fallback"))
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "whitespace", doc: "  \n "},
		{name: "malformed", doc: "<domain><name>vm1</domain>"},
		{name: "not xml", doc: "hello world"},
		{name: "unclosed trailing element", doc: "<domain><devices/></domain><garbage"},
		{name: "stray end element", doc: "<domain><devices/></domain></oops>"},
		{name: "second root", doc: "<domain/><domain/>"},
		{name: "trailing text", doc: "<domain/>trailing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := xmldoc.Parse(tt.doc)
			require.Error(t, err)
			assert.True(t, xmldoc.IsParseError(err))
		})
	}

	root, err := xmldoc.Parse("<?xml version=\"1.0\"?>\n<domain/>\n<!-- generated -->\n")
	require.NoError(t, err)
	assert.Equal(t, "domain", root.Name())

	_, err = xmldoc.ParseRoot("<network/>", "domain")
	require.Error(t, err)
	assert.True(t, xmldoc.IsParseError(err))
}

func TestFind(t *testing.T) {
	root, err := xmldoc.Parse(sample)
	require.NoError(t, err)

	disks := root.FindAll("disk")
	require.Len(t, disks, 2)
	assert.Equal(t, "cdrom", disks[1].AttrOr("device", ""))

	// scoped to the subtree
	assert.Len(t, disks[0].FindAll("target"), 1)
	assert.Nil(t, disks[1].Find("boot"))
	assert.Equal(t, "1", disks[0].Find("boot").AttrOr("order", ""))

	assert.Nil(t, root.Find("vsock"))
	assert.Nil(t, root.Child("disk"))
	assert.Len(t, root.Child("devices").ChildrenNamed("disk"), 2)
	assert.Equal(t, "vda", root.FindPath("devices", "disk", "target").AttrOr("dev", ""))

	// lookups on absent elements are safe
	var absent *xmldoc.Element
	assert.Nil(t, absent.Find("x"))
	assert.Empty(t, absent.FindAll("x"))
	assert.Equal(t, "", absent.Content())
	assert.Nil(t, absent.ContentPtr())
}

func TestNamespaces(t *testing.T) {
	root, err := xmldoc.Parse(sample)
	require.NoError(t, err)

	assert.Len(t, root.FindAllNS("https://example.com/ns", "os_variant"), 1)
	assert.Empty(t, root.FindAllNS("https://other.example.com/ns", "os_variant"))

	data := root.Find("data")
	require.NotNil(t, data)
	assert.Equal(t, "https://example.com/ns", data.Space())
}

func TestSerialize(t *testing.T) {
	root, err := xmldoc.Parse(`<disk type="file"><source file="/a&amp;b.img"/><serial>abc</serial></disk>`)
	require.NoError(t, err)

	out, err := root.Serialize()
	require.NoError(t, err)
	assert.Equal(t, `<disk type="file"><source file="/a&amp;b.img"/><serial>abc</serial></disk>`, out)

	ns, err := xmldoc.Parse(sample)
	require.NoError(t, err)

	out, err = ns.Find("data").Serialize()
	require.NoError(t, err)
	assert.Equal(t, `<data xmlns="https://example.com/ns"><os_variant>fedora40</os_variant></data>`, out)
}
