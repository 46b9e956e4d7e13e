package xmldoc

import (
	"encoding/xml"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Serialize renders the subtree rooted at e. Namespaced elements are written
// with a default namespace declaration wherever their namespace differs from
// the parent's; prefixed namespace declarations of the source are dropped.
func (e *Element) Serialize() (string, error) {
	if e == nil {
		return "", errors.New("serializing nil element")
	}
	var sb strings.Builder
	if err := e.write(&sb, ""); err != nil {
		return "", errors.Errorf("serializing <%s>: %w", e.XMLName.Local, err)
	}
	return sb.String(), nil
}

func (e *Element) write(sb *strings.Builder, parentSpace string) error {
	sb.WriteString("<")
	sb.WriteString(e.XMLName.Local)

	if e.XMLName.Space != parentSpace {
		sb.WriteString(` xmlns="`)
		if err := xml.EscapeText(sb, []byte(e.XMLName.Space)); err != nil {
			return err
		}
		sb.WriteString(`"`)
	}

	for _, a := range e.Attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(a.Name.Local)
		sb.WriteString(`="`)
		if err := xml.EscapeText(sb, []byte(a.Value)); err != nil {
			return err
		}
		sb.WriteString(`"`)
	}

	text := e.Text
	if len(e.Children) > 0 {
		text = strings.TrimSpace(text)
	}

	if text == "" && len(e.Children) == 0 {
		sb.WriteString("/>")
		return nil
	}

	sb.WriteString(">")
	if err := xml.EscapeText(sb, []byte(text)); err != nil {
		return err
	}
	for _, c := range e.Children {
		if err := c.write(sb, e.XMLName.Space); err != nil {
			return err
		}
	}
	sb.WriteString("</")
	sb.WriteString(e.XMLName.Local)
	sb.WriteString(">")
	return nil
}
