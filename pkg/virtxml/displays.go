package virtxml

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/libvirt-mcp/pkg/xmldoc"
)

const (
	DisplayVNC   = "vnc"
	DisplaySpice = "spice"
	DisplayPty   = "pty"
)

// Display is a console the domain exposes: a graphics display (Type is the
// protocol, e.g. vnc or spice) or a pty serial console.
type Display struct {
	Type     string           `json:"type" yaml:"type"`
	Graphics *GraphicsDisplay `json:"graphics,omitempty" yaml:"graphics,omitempty"`
	Pty      *PtyConsole      `json:"pty,omitempty" yaml:"pty,omitempty"`
}

type GraphicsDisplay struct {
	Autoport bool   `json:"autoport" yaml:"autoport"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	TLSPort  string `json:"tlsPort,omitempty" yaml:"tlsPort,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

type PtyConsole struct {
	Alias  string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

func parseDisplays(ctx context.Context, devices *xmldoc.Element) []*Display {
	logger := zerolog.Ctx(ctx)
	var out []*Display

	for _, g := range devices.ChildrenNamed("graphics") {
		typ := g.AttrOr("type", "")
		autoport := g.AttrOr("autoport", "") == "yes"

		address, hasAddress := g.Attr("listen")
		if !hasAddress {
			address, hasAddress = g.Child("listen").Attr("address")
		}
		port, hasPort := g.Attr("port")
		if port == "-1" {
			hasPort = false
		}
		tlsPort, hasTLSPort := g.Attr("tlsPort")
		if tlsPort == "-1" {
			hasTLSPort = false
		}

		if typ == "" || !(autoport || (hasAddress && (hasPort || hasTLSPort))) {
			logger.Debug().Str("type", typ).Msg("ignoring incomplete graphics display")
			continue
		}

		out = append(out, &Display{
			Type: typ,
			Graphics: &GraphicsDisplay{
				Autoport: autoport,
				Address:  address,
				Port:     port,
				TLSPort:  tlsPort,
				Password: g.AttrOr("passwd", ""),
			},
		})
	}

	for _, c := range devices.ChildrenNamed("console") {
		if c.AttrOr("type", "") != DisplayPty {
			continue
		}
		out = append(out, &Display{
			Type: DisplayPty,
			Pty: &PtyConsole{
				Alias:  c.Child("alias").AttrOr("name", ""),
				Target: c.Child("target").AttrOr("type", ""),
				Path:   c.AttrOr("tty", c.Child("source").AttrOr("path", "")),
			},
		})
	}

	return out
}

// hasSpice reports SPICE support from structure: any device with a type
// starting with "spice" or a qxl video model.
func hasSpice(devices *xmldoc.Element) bool {
	found := false
	devices.Walk(func(e *xmldoc.Element) {
		if found || e == devices {
			return
		}
		if strings.HasPrefix(e.AttrOr("type", ""), "spice") {
			found = true
		}
	})
	if found {
		return true
	}
	for _, video := range devices.ChildrenNamed("video") {
		if video.Child("model").AttrOr("type", "") == "qxl" {
			return true
		}
	}
	return false
}
