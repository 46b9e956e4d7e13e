package diff

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestHighlightKeepsAttributesPerSegment(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	oldLine := "<memory unit='KiB'>2097152</memory> <vcpu>2</vcpu>"
	newLine := "<memory unit='KiB'>4194304</memory> <vcpu>4</vcpu>"

	deleted := highlightDeleted(oldLine, newLine, color.FgRed)
	assert.Contains(t, deleted, "\x1b[31;2m")
	assert.NotContains(t, deleted, "31;2;2")
	assert.Equal(t, deleted, highlightDeleted(oldLine, newLine, color.FgRed))

	inserted := highlightInserted(oldLine, newLine, color.FgBlue)
	assert.Contains(t, inserted, "\x1b[34;2m")
	assert.NotContains(t, inserted, "34;2;2")
	assert.Equal(t, 0, strings.Count(inserted, "2097152"))
}
