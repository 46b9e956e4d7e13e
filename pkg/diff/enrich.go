package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

func prefixes() (live string, next string) {
	live = fmt.Sprintf("[%s] %s", color.New(color.Bold, color.FgRed).Sprint(liveLabel), color.New(color.Faint).Sprint(" -"))
	next = fmt.Sprintf("[%s] %s", color.New(color.FgBlue, color.Bold).Sprint(nextLabel), color.New(color.Faint).Sprint(" +"))
	return live, next
}

// EnrichCmpDiff colors a go-cmp diff, labeling removed lines as live and
// added lines as next.
func EnrichCmpDiff(diff string) string {
	if diff == "" {
		return ""
	}
	prevNoColor := color.NoColor
	defer func() {
		color.NoColor = prevNoColor
	}()
	color.NoColor = false

	livePrefix, nextPrefix := prefixes()

	var sb strings.Builder
	sb.WriteString("\n")

	for _, line := range strings.Split(diff, "\n") {
		if strings.TrimSpace(line) == "" {
			sb.WriteString(line + "\n")
			continue
		}

		switch {
		case strings.HasPrefix(line, "-"):
			sb.WriteString(livePrefix + " | " + color.New(color.FgRed).Sprint(strings.TrimPrefix(line, "-")) + "\n")
		case strings.HasPrefix(line, "+"):
			sb.WriteString(nextPrefix + " | " + color.New(color.FgBlue).Sprint(strings.TrimPrefix(line, "+")) + "\n")
		default:
			sb.WriteString(strings.Repeat(" ", 9) + " | " + color.New(color.Faint).Sprint(line) + "\n")
		}
	}

	return sb.String()
}
