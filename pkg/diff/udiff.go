package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"
	"gitlab.com/tozd/go/errors"
)

type UnifiedDiff struct {
	FileDiff *diff.FileDiff
}

// highlightInserted renders newLine with the text missing from oldLine in
// bold.
func highlightInserted(oldLine, newLine string, lineColor color.Attribute) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))

	faint := color.New(lineColor, color.Faint)
	var result strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			result.WriteString(color.New(color.FgBlue, color.Bold).Sprint(d.Text))
		case diffmatchpatch.DiffEqual:
			result.WriteString(faint.Sprint(d.Text))
		}
	}
	return result.String()
}

// highlightDeleted renders oldLine with the text missing from newLine in
// bold.
func highlightDeleted(oldLine, newLine string, lineColor color.Attribute) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))

	faint := color.New(lineColor, color.Faint)
	var result strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			result.WriteString(color.New(color.FgRed, color.Bold).Sprint(d.Text))
		case diffmatchpatch.DiffEqual:
			result.WriteString(faint.Sprint(d.Text))
		}
	}
	return result.String()
}

func ParseUnifiedDiff(diffStr string) (*UnifiedDiff, error) {
	if diffStr == "" {
		return nil, errors.New("empty diff string")
	}

	fileDiff, err := diff.ParseFileDiff([]byte(diffStr))
	if err != nil {
		return nil, errors.Errorf("parsing unified diff: %w", err)
	}

	return &UnifiedDiff{FileDiff: fileDiff}, nil
}

// Hunks returns the number of hunks in the diff.
func (ud *UnifiedDiff) Hunks() int {
	if ud == nil || ud.FileDiff == nil {
		return 0
	}
	return len(ud.FileDiff.Hunks)
}

func (ud *UnifiedDiff) PrettyPrint() string {
	if ud == nil || ud.FileDiff == nil {
		return ""
	}

	prevNoColor := color.NoColor
	defer func() {
		color.NoColor = prevNoColor
	}()
	color.NoColor = false

	livePrefix, nextPrefix := prefixes()

	var result []string

	if ud.FileDiff.OrigName != "" {
		result = append(result, fmt.Sprintf("%s %s",
			color.New(color.Faint).Sprint("---"),
			color.New(color.FgRed, color.Bold).Sprint(ud.FileDiff.OrigName)))
	}
	if ud.FileDiff.NewName != "" {
		result = append(result, fmt.Sprintf("%s %s",
			color.New(color.Faint).Sprint("+++"),
			color.New(color.FgBlue, color.Bold).Sprint(ud.FileDiff.NewName)))
	}

	for _, hunk := range ud.FileDiff.Hunks {
		result = append(result, color.New(color.Faint).Sprintf("@@ -%d,%d +%d,%d @@%s",
			hunk.OrigStartLine, hunk.OrigLines,
			hunk.NewStartLine, hunk.NewLines,
			hunk.Section))

		for _, group := range groupRelatedChanges(strings.Split(string(hunk.Body), "\n")) {
			for _, line := range group.contextLines {
				result = append(result, strings.Repeat(" ", 9)+formatStartingWhitespace(line, color.New(color.Faint)))
			}

			// a single replaced line gets character level highlighting
			if len(group.oldLines) == 1 && len(group.newLines) == 1 {
				oldLine, newLine := group.oldLines[0], group.newLines[0]
				result = append(result, livePrefix+formatStartingWhitespace(highlightDeleted(oldLine, newLine, color.FgRed), color.New(color.FgRed)))
				result = append(result, nextPrefix+formatStartingWhitespace(highlightInserted(oldLine, newLine, color.FgBlue), color.New(color.FgBlue)))
				continue
			}

			for _, line := range group.oldLines {
				result = append(result, livePrefix+formatStartingWhitespace(line, color.New(color.FgRed)))
			}
			for _, line := range group.newLines {
				result = append(result, nextPrefix+formatStartingWhitespace(line, color.New(color.FgBlue)))
			}
		}

		result = append(result, "")
	}

	return "\n" + strings.Join(result, "\n")
}

type lineGroup struct {
	contextLines []string
	oldLines     []string
	newLines     []string
}

// groupRelatedChanges splits a hunk body into runs of context followed by
// removals and additions, so replaced lines can be paired.
func groupRelatedChanges(lines []string) []lineGroup {
	var groups []lineGroup
	var current lineGroup

	flush := func() {
		if len(current.contextLines) > 0 || len(current.oldLines) > 0 || len(current.newLines) > 0 {
			groups = append(groups, current)
			current = lineGroup{}
		}
	}

	inChange := false
	for _, line := range lines {
		if line == "" {
			continue
		}

		switch line[0] {
		case '-':
			inChange = true
			current.oldLines = append(current.oldLines, line[1:])
		case '+':
			inChange = true
			current.newLines = append(current.newLines, line[1:])
		default:
			if inChange {
				flush()
				inChange = false
			}
			current.contextLines = append(current.contextLines, strings.TrimPrefix(line, " "))
		}
	}
	flush()

	return groups
}
