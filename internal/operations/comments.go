package operations

import "strings"

// extractLeadingComment implements the comment-recognition rule shared by
// variable description overrides and operation descriptions. It walks
// backward from byte offset pos through whole lines of src[boundary:pos]
// that are blank or start with '#' once leading whitespace and commas are
// stripped (commas separate GraphQL variables but carry no meaning of their
// own), stopping at the first line that is neither. boundary bounds the scan
// region from the left: callers pass the offset immediately after a
// variable list's '(' so a comment sharing that line with the paren (e.g.
// `query Q(# override`) is recognized from its own text, not the operation
// keyword preceding the paren; pass 0 to scan the whole preceding source, as
// operation-level descriptions do. The collected comment lines are
// reassembled in source order, stripped of their leading '#' and
// surrounding whitespace, and joined with newlines.
func extractLeadingComment(src string, pos int, boundary int) string {
	if pos < 0 || pos > len(src) {
		return ""
	}
	if boundary < 0 || boundary > pos {
		boundary = 0
	}
	prefix := src[boundary:pos]
	lastNL := strings.LastIndexByte(prefix, '\n')

	var partialLine, rest string
	if lastNL == -1 {
		partialLine = prefix
	} else {
		partialLine = prefix[lastNL+1:]
		rest = prefix[:lastNL]
	}

	// pos sits mid-line behind non-whitespace content (e.g. right after the
	// opening paren on the same line as the operation keyword): no comment
	// block can precede it.
	if strings.TrimSpace(partialLine) != "" {
		return ""
	}

	var lines []string
	if rest != "" {
		lines = strings.Split(rest, "\n")
	}

	var collected []string
scan:
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimLeft(lines[i], " \t,")
		switch {
		case trimmed == "":
			collected = append(collected, "")
		case strings.HasPrefix(trimmed, "#"):
			collected = append(collected, strings.TrimSpace(strings.TrimPrefix(trimmed, "#")))
		default:
			break scan
		}
	}

	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	for len(collected) > 0 && collected[0] == "" {
		collected = collected[1:]
	}
	for len(collected) > 0 && collected[len(collected)-1] == "" {
		collected = collected[:len(collected)-1]
	}

	return strings.TrimSpace(strings.Join(collected, "\n"))
}
