package formatter

import "strings"

const indentWidth = 2

// Reindent rebuilds leading whitespace from bracket structure alone. Each
// line is trimmed, dedented when it opens with a closing bracket, and the
// following lines are indented after one ending in an opener or a colon.
func Reindent(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	level := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = append(out, "")
			continue
		}
		if strings.HasPrefix(trimmed, "}") || strings.HasPrefix(trimmed, ")") || strings.HasPrefix(trimmed, "]") {
			level = max(level-1, 0)
		}
		out = append(out, strings.Repeat(" ", level*indentWidth)+trimmed)
		if strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "(") ||
			strings.HasSuffix(trimmed, "[") || strings.HasSuffix(trimmed, ":") {
			level++
		}
	}
	return strings.Join(out, "\n")
}
