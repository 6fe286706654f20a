package extract

import "strings"

// extractMarkdown returns the note body with YAML front matter removed.
// Front matter is a leading block delimited by "---" lines; malformed blocks
// (no closing delimiter) are kept as-is rather than discarded.
func extractMarkdown(content []byte) (string, error) {
	text, err := extractPlain(content)
	if err != nil {
		return "", err
	}
	return StripFrontMatter(text), nil
}

// StripFrontMatter removes a leading YAML front matter block from text.
func StripFrontMatter(text string) string {
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return text
	}
	rest := text[strings.Index(text, "\n")+1:]
	for _, delim := range []string{"\n---\n", "\n---\r\n"} {
		if idx := strings.Index(rest, delim); idx >= 0 {
			return strings.TrimLeft(rest[idx+len(delim):], "\r\n")
		}
	}
	// Closing delimiter on the final line, or none at all.
	if strings.HasSuffix(rest, "\n---") || rest == "---" {
		return ""
	}
	return text
}
