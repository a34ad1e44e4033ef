package rendering

import "strings"

// EscapeLaTeX escapes special LaTeX characters in text
// Special characters: \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{':
			result.WriteString(`\{`)
		case '}':
			result.WriteString(`\}`)
		case '$':
			result.WriteString(`\$`)
		case '&':
			result.WriteString(`\&`)
		case '%':
			result.WriteString(`\%`)
		case '#':
			result.WriteString(`\#`)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '_':
			result.WriteString(`\_`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// escapeURL escapes the characters hyperref cannot take verbatim inside \href.
func escapeURL(url string) string {
	return strings.NewReplacer(`%`, `\%`, `#`, `\#`, `&`, `\&`).Replace(url)
}

// escapeJoin escapes each item and joins them with sep.
func escapeJoin(items []string, sep string) string {
	escaped := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			escaped = append(escaped, EscapeLaTeX(item))
		}
	}
	return strings.Join(escaped, sep)
}

// dateRange formats "start -- end", collapsing to whichever side is present.
func dateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case start == "":
		return EscapeLaTeX(end)
	case end == "":
		return EscapeLaTeX(start)
	}
	return EscapeLaTeX(start) + " -- " + EscapeLaTeX(end)
}
