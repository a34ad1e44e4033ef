package pipeline

import (
	"strings"
	"time"
	"unicode"
)

const maxNameComponent = 50

// SanitizeFilename keeps letters, digits, '.', '_', '-' and spaces, replaces everything else
// with '_', and truncates to 50 characters.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	n := 0
	for _, r := range name {
		if n >= maxNameComponent {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '_', r == '-', r == ' ':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
		n++
	}
	return strings.TrimSpace(sb.String())
}

// BaseName builds the shared file stem for one finalize run, e.g.
// "Sam_Doe_Acme_Data_Engineer_20250301_090000". Spaces become underscores.
func BaseName(user, company, title string, at time.Time) string {
	parts := []string{
		orDefault(SanitizeFilename(user), "resume"),
		orDefault(SanitizeFilename(company), "company"),
		orDefault(SanitizeFilename(title), "role"),
		at.Format("20060102_150405"),
	}
	return strings.ReplaceAll(strings.Join(parts, "_"), " ", "_")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
