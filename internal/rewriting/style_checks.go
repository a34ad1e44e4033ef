package rewriting

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxBulletChars is the longest bullet that fits on one line of the one-page template.
const MaxBulletChars = 120

var strongVerbs = map[string]bool{
	"achieved": true, "architected": true, "automated": true, "built": true, "created": true,
	"delivered": true, "designed": true, "developed": true, "drove": true, "engineered": true,
	"implemented": true, "improved": true, "increased": true, "launched": true,
	"led": true, "migrated": true, "optimized": true, "reduced": true, "scaled": true,
	"shipped": true, "transformed": true,
}

// StyleReport describes heuristic qualities of one bullet
type StyleReport struct {
	StrongVerb bool
	Quantified bool
	FitsLine   bool
}

// OK reports whether every check passed.
func (r StyleReport) OK() bool {
	return r.StrongVerb && r.Quantified && r.FitsLine
}

// Issues lists failed checks as short labels.
func (r StyleReport) Issues() []string {
	var out []string
	if !r.StrongVerb {
		out = append(out, "weak opening verb")
	}
	if !r.Quantified {
		out = append(out, "no metric")
	}
	if !r.FitsLine {
		out = append(out, "too long")
	}
	return out
}

// CheckBullet runs the style heuristics on text.
func CheckBullet(text string) StyleReport {
	text = strings.TrimSpace(text)
	return StyleReport{
		StrongVerb: startsWithStrongVerb(text),
		Quantified: strings.ContainsFunc(text, unicode.IsDigit) || strings.Contains(text, "%"),
		FitsLine:   text != "" && utf8.RuneCountInString(text) <= MaxBulletChars,
	}
}

func startsWithStrongVerb(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return false
	}
	first := strings.TrimRight(words[0], ".,!?;:")
	if strongVerbs[first] {
		return true
	}
	// past-tense verbs are the usual bullet opener
	return strings.HasSuffix(first, "ed") && len(first) > 3
}
