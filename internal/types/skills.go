// Package types provides type definitions for structured data used throughout jobpilot.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SkillCategory is one named group of skills, e.g. "Languages": ["Go", "Python"].
type SkillCategory struct {
	Name   string
	Skills []string
}

// SkillCategories is an ordered category -> skills mapping. It marshals to and from a JSON
// object while keeping the order in which categories appear.
type SkillCategories []SkillCategory

// Lookup returns the skills listed under the named category.
func (s SkillCategories) Lookup(name string) ([]string, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Skills, true
		}
	}
	return nil, false
}

// All returns every skill across all categories, in order.
func (s SkillCategories) All() []string {
	var out []string
	for _, c := range s {
		out = append(out, c.Skills...)
	}
	return out
}

// Clone returns a deep copy. A nil receiver stays nil.
func (s SkillCategories) Clone() SkillCategories {
	if s == nil {
		return nil
	}
	out := make(SkillCategories, len(s))
	for i, c := range s {
		out[i] = SkillCategory{Name: c.Name, Skills: cloneStrings(c.Skills)}
	}
	return out
}

// MarshalJSON writes the categories as a JSON object in slice order.
func (s SkillCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		skills := c.Skills
		if skills == nil {
			skills = []string{}
		}
		val, err := json.Marshal(skills)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string arrays, preserving key order.
// A JSON null leaves the receiver untouched.
func (s *SkillCategories) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("skill categories: expected object, got %v", tok)
	}

	out := SkillCategories{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("skill categories: expected string key, got %v", keyTok)
		}
		var skills []string
		if err := dec.Decode(&skills); err != nil {
			return fmt.Errorf("skill categories: category %q: %w", name, err)
		}
		if skills == nil {
			skills = []string{}
		}
		out = append(out, SkillCategory{Name: name, Skills: skills})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
