package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines what structured information to pull out of free text.
type ExtractionSchema struct {
	Name        string        // Schema name, e.g. "JobPosting"
	Description string        // Preamble describing the extraction task
	Fields      []SchemaField // Expected output fields, in prompt order
	MaxInput    int           // Input is truncated to this many bytes when > 0
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint rendered into the prompt
	Description string
	Required    bool
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	if schema.MaxInput > 0 && len(inputText) > schema.MaxInput {
		inputText = truncateUTF8(inputText, schema.MaxInput)
	}

	var sb strings.Builder
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = `"string"`
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		fmt.Fprintf(&sb, "  %q: %s%s", field.Name, typeHint, requiredHint)
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use an empty string or empty list when the text does not mention a field. Do not invent values.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// JobPostingSchema returns the extraction schema for a raw job description.
func JobPostingSchema() ExtractionSchema {
	list := `["string"]`
	return ExtractionSchema{
		Name: "JobPosting",
		Description: `You are an expert job posting analyst and ATS specialist.
Analyze the job description below and extract structured information about the role.
Skills, tools and keywords should be short terms as they would appear on a resume (e.g. "Python", "Kubernetes", "CI/CD").`,
		MaxInput: 8000,
		Fields: []SchemaField{
			{Name: "title", Description: "exact job title", Required: true},
			{Name: "company", Description: "company name", Required: true},
			{Name: "location", Description: "location"},
			{Name: "remote_policy", Description: "remote|hybrid|onsite|unclear"},
			{Name: "seniority", Description: "junior|mid|senior|staff|unclear"},
			{Name: "salary_range", Description: "if mentioned, else empty string"},
			{Name: "required_skills", Type: list, Description: "explicitly required skills", Required: true},
			{Name: "preferred_skills", Type: list, Description: "nice-to-have or preferred skills"},
			{Name: "tech_stack", Type: list, Description: "specific technologies, frameworks and tools mentioned"},
			{Name: "responsibilities", Type: list, Description: "key job responsibilities, max 5"},
			{Name: "requirements", Type: list, Description: "key requirements like education or years of experience"},
			{Name: "keywords", Type: list, Description: "important ATS keywords: technical terms, tools and methodologies a resume should contain", Required: true},
			{Name: "years_experience", Description: "years of experience required or preferred"},
			{Name: "education_requirements", Description: "education requirements"},
			{Name: "industry", Description: "industry or domain, e.g. healthcare, fintech"},
			{Name: "summary", Description: "2-3 sentence summary of what the role actually involves"},
		},
	}
}
