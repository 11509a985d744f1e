package aicategorize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/finzora/signal-engine/internal/signal"
)

// DefaultModelName is the model used for categorization suggestions.
const DefaultModelName = "gemini-2.0-flash"

// Categorizer asks a language model to place a transaction title in one of
// the canonical categories. The keyword table in the signal package stays
// the source of truth: the model is constrained to its labels and every
// failure path falls back to the keyword match, so a missing API key or a
// hallucinated label never produces an unknown category.
type Categorizer struct {
	model string
}

// New creates a Categorizer using the default model.
func New() *Categorizer {
	return &Categorizer{model: DefaultModelName}
}

// NewWithModel creates a Categorizer using the given model name.
func NewWithModel(model string) *Categorizer {
	return &Categorizer{model: model}
}

// Suggest returns a canonical category for the transaction title. The
// returned label is always one of signal.Categories() or the fallback.
func (c *Categorizer) Suggest(ctx context.Context, title, description string) (string, error) {
	fallback := signal.Categorize(title)

	prompt := buildPrompt(title, description)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return fallback, fmt.Errorf("Suggest: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return fallback, fmt.Errorf("Suggest: generate content: %w", err)
	}

	label := cleanLabel(resp.Text())
	if !signal.IsKnownCategory(label) {
		return fallback, nil
	}

	return label, nil
}

func buildPrompt(title, description string) string {
	var b strings.Builder
	b.WriteString("Classify the following financial transaction into exactly one category.\n")
	b.WriteString("Allowed categories:\n")
	for _, cat := range signal.Categories() {
		b.WriteString("- ")
		b.WriteString(cat)
		b.WriteString("\n")
	}
	b.WriteString("- ")
	b.WriteString(signal.FallbackCategory)
	b.WriteString("\n\n")
	b.WriteString("Respond with the category name only. No explanation, no punctuation.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	return b.String()
}

// cleanLabel strips the quoting and trailing chatter models sometimes add
// despite instructions.
func cleanLabel(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`")
	if idx := strings.IndexAny(s, "\n."); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
