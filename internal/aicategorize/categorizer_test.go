package aicategorize

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("Starbucks Coffee", "morning coffee run")

	for _, want := range []string{"Starbucks Coffee", "morning coffee run", "- Food", "- Other"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptOmitsEmptyDescription(t *testing.T) {
	prompt := buildPrompt("Uber", "")
	if strings.Contains(prompt, "Description:") {
		t.Error("prompt should omit empty description")
	}
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Food", "Food"},
		{"  Food\n", "Food"},
		{"\"Food\"", "Food"},
		{"Food.", "Food"},
		{"Food\nBecause it is a coffee shop.", "Food"},
		{"`Transport`", "Transport"},
	}

	for _, tt := range tests {
		if got := cleanLabel(tt.raw); got != tt.want {
			t.Errorf("cleanLabel(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
