package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSubstitutesQuestionAndUnescapesBraces(t *testing.T) {
	tmpl, err := NewTemplate(`Question: {user_question}
Respond with {{"sql": "..."}} or {{"error": "..."}}.`)
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}
	got := tmpl.Render("How many {employees}?")
	if !strings.HasPrefix(got, `Question: How many {employees}?
Respond with {"sql": "..."} or {"error": "..."}.`) {
		t.Fatalf("Render() = %q", got)
	}
	if !strings.HasSuffix(got, SchemaInstructions) {
		t.Fatalf("Render() should end with schema instructions: %q", got)
	}
}

func TestRenderDoesNotReexpandQuestion(t *testing.T) {
	tmpl, err := NewTemplate("Q: {user_question}")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}
	got := tmpl.Render("{user_question} {{x}}")
	if !strings.HasPrefix(got, "Q: {user_question} {{x}}\n") {
		t.Fatalf("Render() = %q", got)
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base_prompt.txt")
	if err := os.WriteFile(path, []byte("Answer: {user_question}"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}
	if got := tmpl.Render("hi"); !strings.Contains(got, "Answer: hi") || !strings.Contains(got, "information_schema.columns") {
		t.Fatalf("Render() = %q", got)
	}
}

func TestLoadTemplateErrors(t *testing.T) {
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := NewTemplate("no placeholder here"); err == nil {
		t.Fatal("expected error for template without placeholder")
	}
}

func TestSummaryCarriesQuestionAndTable(t *testing.T) {
	got := Summary("Who spent most?", "name  total\nLinus 103.25")
	for _, want := range []string{
		"Who spent most?",
		"Dataframe:\nname  total\nLinus 103.25",
		`Avoid qualifiers like "based on the data"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Summary() missing %q: %q", want, got)
		}
	}
}
