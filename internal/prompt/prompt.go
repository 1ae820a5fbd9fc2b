package prompt

import (
	"fmt"
	"os"
	"strings"
)

const questionPlaceholder = "{user_question}"

// SchemaInstructions is appended to every base prompt so the model can
// answer questions about the tables themselves.
const SchemaInstructions = `
For database schema questions:
- To count tables: SELECT count(*) as table_count FROM information_schema.tables WHERE table_schema = 'main'
- To describe tables: SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main'
`

type Template struct {
	text string
}

func LoadTemplate(path string) (Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read prompt template: %w", err)
	}
	return NewTemplate(string(raw))
}

func NewTemplate(base string) (Template, error) {
	if !strings.Contains(base, questionPlaceholder) {
		return Template{}, fmt.Errorf("prompt template has no %s placeholder", questionPlaceholder)
	}
	return Template{text: base + SchemaInstructions}, nil
}

// Render substitutes the question and collapses doubled braces, so JSON
// examples in the template are written as {{ and }}.
func (t Template) Render(question string) string {
	var b strings.Builder
	b.Grow(len(t.text) + len(question))
	text := t.text
	for len(text) > 0 {
		switch {
		case strings.HasPrefix(text, questionPlaceholder):
			b.WriteString(question)
			text = text[len(questionPlaceholder):]
		case strings.HasPrefix(text, "{{"):
			b.WriteByte('{')
			text = text[2:]
		case strings.HasPrefix(text, "}}"):
			b.WriteByte('}')
			text = text[2:]
		default:
			b.WriteByte(text[0])
			text = text[1:]
		}
	}
	return b.String()
}

func Summary(question, table string) string {
	return fmt.Sprintf(`
A user asked the following question pertaining to local database tables:

%s

To answer the question, a dataframe was returned:

Dataframe:
%s

In a few sentences, summarize the data in the table as it pertains to the original user question. 
Avoid qualifiers like "based on the data" and do not comment on the structure or metadata of the table itself.
`, question, table)
}
