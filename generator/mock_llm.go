package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockLLM answers locally without calling a model. Useful for offline runs.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if prompt.JSON {
		if strings.Contains(prompt.User, "linkingSuggestions") {
			b, _ := json.Marshal(map[string]any{
				"slug":                "sample-article",
				"suggestedCategories": []string{"Economy"},
				"titles":              []string{"A sample headline"},
				"keywords":            []string{"sample"},
				"teasers":             []string{"Why does this matter?"},
				"linkingSuggestions":  []map[string]string{},
				"sources":             []string{"Doe, J. (2024). Sample report."},
			})
			return string(b), nil
		}
		titles := make([]string, 0, 10)
		for i := 1; i <= 10; i++ {
			titles = append(titles, fmt.Sprintf("Sample section %d", i))
		}
		b, _ := json.Marshal(map[string][]string{"titles": titles})
		return string(b), nil
	}

	// echo the prompt back as Markdown
	var sb strings.Builder
	sb.WriteString("This is a locally generated sample paragraph.\n\n")
	sb.WriteString("### Prompt\n\n")
	sb.WriteString("```\n")
	sb.WriteString(prompt.User)
	sb.WriteString("\n```\n")
	return sb.String(), nil
}
