package metadata

import (
	"fmt"
	"strings"

	"prowriter/article"
)

// Export renders the result as one plain-text block for copy and paste.
// Empty entries are skipped in numbered lists.
func (f *Flow) Export() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.generated {
		return "", ErrNotGenerated
	}
	return Render(f.result), nil
}

// Render formats md the way Export does.
func Render(md article.Metadata) string {
	var b strings.Builder
	block := func(heading, body string) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(heading)
		b.WriteString(":\n")
		b.WriteString(body)
	}

	block("Suggested categories", strings.Join(md.SuggestedCategories, ", "))
	block("Slug", md.Slug)
	block("Suggested titles", numbered(md.Titles))
	block("Keywords", strings.Join(md.Keywords, ", "))
	block("Teasers", numbered(md.Teasers))

	links := make([]string, 0, len(md.LinkingSuggestions))
	for _, l := range md.LinkingSuggestions {
		if l.Title == "" {
			continue
		}
		links = append(links, l.Title+": "+l.URL)
	}
	block("Internal links", numbered(links))
	block("Sources (APA)", numbered(md.Sources))
	return strings.TrimSpace(b.String())
}

func numbered(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", len(lines)+1, it))
	}
	return strings.Join(lines, "\n")
}
