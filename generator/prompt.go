package generator

import (
	"fmt"
	"strings"
)

// Prompt is the set of messages sent to the model.
type Prompt struct {
	System  string
	User    string
	History []Message
	// JSON asks for a single JSON object as the reply.
	JSON        bool
	Temperature float64
}

// Message is an optional earlier turn.
type Message struct {
	Role    string
	Content string
}

// BuildOutlinePrompt asks for the section titles of an article.
func BuildOutlinePrompt(style Style, topic string, size int) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s. ", style.Persona))
	sb.WriteString("You help writers structure professional long-form articles.\n")
	sb.WriteString(fmt.Sprintf("- Write every title in %s.\n", style.Language))
	sb.WriteString("- Titles must be sober, concrete and practical.\n")
	sb.WriteString(fmt.Sprintf(`- Answer only with a JSON object holding a "titles" key whose value is an array of %d strings.`+"\n", size))
	sb.WriteString(`  Example: {"titles": ["Title 1", "Title 2"]}`)

	user := fmt.Sprintf("Produce a detailed professional outline for an article on: %q.\nGive me %d section titles in a JSON object.", topic, size)

	return Prompt{
		System: sb.String(),
		User:   user,
		JSON:   true,
	}
}

// BuildSectionPrompt asks for the prose of one section.
func BuildSectionPrompt(style Style, topic, title, instruction string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s writing one section of a longer article.\n", style.Persona))
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("1. Write a thorough, authoritative draft of this section only, in %s.\n", style.Language))
	sb.WriteString("2. Keep an academic yet readable professional tone.\n")
	sb.WriteString("3. Use Markdown for structure (sub-headings, lists, bullet points). Do not repeat the section title as a heading.\n")
	sb.WriteString("4. Offer practical value and concrete solutions.\n")
	sb.WriteString("5. Skip filler and long introductions; go straight to the point.\n")

	if strings.TrimSpace(instruction) == "" {
		instruction = "No specific context given. Rely on your professional expertise."
	}
	user := fmt.Sprintf(
		"Article topic: %s\nThis section's title: %s\n\nContext and extra instructions:\n%s\n\nIf the context above contains a strategy or structural orders, follow them exactly.",
		topic, title, instruction)

	return Prompt{
		System: sb.String(),
		User:   user,
	}
}

// BuildMetadataPrompt asks for slug, titles, keywords and the other publishing fields.
func BuildMetadataPrompt(style Style, req MetadataRequest) Prompt {
	cfg := req.Config

	var articles string
	if len(req.Articles) > 0 {
		var b strings.Builder
		b.WriteString("Articles already published on the site, for internal linking:\n")
		for _, a := range req.Articles {
			b.WriteString(fmt.Sprintf("- Title: %s | URL: %s\n", a.Title, a.URL))
		}
		articles = b.String()
	} else {
		articles = "There is no list of previous articles for internal linking.\n"
	}

	var categories string
	if len(req.Categories) > 0 {
		var b strings.Builder
		b.WriteString("Categories available on the site:\n")
		for _, c := range req.Categories {
			b.WriteString(fmt.Sprintf("- %s\n", c.Name))
		}
		b.WriteString("Pick the most fitting categories from this list.\n")
		categories = b.String()
	} else {
		categories = "No predefined categories; suggest suitable general ones.\n"
	}

	var teasers strings.Builder
	for i, t := range cfg.TeaserPrompts {
		teasers.WriteString(fmt.Sprintf("   - Teaser %d must follow this rule: %q\n", i+1, t))
	}

	var sb strings.Builder
	sb.WriteString(cfg.SystemInstruction)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Analyse the following article, written in %s.\n\n", style.Language))
	sb.WriteString(fmt.Sprintf("Article title: %q\n\nArticle content:\n%s\n\n", req.Topic, req.Content))
	sb.WriteString(articles)
	sb.WriteString("\n")
	sb.WriteString(categories)
	sb.WriteString("\nGenerate the following fields precisely, as JSON only:\n")
	sb.WriteString("1. slug: a short English, SEO friendly slug for the URL.\n")
	sb.WriteString(fmt.Sprintf("2. suggestedCategories: array of strings, %d fitting categories.\n", cfg.CategoriesCount))
	sb.WriteString(fmt.Sprintf("3. titles: array of strings, %d compelling titles. %s\n", cfg.TitlesCount, cfg.TitlesInstruction))
	sb.WriteString(fmt.Sprintf("4. keywords: array of strings, %d strong search keywords.\n", cfg.KeywordsCount))
	sb.WriteString(fmt.Sprintf("5. teasers: array of exactly %d strings, each following its rule in order:\n", len(cfg.TeaserPrompts)))
	sb.WriteString(teasers.String())
	sb.WriteString(fmt.Sprintf("6. linkingSuggestions: array of objects (title, url), %d articles from the list above to link to.\n", cfg.LinkingCount))
	sb.WriteString(fmt.Sprintf("7. sources: array of strings, %d strong research papers or reliable reports on the topic, in APA style.\n", cfg.SourcesCount))
	sb.WriteString(`
Example JSON structure:
{
  "slug": "example-slug",
  "suggestedCategories": ["cat1", "cat2"],
  "titles": ["title1", "title2"],
  "keywords": ["kw1", "kw2"],
  "teasers": ["teaser1", "teaser2"],
  "linkingSuggestions": [{"title": "t", "url": "u"}],
  "sources": ["source1"]
}`)

	return Prompt{
		System:      "You are a helpful assistant that outputs JSON only.",
		User:        sb.String(),
		JSON:        true,
		Temperature: 0.7,
	}
}
