package article

import "time"

// LinkSuggestion is an internal link proposed for the article.
type LinkSuggestion struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Metadata is the publishing/SEO record generated for a finished article.
type Metadata struct {
	Slug                string           `json:"slug"`
	SuggestedCategories []string         `json:"suggestedCategories"`
	Titles              []string         `json:"titles"`
	Keywords            []string         `json:"keywords"`
	Teasers             []string         `json:"teasers"`
	LinkingSuggestions  []LinkSuggestion `json:"linkingSuggestions"`
	Sources             []string         `json:"sources"`
}

// IsEmpty reports whether nothing has been generated yet.
func (m Metadata) IsEmpty() bool {
	return m.Slug == "" &&
		len(m.SuggestedCategories) == 0 &&
		len(m.Titles) == 0 &&
		len(m.Keywords) == 0 &&
		len(m.Teasers) == 0 &&
		len(m.LinkingSuggestions) == 0 &&
		len(m.Sources) == 0
}

// Clone deep-copies the list fields.
func (m Metadata) Clone() Metadata {
	out := m
	out.SuggestedCategories = append([]string(nil), m.SuggestedCategories...)
	out.Titles = append([]string(nil), m.Titles...)
	out.Keywords = append([]string(nil), m.Keywords...)
	out.Teasers = append([]string(nil), m.Teasers...)
	out.LinkingSuggestions = append([]LinkSuggestion(nil), m.LinkingSuggestions...)
	out.Sources = append([]string(nil), m.Sources...)
	return out
}

// PublishedArticle is an article already live on the site, used for link suggestions.
type PublishedArticle struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Category is a site category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AIConfig governs the counts and instructions of metadata generation.
type AIConfig struct {
	TitlesCount       int      `json:"titlesCount" yaml:"titles_count"`
	KeywordsCount     int      `json:"keywordsCount" yaml:"keywords_count"`
	LinkingCount      int      `json:"linkingCount" yaml:"linking_count"`
	CategoriesCount   int      `json:"categoriesCount" yaml:"categories_count"`
	SourcesCount      int      `json:"sourcesCount" yaml:"sources_count"`
	SystemInstruction string   `json:"systemInstruction" yaml:"system_instruction"`
	TitlesInstruction string   `json:"titlesInstruction" yaml:"titles_instruction"`
	TeaserPrompts     []string `json:"teaserPrompts" yaml:"teaser_prompts"`
}

// DefaultAIConfig mirrors the counts the editors have used from the start.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		TitlesCount:       10,
		KeywordsCount:     10,
		LinkingCount:      3,
		CategoriesCount:   5,
		SourcesCount:      5,
		SystemInstruction: "You are an expert editorial assistant specialised in SEO and compelling content.",
		TitlesInstruction: "Titles should vary between news-style, analytical and curiosity-driven.",
		TeaserPrompts: []string{
			"A curiosity-provoking question that pulls the reader in",
			"The single most important fact, urgent and brief",
			"Addressed to a specific audience (teachers, employees, ...)",
			"A cautionary or alerting tone (watch out, beware, ...)",
			"A mysterious summary that does not reveal the ending",
		},
	}
}

// Valid reports whether the config can drive a generation request.
func (c AIConfig) Valid() bool {
	return c.TitlesCount >= 0 && c.KeywordsCount >= 0 && c.LinkingCount >= 0 &&
		c.CategoriesCount >= 0 && c.SourcesCount >= 0 && len(c.TeaserPrompts) > 0
}
