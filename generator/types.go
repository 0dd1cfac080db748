package generator

import "prowriter/article"

// Style sets the output language and the writer persona.
type Style struct {
	Language string
	Persona  string
}

// DefaultStyle is used when the config leaves the style empty.
func DefaultStyle() Style {
	return Style{
		Language: "English",
		Persona:  "a senior economics editor and development analyst",
	}
}

// MetadataRequest carries everything the metadata prompt needs.
type MetadataRequest struct {
	Topic      string
	Content    string
	Articles   []article.PublishedArticle
	Categories []article.Category
	Config     article.AIConfig
}
