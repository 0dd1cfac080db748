package generator

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"prowriter/article"
)

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// stripFence removes the ``` fence models sometimes wrap replies in.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return s
}

// ParseOutline extracts section titles from the model reply.
// It tries titles, sections and items, then a top-level array, then the first
// array-valued field in document order. Unparseable replies give an empty list.
func ParseOutline(raw string) []string {
	body := stripFence(raw)

	var top any
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil
	}

	var list []any
	switch v := top.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"titles", "sections", "items"} {
			if arr, ok := v[key].([]any); ok {
				list = arr
				break
			}
		}
		if list == nil {
			list = firstArrayField(body)
		}
	}

	titles := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			titles = append(titles, strings.TrimSpace(s))
		}
	}
	return titles
}

// firstArrayField walks the members of a JSON object in document order and
// returns the first array value.
func firstArrayField(body string) []any {
	dec := json.NewDecoder(strings.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil
		}
		if arr, ok := val.([]any); ok {
			return arr
		}
	}
	return nil
}

// CleanSection trims a section reply and rejects an empty one.
func CleanSection(raw string) (string, error) {
	md := strings.TrimSpace(raw)
	if md == "" {
		return "", errors.New("model returned empty section")
	}
	return md, nil
}

// ParseMetadata decodes the publishing metadata reply.
func ParseMetadata(raw string) (article.Metadata, error) {
	body := stripFence(raw)
	if body == "" {
		return article.Metadata{}, errors.New("model returned no metadata")
	}
	var md article.Metadata
	if err := json.Unmarshal([]byte(body), &md); err != nil {
		return article.Metadata{}, err
	}
	md.Slug = slugify(md.Slug)
	return md, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}

// DefaultDigest returns the first limit runes of the text as a summary.
func DefaultDigest(md string, limit int) string {
	compact := strings.Fields(md)
	joined := strings.Join(compact, " ")
	r := []rune(joined)
	if len(r) <= limit {
		return joined
	}
	return string(r[:limit])
}
