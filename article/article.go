package article

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultOutlineSize is the number of sections an outline is normalized to.
const DefaultOutlineSize = 10

// Status of a stored draft.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReady     Status = "ready"
	StatusPublished Status = "published"
)

// Section is one titled subdivision of an article.
type Section struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Instruction  string `json:"instruction"`
	Content      string `json:"content"`
	IsGenerating bool   `json:"is_generating"`
	Order        int    `json:"order"`
}

// HasContent reports whether the section holds generated prose.
func (s Section) HasContent() bool {
	return s.Content != ""
}

// Draft is the persisted form of an article in progress.
type Draft struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Sections  []Section `json:"sections"`
	FullText  string    `json:"full_text"`
	Status    Status    `json:"status"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSectionID returns a fresh opaque section identifier.
func NewSectionID() string {
	return uuid.NewString()
}

// TopicKey is the dedup key for topics: trimmed and case-folded.
// Two articles whose topics differ only by case share one draft.
func TopicKey(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// ComputeStatus derives draft/ready from section content.
func ComputeStatus(sections []Section) Status {
	if len(sections) == 0 {
		return StatusDraft
	}
	for _, s := range sections {
		if !s.HasContent() {
			return StatusDraft
		}
	}
	return StatusReady
}

// FullText concatenates the sections that have content.
func FullText(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if !s.HasContent() {
			continue
		}
		parts = append(parts, "## "+s.Title+"\n\n"+s.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Preview renders the whole article, empty sections included, under a topic heading.
func Preview(topic string, sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, "## "+s.Title+"\n\n"+s.Content)
	}
	return strings.TrimSpace("# " + topic + "\n\n" + strings.Join(parts, "\n\n"))
}

// CompletedCount returns how many sections have content.
func CompletedCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		if s.HasContent() {
			n++
		}
	}
	return n
}

// NormalizeOutline trims blank titles, then truncates or pads to exactly size entries.
// Padding uses "Section N" where N is the 1-based position.
func NormalizeOutline(titles []string, size int) []string {
	if size <= 0 {
		size = DefaultOutlineSize
	}
	out := make([]string, 0, size)
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(out) == size {
			break
		}
		out = append(out, t)
	}
	for len(out) < size {
		out = append(out, fmt.Sprintf("Section %d", len(out)+1))
	}
	return out
}

// NewSections builds a fresh outline with empty instruction and content.
func NewSections(titles []string) []Section {
	sections := make([]Section, len(titles))
	for i, t := range titles {
		sections[i] = Section{
			ID:    NewSectionID(),
			Title: t,
			Order: i,
		}
	}
	return sections
}

// Reindex sets Order from sequence position.
func Reindex(sections []Section) {
	for i := range sections {
		sections[i].Order = i
	}
}

// CloneSections returns a copy that shares no backing array with the input.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}
