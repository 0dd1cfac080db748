package article

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MethodCategory groups expansion methods.
type MethodCategory string

const (
	CategoryAnalysis  MethodCategory = "Analysis"
	CategoryNarrative MethodCategory = "Narrative"
	CategoryStrategic MethodCategory = "Strategic"
	CategoryData      MethodCategory = "Data"
	CategoryContext   MethodCategory = "Context"
)

// Valid reports whether c is one of the known categories.
func (c MethodCategory) Valid() bool {
	switch c {
	case CategoryAnalysis, CategoryNarrative, CategoryStrategic, CategoryData, CategoryContext:
		return true
	}
	return false
}

// ExpansionMethod is a reusable instruction template for a section.
type ExpansionMethod struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    MethodCategory `json:"category"`
	Description string         `json:"description"`
	Instruction string         `json:"instruction"`
}

// Apply renders the instruction text a section receives when the method is chosen.
func (m ExpansionMethod) Apply() string {
	return "[Strategy: " + m.Name + "]\n" + m.Instruction
}

var builtinMethods = []ExpansionMethod{
	{
		ID:          "swot",
		Name:        "SWOT analysis",
		Category:    CategoryAnalysis,
		Description: "Strengths, weaknesses, opportunities and threats.",
		Instruction: "Structure the section as a SWOT analysis with one short subsection per quadrant and a closing takeaway.",
	},
	{
		ID:          "root-cause",
		Name:        "Root cause",
		Category:    CategoryAnalysis,
		Description: "Dig beneath symptoms to causes.",
		Instruction: "Identify the visible problem, then trace it through at least three layers of causes before proposing remedies.",
	},
	{
		ID:          "case-story",
		Name:        "Case story",
		Category:    CategoryNarrative,
		Description: "Open with a concrete real-world case.",
		Instruction: "Open with a concrete, named case or scene, then generalise from it to the section's argument.",
	},
	{
		ID:          "before-after",
		Name:        "Before and after",
		Category:    CategoryNarrative,
		Description: "Contrast the situation before and after a change.",
		Instruction: "Describe the situation before the change, the turning point, and the situation after, with measurable differences.",
	},
	{
		ID:          "roadmap",
		Name:        "Action roadmap",
		Category:    CategoryStrategic,
		Description: "Turn the argument into phased recommendations.",
		Instruction: "End with a phased roadmap (short, medium, long term) of concrete recommendations and the actors responsible.",
	},
	{
		ID:          "scenarios",
		Name:        "Scenarios",
		Category:    CategoryStrategic,
		Description: "Optimistic, baseline and pessimistic outlooks.",
		Instruction: "Present three scenarios (optimistic, baseline, pessimistic) with their triggers and indicators to watch.",
	},
	{
		ID:          "by-numbers",
		Name:        "By the numbers",
		Category:    CategoryData,
		Description: "Lead with figures and indicators.",
		Instruction: "Lead with the key figures and indicators, cite their likely sources, and interpret what the numbers mean.",
	},
	{
		ID:          "comparison",
		Name:        "Regional comparison",
		Category:    CategoryData,
		Description: "Benchmark against comparable countries or markets.",
		Instruction: "Benchmark the subject against two or three comparable countries or markets in a short comparison table.",
	},
	{
		ID:          "background",
		Name:        "Historical background",
		Category:    CategoryContext,
		Description: "Place the topic in its history.",
		Instruction: "Give the historical background needed to understand the section, then connect it to the present.",
	},
}

// BuiltinMethods returns a copy of the static method list.
func BuiltinMethods() []ExpansionMethod {
	return append([]ExpansionMethod(nil), builtinMethods...)
}

var ErrInvalidMethod = errors.New("expansion method requires name, instruction and a known category")

// Catalog holds built-in methods plus those created during this process.
type Catalog struct {
	mu     sync.RWMutex
	custom []ExpansionMethod
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// Add validates and prepends a user-created method.
func (c *Catalog) Add(m ExpansionMethod) (ExpansionMethod, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Instruction = strings.TrimSpace(m.Instruction)
	if m.Category == "" {
		m.Category = CategoryAnalysis
	}
	if m.Name == "" || m.Instruction == "" || !m.Category.Valid() {
		return ExpansionMethod{}, ErrInvalidMethod
	}
	m.ID = "custom-" + uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = append([]ExpansionMethod{m}, c.custom...)
	return m, nil
}

// All lists built-ins followed by custom methods, newest custom first.
func (c *Catalog) All() []ExpansionMethod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := BuiltinMethods()
	return append(out, c.custom...)
}

// Get finds a method by id.
func (c *Catalog) Get(id string) (ExpansionMethod, bool) {
	for _, m := range c.All() {
		if m.ID == id {
			return m, true
		}
	}
	return ExpansionMethod{}, false
}
