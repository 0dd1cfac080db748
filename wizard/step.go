package wizard

// Step is a wizard state.
type Step string

const (
	StepSetup         Step = "setup"
	StepOutline       Step = "outline"
	StepKnowledgeBase Step = "knowledge_base"
	StepWriting       Step = "writing"
	StepPreview       Step = "preview"
	StepPublishReady  Step = "publish_ready"
)

// forward lists the Advance edges. Setup leaves only through Start.
var forward = map[Step]Step{
	StepOutline:       StepKnowledgeBase,
	StepKnowledgeBase: StepWriting,
	StepWriting:       StepPreview,
	StepPreview:       StepPublishReady,
}

var backward = map[Step]Step{
	StepKnowledgeBase: StepOutline,
	StepWriting:       StepKnowledgeBase,
	StepPreview:       StepWriting,
	StepPublishReady:  StepPreview,
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepSetup, StepOutline, StepKnowledgeBase, StepWriting, StepPreview, StepPublishReady:
		return true
	}
	return false
}
