package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/store"
)

// Generator produces outlines and section prose.
type Generator interface {
	GenerateOutline(ctx context.Context, topic string) ([]string, error)
	GenerateSection(ctx context.Context, topic, title, instruction string) (string, error)
}

// Drafts is the slice of the draft store the wizard needs.
type Drafts interface {
	FindByTopic(ctx context.Context, topic string) (article.Draft, error)
	Upsert(ctx context.Context, d article.Draft) (article.Draft, error)
}

const defaultSaveTimeout = 10 * time.Second

// StartResult tells the caller whether the outline came from storage.
type StartResult struct {
	Cached bool `json:"cached"`
	Step   Step `json:"step"`
}

// Snapshot is a consistent copy of the wizard state.
type Snapshot struct {
	DraftID             string            `json:"draft_id,omitempty"`
	Topic               string            `json:"topic"`
	Step                Step              `json:"step"`
	Sections            []article.Section `json:"sections"`
	Status              article.Status    `json:"status"`
	Completed           int               `json:"completed"`
	IsGeneratingOutline bool              `json:"is_generating_outline"`
	SavePending         bool              `json:"save_pending"`
}

// Option customizes a Wizard.
type Option func(*Wizard)

func WithLogger(l *zap.Logger) Option {
	return func(w *Wizard) {
		if l != nil {
			w.log = l
		}
	}
}

// WithOutlineSize sets how many sections a fresh outline is normalized to.
func WithOutlineSize(n int) Option {
	return func(w *Wizard) {
		if n > 0 {
			w.outlineSize = n
		}
	}
}

// WithAutosave sets the clock and quiet window used for auto-save.
func WithAutosave(clock Clock, delay time.Duration) Option {
	return func(w *Wizard) {
		w.clock = clock
		w.delay = delay
	}
}

// Wizard drives one article from topic to publish-ready text.
// All methods are safe for concurrent use; model calls run outside the lock.
type Wizard struct {
	gen         Generator
	drafts      Drafts
	log         *zap.Logger
	outlineSize int
	clock       Clock
	delay       time.Duration
	saver       *Debouncer

	saveMu sync.Mutex

	mu                sync.Mutex
	step              Step
	topic             string
	draftID           string
	sections          []article.Section
	generatingOutline bool
	// epoch changes on Start and Reset so late results from a previous
	// article are dropped.
	epoch uint64
}

func New(gen Generator, drafts Drafts, opts ...Option) (*Wizard, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if drafts == nil {
		return nil, errors.New("draft store is required")
	}
	w := &Wizard{
		gen:         gen,
		drafts:      drafts,
		log:         zap.NewNop(),
		outlineSize: article.DefaultOutlineSize,
		delay:       DefaultAutosaveDelay,
		step:        StepSetup,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.saver = NewDebouncer(w.clock, w.delay)
	return w, nil
}

// Start loads the stored outline for topic or generates a new one.
// A stored draft with sections never triggers outline generation.
func (w *Wizard) Start(ctx context.Context, topic string) (StartResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return StartResult{}, ErrEmptyTopic
	}

	w.mu.Lock()
	if w.generatingOutline {
		w.mu.Unlock()
		return StartResult{}, ErrOutlineInProgress
	}
	if w.step != StepSetup {
		w.mu.Unlock()
		return StartResult{}, fmt.Errorf("%w: start from %s", ErrInvalidTransition, w.step)
	}
	w.generatingOutline = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.generatingOutline = false
		w.mu.Unlock()
	}()

	existing, err := w.drafts.FindByTopic(ctx, topic)
	switch {
	case err == nil && len(existing.Sections) > 0:
		sections := article.CloneSections(existing.Sections)
		for i := range sections {
			sections[i].IsGenerating = false
		}
		article.Reindex(sections)
		step := StepOutline
		switch done := article.CompletedCount(sections); {
		case done == len(sections):
			step = StepPreview
		case done > 0:
			step = StepWriting
		}
		w.adopt(existing.ID, existing.Topic, sections, step)
		w.log.Info("draft restored",
			zap.String("topic", existing.Topic),
			zap.Int("sections", len(sections)),
			zap.String("step", string(step)))
		return StartResult{Cached: true, Step: step}, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		// a broken lookup falls back to generating; the next save will overwrite
		w.log.Warn("draft lookup failed", zap.String("topic", topic), zap.Error(err))
	}

	titles, err := w.gen.GenerateOutline(ctx, topic)
	if err != nil {
		w.log.Error("outline generation failed", zap.String("topic", topic), zap.Error(err))
		return StartResult{}, classify(err)
	}
	sections := article.NewSections(article.NormalizeOutline(titles, w.outlineSize))

	var draftID string
	saved, err := w.drafts.Upsert(ctx, article.Draft{
		Topic:    topic,
		Sections: article.CloneSections(sections),
		FullText: "",
		Status:   article.StatusDraft,
	})
	if err != nil {
		w.log.Warn("initial draft save failed", zap.String("topic", topic), zap.Error(err))
	} else {
		draftID = saved.ID
	}

	w.adopt(draftID, topic, sections, StepOutline)
	w.log.Info("outline generated",
		zap.String("topic", topic),
		zap.Int("returned", len(titles)),
		zap.Int("sections", len(sections)))
	return StartResult{Step: StepOutline}, nil
}

func (w *Wizard) adopt(id, topic string, sections []article.Section, step Step) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	w.draftID = id
	w.topic = topic
	w.sections = sections
	w.step = step
}

// UpdateSectionTitle edits a title in place; unknown ids are ignored.
func (w *Wizard) UpdateSectionTitle(id, title string) bool {
	return w.editSection(id, func(s *article.Section) { s.Title = title })
}

// UpdateSectionInstruction edits an instruction in place; unknown ids are ignored.
func (w *Wizard) UpdateSectionInstruction(id, instruction string) bool {
	return w.editSection(id, func(s *article.Section) { s.Instruction = instruction })
}

// UpdateSectionContent replaces the prose of a section, as when the user edits it by hand.
func (w *Wizard) UpdateSectionContent(id, content string) bool {
	return w.editSection(id, func(s *article.Section) { s.Content = content })
}

// ApplyMethod writes the method's tagged instruction into the section.
func (w *Wizard) ApplyMethod(id string, m article.ExpansionMethod) bool {
	return w.UpdateSectionInstruction(id, m.Apply())
}

func (w *Wizard) editSection(id string, fn func(*article.Section)) bool {
	w.mu.Lock()
	i := w.indexOf(id)
	if i < 0 {
		w.mu.Unlock()
		return false
	}
	fn(&w.sections[i])
	w.mu.Unlock()
	w.scheduleSave()
	return true
}

// DeleteSection removes a section. The last remaining section cannot be removed.
func (w *Wizard) DeleteSection(id string) error {
	w.mu.Lock()
	i := w.indexOf(id)
	if i < 0 {
		w.mu.Unlock()
		return nil
	}
	if len(w.sections) == 1 {
		w.mu.Unlock()
		return ErrLastSection
	}
	w.sections = append(w.sections[:i:i], w.sections[i+1:]...)
	article.Reindex(w.sections)
	w.mu.Unlock()
	w.scheduleSave()
	return nil
}

// GenerateOneSection writes prose for one section. If the section is deleted
// while the request is in flight, the result is discarded.
func (w *Wizard) GenerateOneSection(ctx context.Context, id string) error {
	w.mu.Lock()
	i := w.indexOf(id)
	if i < 0 {
		w.mu.Unlock()
		return ErrSectionNotFound
	}
	sec := w.sections[i]
	if sec.IsGenerating {
		w.mu.Unlock()
		return ErrSectionBusy
	}
	if strings.TrimSpace(sec.Title) == "" {
		w.mu.Unlock()
		return ErrEmptyTitle
	}
	w.sections[i].IsGenerating = true
	topic, epoch := w.topic, w.epoch
	w.mu.Unlock()

	content, err := w.gen.GenerateSection(ctx, topic, sec.Title, sec.Instruction)

	w.mu.Lock()
	i = w.indexOf(id)
	if i < 0 || w.epoch != epoch {
		w.mu.Unlock()
		w.log.Debug("section gone before generation finished", zap.String("section", id))
		if err != nil {
			return classify(err)
		}
		return nil
	}
	w.sections[i].IsGenerating = false
	if err != nil {
		w.mu.Unlock()
		w.log.Error("section generation failed",
			zap.String("section", id), zap.String("title", sec.Title), zap.Error(err))
		return classify(err)
	}
	w.sections[i].Content = content
	w.mu.Unlock()

	w.scheduleSave()
	w.log.Info("section generated",
		zap.String("section", id),
		zap.String("title", sec.Title),
		zap.Int("words", len(strings.Fields(content))))
	return nil
}

// GenerateAllRemaining fills every empty section, one at a time in order.
// Failures are collected and the loop continues, except for configuration
// errors and cancellation, which stop it.
func (w *Wizard) GenerateAllRemaining(ctx context.Context) error {
	w.mu.Lock()
	var pending []string
	for _, s := range w.sections {
		if !s.HasContent() && !s.IsGenerating {
			pending = append(pending, s.ID)
		}
	}
	w.mu.Unlock()

	var errs []error
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !w.stillEmpty(id) {
			continue
		}
		err := w.GenerateOneSection(ctx, id)
		switch {
		case err == nil, errors.Is(err, ErrSectionNotFound), errors.Is(err, ErrSectionBusy):
		case errors.Is(err, ErrConfiguration):
			return errors.Join(append(errs, err)...)
		default:
			errs = append(errs, fmt.Errorf("section %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Wizard) stillEmpty(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(id)
	return i >= 0 && !w.sections[i].HasContent()
}

// Advance moves one step forward. Writing needs at least one written section
// before the preview opens.
func (w *Wizard) Advance() (Step, error) {
	w.mu.Lock()
	next, ok := forward[w.step]
	if !ok {
		cur := w.step
		w.mu.Unlock()
		return cur, fmt.Errorf("%w: no step after %s", ErrInvalidTransition, cur)
	}
	if w.step == StepWriting && article.CompletedCount(w.sections) == 0 {
		w.mu.Unlock()
		return StepWriting, ErrNothingToPreview
	}
	w.step = next
	w.mu.Unlock()
	return next, nil
}

// Back moves one step backward. Setup is reachable only through Reset.
func (w *Wizard) Back() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok := backward[w.step]
	if !ok {
		return w.step, fmt.Errorf("%w: no step before %s", ErrInvalidTransition, w.step)
	}
	w.step = prev
	return prev, nil
}

// Reset saves pending edits, then returns to Setup with no article loaded.
func (w *Wizard) Reset() {
	w.saver.Flush()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	w.step = StepSetup
	w.topic = ""
	w.draftID = ""
	w.sections = nil
}

// Flush runs a pending auto-save immediately and waits for one already running.
func (w *Wizard) Flush() {
	w.saver.Flush()
}

// Close flushes pending edits. The wizard stays usable.
func (w *Wizard) Close() error {
	w.saver.Flush()
	return nil
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Topic() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.topic
}

func (w *Wizard) IsGeneratingOutline() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generatingOutline
}

// Sections returns a copy of the current outline.
func (w *Wizard) Sections() []article.Section {
	w.mu.Lock()
	defer w.mu.Unlock()
	return article.CloneSections(w.sections)
}

// FullText is the concatenation of sections that have content.
func (w *Wizard) FullText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return article.FullText(w.sections)
}

// Preview renders the whole article under its topic heading.
func (w *Wizard) Preview() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return article.Preview(w.topic, w.sections)
}

func (w *Wizard) Snapshot() Snapshot {
	pending := w.saver.Pending()
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		DraftID:             w.draftID,
		Topic:               w.topic,
		Step:                w.step,
		Sections:            article.CloneSections(w.sections),
		Status:              article.ComputeStatus(w.sections),
		Completed:           article.CompletedCount(w.sections),
		IsGeneratingOutline: w.generatingOutline,
		SavePending:         pending,
	}
}

func (w *Wizard) indexOf(id string) int {
	for i := range w.sections {
		if w.sections[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Wizard) scheduleSave() {
	w.saver.Schedule(w.save)
}

// save persists the state as it is when the save runs, not when it was scheduled.
func (w *Wizard) save() {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	if w.topic == "" || len(w.sections) == 0 {
		w.mu.Unlock()
		return
	}
	sections := article.CloneSections(w.sections)
	topic := w.topic
	w.mu.Unlock()

	for i := range sections {
		sections[i].IsGenerating = false
	}
	d := article.Draft{
		Topic:    topic,
		Sections: sections,
		FullText: article.FullText(sections),
		Status:   article.ComputeStatus(sections),
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSaveTimeout)
	defer cancel()
	saved, err := w.drafts.Upsert(ctx, d)
	if err != nil {
		w.log.Warn("auto-save failed", zap.String("topic", topic), zap.Error(err))
		return
	}

	w.mu.Lock()
	if article.TopicKey(w.topic) == article.TopicKey(topic) {
		w.draftID = saved.ID
	}
	w.mu.Unlock()
	w.log.Debug("draft auto-saved",
		zap.String("topic", topic),
		zap.String("status", string(d.Status)),
		zap.Int("sections", len(sections)))
}
