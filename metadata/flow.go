package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/generator"
	"prowriter/store"
)

var (
	ErrEmptyArticle    = errors.New("article has no content")
	ErrNotGenerated    = errors.New("metadata has not been generated")
	ErrUnknownField    = errors.New("unknown metadata field")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInProgress      = errors.New("metadata generation already running")
	// ErrGenerationFailed wraps provider failures other than missing credentials.
	ErrGenerationFailed = errors.New("metadata generation failed")
)

// Field names an editable list of the result.
type Field string

const (
	FieldCategories Field = "suggestedCategories"
	FieldTitles     Field = "titles"
	FieldKeywords   Field = "keywords"
	FieldTeasers    Field = "teasers"
	FieldLinks      Field = "linkingSuggestions"
	FieldSources    Field = "sources"
)

// Generator is the single-call metadata gateway.
type Generator interface {
	GenerateMetadata(ctx context.Context, req generator.MetadataRequest) (article.Metadata, error)
}

// Lister supplies known articles and categories, usually a store.CachedCatalog.
type Lister interface {
	Lists(ctx context.Context, force bool) (store.Lists, error)
}

// Backend is where the AI config is read and the result is stored.
type Backend interface {
	GetAIConfig(ctx context.Context) (article.AIConfig, error)
	SaveMetadata(ctx context.Context, topic string, md article.Metadata) error
}

type Option func(*Flow)

func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// Flow generates the publishing metadata of one article and holds the user's edits.
type Flow struct {
	gen     Generator
	lists   Lister
	backend Backend
	log     *zap.Logger

	mu         sync.Mutex
	result     article.Metadata
	generated  bool
	generating bool
}

func New(gen Generator, lists Lister, backend Backend, opts ...Option) (*Flow, error) {
	if gen == nil || lists == nil || backend == nil {
		return nil, errors.New("metadata flow needs a generator, a lister and a backend")
	}
	f := &Flow{gen: gen, lists: lists, backend: backend, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Restore loads previously saved metadata, e.g. from a stored draft.
func (f *Flow) Restore(md article.Metadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = md.Clone()
	f.generated = !md.IsEmpty()
}

// Generate replaces the result with a fresh one. On failure the current
// result, including edits, is left untouched.
func (f *Flow) Generate(ctx context.Context, topic, fullText string) (article.Metadata, error) {
	if strings.TrimSpace(fullText) == "" {
		return article.Metadata{}, ErrEmptyArticle
	}
	f.mu.Lock()
	if f.generating {
		f.mu.Unlock()
		return article.Metadata{}, ErrInProgress
	}
	f.generating = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.generating = false
		f.mu.Unlock()
	}()

	cfg, err := f.backend.GetAIConfig(ctx)
	if err != nil || !cfg.Valid() {
		f.log.Warn("ai config unavailable, using defaults", zap.Error(err))
		cfg = article.DefaultAIConfig()
	}
	lists, err := f.lists.Lists(ctx, false)
	if err != nil {
		f.log.Warn("catalog lists unavailable", zap.Error(err))
		lists = store.Lists{}
	}

	md, err := f.gen.GenerateMetadata(ctx, generator.MetadataRequest{
		Topic:      topic,
		Content:    fullText,
		Articles:   lists.Articles,
		Categories: lists.Categories,
		Config:     cfg,
	})
	if err != nil {
		f.log.Error("metadata generation failed", zap.String("topic", topic), zap.Error(err))
		if errors.Is(err, generator.ErrMissingCredentials) {
			return article.Metadata{}, fmt.Errorf("generate metadata: %w", err)
		}
		return article.Metadata{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	f.mu.Lock()
	f.result = md.Clone()
	f.generated = true
	f.mu.Unlock()
	f.log.Info("metadata generated",
		zap.String("topic", topic),
		zap.String("slug", md.Slug),
		zap.Int("titles", len(md.Titles)),
		zap.Int("links", len(md.LinkingSuggestions)))
	return md, nil
}

// Result returns a copy of the current result.
func (f *Flow) Result() article.Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result.Clone()
}

func (f *Flow) Generated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generated
}

func (f *Flow) SetSlug(slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result.Slug = strings.TrimSpace(slug)
}

// SetItem replaces one entry of a string list. Counts are not re-checked.
func (f *Flow) SetItem(field Field, index int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, err := f.list(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, field, index)
	}
	(*list)[index] = value
	return nil
}

// SetList replaces a whole string list, as when keywords are edited as one comma-separated line.
func (f *Flow) SetList(field Field, values []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, err := f.list(field)
	if err != nil {
		return err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	*list = out
	return nil
}

func (f *Flow) SetLink(index int, link article.LinkSuggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.result.LinkingSuggestions) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, FieldLinks, index)
	}
	f.result.LinkingSuggestions[index] = link
	return nil
}

// RemoveItem drops one entry from any list field.
func (f *Flow) RemoveItem(field Field, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field == FieldLinks {
		links := f.result.LinkingSuggestions
		if index < 0 || index >= len(links) {
			return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, field, index)
		}
		f.result.LinkingSuggestions = append(links[:index:index], links[index+1:]...)
		return nil
	}
	list, err := f.list(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, field, index)
	}
	*list = append((*list)[:index:index], (*list)[index+1:]...)
	return nil
}

func (f *Flow) list(field Field) (*[]string, error) {
	switch field {
	case FieldCategories:
		return &f.result.SuggestedCategories, nil
	case FieldTitles:
		return &f.result.Titles, nil
	case FieldKeywords:
		return &f.result.Keywords, nil
	case FieldTeasers:
		return &f.result.Teasers, nil
	case FieldSources:
		return &f.result.Sources, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Save stores the current result on the draft for topic.
func (f *Flow) Save(ctx context.Context, topic string) error {
	f.mu.Lock()
	if !f.generated {
		f.mu.Unlock()
		return ErrNotGenerated
	}
	md := f.result.Clone()
	f.mu.Unlock()
	if err := f.backend.SaveMetadata(ctx, topic, md); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	f.log.Info("metadata saved", zap.String("topic", topic))
	return nil
}
