package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"prowriter/article"
)

// MemoryStore keeps everything in process memory. It backs the service when no
// database path is configured.
type MemoryStore struct {
	opts options

	mu         sync.Mutex
	drafts     map[string]article.Draft // topic key -> draft
	published  []article.PublishedArticle
	categories []article.Category
	aiConfig   *article.AIConfig
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{opts: o, drafts: make(map[string]article.Draft)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) FindByTopic(_ context.Context, topic string) (article.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[m.opts.topicKey(topic)]
	if !ok {
		return article.Draft{}, ErrNotFound
	}
	return cloneDraft(d), nil
}

func (m *MemoryStore) Upsert(_ context.Context, d article.Draft) (article.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.opts.topicKey(d.Topic)
	now := m.opts.now().UTC()
	if prev, ok := m.drafts[key]; ok {
		d.ID = prev.ID
		d.Topic = prev.Topic
		d.CreatedAt = prev.CreatedAt
		if d.Metadata == nil {
			d.Metadata = prev.Metadata
		}
	} else {
		d.ID = uuid.NewString()
		d.Topic = strings.TrimSpace(d.Topic)
		d.CreatedAt = now
	}
	if d.Status == "" {
		d.Status = article.ComputeStatus(d.Sections)
	}
	d.UpdatedAt = now
	d = cloneDraft(d)
	m.drafts[key] = d
	return cloneDraft(d), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, d := range m.drafts {
		if d.ID == id {
			delete(m.drafts, k)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) List(_ context.Context) ([]article.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]article.Draft, 0, len(m.drafts))
	for _, d := range m.drafts {
		out = append(out, cloneDraft(d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) SetStatus(_ context.Context, topic string, status article.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.opts.topicKey(topic)
	d, ok := m.drafts[key]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = m.opts.now().UTC()
	m.drafts[key] = d
	return nil
}

func (m *MemoryStore) SaveMetadata(_ context.Context, topic string, md article.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.opts.topicKey(topic)
	d, ok := m.drafts[key]
	if !ok {
		return ErrNotFound
	}
	c := md.Clone()
	d.Metadata = &c
	d.UpdatedAt = m.opts.now().UTC()
	m.drafts[key] = d
	return nil
}

func (m *MemoryStore) ListPublished(_ context.Context) ([]article.PublishedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]article.PublishedArticle(nil), m.published...), nil
}

func (m *MemoryStore) AddPublished(_ context.Context, a article.PublishedArticle) (article.PublishedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = m.opts.now().UTC()
	m.published = append([]article.PublishedArticle{a}, m.published...)
	return a, nil
}

func (m *MemoryStore) DeletePublished(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.published {
		if a.ID == id {
			m.published = append(m.published[:i], m.published[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteAllPublished(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
	return nil
}

func (m *MemoryStore) DeleteAllCategories(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = nil
	return nil
}

func (m *MemoryStore) ListCategories(_ context.Context) ([]article.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]article.Category(nil), m.categories...), nil
}

func (m *MemoryStore) AddCategory(_ context.Context, name string) (article.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := article.Category{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return article.Category{}, ErrConflict
		}
	}
	m.categories = append(m.categories, c)
	sortCategories(m.categories)
	return c, nil
}

func (m *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.categories {
		if c.ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ImportCategories(_ context.Context, names []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(m.categories))
	for _, c := range m.categories {
		seen[c.Name] = true
	}
	added := 0
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		m.categories = append(m.categories, article.Category{ID: uuid.NewString(), Name: n})
		added++
	}
	sortCategories(m.categories)
	return added, nil
}

func (m *MemoryStore) GetAIConfig(_ context.Context) (article.AIConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aiConfig == nil {
		return article.DefaultAIConfig(), nil
	}
	c := *m.aiConfig
	c.TeaserPrompts = append([]string(nil), c.TeaserPrompts...)
	return c, nil
}

func (m *MemoryStore) SaveAIConfig(_ context.Context, cfg article.AIConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.TeaserPrompts = append([]string(nil), cfg.TeaserPrompts...)
	m.aiConfig = &cfg
	return nil
}

func cloneDraft(d article.Draft) article.Draft {
	d.Sections = article.CloneSections(d.Sections)
	if d.Metadata != nil {
		md := d.Metadata.Clone()
		d.Metadata = &md
	}
	return d
}

func sortCategories(cs []article.Category) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}
