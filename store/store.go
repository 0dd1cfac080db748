package store

import (
	"context"
	"errors"
	"time"

	"prowriter/article"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// DraftStore persists article drafts keyed by topic.
type DraftStore interface {
	// FindByTopic matches topics case-insensitively; ErrNotFound when absent.
	FindByTopic(ctx context.Context, topic string) (article.Draft, error)
	// Upsert inserts the draft or replaces the one with the same topic key,
	// keeping the stored id, topic spelling and creation time.
	Upsert(ctx context.Context, d article.Draft) (article.Draft, error)
	Delete(ctx context.Context, id string) error
	// List returns drafts, most recently updated first.
	List(ctx context.Context) ([]article.Draft, error)
	SetStatus(ctx context.Context, topic string, status article.Status) error
	SaveMetadata(ctx context.Context, topic string, md article.Metadata) error
}

// Catalog holds the site's published articles and categories.
type Catalog interface {
	ListPublished(ctx context.Context) ([]article.PublishedArticle, error)
	AddPublished(ctx context.Context, a article.PublishedArticle) (article.PublishedArticle, error)
	DeletePublished(ctx context.Context, id string) error
	DeleteAllPublished(ctx context.Context) error
	ListCategories(ctx context.Context) ([]article.Category, error)
	AddCategory(ctx context.Context, name string) (article.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	DeleteAllCategories(ctx context.Context) error
	// ImportCategories adds the names not already present and returns how many were added.
	ImportCategories(ctx context.Context, names []string) (int, error)
}

// Settings stores application settings.
type Settings interface {
	// GetAIConfig returns article.DefaultAIConfig when nothing is stored.
	GetAIConfig(ctx context.Context) (article.AIConfig, error)
	SaveAIConfig(ctx context.Context, cfg article.AIConfig) error
}

// Store is the full persistence surface.
type Store interface {
	DraftStore
	Catalog
	Settings
	Close() error
}

// Option customizes a store.
type Option func(*options)

type options struct {
	now      func() time.Time
	topicKey func(string) string
}

func defaultOptions() options {
	return options{now: time.Now, topicKey: article.TopicKey}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTopicKey overrides how topics are folded into the dedup key.
func WithTopicKey(fn func(string) string) Option {
	return func(o *options) { o.topicKey = fn }
}

// Open returns a SQLite store for path, or a MemoryStore when path is empty.
func Open(path string, opts ...Option) (Store, error) {
	if path == "" {
		return NewMemoryStore(opts...), nil
	}
	return NewSQLiteStore(path, opts...)
}
