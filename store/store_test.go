package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prowriter/article"
)

type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *tickClock {
	return &tickClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore(WithClock(newClock().Now)))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "prowriter.db"), WithClock(newClock().Now))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func sampleSections() []article.Section {
	return []article.Section{
		{ID: "a", Title: "Intro", Instruction: "[Strategy: Case story]\nopen with a case", Content: "Body A", Order: 0},
		{ID: "b", Title: "Outlook", Order: 1},
	}
}

func TestDraftRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		saved, err := s.Upsert(ctx, article.Draft{
			Topic:    "Green Hydrogen",
			Sections: sampleSections(),
			FullText: article.FullText(sampleSections()),
			Status:   article.StatusDraft,
		})
		require.NoError(t, err)
		require.NotEmpty(t, saved.ID)

		got, err := s.FindByTopic(ctx, "  green HYDROGEN")
		require.NoError(t, err)
		if diff := cmp.Diff(sampleSections(), got.Sections); diff != "" {
			t.Fatalf("sections mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, "Green Hydrogen", got.Topic)
		assert.Equal(t, article.StatusDraft, got.Status)
	})
}

func TestUpsertKeepsIdentityPerTopic(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first, err := s.Upsert(ctx, article.Draft{Topic: "Ports", Sections: sampleSections()})
		require.NoError(t, err)

		sections := sampleSections()
		sections[1].Content = "Body B"
		second, err := s.Upsert(ctx, article.Draft{Topic: "PORTS", Sections: sections, Status: article.StatusReady})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Ports", second.Topic)
		assert.Equal(t, article.StatusReady, second.Status)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestDeleteAndList(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a, err := s.Upsert(ctx, article.Draft{Topic: "A", Sections: sampleSections()})
		require.NoError(t, err)
		_, err = s.Upsert(ctx, article.Draft{Topic: "B", Sections: sampleSections()})
		require.NoError(t, err)

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "B", all[0].Topic)

		require.NoError(t, s.Delete(ctx, a.ID))
		require.ErrorIs(t, s.Delete(ctx, a.ID), ErrNotFound)
		_, err = s.FindByTopic(ctx, "A")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStatusAndMetadata(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.ErrorIs(t, s.SetStatus(ctx, "missing", article.StatusPublished), ErrNotFound)

		_, err := s.Upsert(ctx, article.Draft{Topic: "Trade", Sections: sampleSections()})
		require.NoError(t, err)

		md := article.Metadata{
			Slug:               "trade",
			Titles:             []string{"t1", "t2"},
			LinkingSuggestions: []article.LinkSuggestion{{Title: "x", URL: "https://example.com/x"}},
		}
		require.NoError(t, s.SaveMetadata(ctx, "trade", md))
		require.NoError(t, s.SetStatus(ctx, "Trade", article.StatusPublished))

		// a later upsert without metadata keeps the stored metadata
		_, err = s.Upsert(ctx, article.Draft{Topic: "Trade", Sections: sampleSections(), Status: article.StatusDraft})
		require.NoError(t, err)

		got, err := s.FindByTopic(ctx, "Trade")
		require.NoError(t, err)
		require.NotNil(t, got.Metadata)
		assert.Equal(t, "trade", got.Metadata.Slug)
		assert.Equal(t, md.LinkingSuggestions, got.Metadata.LinkingSuggestions)
	})
}

func TestCatalogAndSettings(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first, err := s.AddPublished(ctx, article.PublishedArticle{Title: "Old", URL: "https://example.com/old"})
		require.NoError(t, err)
		_, err = s.AddPublished(ctx, article.PublishedArticle{Title: "New", URL: "https://example.com/new"})
		require.NoError(t, err)

		pubs, err := s.ListPublished(ctx)
		require.NoError(t, err)
		require.Len(t, pubs, 2)
		assert.Equal(t, "New", pubs[0].Title)

		require.NoError(t, s.DeletePublished(ctx, first.ID))
		require.NoError(t, s.DeleteAllPublished(ctx))
		pubs, err = s.ListPublished(ctx)
		require.NoError(t, err)
		assert.Empty(t, pubs)

		_, err = s.AddCategory(ctx, "Markets")
		require.NoError(t, err)
		_, err = s.AddCategory(ctx, "Markets")
		require.ErrorIs(t, err, ErrConflict)
		n, err := s.ImportCategories(ctx, []string{"Energy", "Markets", " ", "Agriculture", "Energy"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		cats, err := s.ListCategories(ctx)
		require.NoError(t, err)
		var names []string
		for _, c := range cats {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"Agriculture", "Energy", "Markets"}, names)
		require.NoError(t, s.DeleteCategory(ctx, cats[0].ID))
		require.NoError(t, s.DeleteAllCategories(ctx))
		cats, err = s.ListCategories(ctx)
		require.NoError(t, err)
		assert.Empty(t, cats)

		cfg, err := s.GetAIConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, article.DefaultAIConfig(), cfg)

		cfg.TitlesCount = 3
		cfg.TeaserPrompts = []string{"one"}
		require.NoError(t, s.SaveAIConfig(ctx, cfg))
		got, err := s.GetAIConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)
	})
}

type countingCatalog struct {
	Catalog
	mu    sync.Mutex
	calls int
}

func (c *countingCatalog) ListPublished(ctx context.Context) ([]article.PublishedArticle, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Catalog.ListPublished(ctx)
}

func TestCachedCatalog(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	inner := &countingCatalog{Catalog: NewMemoryStore()}
	c := NewCachedCatalog(inner, time.Minute, clock)

	_, err := c.AddPublished(ctx, article.PublishedArticle{Title: "A", URL: "u"})
	require.NoError(t, err)

	l, err := c.Lists(ctx, false)
	require.NoError(t, err)
	require.Len(t, l.Articles, 1)

	_, err = c.Lists(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "fresh cache must not refetch")

	now = now.Add(59 * time.Second)
	_, err = c.Lists(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	now = now.Add(2 * time.Second)
	_, err = c.Lists(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "stale cache refetches")

	_, err = c.Lists(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls, "forced refresh refetches")

	_, err = c.AddCategory(ctx, "Energy")
	require.NoError(t, err)
	l, err = c.Lists(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls, "mutation invalidates")
	assert.Len(t, l.Categories, 1)
}

// gatedCatalog holds ListPublished until gate is closed.
type gatedCatalog struct {
	Catalog
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedCatalog) ListPublished(ctx context.Context) ([]article.PublishedArticle, error) {
	a, err := g.Catalog.ListPublished(ctx)
	if g.gate != nil {
		g.entered <- struct{}{}
		<-g.gate
	}
	return a, err
}

func TestCachedCatalogDropsRefreshOverlappingMutation(t *testing.T) {
	ctx := context.Background()
	inner := &gatedCatalog{Catalog: NewMemoryStore(), entered: make(chan struct{}, 1), gate: make(chan struct{})}
	c := NewCachedCatalog(inner, time.Hour, nil)

	done := make(chan Lists)
	go func() {
		l, err := c.Lists(ctx, false)
		assert.NoError(t, err)
		done <- l
	}()
	<-inner.entered

	_, err := c.AddPublished(ctx, article.PublishedArticle{Title: "Fresh", URL: "https://example.com/fresh"})
	require.NoError(t, err)
	close(inner.gate)
	assert.Empty(t, (<-done).Articles, "the overlapping refresh read the old list")

	inner.gate = nil
	l, err := c.Lists(ctx, false)
	require.NoError(t, err)
	require.Len(t, l.Articles, 1)
	assert.Equal(t, "Fresh", l.Articles[0].Title)
}
