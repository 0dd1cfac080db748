package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"prowriter/article"
)

// DefaultCacheTTL is how long fetched article and category lists stay fresh.
const DefaultCacheTTL = time.Minute

// Lists is a snapshot of the catalog used for metadata generation.
type Lists struct {
	Articles   []article.PublishedArticle
	Categories []article.Category
}

// CachedCatalog wraps a Catalog with a short-lived list cache. Mutations made
// through it invalidate the cache.
type CachedCatalog struct {
	Catalog
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	lists     *Lists
	fetchedAt time.Time
	// gen counts invalidations; a refresh is kept only if none happened meanwhile.
	gen uint64
}

func NewCachedCatalog(c Catalog, ttl time.Duration, now func() time.Time) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &CachedCatalog{Catalog: c, ttl: ttl, now: now}
}

// Lists returns cached lists, refreshing them when stale or when force is set.
func (c *CachedCatalog) Lists(ctx context.Context, force bool) (Lists, error) {
	c.mu.Lock()
	if !force && c.lists != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		l := copyLists(*c.lists)
		c.mu.Unlock()
		return l, nil
	}
	gen := c.gen
	c.mu.Unlock()

	var fresh Lists
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.Catalog.ListPublished(gctx)
		fresh.Articles = a
		return err
	})
	g.Go(func() error {
		cs, err := c.Catalog.ListCategories(gctx)
		fresh.Categories = cs
		return err
	})
	if err := g.Wait(); err != nil {
		return Lists{}, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lists = &fresh
		c.fetchedAt = c.now()
	}
	c.mu.Unlock()
	return copyLists(fresh), nil
}

// Invalidate drops the cached lists.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.lists = nil
	c.gen++
	c.mu.Unlock()
}

func (c *CachedCatalog) AddPublished(ctx context.Context, a article.PublishedArticle) (article.PublishedArticle, error) {
	defer c.Invalidate()
	return c.Catalog.AddPublished(ctx, a)
}

func (c *CachedCatalog) DeletePublished(ctx context.Context, id string) error {
	defer c.Invalidate()
	return c.Catalog.DeletePublished(ctx, id)
}

func (c *CachedCatalog) DeleteAllPublished(ctx context.Context) error {
	defer c.Invalidate()
	return c.Catalog.DeleteAllPublished(ctx)
}

func (c *CachedCatalog) AddCategory(ctx context.Context, name string) (article.Category, error) {
	defer c.Invalidate()
	return c.Catalog.AddCategory(ctx, name)
}

func (c *CachedCatalog) DeleteCategory(ctx context.Context, id string) error {
	defer c.Invalidate()
	return c.Catalog.DeleteCategory(ctx, id)
}

func (c *CachedCatalog) DeleteAllCategories(ctx context.Context) error {
	defer c.Invalidate()
	return c.Catalog.DeleteAllCategories(ctx)
}

func (c *CachedCatalog) ImportCategories(ctx context.Context, names []string) (int, error) {
	defer c.Invalidate()
	return c.Catalog.ImportCategories(ctx, names)
}

func copyLists(l Lists) Lists {
	return Lists{
		Articles:   append([]article.PublishedArticle(nil), l.Articles...),
		Categories: append([]article.Category(nil), l.Categories...),
	}
}
