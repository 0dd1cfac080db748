package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"prowriter/article"
)

// timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens (or creates) a SQLite database and applies the schema.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &SQLiteStore{db: db, opts: o}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) now() string {
	return s.opts.now().UTC().Format(timeLayout)
}

// ---------- Drafts ----------

const draftColumns = `id, topic, sections, full_text, status, metadata, created_at, updated_at`

func (s *SQLiteStore) FindByTopic(ctx context.Context, topic string) (article.Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE topic_key = ?`, s.opts.topicKey(topic))
	return scanDraft(row)
}

func (s *SQLiteStore) Upsert(ctx context.Context, d article.Draft) (article.Draft, error) {
	sections, err := json.Marshal(nonNilSections(d.Sections))
	if err != nil {
		return article.Draft{}, fmt.Errorf("encode sections: %w", err)
	}
	var md sql.NullString
	if d.Metadata != nil {
		b, err := json.Marshal(d.Metadata)
		if err != nil {
			return article.Draft{}, fmt.Errorf("encode metadata: %w", err)
		}
		md = sql.NullString{String: string(b), Valid: true}
	}
	status := d.Status
	if status == "" {
		status = article.ComputeStatus(d.Sections)
	}
	now := s.now()
	key := s.opts.topicKey(d.Topic)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, topic, topic_key, sections, full_text, status, metadata, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(topic_key) DO UPDATE SET
			sections = excluded.sections,
			full_text = excluded.full_text,
			status = excluded.status,
			metadata = COALESCE(excluded.metadata, drafts.metadata),
			updated_at = excluded.updated_at`,
		uuid.NewString(), strings.TrimSpace(d.Topic), key, string(sections), d.FullText, string(status), md, now, now,
	)
	if err != nil {
		return article.Draft{}, fmt.Errorf("upsert draft: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE topic_key = ?`, key)
	return scanDraft(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) List(ctx context.Context) ([]article.Draft, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+draftColumns+` FROM drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []article.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetStatus(ctx context.Context, topic string, status article.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET status = ?, updated_at = ? WHERE topic_key = ?`,
		string(status), s.now(), s.opts.topicKey(topic))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) SaveMetadata(ctx context.Context, topic string, md article.Metadata) error {
	b, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET metadata = ?, updated_at = ? WHERE topic_key = ?`,
		string(b), s.now(), s.opts.topicKey(topic))
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return expectAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (article.Draft, error) {
	var (
		d                    article.Draft
		sections, status     string
		md                   sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&d.ID, &d.Topic, &sections, &d.FullText, &status, &md, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return article.Draft{}, ErrNotFound
		}
		return article.Draft{}, fmt.Errorf("scan draft: %w", err)
	}
	if err := json.Unmarshal([]byte(sections), &d.Sections); err != nil {
		return article.Draft{}, fmt.Errorf("decode sections: %w", err)
	}
	if md.Valid {
		var m article.Metadata
		if err := json.Unmarshal([]byte(md.String), &m); err != nil {
			return article.Draft{}, fmt.Errorf("decode metadata: %w", err)
		}
		d.Metadata = &m
	}
	d.Status = article.Status(status)
	d.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	d.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return d, nil
}

// ---------- Published articles ----------

func (s *SQLiteStore) ListPublished(ctx context.Context) ([]article.PublishedArticle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, url, created_at FROM published_articles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	defer rows.Close()

	var out []article.PublishedArticle
	for rows.Next() {
		var a article.PublishedArticle
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddPublished(ctx context.Context, a article.PublishedArticle) (article.PublishedArticle, error) {
	a.ID = uuid.NewString()
	now := s.now()
	a.CreatedAt, _ = time.Parse(timeLayout, now)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO published_articles (id, title, url, created_at) VALUES (?,?,?,?)`,
		a.ID, a.Title, a.URL, now)
	if err != nil {
		return article.PublishedArticle{}, fmt.Errorf("insert published: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) DeletePublished(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM published_articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete published: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) DeleteAllPublished(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM published_articles`)
	return err
}

// ---------- Categories ----------

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]article.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []article.Category
	for rows.Next() {
		var c article.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddCategory(ctx context.Context, name string) (article.Category, error) {
	c := article.Category{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (id, name) VALUES (?,?)`, c.ID, c.Name)
	if err != nil {
		return article.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return article.Category{}, ErrConflict
	}
	return c, nil
}

func (s *SQLiteStore) DeleteAllCategories(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) ImportCategories(ctx context.Context, names []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories (id, name) VALUES (?,?)`, uuid.NewString(), n)
		if err != nil {
			return 0, fmt.Errorf("import category: %w", err)
		}
		if c, _ := res.RowsAffected(); c > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// ---------- Settings ----------

const aiConfigKey = "ai_config"

func (s *SQLiteStore) GetAIConfig(ctx context.Context) (article.AIConfig, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, aiConfigKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return article.DefaultAIConfig(), nil
	}
	if err != nil {
		return article.AIConfig{}, fmt.Errorf("load ai config: %w", err)
	}
	var cfg article.AIConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil || len(cfg.TeaserPrompts) == 0 {
		return article.DefaultAIConfig(), nil
	}
	return cfg, nil
}

func (s *SQLiteStore) SaveAIConfig(ctx context.Context, cfg article.AIConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		aiConfigKey, string(b))
	if err != nil {
		return fmt.Errorf("save ai config: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNilSections(s []article.Section) []article.Section {
	if s == nil {
		return []article.Section{}
	}
	return s
}
