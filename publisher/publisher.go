package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/generator"
)

const digestLimit = 120

var (
	ErrNotConfigured    = errors.New("publish endpoint not configured")
	ErrNothingToPublish = errors.New("draft has no written sections")
	ErrUnauthorized     = errors.New("publish endpoint rejected the token")
)

// Config points at the remote publishing endpoint.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Drafts is the part of the draft store the publisher touches.
type Drafts interface {
	FindByTopic(ctx context.Context, topic string) (article.Draft, error)
	SetStatus(ctx context.Context, topic string, status article.Status) error
}

// Recorder remembers live articles so later link suggestions can use them.
type Recorder interface {
	AddPublished(ctx context.Context, a article.PublishedArticle) (article.PublishedArticle, error)
}

// Result describes the remote copy of a published draft.
type Result struct {
	RemoteID string `json:"remote_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

type payload struct {
	Title       string                   `json:"title"`
	Slug        string                   `json:"slug"`
	Digest      string                   `json:"digest"`
	ContentHTML string                   `json:"content_html"`
	Markdown    string                   `json:"markdown"`
	Categories  []string                 `json:"categories"`
	Keywords    []string                 `json:"keywords"`
	Teasers     []string                 `json:"teasers"`
	Links       []article.LinkSuggestion `json:"links"`
	Sources     []string                 `json:"sources"`
}

type publishResp struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Publisher hands finished drafts to the external publishing workflow.
type Publisher struct {
	cfg     Config
	drafts  Drafts
	catalog Recorder
	client  *http.Client
	logger  *zap.Logger
	md      goldmark.Markdown
}

// New creates a Publisher. A nil client gets one bounded by cfg.Timeout.
func New(cfg Config, drafts Drafts, catalog Recorder, client *http.Client, logger *zap.Logger) (*Publisher, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	if drafts == nil || catalog == nil {
		return nil, errors.New("publisher needs a draft store and a catalog")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		cfg:     cfg,
		drafts:  drafts,
		catalog: catalog,
		client:  client,
		logger:  logger,
		md:      newMarkdown(),
	}, nil
}

// Publish sends the stored draft for topic, marks it published and records
// the live article.
func (p *Publisher) Publish(ctx context.Context, topic string) (Result, error) {
	d, err := p.drafts.FindByTopic(ctx, topic)
	if err != nil {
		return Result{}, fmt.Errorf("load draft %q: %w", topic, err)
	}
	if article.CompletedCount(d.Sections) == 0 {
		return Result{}, ErrNothingToPublish
	}

	body, err := p.buildPayload(d)
	if err != nil {
		return Result{}, err
	}
	p.logger.Info("publishing draft", zap.String("topic", d.Topic), zap.String("title", body.Title))

	resp, err := p.send(ctx, body)
	if err != nil {
		return Result{}, err
	}
	res := Result{RemoteID: resp.ID, URL: resp.URL, Title: body.Title}

	// the remote side has the article; a local bookkeeping failure is only logged
	if err := p.drafts.SetStatus(ctx, d.Topic, article.StatusPublished); err != nil {
		p.logger.Warn("mark draft published failed", zap.String("topic", d.Topic), zap.Error(err))
	}
	if res.URL != "" {
		if _, err := p.catalog.AddPublished(ctx, article.PublishedArticle{Title: res.Title, URL: res.URL}); err != nil {
			p.logger.Warn("record published article failed", zap.String("url", res.URL), zap.Error(err))
		}
	}
	p.logger.Info("draft published",
		zap.String("topic", d.Topic),
		zap.String("remote_id", res.RemoteID),
		zap.String("url", res.URL))
	return res, nil
}

func (p *Publisher) buildPayload(d article.Draft) (payload, error) {
	var md article.Metadata
	if d.Metadata != nil {
		md = d.Metadata.Clone()
	}

	title := d.Topic
	if len(md.Titles) > 0 && strings.TrimSpace(md.Titles[0]) != "" {
		title = md.Titles[0]
	}
	text := article.FullText(d.Sections)
	markdown := "# " + title + "\n\n" + text

	contentHTML, err := p.render(markdown)
	if err != nil {
		return payload{}, fmt.Errorf("render markdown: %w", err)
	}

	digest := ""
	if len(md.Teasers) > 0 {
		digest = strings.TrimSpace(md.Teasers[0])
	}
	if digest == "" {
		digest = generator.DefaultDigest(sectionBodies(d.Sections), digestLimit)
	}

	return payload{
		Title:       title,
		Slug:        md.Slug,
		Digest:      digest,
		ContentHTML: contentHTML,
		Markdown:    markdown,
		Categories:  md.SuggestedCategories,
		Keywords:    md.Keywords,
		Teasers:     md.Teasers,
		Links:       md.LinkingSuggestions,
		Sources:     md.Sources,
	}, nil
}

func (p *Publisher) send(ctx context.Context, body payload) (publishResp, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return publishResp{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return publishResp{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return publishResp{}, fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return publishResp{}, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return publishResp{}, err
	}
	var out publishResp
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &out); err != nil && resp.StatusCode < 300 {
			return publishResp{}, fmt.Errorf("decode publish response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return publishResp{}, fmt.Errorf("publish failed: %d %s", resp.StatusCode, msg)
	}
	if out.ID == "" && out.URL == "" {
		return publishResp{}, errors.New("publish response carried neither id nor url")
	}
	return out, nil
}

func (p *Publisher) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// RenderHTML converts article Markdown to HTML, with GitHub-flavoured tables and lists.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := newMarkdown().Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sectionBodies(sections []article.Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.HasContent() {
			parts = append(parts, s.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
