// Package mirror downloads a published persona library (base instructions,
// catalog and every listed persona) into a local directory.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/avatars/internal/apperr"
	"github.com/starford/avatars/internal/catalog"
	"github.com/starford/avatars/internal/checksum"
	"github.com/starford/avatars/internal/storage"
)

const (
	userAgent      = "avatars-sync/0.1"
	defaultTimeout = 30 * time.Second
)

// Config describes what to mirror and where.
type Config struct {
	// BaseURL is the remote root the library is published under.
	BaseURL string
	// BaseInstructions is the relative path of the base instructions file,
	// both remotely and locally.
	BaseInstructions string
	// Catalog is the relative path of the catalog file.
	Catalog string
	// Root is the existing local directory relative paths are written under.
	Root string
	// Timeout bounds each HTTP request when no client is supplied.
	Timeout time.Duration
}

// Summary counts mirrored files.
type Summary struct {
	Total   int
	Updated int
}

// Unchanged is the number of files that were already up to date.
func (s Summary) Unchanged() int {
	return s.Total - s.Updated
}

// Mirror copies a remote library to disk.
type Mirror struct {
	cfg    Config
	store  *storage.FS
	client *http.Client
	logger *slog.Logger
}

// New validates cfg and returns a Mirror. A nil client gets one with
// cfg.Timeout.
func New(cfg Config, client *http.Client, logger *slog.Logger) (*Mirror, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("mirror: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("mirror: base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := ValidateRelative(cfg.BaseInstructions); err != nil {
		return nil, err
	}
	if err := ValidateRelative(cfg.Catalog); err != nil {
		return nil, err
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	store, err := storage.NewFS(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{cfg: cfg, store: store, client: client, logger: logger}, nil
}

// Sync downloads the base instructions, the catalog and every persona the
// catalog lists. Files whose content already matches are left untouched.
func (m *Mirror) Sync(ctx context.Context) (Summary, error) {
	var sum Summary

	if _, err := m.fetch(ctx, m.cfg.BaseInstructions, &sum); err != nil {
		return sum, err
	}
	data, err := m.fetch(ctx, m.cfg.Catalog, &sum)
	if err != nil {
		return sum, err
	}

	c, err := catalog.Decode(m.cfg.Catalog, data)
	if err != nil {
		return sum, fmt.Errorf("mirror: %w", err)
	}
	for _, uri := range c.URIs() {
		rel, err := m.relative(uri)
		if err != nil {
			return sum, err
		}
		if _, err := m.fetch(ctx, rel, &sum); err != nil {
			return sum, err
		}
	}

	m.logger.Info("mirror: synced",
		slog.String("base_url", m.cfg.BaseURL),
		slog.Int("total", sum.Total),
		slog.Int("updated", sum.Updated))
	return sum, nil
}

// relative maps a catalog uri onto a path below the base URL.
func (m *Mirror) relative(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("mirror: uri %q: %w", uri, err)
	}
	if u.Scheme != "" {
		prefix := m.cfg.BaseURL + "/"
		if !strings.HasPrefix(uri, prefix) {
			return "", fmt.Errorf("mirror: uri %q is outside %s: %w", uri, m.cfg.BaseURL, apperr.ErrInvalidPath)
		}
		uri = strings.TrimPrefix(uri, prefix)
	}
	if err := ValidateRelative(uri); err != nil {
		return "", err
	}
	return uri, nil
}

// fetch downloads rel and writes it below Root when it changed. It returns
// the remote bytes.
func (m *Mirror) fetch(ctx context.Context, rel string, sum *Summary) ([]byte, error) {
	remote := BuildURL(m.cfg.BaseURL, rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote, nil)
	if err != nil {
		return nil, fmt.Errorf("mirror: request %s: %w", remote, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror: download %s: %w", remote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("mirror: download %s: status %s", remote, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mirror: download %s: %w", remote, err)
	}

	sum.Total++
	existing, err := m.store.Read(rel)
	if err == nil && checksum.Equal(existing, data) {
		m.logger.Debug("mirror: unchanged", slog.String("path", rel))
		return data, nil
	}
	if err := m.store.Write(rel, data); err != nil {
		return nil, fmt.Errorf("mirror: write %s: %w", rel, err)
	}
	sum.Updated++
	m.logger.Debug("mirror: updated", slog.String("path", rel))
	return data, nil
}

// ValidateRelative rejects absolute paths and paths with parent segments.
func ValidateRelative(p string) error {
	if p == "" {
		return fmt.Errorf("mirror: empty path: %w", apperr.ErrInvalidPath)
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return fmt.Errorf("mirror: path %q must be relative: %w", p, apperr.ErrInvalidPath)
	}
	for _, seg := range strings.FieldsFunc(p, isSeparator) {
		if seg == ".." {
			return fmt.Errorf("mirror: path %q must not contain parent segments: %w", p, apperr.ErrInvalidPath)
		}
	}
	return nil
}

// BuildURL joins the normal segments of rel onto base.
func BuildURL(base, rel string) string {
	base = strings.TrimRight(base, "/")
	var segs []string
	for _, seg := range strings.FieldsFunc(rel, isSeparator) {
		if seg == "." {
			continue
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return base
	}
	return base + "/" + path.Join(segs...)
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
