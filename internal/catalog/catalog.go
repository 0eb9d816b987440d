// Package catalog builds the sidecar index of a persona directory.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/avatars/internal/frontmatter"
	"github.com/starford/avatars/internal/models"
	"github.com/starford/avatars/internal/storage"
)

// FileName is the name of the sidecar written inside the persona directory.
const FileName = "catalog.json"

// Builder turns a persona directory into a Catalog.
type Builder struct {
	baseURL string
	logger  *slog.Logger
}

// NewBuilder creates a builder that prefixes entry locators with baseURL.
// An empty baseURL yields locators relative to the directory's parent.
func NewBuilder(baseURL string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Generate builds the catalog for dir and writes it to the sidecar file.
// Nothing is written when the build fails.
func (b *Builder) Generate(dir, basePath string) (*models.Catalog, error) {
	c, err := b.Build(dir, basePath)
	if err != nil {
		return nil, err
	}
	if err := Write(dir, c); err != nil {
		return nil, err
	}
	b.logger.Info("catalog: written",
		slog.String("path", filepath.Join(dir, FileName)),
		slog.Int("personas", len(c.Personas)))
	return c, nil
}

// Build scans the Markdown files directly inside dir and returns their
// metadata sorted by id. Any unreadable, unparsable or duplicate document
// aborts the build.
func (b *Builder) Build(dir, basePath string) (*models.Catalog, error) {
	if _, err := os.Stat(basePath); err != nil {
		return nil, ioErr(basePath, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ioErr(dir, err)
	}

	personas := []models.CatalogEntry{}
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != storage.MarkdownExt {
			continue
		}
		path := filepath.Join(dir, e.Name())

		meta, err := readMeta(path)
		if err != nil {
			return nil, err
		}
		if first, ok := seen[meta.ID]; ok {
			return nil, &DuplicateError{ID: meta.ID, First: first, Duplicate: path}
		}
		seen[meta.ID] = path

		personas = append(personas, models.CatalogEntry{
			PersonaMeta: meta,
			URI:         b.uri(dir, path),
			File:        e.Name(),
		})
		b.logger.Debug("catalog: indexed", slog.String("path", path), slog.String("id", meta.ID))
	}

	slices.SortFunc(personas, func(x, y models.CatalogEntry) int {
		return strings.Compare(x.ID, y.ID)
	})

	return &models.Catalog{
		BaseURI:  relativeToParent(dir, basePath),
		Personas: personas,
	}, nil
}

func readMeta(path string) (models.PersonaMeta, error) {
	var meta models.PersonaMeta

	data, err := os.ReadFile(path)
	if err != nil {
		return meta, ioErr(path, err)
	}
	doc, err := frontmatter.Parse(string(data))
	if err != nil {
		return meta, &Error{Kind: KindFrontMatter, Path: path, Err: err}
	}
	if err := frontmatter.Decode(doc.Meta, &meta); err != nil {
		return meta, &Error{Kind: KindDecode, Path: path, Err: err}
	}
	if err := meta.Validate(); err != nil {
		return meta, &Error{Kind: KindDecode, Path: path, Err: err}
	}
	return meta, nil
}

func (b *Builder) uri(dir, path string) string {
	rel := relativeToParent(dir, path)
	if b.baseURL == "" {
		return rel
	}
	return b.baseURL + "/" + rel
}

// relativeToParent expresses p relative to the parent of dir when p lies
// below it, otherwise returns p unchanged. Separators become forward slashes.
func relativeToParent(dir, p string) string {
	parent := filepath.Dir(filepath.Clean(dir))
	if rel, err := filepath.Rel(parent, p); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		p = rel
	}
	return filepath.ToSlash(p)
}

// Encode renders c as indented JSON with a trailing newline.
func Encode(c *models.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serialises c to dir/catalog.json, replacing any previous file.
func Write(dir string, c *models.Catalog) error {
	path := filepath.Join(dir, FileName)
	data, err := Encode(c)
	if err != nil {
		return &Error{Kind: KindEncode, Path: path, Err: err}
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return ioErr(path, err)
	}
	return nil
}

// Load reads and decodes a previously written catalog.
func Load(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	return Decode(path, data)
}

// Decode parses catalog JSON; path is only used for error context.
func Decode(path string, data []byte) (*models.Catalog, error) {
	var c models.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &Error{Kind: KindDecode, Path: path, Err: fmt.Errorf("catalog: %w", err)}
	}
	return &c, nil
}
