// Package resources maps resource identifiers onto files of a persona
// library. Every transport resolves reads through Service so the traversal
// guard lives in one place.
package resources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/starford/avatars/internal/apperr"
	"github.com/starford/avatars/internal/catalog"
	"github.com/starford/avatars/internal/storage"
)

// DefaultConcurrency bounds simultaneous file reads when Config leaves it unset.
const DefaultConcurrency = 4

// Config names the well-known resources of a library.
type Config struct {
	// BaseInstructions is the path of the base instructions file; its base
	// name is the resource identifier.
	BaseInstructions string
	// CatalogURI is the identifier under which the sidecar catalog is served.
	CatalogURI string
	// Concurrency caps parallel file reads.
	Concurrency int
}

// Service lists and reads library resources.
type Service struct {
	store      storage.Provider
	prefix     string
	basePath   string
	baseURI    string
	catalogURI string
	sem        *semaphore.Weighted
}

// New creates a Service over store. Persona identifiers are the store's
// directory name followed by "/" and a path relative to it.
func New(store storage.Provider, cfg Config) *Service {
	n := cfg.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	catalogURI := cfg.CatalogURI
	prefix := filepath.Base(store.Root())
	if catalogURI == "" {
		catalogURI = prefix + ".json"
	}
	return &Service{
		store:      store,
		prefix:     prefix,
		basePath:   cfg.BaseInstructions,
		baseURI:    filepath.Base(cfg.BaseInstructions),
		catalogURI: catalogURI,
		sem:        semaphore.NewWeighted(int64(n)),
	}
}

// CatalogURI is the identifier of the generated catalog.
func (s *Service) CatalogURI() string { return s.catalogURI }

// BaseURI is the identifier of the base instructions file.
func (s *Service) BaseURI() string { return s.baseURI }

// Prefix is the directory part of persona identifiers.
func (s *Service) Prefix() string { return s.prefix }

// Dir is the persona directory on disk.
func (s *Service) Dir() string { return s.store.Root() }

// BaseInstructionsPath is the base instructions file on disk.
func (s *Service) BaseInstructionsPath() string { return s.basePath }

// PersonaURI returns the identifier of a file directly inside the directory.
func (s *Service) PersonaURI(name string) string {
	return s.prefix + "/" + name
}

// CatalogPath is the on-disk location of the sidecar catalog.
func (s *Service) CatalogPath() string {
	return filepath.Join(s.store.Root(), catalog.FileName)
}

// List returns the catalog, the base instructions and every persona file,
// the latter sorted by file name.
func (s *Service) List() ([]string, error) {
	names, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("resources: list: %w", err)
	}
	out := make([]string, 0, len(names)+2)
	out = append(out, s.catalogURI, s.baseURI)
	for _, name := range names {
		out = append(out, s.PersonaURI(name))
	}
	return out, nil
}

// Read returns the text content of the resource named by uri.
//
// Persona identifiers are resolved by joining the remainder onto the
// canonical directory and canonicalising the result; anything that lands
// outside the directory fails with apperr.ErrAccessDenied.
func (s *Service) Read(ctx context.Context, uri string) (string, error) {
	switch {
	case uri == s.catalogURI:
		return s.readFile(ctx, s.CatalogPath())
	case uri == s.baseURI:
		return s.readFile(ctx, s.basePath)
	case strings.HasPrefix(uri, s.prefix+"/"):
		path, err := s.store.Resolve(strings.TrimPrefix(uri, s.prefix+"/"))
		if err != nil {
			return "", err
		}
		return s.readFile(ctx, path)
	default:
		return "", fmt.Errorf("resources: %q: %w", uri, apperr.ErrUnknownResource)
	}
}

func (s *Service) readFile(ctx context.Context, path string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("resources: acquire reader: %w", err)
	}
	defer s.sem.Release(1)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resources: read %s: %w", filepath.Base(path), apperr.ErrNotFound)
		}
		return "", fmt.Errorf("resources: read %s: %w", filepath.Base(path), err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("resources: read %s: content is not valid UTF-8", filepath.Base(path))
	}
	return string(data), nil
}

// InternalMessage is sent to clients for failures that have no specific
// client-facing meaning.
const InternalMessage = "Internal error"

// ClientMessage renders err for remote clients without leaking local paths.
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrAccessDenied):
		return "Access denied"
	case errors.Is(err, apperr.ErrUnknownResource):
		return "Unknown resource"
	case errors.Is(err, apperr.ErrNotFound):
		return "Resource not found"
	default:
		return InternalMessage
	}
}
