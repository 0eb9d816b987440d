// Package models defines the domain types for the persona library.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PersonaMeta is the decoded front matter of a persona document.
type PersonaMeta struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Author      string   `yaml:"author,omitempty" json:"author,omitempty"`
	CreatedAt   string   `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	Version     string   `yaml:"version,omitempty" json:"version,omitempty"`
}

// Validate checks the fields every persona must carry.
func (m PersonaMeta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.Name, validation.Required),
	)
}

// CatalogEntry is a persona's metadata plus the locator clients fetch its
// body from. The metadata is flattened into the entry when serialised.
type CatalogEntry struct {
	PersonaMeta
	URI string `json:"uri"`
	// File is the document's name inside the persona directory. It is only
	// known for freshly built catalogs.
	File string `json:"-"`
}

// Catalog is the sidecar index of a persona directory.
type Catalog struct {
	BaseURI  string         `json:"base_uri"`
	Personas []CatalogEntry `json:"personas"`
}

// URIs returns the locator of every entry in catalog order.
func (c *Catalog) URIs() []string {
	out := make([]string, 0, len(c.Personas))
	for _, p := range c.Personas {
		out = append(out, p.URI)
	}
	return out
}

// Find returns the entry with the given id.
func (c *Catalog) Find(id string) (CatalogEntry, bool) {
	for _, p := range c.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return CatalogEntry{}, false
}
