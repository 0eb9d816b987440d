// Package storage defines the persona directory file-system abstraction.
package storage

// Provider is the interface for persona directory file operations. All paths
// are relative to the directory root.
type Provider interface {
	// Root returns the absolute path of the directory.
	Root() string
	// List returns the names of the Markdown files directly inside the root,
	// sorted by name.
	List() ([]string, error)
	// Resolve maps path to a canonical absolute path that is guaranteed to lie
	// inside the canonical root.
	Resolve(path string) (string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
