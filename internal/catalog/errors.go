package catalog

import "fmt"

// Kind classifies a build failure.
type Kind int

const (
	KindIO Kind = iota + 1
	KindFrontMatter
	KindDecode
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFrontMatter:
		return "front matter"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	default:
		return "unknown"
	}
}

// Error is a build failure tagged with the file it concerns.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindIO:
		return fmt.Sprintf("I/O error at %s: %v", e.Path, e.Err)
	case KindFrontMatter:
		return fmt.Sprintf("invalid front matter in %s: %v", e.Path, e.Err)
	case KindDecode:
		return fmt.Sprintf("failed to decode metadata in %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("failed to encode catalog at %s: %v", e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DuplicateError reports two documents declaring the same id.
type DuplicateError struct {
	ID        string
	First     string
	Duplicate string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate persona id %q found in %s (already defined in %s)", e.ID, e.Duplicate, e.First)
}

func ioErr(path string, err error) error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}
