// Package frontmatter splits a Markdown document into its leading YAML
// metadata block and body.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	delim = "---"
	bom   = "\uFEFF"
)

var (
	// ErrMissing means the document does not open with a delimiter line and
	// so carries no metadata block at all.
	ErrMissing = errors.New("front matter missing")
	// ErrMalformed means an opening delimiter was found but never closed.
	ErrMalformed = errors.New("front matter malformed")
)

// Document is the result of splitting a document. Meta and Body are slices of
// the normalised input.
type Document struct {
	Meta string
	Body string
}

// Parse separates the metadata block from the body.
//
// A leading byte-order mark is dropped and CRLF line endings are converted to
// LF before anything else. The first line must be exactly "---". The block is
// closed by the first following line consisting of "---" plus optional spaces
// or tabs; everything after that line, further delimiters included, is body.
func Parse(content string) (Document, error) {
	content = strings.TrimPrefix(content, bom)
	if strings.Contains(content, "\r\n") {
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}

	rest, ok := strings.CutPrefix(content, delim+"\n")
	if !ok {
		return Document{}, ErrMissing
	}

	for pos := 0; pos <= len(rest); {
		end := strings.IndexByte(rest[pos:], '\n')
		next := len(rest) + 1
		if end >= 0 {
			end += pos
			next = end + 1
		} else {
			end = len(rest)
		}

		if isDelimiter(rest[pos:end]) {
			meta := ""
			if pos > 0 {
				meta = strings.TrimSpace(rest[:pos-1])
			}
			body := ""
			if next <= len(rest) {
				body = rest[next:]
			}
			return Document{Meta: meta, Body: body}, nil
		}
		pos = next
	}

	return Document{}, ErrMalformed
}

func isDelimiter(line string) bool {
	tail, ok := strings.CutPrefix(line, delim)
	return ok && strings.Trim(tail, " \t") == ""
}

// Decode unmarshals a metadata block into out. Unknown keys are ignored.
func Decode(meta string, out any) error {
	if err := yaml.Unmarshal([]byte(meta), out); err != nil {
		return fmt.Errorf("frontmatter: decode: %w", err)
	}
	return nil
}
