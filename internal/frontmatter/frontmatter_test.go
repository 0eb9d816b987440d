package frontmatter

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantMeta string
		wantBody string
	}{
		{"simple", "---\nid: 1\n---\nbody\n", "id: 1", "body\n"},
		{"extra delimiter in body", "---\nid: 1\n---\n---\nbody\n", "id: 1", "---\nbody\n"},
		{"crlf", "---\r\nid: 1\r\n---\r\nbody\r\n", "id: 1", "body\n"},
		{"trailing whitespace on close", "---\nid: 1\n--- \t \nbody\n", "id: 1", "body\n"},
		{"bom", "\uFEFF---\nid: 1\n---\nbody\n", "id: 1", "body\n"},
		{"no newline after close", "---\nid: 1\n---", "id: 1", ""},
		{"empty block", "---\n---\nbody\n", "", "body\n"},
		{"empty block no body", "---\n---", "", ""},
		{"block trimmed", "---\n\n  id: 1\nname: x\n\n---\nbody", "id: 1\nname: x", "body"},
		{"longer dash line is not a close", "---\nid: 1\n----\n---\nbody\n", "id: 1\n----", "body\n"},
		{"body keeps later delimiters", "---\na: b\n---\nx\n---\ny\n---\n", "a: b", "x\n---\ny\n---\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Meta != tc.wantMeta {
				t.Errorf("meta = %q, want %q", doc.Meta, tc.wantMeta)
			}
			if doc.Body != tc.wantBody {
				t.Errorf("body = %q, want %q", doc.Body, tc.wantBody)
			}
		})
	}
}

func TestParse_Missing(t *testing.T) {
	for _, input := range []string{
		"id: 1\n---\nbody\n",
		"",
		"---",
		" ---\nid: 1\n---\n",
		"# Heading\n",
	} {
		if _, err := Parse(input); !errors.Is(err, ErrMissing) {
			t.Errorf("Parse(%q) err = %v, want ErrMissing", input, err)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, input := range []string{
		"---\nid: 1\nbody\n",
		"---\r\nid: 1\r\nbody\r\n",
		"---\n",
		"---\nid: 1\n---x\n",
	} {
		if _, err := Parse(input); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformed", input, err)
		}
	}
}

type meta struct {
	ID   string   `yaml:"id"`
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags"`
}

func TestDecode_RoundTripsRequiredFields(t *testing.T) {
	doc, err := Parse("---\nid: analyst\nname: Analyst\nunknown: ignored\ntags:\n  - a\n  - b\n---\nbody\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var m meta
	if err := Decode(doc.Meta, &m); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.ID != "analyst" || m.Name != "Analyst" {
		t.Errorf("got %+v", m)
	}
	if len(m.Tags) != 2 || m.Tags[0] != "a" || m.Tags[1] != "b" {
		t.Errorf("tags = %v", m.Tags)
	}
}

func TestDecode_InvalidYAML(t *testing.T) {
	var m meta
	if err := Decode(": invalid: yaml: {{{", &m); err == nil {
		t.Fatal("expected decode error")
	}
}
