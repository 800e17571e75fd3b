// Package export renders a transcription version as Markdown, JSON, or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"scribe/internal/api"
	"scribe/internal/services"
)

// Format selects an output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts a format name or common file extension.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", services.Wrap(services.ErrValidation, "export", "format",
			fmt.Sprintf("unsupported format %q (want markdown, json, or yaml)", value), nil)
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ".md"
	}
}

// Document is everything an export contains.
type Document struct {
	ID           string           `json:"id" yaml:"id"`
	Title        string           `json:"title" yaml:"title"`
	Language     string           `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageName string           `json:"languageName,omitempty" yaml:"language_name,omitempty"`
	Version      api.VersionDTO   `json:"version" yaml:"version"`
	Derived      []api.DerivedDTO `json:"derived,omitempty" yaml:"derived,omitempty"`
}

// NewDocument combines a transcription, one of its versions, and any
// derived content computed from that version.
func NewDocument(t api.TranscriptionDTO, v api.VersionDTO, derived []api.DerivedDTO) Document {
	doc := Document{
		ID:           t.ID,
		Title:        t.Title,
		Language:     t.Language,
		LanguageName: t.LanguageName,
		Version:      v,
	}
	for _, d := range derived {
		if d.SourceVersion == v.Number {
			doc.Derived = append(doc.Derived, d)
		}
	}
	return doc
}

// Write encodes doc to w.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatMarkdown, "":
		_, err := io.WriteString(w, RenderMarkdown(doc))
		return err
	default:
		return services.Wrap(services.ErrValidation, "export", "write", fmt.Sprintf("unsupported format %q", format), nil)
	}
}
