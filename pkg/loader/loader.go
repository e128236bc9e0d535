package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// ErrInvalidDocument is returned when the input does not describe a tree.
var ErrInvalidDocument = errors.New("invalid tree document")

// Format identifies the encoding of a tree document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension.
// Unknown extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadDocument reads a tree document from the given file.
func LoadDocument(path string) (*model.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no tree document found at %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree document: %w", err)
	}

	doc, err := ParseDocument(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument decodes a tree document. The root node and an optional
// sibling "seo" object share the top level:
//
//	{"node": "Root", "weight": 5, "children": [...], "seo": {"title": "..."}}
//
// Ids are assigned to every node before the document is returned.
func ParseDocument(data []byte, format Format) (*model.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	var (
		root model.TreeNode
		doc  model.Document
	)
	switch format {
	case FormatYAML:
		var probe map[string]any
		if err := yaml.Unmarshal(trimmed, &probe); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if probe == nil {
			return nil, fmt.Errorf("%w: root must be a mapping", ErrInvalidDocument)
		}
		if err := yaml.Unmarshal(trimmed, &root); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	default:
		if trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: root must be a JSON object", ErrInvalidDocument)
		}
		if err := json.Unmarshal(trimmed, &root); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}

	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	model.AssignIDs(&root)
	doc.Root = &root
	return &doc, nil
}

// Name returns a human-readable name for a document: the seo title when
// present, otherwise the root label.
func Name(doc *model.Document) string {
	if doc == nil {
		return ""
	}
	if doc.SEO != nil && doc.SEO.Title != "" {
		return doc.SEO.Title
	}
	if doc.Root != nil {
		return doc.Root.Label
	}
	return ""
}
