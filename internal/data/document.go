package data

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/mailwright/internal/errors"
)

// documentSchema is the shape every data document must have.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["settings", "content"],
  "properties": {
    "settings": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1}
      }
    },
    "content": {"type": "object"}
  }
}`

// Document is one parsed data file.
type Document struct {
	Path    string
	ID      string
	Content map[string]any
}

// Parser decodes and validates data documents.
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser compiles the document schema.
func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "compile document schema", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse decodes raw according to the extension of path and validates it.
func (p *Parser) Parse(path string, raw []byte) (Document, error) {
	var decoded any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return Document{}, errors.NewParseError(errors.ErrCodeDocumentInvalid, "decode json document", err).WithPath(path)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(raw, &decoded); err != nil {
			return Document{}, errors.NewParseError(errors.ErrCodeDocumentInvalid, "decode yaml document", err).WithPath(path)
		}
	default:
		return Document{}, errors.NewParseError(errors.ErrCodeDocumentInvalid,
			fmt.Sprintf("unsupported document extension %q", ext), nil).WithPath(path)
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(decoded))
	if err != nil {
		return Document{}, errors.NewParseError(errors.ErrCodeDocumentInvalid, "validate document", err).WithPath(path)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return Document{}, errors.NewParseError(errors.ErrCodeDocumentInvalid,
			"document does not match schema: "+strings.Join(msgs, "; "), nil).WithPath(path)
	}

	root := decoded.(map[string]any)
	settings := root["settings"].(map[string]any)
	content, _ := root["content"].(map[string]any)

	return Document{
		Path:    path,
		ID:      settings["id"].(string),
		Content: content,
	}, nil
}
