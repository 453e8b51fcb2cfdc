package crisis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type rawCategory struct {
	key  string
	body json.RawMessage
}

type categoryDoc struct {
	Keywords         []string   `json:"keywords"`
	Level            Level      `json:"level"`
	Action           string     `json:"action"`
	Resources        []Resource `json:"resources"`
	NotifyModeration bool       `json:"notify_moderation"`
	StoreFlag        bool       `json:"store_flag"`
	UserMessage      string     `json:"user_message"`
}

// ParseDatabase decodes a keyword document: a JSON object (or YAML mapping)
// of category key to category. Document order is kept. Categories that fail
// validation are skipped and reported by Skipped; only a document that is not
// a mapping is an error.
func ParseDatabase(data []byte) (*Database, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		raws []rawCategory
		err  error
	)
	if trimmed[0] == '{' {
		raws, err = decodeJSONObject(trimmed)
	} else {
		raws, err = decodeYAMLMapping(trimmed)
	}
	if err != nil {
		return nil, err
	}

	validator, err := categoryValidator()
	if err != nil {
		return nil, err
	}

	db := NewDatabase()
	for _, raw := range raws {
		cat, reason := buildCategory(raw, validator)
		if reason != "" {
			db.skipped = append(db.skipped, SkippedCategory{Key: raw.key, Reason: reason})
			continue
		}
		db.add(cat)
	}
	return db, nil
}

type schemaValidator interface {
	Validate(v interface{}) error
}

func buildCategory(raw rawCategory, validator schemaValidator) (Category, string) {
	if raw.key == "" {
		return Category{}, "empty category key"
	}
	var generic interface{}
	if err := json.Unmarshal(raw.body, &generic); err != nil {
		return Category{}, err.Error()
	}
	if err := validator.Validate(generic); err != nil {
		return Category{}, err.Error()
	}
	var doc categoryDoc
	if err := json.Unmarshal(raw.body, &doc); err != nil {
		return Category{}, err.Error()
	}
	return Category{
		Key:              raw.key,
		Keywords:         doc.Keywords,
		Level:            doc.Level,
		Action:           doc.Action,
		Resources:        doc.Resources,
		NotifyModeration: doc.NotifyModeration,
		StoreFlag:        doc.StoreFlag,
		UserMessage:      doc.UserMessage,
	}, ""
}

// decodeJSONObject walks the top-level object token by token so key order survives.
func decodeJSONObject(data []byte) ([]rawCategory, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidDocument)
	}

	var out []rawCategory
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		key, _ := keyTok.(string)
		var body json.RawMessage
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", ErrInvalidDocument, key, err)
		}
		out = append(out, rawCategory{key: key, body: body})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidDocument)
	}
	return out, nil
}

// decodeYAMLMapping reads a YAML mapping node; its Content alternates key and value.
func decodeYAMLMapping(data []byte) ([]rawCategory, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDocument)
	}

	out := make([]rawCategory, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var value interface{}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", ErrInvalidDocument, key, err)
		}
		body, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", ErrInvalidDocument, key, err)
		}
		out = append(out, rawCategory{key: key, body: body})
	}
	return out, nil
}
