package resume

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrNotObject is returned when a payload is valid JSON but not an object.
	ErrNotObject = errors.New("resume payload is not a JSON object")
	// ErrSchema wraps schema violations.
	ErrSchema = errors.New("resume payload does not match schema")
)

//go:embed schema/resume.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("resume.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("resume.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks a decoded payload against the embedded schema.
func Validate(v any) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// Decode parses data into a Record: normalize, validate, sanitize, then bind.
func Decode(data []byte) (Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("decode resume json: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Record{}, ErrNotObject
	}
	return FromMap(obj)
}

// FromMap runs the same pipeline as Decode on an already decoded object.
// Any schema violation rejects the whole payload.
func FromMap(obj map[string]any) (Record, error) {
	if obj == nil {
		return Record{}, ErrNotObject
	}
	normalized := Normalize(obj)
	if err := Validate(normalized); err != nil {
		return Record{}, err
	}
	clean, _ := Sanitize(normalized)
	return bind(clean)
}

// FromModelOutput binds a model-produced object leniently. Unknown and
// mistyped fields are dropped instead of failing the payload; what was
// dropped, plus any schema complaint left after cleaning, comes back as
// issues.
func FromModelOutput(obj map[string]any) (Record, []string, error) {
	if obj == nil {
		return Record{}, nil, ErrNotObject
	}
	clean, issues := Sanitize(Normalize(obj))
	if err := Validate(clean); err != nil {
		issues = append(issues, err.Error())
	}
	rec, err := bind(clean)
	return rec, issues, err
}

func bind(clean map[string]any) (Record, error) {
	bs, err := json.Marshal(clean)
	if err != nil {
		return Record{}, fmt.Errorf("encode sanitized resume: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(bs, &rec); err != nil {
		return Record{}, fmt.Errorf("bind resume: %w", err)
	}
	rec.ensureCoreLists()
	return rec, nil
}

// ToMap converts a record into its JSON object form.
func ToMap(rec Record) (map[string]any, error) {
	bs, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractJSONObject returns the span from the first '{' to the last '}'.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// StripCodeFence removes a leading ``` line (with optional language tag) and
// a trailing ``` from s.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseObject decodes s as a JSON object, falling back to the largest
// {...} span when s carries surrounding prose.
func ParseObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, nil
	}
	candidate, ok := ExtractJSONObject(s)
	if !ok {
		return nil, fmt.Errorf("no json object found in content")
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, fmt.Errorf("recover json object: %w", err)
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}
