package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrMalformedRecord is wrapped by every Decode failure. A malformed record is
// rejected as a whole; no field of it is applied.
var ErrMalformedRecord = errors.New("malformed progress record")

// recordSchema checks JSON types only. Value-level policy (enums, dedupe,
// unknown badges) is applied field by field in Decode.
var recordSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"completedLessons":   nullable("array", map[string]any{"items": map[string]any{"type": "string"}}),
		"completedProblems":  nullable("array", map[string]any{"items": map[string]any{"type": "string"}}),
		"badges":             nullable("array", map[string]any{"items": map[string]any{"type": "string"}}),
		"currentStreak":      nullable("integer", map[string]any{"minimum": 0}),
		"xp":                 nullable("integer", map[string]any{"minimum": 0}),
		"lastLoginDate":      nullable("string", nil),
		"adminUnlocked":      nullable("boolean", nil),
		"apiKey":             nullable("string", nil),
		"lastActiveLanguage": nullable("string", nil),
		"settings": nullable("object", map[string]any{
			"properties": map[string]any{
				"appLanguage": nullable("string", nil),
				"theme":       nullable("string", nil),
			},
		}),
	},
}

func nullable(typ string, extra map[string]any) map[string]any {
	m := map[string]any{"type": []any{typ, "null"}}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func recordValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go maps with typed slices.
		b, err := json.Marshal(recordSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal record schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			compileErr = fmt.Errorf("parse record schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://user-state.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// Codec converts between UserState and its persisted JSON form.
type Codec struct {
	badges *Evaluator
}

// NewCodec creates a codec that keeps only badge ids known to e.
// A nil evaluator uses the built-in badge table.
func NewCodec(e *Evaluator) *Codec {
	if e == nil {
		e = DefaultEvaluator()
	}
	return &Codec{badges: e}
}

// Decode reconciles a persisted record over Default.
//
// Missing or null fields take their default. A field of the wrong JSON type,
// a negative counter, or an unparsable lastLoginDate rejects the record.
// Unknown enum values fall back to the default for that field, ids are
// deduplicated, and badge ids the evaluator does not define are dropped.
// Unrecognised top-level fields are returned as extras.
func (c *Codec) Decode(data []byte) (UserState, map[string]json.RawMessage, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Default(), nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	v, err := recordValidator()
	if err != nil {
		return Default(), nil, fmt.Errorf("record schema: %w", err)
	}
	if err := v.Validate(doc); err != nil {
		return Default(), nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Default(), nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	s := Default()
	extras := map[string]json.RawMessage{}
	for name, raw := range fields {
		if isNull(raw) {
			continue
		}
		var err error
		switch name {
		case "completedLessons":
			s.CompletedLessons, err = decodeSet(raw, nil)
		case "completedProblems":
			s.CompletedProblems, err = decodeSet(raw, nil)
		case "badges":
			s.Badges, err = decodeSet(raw, c.badges.Knows)
		case "currentStreak":
			s.CurrentStreak, err = decodeCount(raw)
		case "xp":
			s.XP, err = decodeCount(raw)
		case "lastLoginDate":
			s.LastLoginDate, err = decodeTime(raw)
		case "adminUnlocked":
			err = json.Unmarshal(raw, &s.AdminUnlocked)
		case "apiKey":
			s.APIKey, err = decodeOptionalString(raw)
		case "lastActiveLanguage":
			var lang Language
			if err = json.Unmarshal(raw, &lang); err == nil && lang.Valid() {
				s.LastActiveLanguage = lang
			}
		case "settings":
			s.Settings, err = decodeSettings(raw)
		default:
			extras[name] = raw
		}
		if err != nil {
			return Default(), nil, fmt.Errorf("%w: field %s: %v", ErrMalformedRecord, name, err)
		}
	}
	return s, extras, nil
}

// Encode serialises s. Extras are written only for keys UserState does not own.
func (c *Codec) Encode(s UserState, extras map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if len(extras) == 0 {
		return b, nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("remarshal state: %w", err)
	}
	for k, v := range extras {
		if _, owned := m[k]; !owned {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeSet(raw json.RawMessage, keep func(string) bool) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] || (keep != nil && !keep(id)) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func decodeCount(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("want non-negative integer, got %v", f)
	}
	return int(f), nil
}

func decodeTime(raw json.RawMessage) (*time.Time, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeOptionalString(raw json.RawMessage) (*string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, err
	}
	if strings.TrimSpace(str) == "" {
		return nil, nil
	}
	return &str, nil
}

func decodeSettings(raw json.RawMessage) (Settings, error) {
	settings := DefaultSettings()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return settings, err
	}
	if v, ok := fields["appLanguage"]; ok && !isNull(v) {
		var lang AppLanguage
		if err := json.Unmarshal(v, &lang); err != nil {
			return settings, err
		}
		if lang.Valid() {
			settings.AppLanguage = lang
		}
	}
	if v, ok := fields["theme"]; ok && !isNull(v) {
		var theme Theme
		if err := json.Unmarshal(v, &theme); err != nil {
			return settings, err
		}
		if theme.Valid() {
			settings.Theme = theme
		}
	}
	return settings, nil
}
