package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"tareas_api/internal/domain"
)

// RawField captures one JSON member as-is so that absent, null and
// mistyped values can each be reported against the right field.
type RawField struct {
	Raw json.RawMessage
	Set bool
}

func (f *RawField) UnmarshalJSON(b []byte) error {
	f.Set = true
	f.Raw = append(f.Raw[:0], b...)
	return nil
}

func (f RawField) null() bool {
	return f.Set && bytes.Equal(bytes.TrimSpace(f.Raw), []byte("null"))
}

// TaskPatch is the request schema for creating and editing tasks. id and
// user are read-only and therefore not part of it.
type TaskPatch struct {
	Title       RawField `json:"titulo"`
	Description RawField `json:"descripcion"`
	DueDate     RawField `json:"fecha_vence"`
	Completed   RawField `json:"estado"`
}

// apply writes the present fields onto t. With full set, titulo and
// fecha_vence must be present.
func (p TaskPatch) apply(t *domain.Task, full bool) error {
	v := &domain.ValidationError{}

	if title, ok := stringField(v, "titulo", p.Title, full); ok {
		switch {
		case blank(title):
			v.Add("titulo", msgBlank)
		case tooLong(strings.TrimSpace(title), maxTitleLen):
			v.Add("titulo", maxLenMsg(maxTitleLen))
		default:
			t.Title = strings.TrimSpace(title)
		}
	}

	if desc, ok := stringField(v, "descripcion", p.Description, false); ok {
		t.Description = strings.TrimSpace(desc)
	}

	if raw, ok := stringField(v, "fecha_vence", p.DueDate, full); ok {
		d, err := domain.ParseDate(strings.TrimSpace(raw))
		if err != nil {
			v.Add("fecha_vence", msgDate)
		} else {
			t.DueDate = d
		}
	}

	if p.Completed.Set {
		if p.Completed.null() {
			v.Add("estado", msgNull)
		} else if b, ok := parseBool(p.Completed.Raw); ok {
			t.Completed = b
		} else {
			v.Add("estado", msgNotBoolean)
		}
	}

	return v.Err()
}

// stringField decodes a string member, recording why it could not be used.
func stringField(v *domain.ValidationError, name string, f RawField, required bool) (string, bool) {
	if !f.Set {
		if required {
			v.Add(name, msgRequired)
		}
		return "", false
	}
	if f.null() {
		v.Add(name, msgNull)
		return "", false
	}
	var s string
	if err := json.Unmarshal(f.Raw, &s); err != nil {
		v.Add(name, msgNotString)
		return "", false
	}
	return s, true
}

// parseBool accepts JSON booleans plus the usual form encodings of them.
func parseBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
		return false, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		switch n.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	}
	return false, false
}
