package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// errEmpty is returned for files with no document
var errEmpty = errors.New("file is empty")

// decodeStrict decodes data into v, rejecting unknown fields. The format is
// chosen by the file extension of name.
func decodeStrict(name string, data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errEmpty
	}
	if isJSON(name) {
		return decodeJSON(data, v)
	}
	return decodeYAML(data, v)
}

// decodeLenient decodes whatever it can from data, ignoring unknown fields
// and type mismatches. The result is best effort.
func decodeLenient(name string, data []byte, v any) {
	if isJSON(name) {
		_ = json.Unmarshal(data, v)
		return
	}
	_ = yaml.Unmarshal(data, v)
}

func decodeJSON(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return errors.New("invalid JSON: unexpected data after the top-level value")
	}
	return nil
}

func decodeYAML(data []byte, v any) error {
	// Syntax errors first, so they are not reported as unknown fields
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(v); err != nil {
		if err == io.EOF {
			return errEmpty
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func isJSON(name string) bool {
	return strings.EqualFold(path.Ext(name), ".json")
}

// stem is the file name without directory or extension
func stem(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}
