package config

import (
	"bytes"
	"encoding/json"
	"strings"
)

func compactJSON(raw string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(strings.TrimSpace(raw))); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// marshalCompact encodes v on a single line without HTML escaping.
func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
